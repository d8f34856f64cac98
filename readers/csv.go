//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 The csvmorph authors
//
// This file is part of csvmorph.
//
// csvmorph is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// csvmorph is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with csvmorph. If not, see https://www.gnu.org/licenses/.

package readers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/csvmorph/csvmorph/core"
)

// CSVReaderError wraps structured error information for the CSV reader.
type CSVReaderError struct {
	Op  string
	Err error
}

func (e *CSVReaderError) Error() string {
	return fmt.Sprintf("csv reader %s: %v", e.Op, e.Err)
}

func (e *CSVReaderError) Unwrap() error {
	return e.Err
}

// CSVReaderStats holds statistics about the CSV reader's performance.
type CSVReaderStats struct {
	RowsRead        int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	EmptyCellCounts map[string]int64
}

// CSVReaderOptions configures the CSV reader.
type CSVReaderOptions struct {
	Comma            rune
	Comment          rune
	FieldsPerRecord  int
	LazyQuotes       bool
	TrimLeadingSpace bool
	HasHeaders       bool
}

// ReaderOptionCSV allows functional customization of CSVReader.
type ReaderOptionCSV func(*CSVReaderOptions)

func WithCSVComma(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comma = r }
}

func WithCSVComment(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comment = r }
}

func WithCSVHasHeaders(hasHeaders bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.HasHeaders = hasHeaders }
}

func WithCSVTrimSpace(trim bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.TrimLeadingSpace = trim }
}

// CSVReader implements core.RowSource for CSV input. Cell values stay raw
// text; typing is the transformation plan's job, not the reader's.
type CSVReader struct {
	reader  *csv.Reader
	header  []string
	pending []string // first record of a headerless file, not yet served
	closer  io.Closer
	stats   CSVReaderStats
	opts    CSVReaderOptions
	rowNum  int
}

// NewCSVReader creates a CSVReader with default or overridden options. The
// header row is read eagerly and repaired: blank names are replaced and
// duplicates suffixed, so every column has a unique non-empty name.
func NewCSVReader(r io.ReadCloser, options ...ReaderOptionCSV) (*CSVReader, error) {
	opts := CSVReaderOptions{
		Comma:            ',',
		HasHeaders:       true,
		TrimLeadingSpace: true,
	}
	for _, opt := range options {
		opt(&opts)
	}

	csvReader := csv.NewReader(r)
	csvReader.Comma = opts.Comma
	csvReader.Comment = opts.Comment
	csvReader.FieldsPerRecord = opts.FieldsPerRecord
	csvReader.LazyQuotes = opts.LazyQuotes
	csvReader.TrimLeadingSpace = opts.TrimLeadingSpace

	reader := &CSVReader{
		reader: csvReader,
		closer: r,
		opts:   opts,
		stats:  CSVReaderStats{EmptyCellCounts: make(map[string]int64)},
	}

	if opts.HasHeaders {
		header, err := csvReader.Read()
		if err != nil {
			return nil, &CSVReaderError{Op: "read_header", Err: err}
		}
		reader.header = ImproveHeader(header)
		return reader, nil
	}

	// Headerless input: peek the first record to name the columns
	// positionally, so Header() is usable before the first Read. The
	// record is served back on that first Read.
	record, err := csvReader.Read()
	if err == io.EOF {
		return reader, nil
	}
	if err != nil {
		return nil, &CSVReaderError{Op: "read_row", Err: err}
	}
	reader.header = make([]string, len(record))
	for i := range record {
		reader.header[i] = "col_" + strconv.Itoa(i+1)
	}
	reader.pending = record

	return reader, nil
}

// ImproveHeader makes a header usable as a set of column names: blank names
// become positional ("col_3"), later duplicates get a numeric suffix.
func ImproveHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "col_" + strconv.Itoa(i+1)
		}
		candidate := name
		for n := 2; used[candidate]; n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// Header implements the core.RowSource interface.
func (c *CSVReader) Header() []string {
	return c.header
}

// Read implements the core.RowSource interface.
func (c *CSVReader) Read(ctx context.Context) (core.TextRow, error) {
	start := time.Now()

	select {
	case <-ctx.Done():
		return nil, &CSVReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	record := c.pending
	if record != nil {
		c.pending = nil
	} else {
		var err error
		record, err = c.reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, &CSVReaderError{Op: "read_row", Err: err}
		}
	}
	c.rowNum++

	row := make(core.TextRow, len(record))
	for i, val := range record {
		if i >= len(c.header) {
			break
		}
		key := c.header[i]
		if strings.TrimSpace(val) == "" {
			c.stats.EmptyCellCounts[key]++
		}
		row[key] = val
	}

	c.stats.RowsRead++
	c.stats.LastReadTime = time.Now()
	c.stats.ReadDuration += time.Since(start)

	return row, nil
}

// Close implements the core.RowSource interface.
func (c *CSVReader) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Stats returns CSV reader performance stats.
func (c *CSVReader) Stats() CSVReaderStats {
	return c.stats
}
