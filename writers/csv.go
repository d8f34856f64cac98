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

package writers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/csvmorph/csvmorph/core"
)

// CSVWriterError wraps structured error information for the CSV writer.
type CSVWriterError struct {
	Op  string
	Err error
}

func (e *CSVWriterError) Error() string {
	return fmt.Sprintf("csv writer %s: %v", e.Op, e.Err)
}

func (e *CSVWriterError) Unwrap() error {
	return e.Err
}

// CSVWriterStats holds statistics about the CSV writer's performance.
type CSVWriterStats struct {
	RowsWritten   int64
	FlushCount    int64
	WriteDuration time.Duration
	LastWriteTime time.Time
}

// CSVWriterOptions configures the CSV writer.
type CSVWriterOptions struct {
	Comma       rune
	UseCRLF     bool
	WriteHeader bool
	BatchSize   int
}

// WriterOptionCSV allows functional customization of CSVWriter.
type WriterOptionCSV func(*CSVWriterOptions)

func WithCSVDelimiter(delim rune) WriterOptionCSV {
	return func(o *CSVWriterOptions) { o.Comma = delim }
}

func WithCSVWriteHeader(write bool) WriterOptionCSV {
	return func(o *CSVWriterOptions) { o.WriteHeader = write }
}

func WithCSVBatchSize(size int) WriterOptionCSV {
	return func(o *CSVWriterOptions) { o.BatchSize = size }
}

func WithUseCRLF(useCRLF bool) WriterOptionCSV {
	return func(o *CSVWriterOptions) { o.UseCRLF = useCRLF }
}

// CSVWriter implements core.RowSink for CSV output. The header is taken
// from the first Write call and fixes the column order for every row.
type CSVWriter struct {
	mu      sync.Mutex
	writer  *csv.Writer
	closer  io.Closer
	opts    CSVWriterOptions
	header  []string
	buffer  [][]string
	stats   CSVWriterStats
	started bool
}

// NewCSVWriter creates a CSVWriter with default or overridden options.
func NewCSVWriter(w io.WriteCloser, options ...WriterOptionCSV) (*CSVWriter, error) {
	opts := CSVWriterOptions{
		Comma:       ',',
		WriteHeader: true,
		BatchSize:   100,
	}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.BatchSize <= 0 {
		return nil, &CSVWriterError{Op: "configure", Err: fmt.Errorf("batch size must be positive")}
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = opts.Comma
	csvWriter.UseCRLF = opts.UseCRLF

	return &CSVWriter{
		writer: csvWriter,
		closer: w,
		opts:   opts,
		buffer: make([][]string, 0, opts.BatchSize),
	}, nil
}

// Write implements the core.RowSink interface.
func (c *CSVWriter) Write(ctx context.Context, header []string, row core.TextRow) error {
	select {
	case <-ctx.Done():
		return &CSVWriterError{Op: "write", Err: ctx.Err()}
	default:
	}

	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		c.header = append([]string(nil), header...)
		if c.opts.WriteHeader {
			if err := c.writer.Write(c.header); err != nil {
				return &CSVWriterError{Op: "write_header", Err: err}
			}
		}
		c.started = true
	}

	record := make([]string, len(c.header))
	for i, name := range c.header {
		record[i] = row[name]
	}
	c.buffer = append(c.buffer, record)

	if len(c.buffer) >= c.opts.BatchSize {
		if err := c.flushBufferUnsafe(); err != nil {
			return err
		}
	}

	c.stats.RowsWritten++
	c.stats.LastWriteTime = time.Now()
	c.stats.WriteDuration += time.Since(start)
	return nil
}

// Flush implements the core.RowSink interface.
func (c *CSVWriter) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushBufferUnsafe()
}

// Close implements the core.RowSink interface.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.flushBufferUnsafe(); err != nil {
		return err
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func (c *CSVWriter) flushBufferUnsafe() error {
	for _, record := range c.buffer {
		if err := c.writer.Write(record); err != nil {
			return &CSVWriterError{Op: "write_row", Err: err}
		}
	}
	c.buffer = c.buffer[:0]
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return &CSVWriterError{Op: "flush", Err: err}
	}
	c.stats.FlushCount++
	return nil
}

// Stats returns CSV writer performance stats.
func (c *CSVWriter) Stats() CSVWriterStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
