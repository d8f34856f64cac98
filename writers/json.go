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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/csvmorph/csvmorph/core"
)

// JSONWriter implements core.RowSink for line-delimited JSON output. Each
// row becomes one object whose keys follow the output column order, which
// the stock map marshaling would not preserve.
type JSONWriter struct {
	writer io.Writer
	closer io.Closer
	buf    bytes.Buffer
}

// NewJSONWriter creates a new JSON writer for line-delimited JSON output
func NewJSONWriter(w io.WriteCloser) *JSONWriter {
	return &JSONWriter{
		writer: w,
		closer: w,
	}
}

// Write implements the core.RowSink interface
func (j *JSONWriter) Write(ctx context.Context, header []string, row core.TextRow) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	j.buf.Reset()
	j.buf.WriteByte('{')
	for i, name := range header {
		if i > 0 {
			j.buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("failed to marshal column name: %w", err)
		}
		val, err := json.Marshal(row[name])
		if err != nil {
			return fmt.Errorf("failed to marshal cell value: %w", err)
		}
		j.buf.Write(key)
		j.buf.WriteByte(':')
		j.buf.Write(val)
	}
	j.buf.WriteString("}\n")

	if _, err := j.writer.Write(j.buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write JSON data: %w", err)
	}
	return nil
}

// Flush implements the core.RowSink interface
func (j *JSONWriter) Flush() error {
	if flusher, ok := j.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close implements the core.RowSink interface
func (j *JSONWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
