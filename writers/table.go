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
	"io"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/csvmorph/csvmorph/core"
)

// TableWriter implements core.RowSink by rendering an aligned text table.
// Rows are buffered and the table is rendered once, on Close, since column
// widths depend on every row.
type TableWriter struct {
	mu       sync.Mutex
	table    *tablewriter.Table
	closer   io.Closer
	header   []string
	started  bool
	rendered bool
}

// NewTableWriter creates a table sink writing to w. When w is also an
// io.Closer it is closed after rendering.
func NewTableWriter(w io.Writer) *TableWriter {
	t := &TableWriter{table: tablewriter.NewWriter(w)}
	if closer, ok := w.(io.Closer); ok {
		t.closer = closer
	}
	return t
}

// Write implements the core.RowSink interface.
func (t *TableWriter) Write(ctx context.Context, header []string, row core.TextRow) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		t.header = append([]string(nil), header...)
		t.table.SetHeader(t.header)
		t.table.SetAutoFormatHeaders(false)
		t.table.SetAutoWrapText(false)
		t.started = true
	}

	record := make([]string, len(t.header))
	for i, name := range t.header {
		record[i] = row[name]
	}
	t.table.Append(record)
	return nil
}

// Flush implements the core.RowSink interface. Rendering happens on Close;
// Flush is a no-op so partial tables never reach the output.
func (t *TableWriter) Flush() error { return nil }

// Close implements the core.RowSink interface.
func (t *TableWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started && !t.rendered {
		t.table.Render()
		t.rendered = true
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
