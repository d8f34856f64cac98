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

package core

import "context"

// Package core contracts between the orchestrator and its collaborators.
//
// A RowSource produces raw text rows with a header known up front; a RowSink
// consumes rendered output rows. Implementations stream: the orchestrator
// never materializes the input.

// RowSource defines the interface for row extraction.
// Implementations stream raw text rows from a tabular source (e.g. CSV,
// an S3 object, a MongoDB collection).
type RowSource interface {
	// Header returns the column names, fixed before processing begins.
	Header() []string
	// Read returns the next row or io.EOF when no more rows are available.
	Read(ctx context.Context) (TextRow, error)
	// Close releases any resources held by the source.
	Close() error
}

// RowSink defines the interface for loading output rows.
// Implementations write rendered rows to a destination (e.g. CSV, JSON,
// PostgreSQL, SQLite, a terminal table).
type RowSink interface {
	// Write outputs a single row. The header gives the output column order
	// and is identical across all calls of a run.
	Write(ctx context.Context, header []string, row TextRow) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the sink.
	Close() error
}
