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

package plan

// Package plan turns a transformation description into an immutable,
// reusable TransformationPlan. Compilation parses and validates every
// expression up front, so a malformed description is rejected before any
// row is read.

// Description is the decoded transformation description, independent of the
// serialization it came from. Column order is declaration order and is
// significant: it fixes both expression dependency order and output order.
type Description struct {
	// EntityFilter is a boolean expression evaluated once per row; false
	// drops the row. Empty means all rows pass.
	EntityFilter string

	// DefaultCol supplies visibility and name-normalization defaults for
	// columns that do not set their own.
	DefaultCol DefaultColumnSpec

	// Cols lists the declared columns in declaration order. Header columns
	// not listed here pass through unchanged as text.
	Cols []ColumnSpec

	// GroupBy names the aggregation key columns. When empty and at least
	// one column declares an aggregate, the key defaults to all
	// non-aggregated visible columns.
	GroupBy []string
}

// DefaultColumnSpec is the pipeline-wide column default. Nil fields mean
// "use the built-in default": visible=true, normalize=false.
type DefaultColumnSpec struct {
	Visible   *bool
	Normalize *bool
}

// ColumnSpec declares the treatment of one named input column. Zero-valued
// fields mean "not set".
type ColumnSpec struct {
	// Name is the input column name, as it appears in the header.
	Name string

	// Type is either a primitive type tag (see the coerce package) or an
	// expression over previously declared columns. Empty means the raw text
	// passes through.
	Type string

	// Filter is a boolean expression; false suppresses this cell to null
	// for the row. The row itself is kept. `it` refers to the cell value.
	Filter string

	// Map transforms the coerced value; `it` refers to the cell value.
	Map string

	// Rename sets the output column name explicitly, overriding
	// normalization.
	Rename string

	// Visible overrides the default visibility when set.
	Visible *bool

	// Agg names the aggregate function combining this column's values
	// within a group (sum, count, avg, min, max, first, median).
	Agg string
}
