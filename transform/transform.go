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

package transform

import (
	"github.com/csvmorph/csvmorph/coerce"
	"github.com/csvmorph/csvmorph/core"
	"github.com/csvmorph/csvmorph/expr"
	"github.com/csvmorph/csvmorph/plan"
)

// Package transform applies a bound plan's column pipeline to rows. Each
// declared column runs, in declaration order: cell filter, type coercion or
// type expression, then map expression. Undeclared columns pass through as
// text.

// RowTransformer applies the column pipeline of one bound plan. It holds no
// per-row state and is safe for concurrent use.
type RowTransformer struct {
	bound *plan.Bound
	reg   *expr.Registry
}

// New builds a RowTransformer for a bound plan.
func New(b *plan.Bound) *RowTransformer {
	return &RowTransformer{bound: b, reg: b.Plan().Registry()}
}

// Apply transforms one raw row into a typed row. Cell-level failures do not
// abort the row: the failing cell becomes null and the error is reported,
// letting the caller decide fail-fast, skip or collect. The returned row
// holds every column (visible or not) under its internal name.
func (t *RowTransformer) Apply(row core.TextRow, rowNum int) (core.TypedRow, []core.RowError) {
	typed := make(core.TypedRow, len(t.bound.Header()))
	var errs []core.RowError

	// Passthrough cells go in first so declared-column expressions can
	// reference any header column as raw text, the same way the entity
	// filter does. Declared and passthrough names are disjoint.
	for _, name := range t.bound.Passthrough() {
		typed[name] = core.Text(row[name])
	}
	for _, col := range t.bound.Plan().Columns() {
		v, err := t.cell(col, row[col.Name], typed)
		if err != nil {
			errs = append(errs, core.RowError{Row: rowNum, Column: col.Name, Err: err})
			v = core.Null()
		}
		typed[col.Name] = v
	}
	return typed, errs
}

// cell runs the filter/coerce/map pipeline for one declared column. The
// typed map holds previously declared columns; `it` is bound around each
// expression and removed before returning.
func (t *RowTransformer) cell(col *plan.Column, raw string, typed core.TypedRow) (core.Value, error) {
	if col.Filter != nil {
		typed[plan.ItName] = core.Text(raw)
		keep, err := expr.EvalBool(col.Filter, typed, t.reg)
		delete(typed, plan.ItName)
		if err != nil {
			return core.Null(), err
		}
		if !keep {
			return core.Null(), nil
		}
	}

	var v core.Value
	switch {
	case col.Tag != "":
		coerced, err := coerce.Coerce(col.Name, raw, col.Tag)
		if err != nil {
			return core.Null(), err
		}
		v = coerced
	case col.TypeExpr != nil:
		typed[plan.ItName] = core.Text(raw)
		computed, err := expr.Eval(col.TypeExpr, typed, t.reg)
		delete(typed, plan.ItName)
		if err != nil {
			return core.Null(), err
		}
		v = computed
	default:
		v = core.Text(raw)
	}

	if col.Map != nil {
		typed[plan.ItName] = v
		mapped, err := expr.Eval(col.Map, typed, t.reg)
		delete(typed, plan.ItName)
		if err != nil {
			return core.Null(), err
		}
		v = mapped
	}
	return v, nil
}

// OutHeader returns the rendered output header: visible columns only, in
// output order, with renames and normalization applied.
func (t *RowTransformer) OutHeader() []string {
	cols := t.bound.VisibleColumns()
	header := make([]string, len(cols))
	for i, oc := range cols {
		header[i] = oc.Display
	}
	return header
}

// Project renders a typed row for output. Values of primitively typed
// columns are formatted with their tag's left-inverse rendering, so an
// untouched column round-trips to its canonical text form.
func (t *RowTransformer) Project(typed core.TypedRow) core.TextRow {
	cols := t.bound.VisibleColumns()
	out := make(core.TextRow, len(cols))
	for _, oc := range cols {
		out[oc.Display] = coerce.Format(typed[oc.Name], oc.Tag)
	}
	return out
}
