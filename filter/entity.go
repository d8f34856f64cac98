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

package filter

import (
	"github.com/csvmorph/csvmorph/coerce"
	"github.com/csvmorph/csvmorph/core"
	"github.com/csvmorph/csvmorph/expr"
	"github.com/csvmorph/csvmorph/plan"
)

// Package filter evaluates the row-level entity filter of a bound plan.
// The filter runs before the column pipeline and only coerces the columns
// it actually references, so rejected rows cost as little as possible.

// Entity decides row admission. It holds no per-row state and is safe for
// concurrent use.
type Entity struct {
	node expr.Node
	refs []struct{ Name, Tag string }
	reg  *expr.Registry
}

// NewEntity builds the entity filter stage for a bound plan. A plan without
// an entity filter yields a stage that admits every row.
func NewEntity(b *plan.Bound) *Entity {
	return &Entity{
		node: b.Plan().EntityFilter(),
		refs: b.EntityRefs(),
		reg:  b.Plan().Registry(),
	}
}

// Keep reports whether the row passes the entity filter. Referenced columns
// declared with a primitive type are coerced first, so the filter compares
// typed values; a coercion failure or a non-boolean result is a row error.
func (f *Entity) Keep(row core.TextRow, rowNum int) (bool, error) {
	if f.node == nil {
		return true, nil
	}

	ctx := make(core.TypedRow, len(f.refs))
	for _, ref := range f.refs {
		raw := row[ref.Name]
		if ref.Tag == "" {
			ctx[ref.Name] = core.Text(raw)
			continue
		}
		v, err := coerce.Coerce(ref.Name, raw, ref.Tag)
		if err != nil {
			return false, &core.RowError{Row: rowNum, Column: ref.Name, Err: err}
		}
		ctx[ref.Name] = v
	}

	keep, err := expr.EvalBool(f.node, ctx, f.reg)
	if err != nil {
		return false, &core.RowError{Row: rowNum, Err: err}
	}
	return keep, nil
}
