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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvmorph/csvmorph/core"
	"github.com/csvmorph/csvmorph/plan"
)

func entityFor(t *testing.T, desc *plan.Description, header []string) *Entity {
	t.Helper()
	p, err := plan.Compile(desc)
	require.NoError(t, err)
	b, err := p.Bind(header)
	require.NoError(t, err)
	return NewEntity(b)
}

func TestKeep_NoFilterAdmitsAll(t *testing.T) {
	e := entityFor(t, &plan.Description{}, []string{"a"})
	keep, err := e.Keep(core.TextRow{"a": "anything"}, 1)
	require.NoError(t, err)
	assert.True(t, keep)
}

func TestKeep_TypedComparison(t *testing.T) {
	e := entityFor(t, &plan.Description{
		EntityFilter: "price > 3.5",
		Cols:         []plan.ColumnSpec{{Name: "price", Type: "float"}},
	}, []string{"price"})

	keep, err := e.Keep(core.TextRow{"price": "4.2"}, 1)
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = e.Keep(core.TextRow{"price": "3.5"}, 2)
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestKeep_UndeclaredColumnIsRawText(t *testing.T) {
	e := entityFor(t, &plan.Description{
		EntityFilter: `cat != "misc"`,
	}, []string{"cat"})

	keep, err := e.Keep(core.TextRow{"cat": "books"}, 1)
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = e.Keep(core.TextRow{"cat": "misc"}, 2)
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestKeep_CoercionFailureIsRowError(t *testing.T) {
	e := entityFor(t, &plan.Description{
		EntityFilter: "qty > 0",
		Cols:         []plan.ColumnSpec{{Name: "qty", Type: "int"}},
	}, []string{"qty"})

	_, err := e.Keep(core.TextRow{"qty": "many"}, 9)
	require.Error(t, err)

	var re *core.RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 9, re.Row)
	assert.Equal(t, "qty", re.Column)
	var ce *core.CoercionError
	assert.True(t, errors.As(re.Err, &ce))
}

func TestKeep_NonBooleanResultIsRowError(t *testing.T) {
	e := entityFor(t, &plan.Description{
		EntityFilter: "qty + 1",
		Cols:         []plan.ColumnSpec{{Name: "qty", Type: "int"}},
	}, []string{"qty"})

	_, err := e.Keep(core.TextRow{"qty": "2"}, 3)
	require.Error(t, err)
	var re *core.RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 3, re.Row)
}

func TestKeep_ShortCircuitSkipsBadOperand(t *testing.T) {
	e := entityFor(t, &plan.Description{
		EntityFilter: `cat == "skip" or qty > 10`,
		Cols:         []plan.ColumnSpec{{Name: "qty", Type: "int"}},
	}, []string{"cat", "qty"})

	// qty still coerces eagerly for the filter context, so a bad qty is an
	// error even when the left side of the `or` would decide
	_, err := e.Keep(core.TextRow{"cat": "skip", "qty": "bad"}, 1)
	require.Error(t, err)

	keep, err := e.Keep(core.TextRow{"cat": "skip", "qty": "20"}, 2)
	require.NoError(t, err)
	assert.True(t, keep)
}
