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

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy_PlanVsRow(t *testing.T) {
	planErrs := []error{
		&SyntaxError{Expr: "1 +", Pos: 3, Msg: "unexpected end of expression"},
		&DependencyOrderError{Column: "a", Ref: "b"},
		&UnknownFunctionError{Name: "frobnicate"},
		&ArityError{Name: "round", Got: 3, Min: 1, Max: 2},
	}
	for _, err := range planErrs {
		assert.True(t, IsPlanError(err), "%T should be a plan error", err)
		assert.False(t, IsRowError(err), "%T should not be a row error", err)
	}

	rowErrs := []error{
		&CoercionError{Column: "price", Raw: "abc", Type: "int", Err: fmt.Errorf("bad digit")},
		&TypeMismatchError{Op: "<", Left: KindText, Right: KindInt},
		&UnknownColumnError{Name: "ghost"},
		&ArithmeticError{Op: "/", Msg: "division by zero"},
	}
	for _, err := range rowErrs {
		assert.True(t, IsRowError(err), "%T should be a row error", err)
		assert.False(t, IsPlanError(err), "%T should not be a plan error", err)
	}
}

func TestRowError_WrapsCause(t *testing.T) {
	cause := &CoercionError{Column: "price", Raw: "x", Type: "float", Err: fmt.Errorf("parse")}
	wrapped := &RowError{Row: 7, Column: "price", Err: cause}

	var ce *CoercionError
	require.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "price", ce.Column)
	assert.Contains(t, wrapped.Error(), "row 7")
}

func TestErrorCollector_ConcurrentCollect(t *testing.T) {
	c := NewErrorCollector()
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func(base int) {
			for j := 0; j < 25; j++ {
				c.Collect(base*25+j, "col", &UnknownColumnError{Name: "x"})
			}
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	assert.Equal(t, 100, c.Len())
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", c.RunID().String())

	// Errors returns a copy.
	errs := c.Errors()
	errs[0] = RowError{}
	assert.NotEqual(t, RowError{}, c.Errors()[0])
}
