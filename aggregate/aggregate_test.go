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

package aggregate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvmorph/csvmorph/core"
)

func accumulate(t *testing.T, name string, values ...core.Value) core.Value {
	t.Helper()
	acc, ok := NewAccumulator(name)
	require.True(t, ok, name)
	for _, v := range values {
		require.NoError(t, acc.Add(v))
	}
	return acc.Result()
}

func TestSum_StaysIntegerOnIntegers(t *testing.T) {
	got := accumulate(t, "sum", core.Int(1), core.Int(2), core.Int(3))
	assert.Equal(t, core.Int(6), got)
}

func TestSum_WidensOnFirstFloat(t *testing.T) {
	got := accumulate(t, "sum", core.Int(1), core.Float(2.5), core.Int(3))
	assert.Equal(t, core.Float(6.5), got)
}

func TestSum_IgnoresNulls(t *testing.T) {
	got := accumulate(t, "sum", core.Null(), core.Int(4), core.Null())
	assert.Equal(t, core.Int(4), got)
}

func TestSum_AllNullYieldsNull(t *testing.T) {
	got := accumulate(t, "sum", core.Null(), core.Null())
	assert.Equal(t, core.Null(), got)
}

func TestSum_TextRejected(t *testing.T) {
	acc, _ := NewAccumulator("sum")
	err := acc.Add(core.Text("3"))
	var tm *core.TypeMismatchError
	require.True(t, errors.As(err, &tm))
}

func TestCount_NonNullOnly(t *testing.T) {
	got := accumulate(t, "count", core.Text("a"), core.Null(), core.Int(0), core.Null())
	assert.Equal(t, core.Int(2), got)
}

func TestAvg(t *testing.T) {
	got := accumulate(t, "avg", core.Int(1), core.Int(2), core.Float(6))
	assert.Equal(t, core.Float(3), got)

	assert.Equal(t, core.Null(), accumulate(t, "avg"))
}

func TestMean_IsAvgAlias(t *testing.T) {
	got := accumulate(t, "mean", core.Int(2), core.Int(4))
	assert.Equal(t, core.Float(3), got)
}

func TestMedian_OddCount(t *testing.T) {
	got := accumulate(t, "median", core.Int(9), core.Int(1), core.Int(5))
	assert.Equal(t, core.Float(5), got)
}

func TestMedian_EvenCountAveragesMiddle(t *testing.T) {
	got := accumulate(t, "median", core.Int(4), core.Int(1), core.Int(3), core.Int(2))
	assert.Equal(t, core.Float(2.5), got)
}

func TestMinMax_PreserveWinnerKind(t *testing.T) {
	assert.Equal(t, core.Int(1), accumulate(t, "min", core.Float(2.5), core.Int(1)))
	assert.Equal(t, core.Float(3.5), accumulate(t, "max", core.Int(3), core.Float(3.5)))
}

func TestMinMax_RejectText(t *testing.T) {
	for _, name := range []string{"min", "max"} {
		acc, _ := NewAccumulator(name)
		err := acc.Add(core.Text("b"))
		var tm *core.TypeMismatchError
		require.True(t, errors.As(err, &tm), name)
	}
}

func TestFirst_KeepsFirstIncludingNull(t *testing.T) {
	got := accumulate(t, "first", core.Null(), core.Int(7))
	assert.Equal(t, core.Null(), got)

	got = accumulate(t, "first", core.Text("a"), core.Text("b"))
	assert.Equal(t, core.Text("a"), got)
}

func TestNewAccumulator_Unknown(t *testing.T) {
	_, ok := NewAccumulator("mode")
	assert.False(t, ok)
	assert.False(t, Known("mode"))
	assert.True(t, Known("sum"))
}

func TestGroupBy_FirstSeenOrder(t *testing.T) {
	g, err := NewGroupBy([]string{"cat"}, map[string]string{"price": "sum"})
	require.NoError(t, err)

	rows := []core.TypedRow{
		{"cat": core.Text("b"), "price": core.Int(1)},
		{"cat": core.Text("a"), "price": core.Int(2)},
		{"cat": core.Text("b"), "price": core.Int(3)},
	}
	for _, row := range rows {
		require.NoError(t, g.Add(row))
	}
	require.Equal(t, 2, g.Len())

	out := g.Rows()
	require.Len(t, out, 2)
	assert.Equal(t, core.Text("b"), out[0]["cat"])
	assert.Equal(t, core.Int(4), out[0]["price"])
	assert.Equal(t, core.Text("a"), out[1]["cat"])
	assert.Equal(t, core.Int(2), out[1]["price"])
}

func TestGroupBy_KeyEqualityIsTyped(t *testing.T) {
	// Int(2) and Float(2.0) hash to the same grouping key
	g, err := NewGroupBy([]string{"k"}, map[string]string{"n": "count"})
	require.NoError(t, err)

	require.NoError(t, g.Add(core.TypedRow{"k": core.Int(2), "n": core.Int(1)}))
	require.NoError(t, g.Add(core.TypedRow{"k": core.Float(2.0), "n": core.Int(1)}))
	require.NoError(t, g.Add(core.TypedRow{"k": core.Text("2"), "n": core.Int(1)}))

	assert.Equal(t, 2, g.Len())
}

func TestGroupBy_CompositeKey(t *testing.T) {
	g, err := NewGroupBy([]string{"a", "b"}, map[string]string{"n": "count"})
	require.NoError(t, err)

	require.NoError(t, g.Add(core.TypedRow{"a": core.Text("x"), "b": core.Text("y"), "n": core.Int(1)}))
	require.NoError(t, g.Add(core.TypedRow{"a": core.Text("x"), "b": core.Text("z"), "n": core.Int(1)}))
	require.NoError(t, g.Add(core.TypedRow{"a": core.Text("x"), "b": core.Text("y"), "n": core.Int(1)}))

	assert.Equal(t, 2, g.Len())
}

func TestGroupBy_AddAfterCloseFails(t *testing.T) {
	g, err := NewGroupBy([]string{"k"}, map[string]string{"n": "count"})
	require.NoError(t, err)
	require.NoError(t, g.Add(core.TypedRow{"k": core.Text("x"), "n": core.Int(1)}))
	_ = g.Rows()

	err = g.Add(core.TypedRow{"k": core.Text("x"), "n": core.Int(1)})
	require.Error(t, err)
}

func TestGroupBy_UnknownAggregateRejected(t *testing.T) {
	_, err := NewGroupBy([]string{"k"}, map[string]string{"n": "mode"})
	var ue *core.UnknownFunctionError
	require.True(t, errors.As(err, &ue))
}
