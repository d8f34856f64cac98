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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvmorph/csvmorph/core"
)

func boolPtr(b bool) *bool { return &b }

func TestCompile_MalformedExpressionFailsBeforeRows(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{{Name: "price", Type: "float", Filter: "it > ("}},
	}
	_, err := Compile(desc)
	var se *core.SyntaxError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.True(t, core.IsPlanError(err))
}

func TestCompile_UnknownFunctionInMap(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{{Name: "a", Map: "frobnicate(it)"}},
	}
	_, err := Compile(desc)
	var ue *core.UnknownFunctionError
	require.True(t, errors.As(err, &ue))
}

func TestCompile_UnknownAggregate(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{{Name: "a", Type: "int", Agg: "mode"}},
	}
	_, err := Compile(desc)
	var ue *core.UnknownFunctionError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "mode", ue.Name)
}

func TestCompile_DuplicateColumn(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{{Name: "a"}, {Name: "a"}},
	}
	_, err := Compile(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestCompile_UnknownTagBecomesExpression(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{
			{Name: "price", Type: "float"},
			{Name: "total", Type: "price * 2"},
		},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	cols := p.Columns()
	assert.Equal(t, "float", cols[0].Tag)
	assert.Nil(t, cols[0].TypeExpr)
	assert.Empty(t, cols[1].Tag)
	assert.NotNil(t, cols[1].TypeExpr)
}

func TestBind_DeclaredColumnMissingFromHeader(t *testing.T) {
	p, err := Compile(&Description{Cols: []ColumnSpec{{Name: "ghost", Type: "int"}}})
	require.NoError(t, err)

	_, err = p.Bind([]string{"a", "b"})
	var ue *core.UnknownColumnError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "ghost", ue.Name)
}

func TestBind_ForwardReferenceRejected(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{
			{Name: "a", Type: "b * 2"},
			{Name: "b", Type: "int"},
		},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	_, err = p.Bind([]string{"a", "b"})
	var de *core.DependencyOrderError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "a", de.Column)
	assert.Equal(t, "b", de.Ref)
}

func TestBind_BackwardReferenceAccepted(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{
			{Name: "b", Type: "int"},
			{Name: "a", Type: "b * 2"},
		},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	_, err = p.Bind([]string{"a", "b"})
	require.NoError(t, err)
}

func TestBind_ItIsNotAForwardReference(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{{Name: "a", Type: "int", Filter: "int(it) > 0", Map: "it * 2"}},
	}
	p, err := Compile(desc)
	require.NoError(t, err)
	_, err = p.Bind([]string{"a"})
	require.NoError(t, err)
}

func TestBind_OutputOrderIsDeclarationOrder(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{
			{Name: "z", Type: "int"},
			{Name: "a", Type: "int"},
		},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	b, err := p.Bind([]string{"a", "m", "z"})
	require.NoError(t, err)

	var names []string
	for _, oc := range b.VisibleColumns() {
		names = append(names, oc.Display)
	}
	// declared columns first in declaration order, then passthrough in
	// header order
	assert.Equal(t, []string{"z", "a", "m"}, names)
}

func TestBind_RenameAndVisibility(t *testing.T) {
	desc := &Description{
		DefaultCol: DefaultColumnSpec{Visible: boolPtr(true)},
		Cols: []ColumnSpec{
			{Name: "a", Rename: "alpha"},
			{Name: "b", Visible: boolPtr(false)},
		},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	b, err := p.Bind([]string{"a", "b", "c"})
	require.NoError(t, err)

	var names []string
	for _, oc := range b.VisibleColumns() {
		names = append(names, oc.Display)
	}
	assert.Equal(t, []string{"alpha", "c"}, names)
	assert.False(t, b.Visible("b"))
}

func TestBind_DefaultInvisiblePassthrough(t *testing.T) {
	desc := &Description{
		DefaultCol: DefaultColumnSpec{Visible: boolPtr(false)},
		Cols:       []ColumnSpec{{Name: "keep", Visible: boolPtr(true)}},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	b, err := p.Bind([]string{"keep", "drop1", "drop2"})
	require.NoError(t, err)

	cols := b.VisibleColumns()
	require.Len(t, cols, 1)
	assert.Equal(t, "keep", cols[0].Name)
}

func TestBind_NormalizeDefault(t *testing.T) {
	desc := &Description{
		DefaultCol: DefaultColumnSpec{Normalize: boolPtr(true)},
		Cols:       []ColumnSpec{{Name: "Prix Unitaire"}},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	b, err := p.Bind([]string{"Prix Unitaire", "Qté Vendue"})
	require.NoError(t, err)

	var names []string
	for _, oc := range b.VisibleColumns() {
		names = append(names, oc.Display)
	}
	assert.Equal(t, []string{"prix_unitaire", "qte_vendue"}, names)
}

func TestBind_DefaultGroupByIsNonAggVisible(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{
			{Name: "cat"},
			{Name: "price", Type: "float", Agg: "sum"},
			{Name: "note", Visible: boolPtr(false)},
		},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	b, err := p.Bind([]string{"cat", "price", "note"})
	require.NoError(t, err)
	require.True(t, b.HasAgg())
	assert.Equal(t, []string{"cat"}, b.GroupBy())
	assert.Equal(t, map[string]string{"price": "sum"}, b.AggByCol())
}

func TestBind_ExplicitGroupBy(t *testing.T) {
	desc := &Description{
		Cols: []ColumnSpec{
			{Name: "cat"},
			{Name: "region"},
			{Name: "price", Type: "float", Agg: "sum"},
		},
		GroupBy: []string{"region"},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	b, err := p.Bind([]string{"cat", "region", "price"})
	require.NoError(t, err)
	assert.Equal(t, []string{"region"}, b.GroupBy())

	// non-key, non-aggregated columns leave the aggregated output
	var names []string
	for _, oc := range b.VisibleColumns() {
		names = append(names, oc.Name)
	}
	assert.Equal(t, []string{"region", "price"}, names)
}

func TestBind_GroupByWithoutAggregateRejected(t *testing.T) {
	desc := &Description{
		Cols:    []ColumnSpec{{Name: "a"}},
		GroupBy: []string{"a"},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	_, err = p.Bind([]string{"a"})
	require.Error(t, err)
}

func TestBind_EntityFilterRefsCarryTags(t *testing.T) {
	desc := &Description{
		EntityFilter: "price > 3 and cat != \"x\"",
		Cols:         []ColumnSpec{{Name: "price", Type: "float"}},
	}
	p, err := Compile(desc)
	require.NoError(t, err)

	b, err := p.Bind([]string{"price", "cat"})
	require.NoError(t, err)

	refs := b.EntityRefs()
	require.Len(t, refs, 2)
	assert.Equal(t, "price", refs[0].Name)
	assert.Equal(t, "float", refs[0].Tag)
	assert.Equal(t, "cat", refs[1].Name)
	assert.Empty(t, refs[1].Tag)
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Prix Unitaire":  "prix_unitaire",
		"Qté  Vendue":    "qte_vendue",
		"  Déjà Vu  ":    "deja_vu",
		"plain":          "plain",
		"Ünïcödé Nämé":   "unicode_name",
		"tab\tseparated": "tab_separated",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeName(in), in)
	}
}
