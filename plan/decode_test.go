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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonDesc = `{
	"entity_filter": "qty > 0",
	"default_col": {"normalize": true},
	"cols": {
		"zulu":  {"type": "int"},
		"alpha": {"type": "float", "agg": "sum"},
		"mike":  {"rename": "m", "visible": false}
	},
	"group_by": ["zulu"]
}`

const yamlDesc = `
entity_filter: qty > 0
default_col:
  normalize: true
cols:
  zulu:
    type: int
  alpha:
    type: float
    agg: sum
  mike:
    rename: m
    visible: false
group_by: [zulu]
`

func checkDecoded(t *testing.T, desc *Description) {
	t.Helper()
	assert.Equal(t, "qty > 0", desc.EntityFilter)
	require.NotNil(t, desc.DefaultCol.Normalize)
	assert.True(t, *desc.DefaultCol.Normalize)
	assert.Nil(t, desc.DefaultCol.Visible)
	assert.Equal(t, []string{"zulu"}, desc.GroupBy)

	// declaration order survives decoding, it is not key-sorted
	require.Len(t, desc.Cols, 3)
	assert.Equal(t, "zulu", desc.Cols[0].Name)
	assert.Equal(t, "alpha", desc.Cols[1].Name)
	assert.Equal(t, "mike", desc.Cols[2].Name)

	assert.Equal(t, "int", desc.Cols[0].Type)
	assert.Equal(t, "sum", desc.Cols[1].Agg)
	assert.Equal(t, "m", desc.Cols[2].Rename)
	require.NotNil(t, desc.Cols[2].Visible)
	assert.False(t, *desc.Cols[2].Visible)
}

func TestDecodeJSON(t *testing.T) {
	desc, err := DecodeJSON(strings.NewReader(jsonDesc))
	require.NoError(t, err)
	checkDecoded(t, desc)
}

func TestDecodeYAML(t *testing.T) {
	desc, err := DecodeYAML(strings.NewReader(yamlDesc))
	require.NoError(t, err)
	checkDecoded(t, desc)
}

func TestDecodeJSON_UnknownField(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"colums": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colums")
}

func TestDecodeYAML_UnknownField(t *testing.T) {
	_, err := DecodeYAML(strings.NewReader("colums: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colums")
}

func TestDecodeJSON_Malformed(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"cols": [1,2]}`))
	require.Error(t, err)
}

func TestDecodeJSON_CompilesEndToEnd(t *testing.T) {
	desc, err := DecodeJSON(strings.NewReader(jsonDesc))
	require.NoError(t, err)
	_, err = Compile(desc)
	require.NoError(t, err)
}
