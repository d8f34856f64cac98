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

package readers

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvmorph/csvmorph/core"
)

type trackingCloser struct {
	io.Reader
	closed bool
}

func (t *trackingCloser) Close() error {
	t.closed = true
	return nil
}

func newReader(t *testing.T, data string, opts ...ReaderOptionCSV) *CSVReader {
	t.Helper()
	r, err := NewCSVReader(io.NopCloser(strings.NewReader(data)), opts...)
	require.NoError(t, err)
	return r
}

func TestCSVReader_RawTextCells(t *testing.T) {
	r := newReader(t, "qty,price\n3,2.5\n")
	defer r.Close()

	assert.Equal(t, []string{"qty", "price"}, r.Header())

	row, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.TextRow{"qty": "3", "price": "2.5"}, row)

	_, err = r.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestCSVReader_CustomDelimiter(t *testing.T) {
	r := newReader(t, "a;b\n1;2\n", WithCSVComma(';'))
	defer r.Close()

	row, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.TextRow{"a": "1", "b": "2"}, row)
}

func TestCSVReader_HeaderlessNamesColumnsPositionally(t *testing.T) {
	r := newReader(t, "x,y,z\n1,2,3\n", WithCSVHasHeaders(false))
	defer r.Close()

	// names are available before the first Read, and the peeked first
	// record is not lost
	assert.Equal(t, []string{"col_1", "col_2", "col_3"}, r.Header())

	row, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.TextRow{"col_1": "x", "col_2": "y", "col_3": "z"}, row)

	row, err = r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", row["col_1"])

	_, err = r.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestCSVReader_HeaderlessEmptyInput(t *testing.T) {
	r := newReader(t, "", WithCSVHasHeaders(false))
	defer r.Close()

	assert.Nil(t, r.Header())
	_, err := r.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestCSVReader_CancelledContext(t *testing.T) {
	r := newReader(t, "a\n1\n")
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Read(ctx)
	require.Error(t, err)
	var re *CSVReaderError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVReader_CloseClosesUnderlying(t *testing.T) {
	tc := &trackingCloser{Reader: strings.NewReader("a\n1\n")}
	r, err := NewCSVReader(tc)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.True(t, tc.closed)
}

func TestCSVReader_Stats(t *testing.T) {
	r := newReader(t, "a,b\n1,\n,2\n")
	defer r.Close()

	for {
		if _, err := r.Read(context.Background()); err != nil {
			break
		}
	}

	stats := r.Stats()
	assert.Equal(t, int64(2), stats.RowsRead)
	assert.Equal(t, int64(1), stats.EmptyCellCounts["a"])
	assert.Equal(t, int64(1), stats.EmptyCellCounts["b"])
}

func TestImproveHeader(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{[]string{"a", "b"}, []string{"a", "b"}},
		{[]string{" a ", "b"}, []string{"a", "b"}},
		{[]string{"", "b", ""}, []string{"col_1", "b", "col_3"}},
		{[]string{"a", "a", "a"}, []string{"a", "a_2", "a_3"}},
		// a repaired duplicate must not collide with a literal suffix
		{[]string{"a", "a", "a_2"}, []string{"a", "a_2", "a_2_2"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ImproveHeader(tc.in), "%v", tc.in)
	}
}
