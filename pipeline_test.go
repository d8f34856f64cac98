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

package csvmorph

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvmorph/csvmorph/core"
	"github.com/csvmorph/csvmorph/plan"
	"github.com/csvmorph/csvmorph/readers"
)

// memorySink collects written rows in order for assertions.
type memorySink struct {
	header  []string
	rows    []core.TextRow
	flushed bool
	closed  bool
}

func (m *memorySink) Write(ctx context.Context, header []string, row core.TextRow) error {
	if m.header == nil {
		m.header = append([]string(nil), header...)
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *memorySink) Flush() error { m.flushed = true; return nil }
func (m *memorySink) Close() error { m.closed = true; return nil }

func csvSource(t *testing.T, data string) core.RowSource {
	t.Helper()
	src, err := readers.NewCSVReader(io.NopCloser(strings.NewReader(data)))
	require.NoError(t, err)
	return src
}

func runPipeline(t *testing.T, data string, desc *plan.Description, build func(*PipelineBuilder)) (*Pipeline, *memorySink, error) {
	t.Helper()
	sink := &memorySink{}
	pb := NewPipeline().
		From(csvSource(t, data)).
		WithDescription(desc).
		To(sink)
	if build != nil {
		build(pb)
	}
	p, err := pb.Build()
	require.NoError(t, err)
	return p, sink, p.Execute(context.Background())
}

func TestPipeline_TypedFilterAndProjection(t *testing.T) {
	data := "name,qty\nsmall,5\nbig,200\ntiny,1\nhuge,999\n"
	desc := &plan.Description{
		EntityFilter: "qty > 100",
		Cols:         []plan.ColumnSpec{{Name: "qty", Type: "int"}},
	}

	p, sink, err := runPipeline(t, data, desc, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"qty", "name"}, sink.header)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, core.TextRow{"name": "big", "qty": "200"}, sink.rows[0])
	assert.Equal(t, core.TextRow{"name": "huge", "qty": "999"}, sink.rows[1])

	stats := p.Stats()
	assert.Equal(t, int64(4), stats.RowsRead)
	assert.Equal(t, int64(2), stats.RowsFiltered)
	assert.Equal(t, int64(2), stats.RowsWritten)
	assert.True(t, sink.flushed)
	assert.True(t, sink.closed)
}

func TestPipeline_FloatISOCoercion(t *testing.T) {
	// decimal commas need quoting to survive the CSV layer
	data := "prix\n\"3,5\"\n\"1 000,25\"\n"
	desc := &plan.Description{
		Cols: []plan.ColumnSpec{{Name: "prix", Type: "float_iso", Map: "it * 2"}},
	}

	_, sink, err := runPipeline(t, data, desc, nil)
	require.NoError(t, err)

	require.Len(t, sink.rows, 2)
	assert.Equal(t, "7", sink.rows[0]["prix"])
	assert.Equal(t, "2000.5", sink.rows[1]["prix"])
}

func TestPipeline_GroupBySumFirstSeenOrder(t *testing.T) {
	data := "cat,price\nb,3\na,1\nb,2\na,4\nc,10\n"
	desc := &plan.Description{
		Cols: []plan.ColumnSpec{
			{Name: "cat"},
			{Name: "price", Type: "int", Agg: "sum"},
		},
	}

	p, sink, err := runPipeline(t, data, desc, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "price"}, sink.header)
	require.Len(t, sink.rows, 3)
	assert.Equal(t, core.TextRow{"cat": "b", "price": "5"}, sink.rows[0])
	assert.Equal(t, core.TextRow{"cat": "a", "price": "5"}, sink.rows[1])
	assert.Equal(t, core.TextRow{"cat": "c", "price": "10"}, sink.rows[2])
	assert.Equal(t, int64(3), p.Stats().Groups)
}

func TestPipeline_FailFastOnBadCell(t *testing.T) {
	data := "qty\n1\noops\n3\n"
	desc := &plan.Description{
		Cols: []plan.ColumnSpec{{Name: "qty", Type: "int"}},
	}

	_, sink, err := runPipeline(t, data, desc, nil)
	require.Error(t, err)

	var re *core.RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Row)
	assert.Equal(t, "qty", re.Column)
	assert.Len(t, sink.rows, 1, "only the row before the failure was written")
	assert.True(t, sink.closed, "sink closes on the failure path too")
}

func TestPipeline_SkipErrorsKeepsRowWithNulledCell(t *testing.T) {
	data := "qty,name\n1,a\noops,b\n3,c\n"
	desc := &plan.Description{
		Cols: []plan.ColumnSpec{{Name: "qty", Type: "int"}},
	}

	p, sink, err := runPipeline(t, data, desc, func(pb *PipelineBuilder) {
		pb.WithErrorStrategy(SkipErrors)
	})
	require.NoError(t, err)

	require.Len(t, sink.rows, 3)
	assert.Equal(t, "", sink.rows[1]["qty"], "failed cell renders as empty")
	assert.Equal(t, "b", sink.rows[1]["name"])
	assert.Empty(t, p.Errors(), "SkipErrors does not record")
}

func TestPipeline_CollectErrors(t *testing.T) {
	data := "qty\n1\noops\nnope\n4\n"
	desc := &plan.Description{
		Cols: []plan.ColumnSpec{{Name: "qty", Type: "int"}},
	}

	p, sink, err := runPipeline(t, data, desc, func(pb *PipelineBuilder) {
		pb.WithErrorStrategy(CollectErrors)
	})
	require.NoError(t, err)

	assert.Len(t, sink.rows, 4)
	collected := p.Errors()
	require.Len(t, collected, 2)
	assert.Equal(t, 2, collected[0].Row)
	assert.Equal(t, 3, collected[1].Row)
}

func TestPipeline_ErrorHandlerObservesSkippedRows(t *testing.T) {
	data := "qty\noops\n2\n"
	desc := &plan.Description{
		Cols: []plan.ColumnSpec{{Name: "qty", Type: "int"}},
	}

	var seen []int
	_, _, err := runPipeline(t, data, desc, func(pb *PipelineBuilder) {
		pb.WithErrorStrategy(SkipErrors).
			WithErrorHandler(ErrorHandlerFunc(func(ctx context.Context, rowErr *core.RowError) error {
				seen = append(seen, rowErr.Row)
				return nil
			}))
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, seen)
}

func TestPipeline_AggregationKeyErrorDropsRow(t *testing.T) {
	// a key column that fails coercion would otherwise group under null
	desc := &plan.Description{
		Cols: []plan.ColumnSpec{
			{Name: "cat", Type: "int"},
			{Name: "price", Type: "int", Agg: "sum"},
		},
	}
	p, sink, err := runPipeline(t, "cat,price\n1,10\nbad,5\n1,20\n", desc, func(pb *PipelineBuilder) {
		pb.WithErrorStrategy(SkipErrors)
	})
	require.NoError(t, err)

	require.Len(t, sink.rows, 1)
	assert.Equal(t, core.TextRow{"cat": "1", "price": "30"}, sink.rows[0])
	assert.Equal(t, int64(1), p.Stats().RowsDropped)
}

func TestPipeline_Limit(t *testing.T) {
	data := "a\n1\n2\n3\n4\n5\n"
	desc := &plan.Description{Cols: []plan.ColumnSpec{{Name: "a", Type: "int"}}}

	p, sink, err := runPipeline(t, data, desc, func(pb *PipelineBuilder) {
		pb.WithLimit(2)
	})
	require.NoError(t, err)
	assert.Len(t, sink.rows, 2)
	assert.Equal(t, int64(2), p.Stats().RowsRead)
}

func TestPipeline_ParallelMatchesSerialOrder(t *testing.T) {
	var data strings.Builder
	data.WriteString("n\n")
	for i := 0; i < 500; i++ {
		data.WriteString(strings.Repeat("1", 1+i%3))
		data.WriteString("\n")
	}
	desc := &plan.Description{
		Cols: []plan.ColumnSpec{{Name: "n", Type: "int", Map: "it * 2"}},
	}

	_, serial, err := runPipeline(t, data.String(), desc, nil)
	require.NoError(t, err)

	_, parallel, err := runPipeline(t, data.String(), desc, func(pb *PipelineBuilder) {
		pb.WithWorkers(8)
	})
	require.NoError(t, err)

	assert.Equal(t, serial.rows, parallel.rows, "worker count must not change output order")
}

func TestPipeline_HeaderlessSource(t *testing.T) {
	src, err := readers.NewCSVReader(
		io.NopCloser(strings.NewReader("5\n200\n")),
		readers.WithCSVHasHeaders(false))
	require.NoError(t, err)

	sink := &memorySink{}
	p, err := NewPipeline().
		From(src).
		WithDescription(&plan.Description{
			Cols: []plan.ColumnSpec{{Name: "col_1", Type: "int"}},
		}).
		To(sink).
		Build()
	require.NoError(t, err)
	require.NoError(t, p.Execute(context.Background()))

	assert.Equal(t, []string{"col_1"}, sink.header)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, "5", sink.rows[0]["col_1"])
	assert.Equal(t, "200", sink.rows[1]["col_1"])
}

func TestPipeline_ExcludingFilterWritesNothing(t *testing.T) {
	data := "qty\n1\n2\n3\n"
	desc := &plan.Description{
		EntityFilter: "qty > 1000",
		Cols:         []plan.ColumnSpec{{Name: "qty", Type: "int"}},
	}

	p, sink, err := runPipeline(t, data, desc, nil)
	require.NoError(t, err)
	assert.Empty(t, sink.rows)
	assert.Equal(t, int64(3), p.Stats().RowsFiltered)
	assert.True(t, sink.closed, "sink still closes cleanly")
}

func TestPipeline_OutputIsIdempotent(t *testing.T) {
	// coerced output renders canonically, so feeding it back through the
	// same description reproduces it exactly
	data := "when,prix\n\"01/03/2015\",\"3,5\"\n\"2015-04-02\",\"1 000,25\"\n"
	desc := func() *plan.Description {
		return &plan.Description{
			Cols: []plan.ColumnSpec{
				{Name: "when", Type: "date"},
				{Name: "prix", Type: "float_iso"},
			},
		}
	}

	_, first, err := runPipeline(t, data, desc(), nil)
	require.NoError(t, err)
	require.Len(t, first.rows, 2)

	var rerun strings.Builder
	rerun.WriteString("when,prix\n")
	for _, row := range first.rows {
		rerun.WriteString("\"" + row["when"] + "\",\"" + row["prix"] + "\"\n")
	}

	_, second, err := runPipeline(t, rerun.String(), desc(), nil)
	require.NoError(t, err)
	assert.Equal(t, first.rows, second.rows)
}

func TestPipeline_GroupKeyEqualityByCoercedValue(t *testing.T) {
	// two spellings of the same date land in one group
	data := "day,n\n\"01/03/2015\",1\n\"2015-03-01\",2\n\"02/03/2015\",3\n"
	desc := &plan.Description{
		Cols: []plan.ColumnSpec{
			{Name: "day", Type: "date"},
			{Name: "n", Type: "int", Agg: "sum"},
		},
	}

	p, sink, err := runPipeline(t, data, desc, nil)
	require.NoError(t, err)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, core.TextRow{"day": "01/03/2015", "n": "3"}, sink.rows[0])
	assert.Equal(t, core.TextRow{"day": "02/03/2015", "n": "3"}, sink.rows[1])
	assert.Equal(t, int64(2), p.Stats().Groups)
}

func TestPipeline_BuildValidation(t *testing.T) {
	_, err := NewPipeline().Build()
	require.Error(t, err)

	_, err = NewPipeline().From(csvSource(t, "a\n")).Build()
	require.Error(t, err)

	_, err = NewPipeline().
		From(csvSource(t, "a\n")).
		To(&memorySink{}).
		Build()
	require.Error(t, err, "a plan or description is required")
}

func TestPipeline_BuildCompilesDescription(t *testing.T) {
	// compilation failures surface at Build, before any row is read
	_, err := NewPipeline().
		From(csvSource(t, "a\n1\n")).
		To(&memorySink{}).
		WithDescription(&plan.Description{
			Cols: []plan.ColumnSpec{{Name: "a", Filter: "((("}},
		}).
		Build()
	require.Error(t, err)
	assert.True(t, core.IsPlanError(err))
}

func TestPipeline_BindFailureBeforeRows(t *testing.T) {
	desc := &plan.Description{Cols: []plan.ColumnSpec{{Name: "missing", Type: "int"}}}
	_, sink, err := runPipeline(t, "a\n1\n", desc, nil)
	require.Error(t, err)
	var ue *core.UnknownColumnError
	assert.True(t, errors.As(err, &ue))
	assert.Empty(t, sink.rows)
	assert.True(t, sink.closed)
}
