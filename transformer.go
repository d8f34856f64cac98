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
	"io"

	"github.com/csvmorph/csvmorph/aggregate"
	"github.com/csvmorph/csvmorph/core"
	"github.com/csvmorph/csvmorph/filter"
	"github.com/csvmorph/csvmorph/plan"
	"github.com/csvmorph/csvmorph/transform"
)

// Transformer is the pull-style counterpart of Pipeline: callers drain
// transformed rows one at a time with Next instead of pushing them into a
// sink. Next returns io.EOF once the source is exhausted and, when the plan
// aggregates, after the grouped rows have been emitted.
type Transformer struct {
	source      core.RowSource
	strategy    ErrorStrategy
	collector   *core.ErrorCollector
	bound       *plan.Bound
	entity      *filter.Entity
	transformer *transform.RowTransformer
	groupBy     *aggregate.GroupBy

	rowNum  int
	pending []core.TypedRow
	drained bool
}

// TransformerOption configures a Transformer.
type TransformerOption func(*Transformer)

// WithTransformerErrorStrategy sets the row error strategy. The default is
// FailFast.
func WithTransformerErrorStrategy(strategy ErrorStrategy) TransformerOption {
	return func(t *Transformer) { t.strategy = strategy }
}

// NewTransformer binds the plan to the source header and prepares lazy
// iteration. Bind failures surface here, before any row is read.
func NewTransformer(source core.RowSource, p *plan.Plan, opts ...TransformerOption) (*Transformer, error) {
	bound, err := p.Bind(source.Header())
	if err != nil {
		return nil, err
	}

	t := &Transformer{
		source:      source,
		strategy:    FailFast,
		collector:   core.NewErrorCollector(),
		bound:       bound,
		entity:      filter.NewEntity(bound),
		transformer: transform.New(bound),
	}
	for _, opt := range opts {
		opt(t)
	}

	if bound.HasAgg() {
		groupBy, err := aggregate.NewGroupBy(bound.GroupBy(), bound.AggByCol())
		if err != nil {
			return nil, err
		}
		t.groupBy = groupBy
	}
	return t, nil
}

// OutHeader returns the rendered output header.
func (t *Transformer) OutHeader() []string {
	return t.transformer.OutHeader()
}

// Errors returns the row errors recorded under CollectErrors.
func (t *Transformer) Errors() []core.RowError {
	return t.collector.Errors()
}

// Next returns the next transformed output row, or io.EOF when done.
func (t *Transformer) Next(ctx context.Context) (core.TextRow, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if t.drained {
			if len(t.pending) == 0 {
				return nil, io.EOF
			}
			typed := t.pending[0]
			t.pending = t.pending[1:]
			return t.transformer.Project(typed), nil
		}

		row, err := t.source.Read(ctx)
		if err == io.EOF {
			t.drained = true
			if t.groupBy != nil {
				t.pending = t.groupBy.Rows()
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		t.rowNum++

		typed, ok, err := t.advance(row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if t.groupBy != nil {
			if err := t.groupBy.Add(typed); err != nil {
				return nil, err
			}
			continue
		}
		return t.transformer.Project(typed), nil
	}
}

// advance pushes one raw row through the filter and column pipeline,
// applying the error strategy. ok reports whether the row survived.
func (t *Transformer) advance(row core.TextRow) (core.TypedRow, bool, error) {
	keep, err := t.entity.Keep(row, t.rowNum)
	if err != nil {
		return nil, false, t.settleEntity(err)
	}
	if !keep {
		return nil, false, nil
	}

	typed, errs := t.transformer.Apply(row, t.rowNum)
	if len(errs) > 0 {
		if t.strategy == FailFast {
			return nil, false, &errs[0]
		}
		for i := range errs {
			if t.strategy == CollectErrors {
				t.collector.Collect(errs[i].Row, errs[i].Column, errs[i].Err)
			}
		}
		if t.groupBy != nil {
			for i := range errs {
				for _, key := range t.bound.GroupBy() {
					if errs[i].Column == key {
						return nil, false, nil
					}
				}
			}
		}
	}
	return typed, true, nil
}

func (t *Transformer) settleEntity(err error) error {
	if t.strategy == FailFast {
		return err
	}
	if t.strategy == CollectErrors {
		if re, ok := err.(*core.RowError); ok {
			t.collector.Collect(re.Row, re.Column, re.Err)
		} else {
			t.collector.Collect(t.rowNum, "", err)
		}
	}
	return nil
}

// Close closes the underlying source.
func (t *Transformer) Close() error {
	return t.source.Close()
}
