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
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/csvmorph/csvmorph/aggregate"
	"github.com/csvmorph/csvmorph/core"
	"github.com/csvmorph/csvmorph/filter"
	"github.com/csvmorph/csvmorph/plan"
	"github.com/csvmorph/csvmorph/transform"
)

// Package csvmorph transforms tabular text data declaratively. A
// transformation description (JSON or YAML) is compiled into a plan; the
// pipeline streams rows from a RowSource through the entity filter, the
// per-column pipeline and optional aggregation into a RowSink.
//
// Example usage:
//
//	desc, err := plan.DecodeJSON(descFile)
//	if err != nil { log.Fatal(err) }
//	compiled, err := plan.Compile(desc)
//	if err != nil { log.Fatal(err) }
//
//	pipeline, err := csvmorph.NewPipeline().
//	    From(csvReader).
//	    WithPlan(compiled).
//	    To(csvWriter).
//	    WithErrorStrategy(csvmorph.CollectErrors).
//	    Build()
//	if err != nil { log.Fatal(err) }
//	if err := pipeline.Execute(context.Background()); err != nil { log.Fatal(err) }
//
// Row processing is streaming except aggregation, which holds one
// accumulator set per distinct key until the source is exhausted.

// PipelineStats summarizes one pipeline run.
type PipelineStats struct {
	RowsRead     int64
	RowsFiltered int64 // rejected by the entity filter
	RowsDropped  int64 // dropped due to row errors
	RowsWritten  int64
	Groups       int64 // distinct aggregation keys, 0 without aggregation
	Duration     time.Duration
}

// PipelineBuilder provides a fluent API for constructing pipelines.
// Use NewPipeline() to create a builder, then chain From, WithPlan, To and
// configuration methods.
type PipelineBuilder struct {
	pipeline *Pipeline
	desc     *plan.Description
}

// NewPipeline creates a new PipelineBuilder.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{
			strategy: FailFast,
			workers:  1,
		},
	}
}

// From sets the RowSource for the pipeline.
func (pb *PipelineBuilder) From(source core.RowSource) *PipelineBuilder {
	pb.pipeline.source = source
	return pb
}

// WithPlan sets a previously compiled transformation plan.
func (pb *PipelineBuilder) WithPlan(p *plan.Plan) *PipelineBuilder {
	pb.pipeline.plan = p
	return pb
}

// WithDescription sets the transformation description; it is compiled
// during Build. Mutually exclusive with WithPlan.
func (pb *PipelineBuilder) WithDescription(desc *plan.Description) *PipelineBuilder {
	pb.desc = desc
	return pb
}

// To sets the RowSink for the pipeline.
func (pb *PipelineBuilder) To(sink core.RowSink) *PipelineBuilder {
	pb.pipeline.sink = sink
	return pb
}

// WithErrorStrategy sets the row error handling strategy.
func (pb *PipelineBuilder) WithErrorStrategy(strategy ErrorStrategy) *PipelineBuilder {
	pb.pipeline.strategy = strategy
	return pb
}

// WithErrorHandler sets a custom handler observing skipped row errors.
func (pb *PipelineBuilder) WithErrorHandler(handler ErrorHandler) *PipelineBuilder {
	pb.pipeline.errorHandler = handler
	return pb
}

// WithLimit stops reading after n input rows. Zero means unlimited.
func (pb *PipelineBuilder) WithLimit(n int64) *PipelineBuilder {
	pb.pipeline.limit = n
	return pb
}

// WithWorkers sets the number of goroutines applying the column pipeline.
// Output order stays identical to input order regardless of worker count.
func (pb *PipelineBuilder) WithWorkers(n int) *PipelineBuilder {
	if n > 0 {
		pb.pipeline.workers = n
	}
	return pb
}

// WithLogger sets the logger for per-run reporting. Nil disables logging.
func (pb *PipelineBuilder) WithLogger(logger *log.Logger) *PipelineBuilder {
	pb.pipeline.logger = logger
	return pb
}

// Build validates and constructs the Pipeline from the builder.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	if pb.pipeline.source == nil {
		return nil, fmt.Errorf("pipeline requires a row source")
	}
	if pb.pipeline.sink == nil {
		return nil, fmt.Errorf("pipeline requires a row sink")
	}
	if pb.desc != nil {
		if pb.pipeline.plan != nil {
			return nil, fmt.Errorf("pipeline takes a plan or a description, not both")
		}
		compiled, err := plan.Compile(pb.desc)
		if err != nil {
			return nil, err
		}
		pb.pipeline.plan = compiled
	}
	if pb.pipeline.plan == nil {
		return nil, fmt.Errorf("pipeline requires a transformation plan")
	}
	pb.pipeline.collector = core.NewErrorCollector()
	return pb.pipeline, nil
}

// Pipeline executes one compiled plan against one source/sink pair.
type Pipeline struct {
	source       core.RowSource
	sink         core.RowSink
	plan         *plan.Plan
	strategy     ErrorStrategy
	errorHandler ErrorHandler
	limit        int64
	workers      int
	logger       *log.Logger
	collector    *core.ErrorCollector
	stats        PipelineStats
}

// Errors returns the row errors recorded under CollectErrors.
func (p *Pipeline) Errors() []core.RowError {
	return p.collector.Errors()
}

// Stats returns the statistics of the last Execute call.
func (p *Pipeline) Stats() PipelineStats {
	return p.stats
}

// Execute runs the pipeline. The plan is bound to the source header, rows
// stream through entity filtering and the column pipeline, and results are
// written (directly, or after aggregation) to the sink.
func (p *Pipeline) Execute(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		p.stats.Duration = time.Since(start)
		if p.logger != nil {
			p.logger.Printf("run %s: read=%d filtered=%d dropped=%d written=%d errors=%d in %s",
				p.collector.RunID(), p.stats.RowsRead, p.stats.RowsFiltered,
				p.stats.RowsDropped, p.stats.RowsWritten, p.collector.Len(), p.stats.Duration)
		}
	}()
	defer p.source.Close()
	// The sink closes on every path, error paths included, so a failed run
	// does not leak its file or connection.
	defer func() {
		if cerr := p.sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bound, err := p.plan.Bind(p.source.Header())
	if err != nil {
		return err
	}

	run := &execution{
		pipeline:    p,
		bound:       bound,
		entity:      filter.NewEntity(bound),
		transformer: transform.New(bound),
	}
	if bound.HasAgg() {
		groupBy, err := aggregate.NewGroupBy(bound.GroupBy(), bound.AggByCol())
		if err != nil {
			return err
		}
		run.groupBy = groupBy
	}

	if p.workers > 1 {
		err = run.executeParallel(ctx, p.workers)
	} else {
		err = run.executeSerial(ctx)
	}
	if err != nil {
		return err
	}

	if run.groupBy != nil {
		p.stats.Groups = int64(run.groupBy.Len())
		for _, typed := range run.groupBy.Rows() {
			if err := run.write(ctx, typed); err != nil {
				return err
			}
		}
	}

	return p.sink.Flush()
}

// execution carries the per-run state so Pipeline itself stays reusable.
type execution struct {
	pipeline    *Pipeline
	bound       *plan.Bound
	entity      *filter.Entity
	transformer *transform.RowTransformer
	groupBy     *aggregate.GroupBy
	outHeader   []string
}

// rowOutcome is the result of pushing one row through the entity filter and
// the column pipeline.
type rowOutcome struct {
	typed    core.TypedRow
	filtered bool
	errs     []core.RowError
}

func (e *execution) process(row core.TextRow, rowNum int) rowOutcome {
	keep, err := e.entity.Keep(row, rowNum)
	if err != nil {
		var rowErr *core.RowError
		if re, ok := err.(*core.RowError); ok {
			rowErr = re
		} else {
			rowErr = &core.RowError{Row: rowNum, Err: err}
		}
		return rowOutcome{errs: []core.RowError{*rowErr}}
	}
	if !keep {
		return rowOutcome{filtered: true}
	}

	typed, errs := e.transformer.Apply(row, rowNum)
	return rowOutcome{typed: typed, errs: errs}
}

// settle applies the error strategy to a processed row. It reports whether
// the row should continue downstream.
func (e *execution) settle(ctx context.Context, out *rowOutcome) (bool, error) {
	p := e.pipeline
	if out.filtered {
		p.stats.RowsFiltered++
		return false, nil
	}
	if len(out.errs) == 0 {
		return out.typed != nil, nil
	}

	if p.strategy == FailFast {
		err := out.errs[0]
		return false, &err
	}
	for i := range out.errs {
		if p.strategy == CollectErrors {
			p.collector.Collect(out.errs[i].Row, out.errs[i].Column, out.errs[i].Err)
		}
		if p.errorHandler != nil {
			if err := p.errorHandler.HandleError(ctx, &out.errs[i]); err != nil {
				return false, err
			}
		}
	}

	// A row whose entity filter failed has no typed form to continue with.
	if out.typed == nil {
		p.stats.RowsDropped++
		return false, nil
	}

	// Nulled cells are tolerable in plain output but poison aggregation
	// keys, so rows failing on a grouping column are dropped.
	if e.groupBy != nil {
		for i := range out.errs {
			for _, key := range e.bound.GroupBy() {
				if out.errs[i].Column == key {
					p.stats.RowsDropped++
					return false, nil
				}
			}
		}
	}
	return true, nil
}

func (e *execution) write(ctx context.Context, typed core.TypedRow) error {
	if e.outHeader == nil {
		e.outHeader = e.transformer.OutHeader()
	}
	if err := e.pipeline.sink.Write(ctx, e.outHeader, e.transformer.Project(typed)); err != nil {
		return err
	}
	e.pipeline.stats.RowsWritten++
	return nil
}

func (e *execution) consume(ctx context.Context, typed core.TypedRow) error {
	if e.groupBy != nil {
		return e.groupBy.Add(typed)
	}
	return e.write(ctx, typed)
}

func (e *execution) executeSerial(ctx context.Context) error {
	p := e.pipeline
	rowNum := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if p.limit > 0 && p.stats.RowsRead >= p.limit {
			return nil
		}

		row, err := p.source.Read(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		rowNum++
		p.stats.RowsRead++

		out := e.process(row, rowNum)
		ok, err := e.settle(ctx, &out)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := e.consume(ctx, out.typed); err != nil {
			return err
		}
	}
}

// rowJob carries one row through the worker pool. Each job owns a buffered
// result channel; the consumer drains jobs in dispatch order, which keeps
// output order equal to input order whatever the worker count.
type rowJob struct {
	rowNum int
	row    core.TextRow
	done   chan rowOutcome
}

func (e *execution) executeParallel(ctx context.Context, workers int) error {
	p := e.pipeline

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan *rowJob, workers*2)
	ordered := make(chan *rowJob, workers*2)

	g.Go(func() error {
		defer close(jobs)
		defer close(ordered)
		rowNum := 0
		for {
			if p.limit > 0 && p.stats.RowsRead >= p.limit {
				return nil
			}
			row, err := p.source.Read(ctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			rowNum++
			p.stats.RowsRead++

			job := &rowJob{rowNum: rowNum, row: row, done: make(chan rowOutcome, 1)}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case ordered <- job:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for job := range jobs {
				job.done <- e.process(job.row, job.rowNum)
			}
			return nil
		})
	}

	g.Go(func() error {
		for job := range ordered {
			var out rowOutcome
			select {
			case out = <-job.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			ok, err := e.settle(ctx, &out)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := e.consume(ctx, out.typed); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}
