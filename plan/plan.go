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
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/csvmorph/csvmorph/aggregate"
	"github.com/csvmorph/csvmorph/coerce"
	"github.com/csvmorph/csvmorph/core"
	"github.com/csvmorph/csvmorph/expr"
)

// ItName is the identifier bound to the current cell value inside column
// filter and map expressions.
const ItName = "it"

// Column is one compiled column declaration. All expressions are parsed and
// validated; nil expression fields mean the step is absent.
type Column struct {
	Name     string
	Tag      string    // primitive coercion tag, "" when TypeExpr is set or passthrough
	TypeExpr expr.Node // expression type, nil when Tag is set or passthrough
	Filter   expr.Node
	Map      expr.Node
	Rename   string
	Visible  bool
	Agg      string
}

// Plan is the compiled, immutable transformation plan. It is built once per
// run from a Description, bound to a header, and reused across all rows.
type Plan struct {
	entityFilter expr.Node
	cols         []*Column
	defVisible   bool
	defNormalize bool
	groupBy      []string
	reg          *expr.Registry
}

// Option configures plan compilation.
type Option func(*Plan)

// WithRegistry supplies a custom function registry. The default is the
// built-in function set.
func WithRegistry(reg *expr.Registry) Option {
	return func(p *Plan) { p.reg = reg }
}

// Registry returns the function registry the plan was compiled against.
func (p *Plan) Registry() *expr.Registry { return p.reg }

// EntityFilter returns the compiled row filter, nil when absent.
func (p *Plan) EntityFilter() expr.Node { return p.entityFilter }

// Columns returns the declared columns in declaration order.
func (p *Plan) Columns() []*Column { return p.cols }

// Compile parses and validates a transformation description. Every
// expression is parsed here; any syntax error, unknown function or arity
// violation aborts compilation before a single row is touched.
func Compile(desc *Description, opts ...Option) (*Plan, error) {
	p := &Plan{
		reg:          expr.DefaultRegistry(),
		defVisible:   true,
		defNormalize: false,
		groupBy:      append([]string(nil), desc.GroupBy...),
	}
	for _, opt := range opts {
		opt(p)
	}
	if desc.DefaultCol.Visible != nil {
		p.defVisible = *desc.DefaultCol.Visible
	}
	if desc.DefaultCol.Normalize != nil {
		p.defNormalize = *desc.DefaultCol.Normalize
	}

	if desc.EntityFilter != "" {
		node, err := p.parseExpr(desc.EntityFilter)
		if err != nil {
			return nil, err
		}
		p.entityFilter = node
	}

	seen := make(map[string]bool, len(desc.Cols))
	for _, spec := range desc.Cols {
		if seen[spec.Name] {
			return nil, fmt.Errorf("plan: column %q declared twice", spec.Name)
		}
		seen[spec.Name] = true

		col := &Column{
			Name:    spec.Name,
			Rename:  spec.Rename,
			Visible: p.defVisible,
			Agg:     spec.Agg,
		}
		if spec.Visible != nil {
			col.Visible = *spec.Visible
		}

		// The type field is polymorphic: a known tag is a primitive
		// coercion, anything else is an expression.
		if spec.Type != "" {
			if coerce.Known(spec.Type) {
				col.Tag = spec.Type
			} else {
				node, err := p.parseExpr(spec.Type)
				if err != nil {
					return nil, err
				}
				col.TypeExpr = node
			}
		}
		if spec.Filter != "" {
			node, err := p.parseExpr(spec.Filter)
			if err != nil {
				return nil, err
			}
			col.Filter = node
		}
		if spec.Map != "" {
			node, err := p.parseExpr(spec.Map)
			if err != nil {
				return nil, err
			}
			col.Map = node
		}
		if spec.Agg != "" && !aggregate.Known(spec.Agg) {
			return nil, &core.UnknownFunctionError{Name: spec.Agg}
		}

		p.cols = append(p.cols, col)
	}

	return p, nil
}

func (p *Plan) parseExpr(text string) (expr.Node, error) {
	node, err := expr.Parse(text)
	if err != nil {
		return nil, err
	}
	if err := expr.Validate(node, p.reg); err != nil {
		return nil, err
	}
	return node, nil
}

// OutColumn is one visible output column of a bound plan.
type OutColumn struct {
	// Name is the internal (input header) column name.
	Name string
	// Display is the rendered output name after rename or normalization.
	Display string
	// Tag is the primitive coercion tag used to format values, "" for text
	// and expression columns.
	Tag string
}

// Bound is a plan bound to a concrete header: dependency order verified,
// output order and names resolved, aggregation settled.
type Bound struct {
	plan        *Plan
	header      []string
	passthrough []string

	// outCols lists all output columns (visible and invisible) in output
	// order: declared columns in declaration order, then passthrough
	// columns in header order.
	outCols []OutColumn
	visible map[string]bool

	entityRefs []entityRef

	aggByCol []string // parallel to aggCols
	aggCols  []string
	groupBy  []string
}

// entityRef is a column the entity filter references, with the coercion the
// filter needs for it.
type entityRef struct {
	name string
	tag  string
}

// Bind validates the plan against the header the row source announced and
// resolves everything that depends on it. Like Compile, Bind failures are
// fatal and occur before any data flows.
func (p *Plan) Bind(header []string) (*Bound, error) {
	inHeader := make(map[string]bool, len(header))
	for _, name := range header {
		inHeader[name] = true
	}

	declaredIdx := make(map[string]int, len(p.cols))
	for i, col := range p.cols {
		if !inHeader[col.Name] {
			return nil, &core.UnknownColumnError{Name: col.Name}
		}
		declaredIdx[col.Name] = i
	}

	// Dependency order: a column expression may reference header columns
	// and columns declared before it. A reference to a column declared at
	// the same position or later is a plan error.
	for i, col := range p.cols {
		for _, node := range []expr.Node{col.TypeExpr, col.Filter, col.Map} {
			if node == nil {
				continue
			}
			for _, ref := range expr.Columns(node) {
				if ref == ItName {
					continue
				}
				if j, declared := declaredIdx[ref]; declared && j >= i {
					return nil, &core.DependencyOrderError{Column: col.Name, Ref: ref}
				}
				if !inHeader[ref] {
					return nil, &core.UnknownColumnError{Name: ref}
				}
			}
		}
	}

	b := &Bound{
		plan:    p,
		header:  append([]string(nil), header...),
		visible: make(map[string]bool, len(header)),
	}

	// Entity filter references must exist in the header; typed references
	// carry their column's coercion tag so the filter sees typed values.
	if p.entityFilter != nil {
		for _, ref := range expr.Columns(p.entityFilter) {
			if !inHeader[ref] {
				return nil, &core.UnknownColumnError{Name: ref}
			}
			tag := ""
			if i, declared := declaredIdx[ref]; declared {
				tag = p.cols[i].Tag
			}
			b.entityRefs = append(b.entityRefs, entityRef{name: ref, tag: tag})
		}
	}

	for _, col := range p.cols {
		display := col.Rename
		if display == "" {
			display = p.outputName(col.Name)
		}
		b.outCols = append(b.outCols, OutColumn{Name: col.Name, Display: display, Tag: col.Tag})
		b.visible[col.Name] = col.Visible
		if col.Agg != "" {
			b.aggCols = append(b.aggCols, col.Name)
			b.aggByCol = append(b.aggByCol, col.Agg)
		}
	}
	for _, name := range header {
		if _, declared := declaredIdx[name]; declared {
			continue
		}
		b.passthrough = append(b.passthrough, name)
		b.outCols = append(b.outCols, OutColumn{Name: name, Display: p.outputName(name)})
		b.visible[name] = p.defVisible
	}

	if len(b.aggCols) > 0 {
		if err := b.resolveGroupBy(p.groupBy, declaredIdx, inHeader); err != nil {
			return nil, err
		}
	} else if len(p.groupBy) > 0 {
		return nil, fmt.Errorf("plan: group_by declared but no column has an aggregate")
	}

	return b, nil
}

func (b *Bound) resolveGroupBy(explicit []string, declaredIdx map[string]int, inHeader map[string]bool) error {
	isAgg := make(map[string]bool, len(b.aggCols))
	for _, name := range b.aggCols {
		isAgg[name] = true
	}

	if len(explicit) > 0 {
		for _, name := range explicit {
			if !inHeader[name] {
				return &core.UnknownColumnError{Name: name}
			}
			if isAgg[name] {
				return fmt.Errorf("plan: group_by column %q has an aggregate", name)
			}
		}
		b.groupBy = append([]string(nil), explicit...)
		return nil
	}

	// Default key: every non-aggregated visible column, in output order.
	for _, out := range b.outCols {
		if !isAgg[out.Name] && b.visible[out.Name] {
			b.groupBy = append(b.groupBy, out.Name)
		}
	}
	return nil
}

// outputName applies the default normalization rule to a column without an
// explicit rename.
func (p *Plan) outputName(name string) string {
	if p.defNormalize {
		return NormalizeName(name)
	}
	return name
}

// Plan accessors used by the pipeline stages.

// Header returns the bound input header.
func (b *Bound) Header() []string { return b.header }

// Plan returns the compiled plan this binding came from.
func (b *Bound) Plan() *Plan { return b.plan }

// Passthrough returns the header columns with no declaration, header order.
func (b *Bound) Passthrough() []string { return b.passthrough }

// Visible reports the resolved visibility of an internal column name.
func (b *Bound) Visible(name string) bool { return b.visible[name] }

// OutColumns returns every output column (visible or not) in output order.
func (b *Bound) OutColumns() []OutColumn { return b.outCols }

// VisibleColumns returns the visible output columns in output order. When
// aggregation is active, only grouping and aggregated columns qualify.
func (b *Bound) VisibleColumns() []OutColumn {
	inKey := make(map[string]bool, len(b.groupBy))
	for _, name := range b.groupBy {
		inKey[name] = true
	}
	isAgg := make(map[string]bool, len(b.aggCols))
	for _, name := range b.aggCols {
		isAgg[name] = true
	}

	var out []OutColumn
	for _, oc := range b.outCols {
		if !b.visible[oc.Name] {
			continue
		}
		if b.HasAgg() && !inKey[oc.Name] && !isAgg[oc.Name] {
			continue
		}
		out = append(out, oc)
	}
	return out
}

// HasAgg reports whether the plan declares any aggregation.
func (b *Bound) HasAgg() bool { return len(b.aggCols) > 0 }

// GroupBy returns the resolved grouping columns (internal names).
func (b *Bound) GroupBy() []string { return b.groupBy }

// AggByCol returns the aggregated columns mapped to their function names.
func (b *Bound) AggByCol() map[string]string {
	m := make(map[string]string, len(b.aggCols))
	for i, name := range b.aggCols {
		m[name] = b.aggByCol[i]
	}
	return m
}

// EntityRefs returns the columns the entity filter references together with
// the coercion tag each needs ("" for raw text).
func (b *Bound) EntityRefs() []struct{ Name, Tag string } {
	out := make([]struct{ Name, Tag string }, len(b.entityRefs))
	for i, ref := range b.entityRefs {
		out[i] = struct{ Name, Tag string }{ref.name, ref.tag}
	}
	return out
}

var markStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// NormalizeName converts a column name to its canonical form: accents
// stripped via NFKD decomposition, non-ASCII dropped, whitespace runs
// collapsed to a single underscore, lowercased.
func NormalizeName(name string) string {
	stripped, _, err := transform.String(markStripper, name)
	if err != nil {
		stripped = name
	}

	var sb strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(stripped) {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsSpace(r) {
			pendingSep = true
			continue
		}
		if pendingSep {
			sb.WriteByte('_')
			pendingSep = false
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
