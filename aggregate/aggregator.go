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
	"sort"

	"github.com/csvmorph/csvmorph/core"
)

// Accumulator combines the values of one output column within one group.
// Null values are skipped by every accumulator except first, which keeps
// whatever the first row held.
type Accumulator interface {
	// Add feeds one transformed cell value into the accumulator.
	Add(v core.Value) error
	// Result returns the combined value.
	Result() core.Value
}

// factories maps aggregate function names to accumulator constructors.
var factories = map[string]func() Accumulator{
	"sum":    func() Accumulator { return &sumAccumulator{} },
	"count":  func() Accumulator { return &countAccumulator{} },
	"avg":    func() Accumulator { return &avgAccumulator{} },
	"mean":   func() Accumulator { return &avgAccumulator{} },
	"median": func() Accumulator { return &medianAccumulator{} },
	"min":    func() Accumulator { return &extremumAccumulator{name: "min", dir: -1} },
	"max":    func() Accumulator { return &extremumAccumulator{name: "max", dir: 1} },
	"first":  func() Accumulator { return &firstAccumulator{} },
}

// Known reports whether name is a registered aggregate function.
func Known(name string) bool {
	_, ok := factories[name]
	return ok
}

// NewAccumulator creates a fresh accumulator for the named aggregate.
// The second return is false for unknown names.
func NewAccumulator(name string) (Accumulator, bool) {
	factory, ok := factories[name]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// sumAccumulator sums numeric values, staying integer while every input is
// an integer. No non-null input yields null.
type sumAccumulator struct {
	i       int64
	f       float64
	isFloat bool
	seen    bool
}

func (s *sumAccumulator) Add(v core.Value) error {
	switch v.Kind() {
	case core.KindNull:
		return nil
	case core.KindInt:
		s.seen = true
		if s.isFloat {
			s.f += float64(v.IntVal())
		} else {
			s.i += v.IntVal()
		}
		return nil
	case core.KindFloat:
		s.seen = true
		if !s.isFloat {
			s.isFloat = true
			s.f = float64(s.i)
		}
		s.f += v.FloatVal()
		return nil
	default:
		return &core.TypeMismatchError{Op: "sum", Left: v.Kind(), Right: core.KindNull}
	}
}

func (s *sumAccumulator) Result() core.Value {
	if !s.seen {
		return core.Null()
	}
	if s.isFloat {
		return core.Float(s.f)
	}
	return core.Int(s.i)
}

// countAccumulator counts non-null values of any kind.
type countAccumulator struct {
	n int64
}

func (c *countAccumulator) Add(v core.Value) error {
	if !v.IsNull() {
		c.n++
	}
	return nil
}

func (c *countAccumulator) Result() core.Value { return core.Int(c.n) }

// avgAccumulator averages numeric values.
type avgAccumulator struct {
	sum float64
	n   int64
}

func (a *avgAccumulator) Add(v core.Value) error {
	if v.IsNull() {
		return nil
	}
	f, ok := v.AsFloat()
	if !ok {
		return &core.TypeMismatchError{Op: "avg", Left: v.Kind(), Right: core.KindNull}
	}
	a.sum += f
	a.n++
	return nil
}

func (a *avgAccumulator) Result() core.Value {
	if a.n == 0 {
		return core.Null()
	}
	return core.Float(a.sum / float64(a.n))
}

// medianAccumulator keeps all numeric values and sorts them at close time.
// An even count yields the mean of the two middle values.
type medianAccumulator struct {
	values []float64
}

func (m *medianAccumulator) Add(v core.Value) error {
	if v.IsNull() {
		return nil
	}
	f, ok := v.AsFloat()
	if !ok {
		return &core.TypeMismatchError{Op: "median", Left: v.Kind(), Right: core.KindNull}
	}
	m.values = append(m.values, f)
	return nil
}

func (m *medianAccumulator) Result() core.Value {
	if len(m.values) == 0 {
		return core.Null()
	}
	sorted := make([]float64, len(m.values))
	copy(sorted, m.values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return core.Float(sorted[mid])
	}
	return core.Float((sorted[mid-1] + sorted[mid]) / 2)
}

// extremumAccumulator tracks the minimum (dir < 0) or maximum (dir > 0)
// numeric value, preserving the integer kind when the winner is an integer.
type extremumAccumulator struct {
	name string
	dir  int
	best core.Value
	seen bool
}

func (e *extremumAccumulator) Add(v core.Value) error {
	if v.IsNull() {
		return nil
	}
	if !v.IsNumeric() {
		return &core.TypeMismatchError{Op: e.name, Left: v.Kind(), Right: core.KindNull}
	}
	if !e.seen {
		e.best = v
		e.seen = true
		return nil
	}
	if cmp, _ := v.Compare(e.best); cmp*e.dir > 0 {
		e.best = v
	}
	return nil
}

func (e *extremumAccumulator) Result() core.Value {
	if !e.seen {
		return core.Null()
	}
	return e.best
}

// firstAccumulator keeps the value from the first row seen, null included.
// Input order is guaranteed by the single accumulation path.
type firstAccumulator struct {
	value core.Value
	seen  bool
}

func (f *firstAccumulator) Add(v core.Value) error {
	if !f.seen {
		f.value = v
		f.seen = true
	}
	return nil
}

func (f *firstAccumulator) Result() core.Value {
	if !f.seen {
		return core.Null()
	}
	return f.value
}
