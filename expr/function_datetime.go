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

package expr

import (
	"fmt"
	"time"

	"github.com/csvmorph/csvmorph/core"
)

// Date builtins. date(...) is also the date literal form: a bare ISO date in
// an expression would lex as subtraction, so dates are always constructed.

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02/01/06"}

// toDate accepts a date value as-is, or parses text.
func toDate(name string, v core.Value) (core.Value, error) {
	switch v.Kind() {
	case core.KindDate:
		return v, nil
	case core.KindText:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v.TextVal()); err == nil {
				return core.Date(t), nil
			}
		}
		return core.Null(), &core.ArithmeticError{Op: name, Msg: fmt.Sprintf("not a date: %q", v.TextVal())}
	default:
		return core.Null(), &core.TypeMismatchError{Op: name, Left: v.Kind(), Right: core.KindNull}
	}
}

func registerDateFuncs(r *Registry) {
	r.Register(&Func{Name: "date", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		return toDate("date", args[0])
	}})

	datePart := func(name string, part func(time.Time) int64) *Func {
		return &Func{Name: name, MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
			if anyNull(args) {
				return core.Null(), nil
			}
			d, err := toDate(name, args[0])
			if err != nil {
				return core.Null(), err
			}
			return core.Int(part(d.DateVal())), nil
		}}
	}

	r.Register(datePart("year", func(t time.Time) int64 { return int64(t.Year()) }))
	r.Register(datePart("month", func(t time.Time) int64 { return int64(t.Month()) }))
	r.Register(datePart("day", func(t time.Time) int64 { return int64(t.Day()) }))

	shift := func(name string, add func(time.Time, int) time.Time) *Func {
		return &Func{Name: name, MinArity: 2, MaxArity: 2, Call: func(args []core.Value) (core.Value, error) {
			if anyNull(args) {
				return core.Null(), nil
			}
			d, err := toDate(name, args[0])
			if err != nil {
				return core.Null(), err
			}
			if args[1].Kind() != core.KindInt {
				return core.Null(), &core.TypeMismatchError{Op: name, Left: args[1].Kind(), Right: core.KindNull}
			}
			return core.Date(add(d.DateVal(), int(args[1].IntVal()))), nil
		}}
	}

	r.Register(shift("add_years", func(t time.Time, n int) time.Time { return t.AddDate(n, 0, 0) }))
	r.Register(shift("add_months", func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }))
}
