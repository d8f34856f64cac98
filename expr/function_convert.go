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
	"strconv"
	"strings"

	"github.com/csvmorph/csvmorph/core"
)

// Conversion builtins: int, float, str. These mirror the coercion tags but
// work on already-typed values inside expressions.

func registerConvertFuncs(r *Registry) {
	r.Register(&Func{Name: "int", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		v := args[0]
		switch v.Kind() {
		case core.KindInt:
			return v, nil
		case core.KindFloat:
			return core.Int(int64(v.FloatVal())), nil
		case core.KindText:
			i, err := strconv.ParseInt(strings.TrimSpace(v.TextVal()), 10, 64)
			if err != nil {
				return core.Null(), &core.ArithmeticError{Op: "int", Msg: "not an integer: " + v.TextVal()}
			}
			return core.Int(i), nil
		case core.KindBool:
			if v.BoolVal() {
				return core.Int(1), nil
			}
			return core.Int(0), nil
		default:
			return core.Null(), &core.TypeMismatchError{Op: "int", Left: v.Kind(), Right: core.KindNull}
		}
	}})

	r.Register(&Func{Name: "float", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		v := args[0]
		switch v.Kind() {
		case core.KindFloat:
			return v, nil
		case core.KindInt:
			return core.Float(float64(v.IntVal())), nil
		case core.KindText:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.TextVal()), 64)
			if err != nil {
				return core.Null(), &core.ArithmeticError{Op: "float", Msg: "not a number: " + v.TextVal()}
			}
			return core.Float(f), nil
		default:
			return core.Null(), &core.TypeMismatchError{Op: "float", Left: v.Kind(), Right: core.KindNull}
		}
	}})

	// str renders any value, including null, to its display text.
	r.Register(&Func{Name: "str", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		return core.Text(args[0].Display()), nil
	}})
}
