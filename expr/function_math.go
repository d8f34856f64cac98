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
	"math"

	"github.com/csvmorph/csvmorph/core"
)

// Math builtins, following the PostgreSQL math function catalogue.

func argFloat(name string, v core.Value) (float64, error) {
	f, ok := v.AsFloat()
	if !ok {
		return 0, &core.TypeMismatchError{Op: name, Left: v.Kind(), Right: core.KindNull}
	}
	return f, nil
}

// unaryFloat builds a float -> float builtin, guarding against Inf and NaN.
func unaryFloat(name string, fn func(float64) float64) *Func {
	return &Func{Name: name, MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		f, err := argFloat(name, args[0])
		if err != nil {
			return core.Null(), err
		}
		res := fn(f)
		if math.IsInf(res, 0) || math.IsNaN(res) {
			return core.Null(), &core.ArithmeticError{Op: name, Msg: "result out of range"}
		}
		return core.Float(res), nil
	}}
}

func registerMathFuncs(r *Registry) {
	r.Register(&Func{Name: "abs", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		switch args[0].Kind() {
		case core.KindInt:
			i := args[0].IntVal()
			if i < 0 {
				i = -i
			}
			return core.Int(i), nil
		case core.KindFloat:
			return core.Float(math.Abs(args[0].FloatVal())), nil
		default:
			return core.Null(), &core.TypeMismatchError{Op: "abs", Left: args[0].Kind(), Right: core.KindNull}
		}
	}})

	r.Register(&Func{Name: "sign", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		f, err := argFloat("sign", args[0])
		if err != nil {
			return core.Null(), err
		}
		switch {
		case f < 0:
			return core.Int(-1), nil
		case f > 0:
			return core.Int(1), nil
		default:
			return core.Int(0), nil
		}
	}})

	r.Register(&Func{Name: "ceil", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		f, err := argFloat("ceil", args[0])
		if err != nil {
			return core.Null(), err
		}
		return core.Int(int64(math.Ceil(f))), nil
	}})

	r.Register(&Func{Name: "floor", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		f, err := argFloat("floor", args[0])
		if err != nil {
			return core.Null(), err
		}
		return core.Int(int64(math.Floor(f))), nil
	}})

	// round(x) or round(x, digits)
	r.Register(&Func{Name: "round", MinArity: 1, MaxArity: 2, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		f, err := argFloat("round", args[0])
		if err != nil {
			return core.Null(), err
		}
		if len(args) == 1 {
			return core.Int(int64(math.Round(f))), nil
		}
		if args[1].Kind() != core.KindInt {
			return core.Null(), &core.TypeMismatchError{Op: "round", Left: args[1].Kind(), Right: core.KindNull}
		}
		pow := math.Pow(10, float64(args[1].IntVal()))
		return core.Float(math.Round(f*pow) / pow), nil
	}})

	r.Register(unaryFloat("sqrt", math.Sqrt))
	r.Register(unaryFloat("exp", math.Exp))
	r.Register(unaryFloat("ln", math.Log))
	r.Register(unaryFloat("log2", math.Log2))
	r.Register(unaryFloat("log10", math.Log10))

	r.Register(&Func{Name: "min", MinArity: 1, MaxArity: -1, Call: func(args []core.Value) (core.Value, error) {
		return foldExtremum("min", args, -1)
	}})
	r.Register(&Func{Name: "max", MinArity: 1, MaxArity: -1, Call: func(args []core.Value) (core.Value, error) {
		return foldExtremum("max", args, 1)
	}})
}

// foldExtremum picks the smallest (dir < 0) or largest (dir > 0) argument.
// Works on any ordered family: numeric, text, date.
func foldExtremum(name string, args []core.Value, dir int) (core.Value, error) {
	if anyNull(args) {
		return core.Null(), nil
	}
	best := args[0]
	for _, a := range args[1:] {
		cmp, ok := a.Compare(best)
		if !ok {
			return core.Null(), &core.TypeMismatchError{Op: name, Left: a.Kind(), Right: best.Kind()}
		}
		if cmp*dir > 0 {
			best = a
		}
	}
	return best, nil
}
