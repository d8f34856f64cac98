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
	"strings"

	"github.com/csvmorph/csvmorph/core"
)

// String builtins. Arguments must be text; use str(...) to convert first.

func argText(name string, v core.Value) (string, error) {
	if v.Kind() != core.KindText {
		return "", &core.TypeMismatchError{Op: name, Left: v.Kind(), Right: core.KindNull}
	}
	return v.TextVal(), nil
}

func registerStringFuncs(r *Registry) {
	r.Register(&Func{Name: "upper", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		s, err := argText("upper", args[0])
		if err != nil {
			return core.Null(), err
		}
		return core.Text(strings.ToUpper(s)), nil
	}})

	r.Register(&Func{Name: "lower", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		s, err := argText("lower", args[0])
		if err != nil {
			return core.Null(), err
		}
		return core.Text(strings.ToLower(s)), nil
	}})

	r.Register(&Func{Name: "trim", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		s, err := argText("trim", args[0])
		if err != nil {
			return core.Null(), err
		}
		return core.Text(strings.TrimSpace(s)), nil
	}})

	r.Register(&Func{Name: "len", MinArity: 1, MaxArity: 1, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		s, err := argText("len", args[0])
		if err != nil {
			return core.Null(), err
		}
		return core.Int(int64(len([]rune(s)))), nil
	}})

	// substring(s, start[, length]), start is 1-based like SQL.
	r.Register(&Func{Name: "substring", MinArity: 2, MaxArity: 3, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		s, err := argText("substring", args[0])
		if err != nil {
			return core.Null(), err
		}
		if args[1].Kind() != core.KindInt {
			return core.Null(), &core.TypeMismatchError{Op: "substring", Left: args[1].Kind(), Right: core.KindNull}
		}
		runes := []rune(s)
		start := int(args[1].IntVal()) - 1
		if start < 0 {
			start = 0
		}
		if start >= len(runes) {
			return core.Text(""), nil
		}
		end := len(runes)
		if len(args) == 3 {
			if args[2].Kind() != core.KindInt {
				return core.Null(), &core.TypeMismatchError{Op: "substring", Left: args[2].Kind(), Right: core.KindNull}
			}
			if n := int(args[2].IntVal()); n >= 0 && start+n < end {
				end = start + n
			}
		}
		return core.Text(string(runes[start:end])), nil
	}})

	// position(s, sub): 1-based index of sub in s, 0 when absent.
	r.Register(&Func{Name: "position", MinArity: 2, MaxArity: 2, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		s, err := argText("position", args[0])
		if err != nil {
			return core.Null(), err
		}
		sub, err := argText("position", args[1])
		if err != nil {
			return core.Null(), err
		}
		idx := strings.Index(s, sub)
		if idx < 0 {
			return core.Int(0), nil
		}
		return core.Int(int64(len([]rune(s[:idx])) + 1)), nil
	}})

	r.Register(&Func{Name: "replace", MinArity: 3, MaxArity: 3, Call: func(args []core.Value) (core.Value, error) {
		if anyNull(args) {
			return core.Null(), nil
		}
		s, err := argText("replace", args[0])
		if err != nil {
			return core.Null(), err
		}
		old, err := argText("replace", args[1])
		if err != nil {
			return core.Null(), err
		}
		repl, err := argText("replace", args[2])
		if err != nil {
			return core.Null(), err
		}
		return core.Text(strings.ReplaceAll(s, old, repl)), nil
	}})
}
