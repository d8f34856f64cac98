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
	"sync"

	"github.com/csvmorph/csvmorph/core"
)

// Func is a typed function descriptor: name, arity bounds and a pure
// implementation. MaxArity < 0 means variadic with no upper bound. Arity is
// validated at plan-construction time, not at call time.
type Func struct {
	Name     string
	MinArity int
	MaxArity int
	Call     func(args []core.Value) (core.Value, error)
}

// Registry manages function lookup and registration. The grammar is closed
// but the registry is open: callers may register additional named functions
// without touching the parser.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Func)}
}

// Register adds or replaces a function. Names are case-insensitive.
func (r *Registry) Register(f *Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[strings.ToLower(f.Name)] = f
}

// Lookup retrieves a function by name, case-insensitively.
func (r *Registry) Lookup(name string) (*Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[strings.ToLower(name)]
	return f, ok
}

// defaultRegistry is populated by the function_* files.
var defaultRegistry *Registry

func init() {
	defaultRegistry = NewRegistry()
	registerMathFuncs(defaultRegistry)
	registerStringFuncs(defaultRegistry)
	registerDateFuncs(defaultRegistry)
	registerConvertFuncs(defaultRegistry)
	registerConditionalFuncs(defaultRegistry)
}

// DefaultRegistry returns the registry with the built-in function set.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// anyNull reports whether any argument is null. Most builtins propagate null
// instead of failing; case and coalesce treat null explicitly.
func anyNull(args []core.Value) bool {
	for _, a := range args {
		if a.IsNull() {
			return true
		}
	}
	return false
}

func registerConditionalFuncs(r *Registry) {
	// case(cond1, v1, ..., default): first true condition wins.
	r.Register(&Func{Name: "case", MinArity: 3, MaxArity: -1, Call: func(args []core.Value) (core.Value, error) {
		if len(args)%2 == 0 {
			return core.Null(), &core.ArityError{Name: "case", Got: len(args), Min: 3, Max: -1}
		}
		for i := 0; i+1 < len(args); i += 2 {
			cond := args[i]
			if cond.Kind() != core.KindBool {
				return core.Null(), &core.TypeMismatchError{Op: "case", Left: cond.Kind(), Right: core.KindNull}
			}
			if cond.BoolVal() {
				return args[i+1], nil
			}
		}
		return args[len(args)-1], nil
	}})

	r.Register(&Func{Name: "coalesce", MinArity: 1, MaxArity: -1, Call: func(args []core.Value) (core.Value, error) {
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return core.Null(), nil
	}})
}
