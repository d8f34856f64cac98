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

import "github.com/csvmorph/csvmorph/core"

// Node is an immutable expression tree node. The variant set is closed: the
// evaluator switches exhaustively over it, so a new node kind is a
// compile-time visible change.
type Node interface {
	node()
}

// Literal is a constant value.
type Literal struct {
	Value core.Value
	Pos   int
}

// ColumnRef references a row column by name, case-sensitively.
type ColumnRef struct {
	Name string
	Pos  int
}

// Unary is a prefix operation: negation or not.
type Unary struct {
	Op      TokenType
	Operand Node
	Pos     int
}

// Binary is an infix operation.
type Binary struct {
	Op    TokenType
	Left  Node
	Right Node
	Pos   int
}

// Call is a function call with positional arguments.
type Call struct {
	Name string
	Args []Node
	Pos  int
}

func (*Literal) node()   {}
func (*ColumnRef) node() {}
func (*Unary) node()     {}
func (*Binary) node()    {}
func (*Call) node()      {}

// Columns returns the distinct column names referenced anywhere in the tree,
// in first-appearance order.
func Columns(n Node) []string {
	var names []string
	seen := make(map[string]bool)
	walk(n, func(node Node) {
		if ref, ok := node.(*ColumnRef); ok && !seen[ref.Name] {
			seen[ref.Name] = true
			names = append(names, ref.Name)
		}
	})
	return names
}

func walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch v := n.(type) {
	case *Unary:
		walk(v.Operand, fn)
	case *Binary:
		walk(v.Left, fn)
		walk(v.Right, fn)
	case *Call:
		for _, arg := range v.Args {
			walk(arg, fn)
		}
	}
}
