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

package core

import (
	"errors"
	"fmt"
)

// Package core error taxonomy.
//
// Failures split into two families. Plan errors are detected once, while the
// transformation description is compiled, and always abort the run before any
// data flows: SyntaxError, DependencyOrderError, UnknownFunctionError,
// ArityError. Row errors are detected per row or per cell during processing
// and are collected with row identity rather than aborting the run:
// CoercionError, TypeMismatchError, UnknownColumnError, ArithmeticError.

// SyntaxError reports a malformed expression, with the offending token and
// its byte position in the expression text.
type SyntaxError struct {
	Expr  string
	Pos   int
	Token string
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("syntax error in %q at %d: %s", e.Expr, e.Pos, e.Msg)
	}
	return fmt.Sprintf("syntax error in %q at %d near %q: %s", e.Expr, e.Pos, e.Token, e.Msg)
}

// DependencyOrderError reports a column expression referencing a column that
// is declared later. Columns may only reference columns declared before them.
type DependencyOrderError struct {
	Column string
	Ref    string
}

func (e *DependencyOrderError) Error() string {
	return fmt.Sprintf("column %q references %q which is declared later", e.Column, e.Ref)
}

// UnknownFunctionError reports a call to a function that is not registered.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

// ArityError reports a function call with the wrong number of arguments.
// Max < 0 means unbounded.
type ArityError struct {
	Name string
	Got  int
	Min  int
	Max  int
}

func (e *ArityError) Error() string {
	if e.Min == e.Max {
		return fmt.Sprintf("function %q takes %d argument(s), got %d", e.Name, e.Min, e.Got)
	}
	if e.Max < 0 {
		return fmt.Sprintf("function %q takes at least %d argument(s), got %d", e.Name, e.Min, e.Got)
	}
	return fmt.Sprintf("function %q takes %d to %d arguments, got %d", e.Name, e.Min, e.Max, e.Got)
}

// IsPlanError reports whether err belongs to the plan-construction family.
func IsPlanError(err error) bool {
	var se *SyntaxError
	var de *DependencyOrderError
	var fe *UnknownFunctionError
	var ae *ArityError
	return errors.As(err, &se) || errors.As(err, &de) ||
		errors.As(err, &fe) || errors.As(err, &ae)
}

// CoercionError reports raw text that could not be parsed as the declared
// target type.
type CoercionError struct {
	Column string
	Raw    string
	Type   string
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %q: cannot coerce %q to %s: %v", e.Column, e.Raw, e.Type, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// TypeMismatchError reports an operator or function applied to operand kinds
// it does not accept.
type TypeMismatchError struct {
	Op    string
	Left  Kind
	Right Kind
}

func (e *TypeMismatchError) Error() string {
	if e.Right == KindNull && e.Left != KindNull {
		return fmt.Sprintf("%s: unsupported operand type %s", e.Op, e.Left)
	}
	return fmt.Sprintf("%s: unsupported operand types %s and %s", e.Op, e.Left, e.Right)
}

// UnknownColumnError reports an expression referencing a column absent from
// the row context.
type UnknownColumnError struct {
	Name string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Name)
}

// ArithmeticError reports an arithmetic fault such as division by zero. The
// engine never produces Inf or NaN silently.
type ArithmeticError struct {
	Op  string
	Msg string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// IsRowError reports whether err belongs to the per-row processing family.
func IsRowError(err error) bool {
	var ce *CoercionError
	var te *TypeMismatchError
	var ue *UnknownColumnError
	var ae *ArithmeticError
	return errors.As(err, &ce) || errors.As(err, &te) ||
		errors.As(err, &ue) || errors.As(err, &ae)
}

// RowError ties a processing failure to the row (by original input index) and
// column it occurred on. Row counts data rows read from the source, starting
// at 1.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
