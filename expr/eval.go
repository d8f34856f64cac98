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

// Eval evaluates a parsed expression against a row context. Evaluation is
// pure: it never mutates the row and has no side effects, so a node can be
// evaluated any number of times against different rows.
//
// Type rules: arithmetic requires numeric operands (mixed int/float promotes
// to float, / always yields float); comparison is defined for same-kind
// operands; and/or/not require booleans; & renders both operands to display
// text. Division and modulo by zero fail with ArithmeticError rather than
// yielding Inf or NaN.
func Eval(n Node, row core.TypedRow, reg *Registry) (core.Value, error) {
	switch v := n.(type) {
	case *Literal:
		return v.Value, nil
	case *ColumnRef:
		val, ok := row[v.Name]
		if !ok {
			return core.Null(), &core.UnknownColumnError{Name: v.Name}
		}
		return val, nil
	case *Unary:
		return evalUnary(v, row, reg)
	case *Binary:
		return evalBinary(v, row, reg)
	case *Call:
		return evalCall(v, row, reg)
	default:
		return core.Null(), &core.TypeMismatchError{Op: "eval", Left: core.KindNull, Right: core.KindNull}
	}
}

// EvalBool evaluates a filter expression. A non-boolean result is a type
// mismatch, never a silent truthiness conversion.
func EvalBool(n Node, row core.TypedRow, reg *Registry) (bool, error) {
	v, err := Eval(n, row, reg)
	if err != nil {
		return false, err
	}
	if v.Kind() != core.KindBool {
		return false, &core.TypeMismatchError{Op: "filter", Left: v.Kind(), Right: core.KindNull}
	}
	return v.BoolVal(), nil
}

func evalUnary(u *Unary, row core.TypedRow, reg *Registry) (core.Value, error) {
	operand, err := Eval(u.Operand, row, reg)
	if err != nil {
		return core.Null(), err
	}
	switch u.Op {
	case TokenMinus:
		switch operand.Kind() {
		case core.KindInt:
			return core.Int(-operand.IntVal()), nil
		case core.KindFloat:
			return core.Float(-operand.FloatVal()), nil
		default:
			return core.Null(), &core.TypeMismatchError{Op: "-", Left: operand.Kind(), Right: core.KindNull}
		}
	case TokenNot:
		if operand.Kind() != core.KindBool {
			return core.Null(), &core.TypeMismatchError{Op: "not", Left: operand.Kind(), Right: core.KindNull}
		}
		return core.Bool(!operand.BoolVal()), nil
	default:
		return core.Null(), &core.TypeMismatchError{Op: u.Op.String(), Left: operand.Kind(), Right: core.KindNull}
	}
}

func evalBinary(b *Binary, row core.TypedRow, reg *Registry) (core.Value, error) {
	// and/or short-circuit on the left operand.
	if b.Op == TokenAnd || b.Op == TokenOr {
		return evalBool2(b, row, reg)
	}

	left, err := Eval(b.Left, row, reg)
	if err != nil {
		return core.Null(), err
	}
	right, err := Eval(b.Right, row, reg)
	if err != nil {
		return core.Null(), err
	}

	switch b.Op {
	case TokenAmp:
		return core.Text(left.Display() + right.Display()), nil
	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenCaret:
		return evalArithmetic(b.Op, left, right)
	case TokenEqual:
		return evalEquality(left, right, false)
	case TokenNotEqual:
		return evalEquality(left, right, true)
	case TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		return evalOrdering(b.Op, left, right)
	default:
		return core.Null(), &core.TypeMismatchError{Op: b.Op.String(), Left: left.Kind(), Right: right.Kind()}
	}
}

func evalBool2(b *Binary, row core.TypedRow, reg *Registry) (core.Value, error) {
	left, err := Eval(b.Left, row, reg)
	if err != nil {
		return core.Null(), err
	}
	if left.Kind() != core.KindBool {
		return core.Null(), &core.TypeMismatchError{Op: b.Op.String(), Left: left.Kind(), Right: core.KindNull}
	}
	if b.Op == TokenAnd && !left.BoolVal() {
		return core.Bool(false), nil
	}
	if b.Op == TokenOr && left.BoolVal() {
		return core.Bool(true), nil
	}
	right, err := Eval(b.Right, row, reg)
	if err != nil {
		return core.Null(), err
	}
	if right.Kind() != core.KindBool {
		return core.Null(), &core.TypeMismatchError{Op: b.Op.String(), Left: left.Kind(), Right: right.Kind()}
	}
	return core.Bool(right.BoolVal()), nil
}

func evalArithmetic(op TokenType, left, right core.Value) (core.Value, error) {
	if !left.IsNumeric() || !right.IsNumeric() {
		return core.Null(), &core.TypeMismatchError{Op: op.String(), Left: left.Kind(), Right: right.Kind()}
	}

	// Integer arithmetic stays integer, except / and ^ which widen.
	if left.Kind() == core.KindInt && right.Kind() == core.KindInt &&
		op != TokenSlash && op != TokenCaret {
		a, b := left.IntVal(), right.IntVal()
		switch op {
		case TokenPlus:
			return core.Int(a + b), nil
		case TokenMinus:
			return core.Int(a - b), nil
		case TokenStar:
			return core.Int(a * b), nil
		case TokenPercent:
			if b == 0 {
				return core.Null(), &core.ArithmeticError{Op: "%", Msg: "modulo by zero"}
			}
			return core.Int(a % b), nil
		}
	}

	a, _ := left.AsFloat()
	b, _ := right.AsFloat()
	switch op {
	case TokenPlus:
		return core.Float(a + b), nil
	case TokenMinus:
		return core.Float(a - b), nil
	case TokenStar:
		return core.Float(a * b), nil
	case TokenSlash:
		if b == 0 {
			return core.Null(), &core.ArithmeticError{Op: "/", Msg: "division by zero"}
		}
		return core.Float(a / b), nil
	case TokenPercent:
		if b == 0 {
			return core.Null(), &core.ArithmeticError{Op: "%", Msg: "modulo by zero"}
		}
		return core.Float(math.Mod(a, b)), nil
	case TokenCaret:
		res := math.Pow(a, b)
		if math.IsInf(res, 0) || math.IsNaN(res) {
			return core.Null(), &core.ArithmeticError{Op: "^", Msg: "result out of range"}
		}
		return core.Float(res), nil
	}
	return core.Null(), &core.TypeMismatchError{Op: op.String(), Left: left.Kind(), Right: right.Kind()}
}

func evalEquality(left, right core.Value, negate bool) (core.Value, error) {
	if !comparableKinds(left, right) {
		return core.Null(), &core.TypeMismatchError{Op: "==", Left: left.Kind(), Right: right.Kind()}
	}
	eq := left.Equal(right)
	if negate {
		eq = !eq
	}
	return core.Bool(eq), nil
}

func evalOrdering(op TokenType, left, right core.Value) (core.Value, error) {
	cmp, ok := left.Compare(right)
	if !ok {
		return core.Null(), &core.TypeMismatchError{Op: op.String(), Left: left.Kind(), Right: right.Kind()}
	}
	switch op {
	case TokenLess:
		return core.Bool(cmp < 0), nil
	case TokenLessEqual:
		return core.Bool(cmp <= 0), nil
	case TokenGreater:
		return core.Bool(cmp > 0), nil
	default:
		return core.Bool(cmp >= 0), nil
	}
}

// comparableKinds reports whether equality is defined for the pair: both
// numeric, or both of the same kind. Null compares equal only to null, and a
// null against anything else is a mismatch, not false.
func comparableKinds(left, right core.Value) bool {
	if left.IsNumeric() && right.IsNumeric() {
		return true
	}
	if left.IsNull() && right.IsNull() {
		return true
	}
	if left.IsNull() || right.IsNull() {
		return false
	}
	return left.Kind() == right.Kind()
}

func evalCall(c *Call, row core.TypedRow, reg *Registry) (core.Value, error) {
	fn, ok := reg.Lookup(c.Name)
	if !ok {
		return core.Null(), &core.UnknownFunctionError{Name: c.Name}
	}
	args := make([]core.Value, len(c.Args))
	for i, argNode := range c.Args {
		arg, err := Eval(argNode, row, reg)
		if err != nil {
			return core.Null(), err
		}
		args[i] = arg
	}
	return fn.Call(args)
}
