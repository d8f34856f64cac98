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
	"math"
	"strconv"
	"time"
)

// Package core defines the value model shared by every csvmorph stage.
//
// A cell travels through the pipeline as a Value: a small tagged union over
// the kinds a transformation can produce. Raw input cells are Text; the
// coercion layer and the expression engine turn them into the other kinds.

// Kind identifies the dynamic type carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindDate
)

// String returns the lowercase name of the kind, as used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged union over {Null, Bool, Int, Float, Text, Date}.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	d    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Date wraps a calendar date. The time-of-day and location are discarded so
// that two dates compare equal whenever they name the same day.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, d: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateYMD builds a date value from its components.
func DateYMD(year int, month time.Month, day int) Value {
	return Value{kind: KindDate, d: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Kind reports the dynamic type of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumeric reports whether the value is an Int or a Float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// BoolVal returns the wrapped boolean. Valid only when Kind() == KindBool.
func (v Value) BoolVal() bool { return v.b }

// IntVal returns the wrapped integer. Valid only when Kind() == KindInt.
func (v Value) IntVal() int64 { return v.i }

// FloatVal returns the wrapped float. Valid only when Kind() == KindFloat.
func (v Value) FloatVal() float64 { return v.f }

// TextVal returns the wrapped string. Valid only when Kind() == KindText.
func (v Value) TextVal() string { return v.s }

// DateVal returns the wrapped date at midnight UTC. Valid only when
// Kind() == KindDate.
func (v Value) DateVal() time.Time { return v.d }

// AsFloat widens a numeric value to float64. The second return is false for
// non-numeric values.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Display renders the value as output text. Null renders as the empty string;
// floats use the shortest representation that parses back exactly; dates use
// ISO form. Column-tag aware formatting lives in the coerce package.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindText:
		return v.s
	case KindDate:
		return v.d.Format("2006-01-02")
	default:
		return ""
	}
}

// Equal reports coerced-value equality. Int and Float compare numerically, so
// Int(2) equals Float(2.0). Values of unrelated kinds are never equal; null
// equals only null.
func (v Value) Equal(o Value) bool {
	if v.IsNumeric() && o.IsNumeric() {
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		return a == b
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindText:
		return v.s == o.s
	case KindDate:
		return v.d.Equal(o.d)
	default:
		return false
	}
}

// Compare orders two values of the same family: numeric with numeric (after
// promotion), text with text, date with date. The second return is false when
// the pair has no defined order.
func (v Value) Compare(o Value) (int, bool) {
	if v.IsNumeric() && o.IsNumeric() {
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}
	if v.kind != o.kind {
		return 0, false
	}
	switch v.kind {
	case KindText:
		switch {
		case v.s < o.s:
			return -1, true
		case v.s > o.s:
			return 1, true
		default:
			return 0, true
		}
	case KindDate:
		switch {
		case v.d.Before(o.d):
			return -1, true
		case v.d.After(o.d):
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

// AppendKey appends a canonical byte encoding of the value to b. Two values
// produce the same encoding exactly when Equal reports true, which makes the
// encoding usable as a grouping key.
func (v Value) AppendKey(b []byte) []byte {
	switch v.kind {
	case KindNull:
		return append(b, 0)
	case KindBool:
		if v.b {
			return append(b, 1, 1)
		}
		return append(b, 1, 0)
	case KindInt, KindFloat:
		// Numeric values encode through float64 so Int(2) and Float(2.0)
		// land in the same group.
		f, _ := v.AsFloat()
		bits := math.Float64bits(f)
		b = append(b, 2)
		for shift := 56; shift >= 0; shift -= 8 {
			b = append(b, byte(bits>>uint(shift)))
		}
		return b
	case KindText:
		// Length-prefixed so adjacent text values in a composite key
		// cannot be re-split into a colliding encoding.
		b = append(b, 3)
		n := uint64(len(v.s))
		for shift := 56; shift >= 0; shift -= 8 {
			b = append(b, byte(n>>uint(shift)))
		}
		return append(b, v.s...)
	case KindDate:
		u := v.d.Unix()
		b = append(b, 4)
		for shift := 56; shift >= 0; shift -= 8 {
			b = append(b, byte(uint64(u)>>uint(shift)))
		}
		return b
	default:
		return append(b, 0)
	}
}

// TextRow is a raw input row or a rendered output row: column name to cell
// text, as read from or written to a tabular source.
type TextRow map[string]string

// TypedRow is the evaluation context for expressions: column name to typed
// value, populated by the coercion and transformation stages.
type TypedRow map[string]Value
