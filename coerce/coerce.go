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

package coerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/csvmorph/csvmorph/core"
)

// Package coerce converts raw cell text into typed values and back.
//
// Each recognized type tag defines a pair of functions: Coerce parses raw
// text into a core.Value of the tag's kind, and Format renders such a value
// back to text. Format is the left inverse of Coerce: for every value v
// representable in a tag T, Coerce(Format(v, T), T) == v.

// Recognized type tags. A column type that is not one of these is treated as
// an expression by the plan compiler, not as a primitive coercion.
const (
	TagInt      = "int"       // locale-agnostic integer, internal spaces ignored
	TagFloat    = "float"     // decimal point
	TagFloatISO = "float_iso" // locale decimal separator: comma or point
	TagDate     = "date"      // native day/month/year, ISO accepted as fallback
	TagDateISO  = "date_iso"  // strict YYYY-MM-DD
)

const (
	nativeDateLayout = "02/01/2006"
	isoDateLayout    = "2006-01-02"
)

// Layouts tried by the native date tag, most specific first.
var nativeDateLayouts = []string{
	"02/01/2006", "02/01/06",
	"2006-01-02", "06-01-02", "20060102",
}

// Known reports whether tag names a primitive coercion.
func Known(tag string) bool {
	switch tag {
	case TagInt, TagFloat, TagFloatISO, TagDate, TagDateISO:
		return true
	default:
		return false
	}
}

// KindOf returns the value kind a tag coerces to. Valid only for known tags.
func KindOf(tag string) core.Kind {
	switch tag {
	case TagInt:
		return core.KindInt
	case TagFloat, TagFloatISO:
		return core.KindFloat
	case TagDate, TagDateISO:
		return core.KindDate
	default:
		return core.KindText
	}
}

// Coerce parses raw text as the given tag. On failure it returns a
// *core.CoercionError carrying the column name, the raw text and the tag.
// Coerce never returns a value of a kind other than the tag's kind.
func Coerce(column, raw, tag string) (core.Value, error) {
	switch tag {
	case TagInt:
		i, err := strconv.ParseInt(stripSpace(raw), 10, 64)
		if err != nil {
			return core.Null(), &core.CoercionError{Column: column, Raw: raw, Type: tag, Err: err}
		}
		return core.Int(i), nil
	case TagFloat:
		s := stripSpace(raw)
		if strings.ContainsRune(s, ',') {
			return core.Null(), &core.CoercionError{
				Column: column, Raw: raw, Type: tag,
				Err: fmt.Errorf("comma decimal separator not allowed, use %q", TagFloatISO),
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Null(), &core.CoercionError{Column: column, Raw: raw, Type: tag, Err: err}
		}
		return core.Float(f), nil
	case TagFloatISO:
		s := strings.ReplaceAll(stripSpace(raw), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Null(), &core.CoercionError{Column: column, Raw: raw, Type: tag, Err: err}
		}
		return core.Float(f), nil
	case TagDate:
		s := strings.TrimSpace(raw)
		for _, layout := range nativeDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return core.Date(t), nil
			}
		}
		return core.Null(), &core.CoercionError{
			Column: column, Raw: raw, Type: tag,
			Err: fmt.Errorf("not a recognized date"),
		}
	case TagDateISO:
		t, err := time.Parse(isoDateLayout, strings.TrimSpace(raw))
		if err != nil {
			return core.Null(), &core.CoercionError{Column: column, Raw: raw, Type: tag, Err: err}
		}
		return core.Date(t), nil
	default:
		return core.Null(), &core.CoercionError{
			Column: column, Raw: raw, Type: tag,
			Err: fmt.Errorf("unknown type tag"),
		}
	}
}

// Format renders a value as the display text of the given tag. Values whose
// kind does not match the tag (including null) fall back to Value.Display.
func Format(v core.Value, tag string) string {
	switch tag {
	case TagInt:
		if v.Kind() == core.KindInt {
			return strconv.FormatInt(v.IntVal(), 10)
		}
	case TagFloat, TagFloatISO:
		if f, ok := v.AsFloat(); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case TagDate:
		if v.Kind() == core.KindDate {
			return v.DateVal().Format(nativeDateLayout)
		}
	case TagDateISO:
		if v.Kind() == core.KindDate {
			return v.DateVal().Format(isoDateLayout)
		}
	}
	return v.Display()
}

// stripSpace removes every whitespace rune, so "1 234 567" parses as an
// integer with thousand separators.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
