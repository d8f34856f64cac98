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
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes expression strings. Positions are byte offsets into the
// input; characters are decoded as runes so identifiers may carry accented
// column names.
type Lexer struct {
	input string
	pos   int // byte offset of ch
	next  int // byte offset after ch
	ch    rune
}

// NewLexer creates a new lexer over input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next rune.
func (l *Lexer) readChar() {
	if l.next >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.next:])
	l.ch = r
	l.pos = l.next
	l.next += w
}

// peekChar looks at the next rune without advancing.
func (l *Lexer) peekChar() rune {
	if l.next >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.next:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string, handling backslash escapes.
func (l *Lexer) readString(quote rune) string {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case '\\':
				result.WriteRune('\\')
			case quote:
				result.WriteRune(quote)
			default:
				result.WriteRune(l.ch)
			}
		} else {
			result.WriteRune(l.ch)
		}
		l.readChar()
	}

	if l.ch == quote {
		l.readChar() // skip closing quote
	}

	return result.String()
}

// readNumber reads an unsigned integer or float. The sign is a separate
// token, handled as unary minus by the parser.
func (l *Lexer) readNumber() (string, bool) {
	var result strings.Builder
	isFloat := false
	for unicode.IsDigit(l.ch) || l.ch == '.' {
		if l.ch == '.' {
			if isFloat {
				break
			}
			isFloat = true
		}
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String(), isFloat
}

// readIdentifier reads an identifier: a column reference, function name or
// keyword.
func (l *Lexer) readIdentifier() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	start := l.pos
	var tok Token

	switch {
	case l.ch == 0:
		tok = Token{Type: TokenEOF, Pos: start}
	case l.ch == '+':
		tok = Token{Type: TokenPlus, Value: "+", Pos: start}
		l.readChar()
	case l.ch == '-':
		tok = Token{Type: TokenMinus, Value: "-", Pos: start}
		l.readChar()
	case l.ch == '*':
		tok = Token{Type: TokenStar, Value: "*", Pos: start}
		l.readChar()
	case l.ch == '/':
		tok = Token{Type: TokenSlash, Value: "/", Pos: start}
		l.readChar()
	case l.ch == '%':
		tok = Token{Type: TokenPercent, Value: "%", Pos: start}
		l.readChar()
	case l.ch == '^':
		tok = Token{Type: TokenCaret, Value: "^", Pos: start}
		l.readChar()
	case l.ch == '&':
		tok = Token{Type: TokenAmp, Value: "&", Pos: start}
		l.readChar()
	case l.ch == '(':
		tok = Token{Type: TokenLParen, Value: "(", Pos: start}
		l.readChar()
	case l.ch == ')':
		tok = Token{Type: TokenRParen, Value: ")", Pos: start}
		l.readChar()
	case l.ch == ',':
		tok = Token{Type: TokenComma, Value: ",", Pos: start}
		l.readChar()
	case l.ch == '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok = Token{Type: TokenEqual, Value: "==", Pos: start}
		} else {
			tok = Token{Type: TokenError, Value: "=", Pos: start}
			l.readChar()
		}
	case l.ch == '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "!=", Pos: start}
		} else {
			tok = Token{Type: TokenError, Value: "!", Pos: start}
			l.readChar()
		}
	case l.ch == '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok = Token{Type: TokenLessEqual, Value: "<=", Pos: start}
		} else {
			tok = Token{Type: TokenLess, Value: "<", Pos: start}
			l.readChar()
		}
	case l.ch == '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok = Token{Type: TokenGreaterEqual, Value: ">=", Pos: start}
		} else {
			tok = Token{Type: TokenGreater, Value: ">", Pos: start}
			l.readChar()
		}
	case l.ch == '\'' || l.ch == '"':
		quote := l.ch
		tok = Token{Type: TokenString, Value: l.readString(quote), Pos: start}
	case unicode.IsDigit(l.ch):
		num, isFloat := l.readNumber()
		if isFloat {
			tok = Token{Type: TokenFloat, Value: num, Pos: start}
		} else {
			tok = Token{Type: TokenInt, Value: num, Pos: start}
		}
	case unicode.IsLetter(l.ch) || l.ch == '_':
		ident := l.readIdentifier()
		switch strings.ToLower(ident) {
		case "and":
			tok = Token{Type: TokenAnd, Value: ident, Pos: start}
		case "or":
			tok = Token{Type: TokenOr, Value: ident, Pos: start}
		case "not":
			tok = Token{Type: TokenNot, Value: ident, Pos: start}
		case "true":
			tok = Token{Type: TokenTrue, Value: ident, Pos: start}
		case "false":
			tok = Token{Type: TokenFalse, Value: ident, Pos: start}
		default:
			tok = Token{Type: TokenIdent, Value: ident, Pos: start}
		}
	default:
		tok = Token{Type: TokenError, Value: string(l.ch), Pos: start}
		l.readChar()
	}

	return tok
}
