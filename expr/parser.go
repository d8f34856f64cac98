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
	"fmt"
	"strconv"

	"github.com/csvmorph/csvmorph/core"
)

// Precedence levels for infix operators. Comparison is non-chaining in
// spirit, but a chain parses left-associatively and fails at evaluation when
// the boolean result meets a non-boolean operand.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precConcat
	precAdd
	precMul
	precPow
)

var binaryPrec = map[TokenType]int{
	TokenOr:           precOr,
	TokenAnd:          precAnd,
	TokenEqual:        precCompare,
	TokenNotEqual:     precCompare,
	TokenLess:         precCompare,
	TokenLessEqual:    precCompare,
	TokenGreater:      precCompare,
	TokenGreaterEqual: precCompare,
	TokenAmp:          precConcat,
	TokenPlus:         precAdd,
	TokenMinus:        precAdd,
	TokenStar:         precMul,
	TokenSlash:        precMul,
	TokenPercent:      precMul,
	TokenCaret:        precPow,
}

// rightAssoc marks the right-associative operators.
var rightAssoc = map[TokenType]bool{
	TokenCaret: true,
}

// Parser builds an AST from an expression string using precedence climbing.
type Parser struct {
	expr   string
	tokens []Token
	pos    int
}

// Parse parses one expression. It is the only entry point: parsing happens at
// plan-construction time, never during row processing.
func Parse(input string) (Node, error) {
	lexer := NewLexer(input)
	var tokens []Token
	for {
		tok := lexer.NextToken()
		if tok.Type == TokenError {
			return nil, &core.SyntaxError{Expr: input, Pos: tok.Pos, Token: tok.Value, Msg: "invalid token"}
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	p := &Parser{expr: input, tokens: tokens}
	node, err := p.parseExpr(precOr)
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenEOF {
		return nil, p.errorf("unexpected %s", p.current().Type)
	}
	return node, nil
}

func (p *Parser) current() Token { return p.tokens[p.pos] }

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	tok := p.current()
	return &core.SyntaxError{Expr: p.expr, Pos: tok.Pos, Token: tok.Value, Msg: fmt.Sprintf(format, args...)}
}

// parseExpr is the precedence-climbing loop: it parses a unary expression
// then folds in binary operators of precedence >= minPrec.
func (p *Parser) parseExpr(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op := p.current()
		prec, ok := binaryPrec[op.Type]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.advance()

		nextMin := prec + 1
		if rightAssoc[op.Type] {
			nextMin = prec
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op.Type, Left: left, Right: right, Pos: op.Pos}
	}
}

// parseUnary handles the prefix operators. `not` binds looser than
// comparison so `not a == b` reads as not(a == b); minus binds tightest.
func (p *Parser) parseUnary() (Node, error) {
	switch p.current().Type {
	case TokenNot:
		tok := p.advance()
		operand, err := p.parseExpr(precCompare)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: TokenNot, Operand: operand, Pos: tok.Pos}, nil
	case TokenMinus:
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: TokenMinus, Operand: operand, Pos: tok.Pos}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokenInt:
		p.advance()
		i, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal")
		}
		return &Literal{Value: core.Int(i), Pos: tok.Pos}, nil
	case TokenFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf("invalid float literal")
		}
		return &Literal{Value: core.Float(f), Pos: tok.Pos}, nil
	case TokenString:
		p.advance()
		return &Literal{Value: core.Text(tok.Value), Pos: tok.Pos}, nil
	case TokenTrue:
		p.advance()
		return &Literal{Value: core.Bool(true), Pos: tok.Pos}, nil
	case TokenFalse:
		p.advance()
		return &Literal{Value: core.Bool(false), Pos: tok.Pos}, nil
	case TokenIdent:
		p.advance()
		if p.current().Type == TokenLParen {
			return p.parseCall(tok)
		}
		return &ColumnRef{Name: tok.Value, Pos: tok.Pos}, nil
	case TokenLParen:
		p.advance()
		node, err := p.parseExpr(precOr)
		if err != nil {
			return nil, err
		}
		if p.current().Type != TokenRParen {
			return nil, p.errorf("expected )")
		}
		p.advance()
		return node, nil
	default:
		return nil, p.errorf("expected value, column or (")
	}
}

func (p *Parser) parseCall(name Token) (Node, error) {
	p.advance() // consume (

	call := &Call{Name: name.Value, Pos: name.Pos}
	if p.current().Type == TokenRParen {
		p.advance()
		return call, nil
	}

	for {
		arg, err := p.parseExpr(precOr)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		switch p.current().Type {
		case TokenComma:
			p.advance()
		case TokenRParen:
			p.advance()
			return call, nil
		default:
			return nil, p.errorf("expected , or ) in argument list")
		}
	}
}

// Validate walks the tree checking every call against the registry: unknown
// names and arity violations are plan errors, raised before any row flows.
func Validate(n Node, reg *Registry) error {
	var firstErr error
	walk(n, func(node Node) {
		if firstErr != nil {
			return
		}
		call, ok := node.(*Call)
		if !ok {
			return
		}
		fn, found := reg.Lookup(call.Name)
		if !found {
			firstErr = &core.UnknownFunctionError{Name: call.Name}
			return
		}
		got := len(call.Args)
		if got < fn.MinArity || (fn.MaxArity >= 0 && got > fn.MaxArity) {
			firstErr = &core.ArityError{Name: fn.Name, Got: got, Min: fn.MinArity, Max: fn.MaxArity}
		}
	})
	return firstErr
}
