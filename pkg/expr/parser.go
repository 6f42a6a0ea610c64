package expr

import (
	"fmt"
	"unicode"
)

// ParseError describes a syntax error in a guard condition.
type ParseError struct {
	Pos     int    // byte offset into the input
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Message)
}

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokConst
	tokNot
	tokAnd
	tokOr
	tokXor
	tokOpen
	tokClose
	tokComma
)

type token struct {
	typ tokenType
	pos int
	val string
}

type parser struct {
	input  string
	pos    int
	tok    token
	peeked bool
}

// Parse parses a guard condition into its list of top-level expressions.
// Expressions are separated by commas or plain whitespace; blank input
// yields an empty list.
func Parse(text string) ([]Expression, error) {
	p := &parser{input: text}

	var list []Expression
	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		if t.typ == tokEOF {
			return list, nil
		}
		if t.typ == tokComma {
			p.next()
			continue
		}

		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
}

func (p *parser) parseOr() (Expression, error) {
	e, err := p.parseXor()
	if err != nil {
		return nil, err
	}

	var operands []Expression
	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		if t.typ != tokOr {
			break
		}
		p.next()

		next, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		if operands == nil {
			operands = []Expression{e}
		}
		operands = append(operands, next)
	}

	if operands != nil {
		return &Or{Exprs: operands}, nil
	}
	return e, nil
}

func (p *parser) parseXor() (Expression, error) {
	e, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		if t.typ != tokXor {
			return e, nil
		}
		p.next()

		b, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		e = &Xor{A: e, B: b}
	}
}

func (p *parser) parseAnd() (Expression, error) {
	e, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	var operands []Expression
	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		if t.typ != tokAnd {
			break
		}
		p.next()

		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if operands == nil {
			operands = []Expression{e}
		}
		operands = append(operands, next)
	}

	if operands != nil {
		return &And{Exprs: operands}, nil
	}
	return e, nil
}

func (p *parser) parseUnary() (Expression, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}

	switch t.typ {
	case tokNot:
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: e}, nil

	case tokIdent:
		return &Variable{Name: t.val}, nil

	case tokConst:
		return &Constant{Value: t.val == "1"}, nil

	case tokOpen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, err := p.next()
		if err != nil {
			return nil, err
		}
		if closing.typ != tokClose {
			return nil, &ParseError{Pos: closing.pos, Message: "expected closing parenthesis"}
		}
		return e, nil

	case tokEOF:
		return nil, &ParseError{Pos: t.pos, Message: "unexpected end of condition"}

	default:
		return nil, &ParseError{Pos: t.pos, Message: fmt.Sprintf("unexpected %q", t.val)}
	}
}

func (p *parser) peek() (token, error) {
	if !p.peeked {
		t, err := p.lex()
		if err != nil {
			return token{}, err
		}
		p.tok = t
		p.peeked = true
	}
	return p.tok, nil
}

func (p *parser) next() (token, error) {
	t, err := p.peek()
	if err != nil {
		return token{}, err
	}
	p.peeked = false
	return t, nil
}

func (p *parser) lex() (token, error) {
	for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return token{typ: tokEOF, pos: p.pos}, nil
	}

	start := p.pos
	c := p.input[p.pos]

	switch c {
	case '!', '~':
		p.pos++
		return token{typ: tokNot, pos: start, val: string(c)}, nil
	case '&', '*':
		p.pos++
		return token{typ: tokAnd, pos: start, val: string(c)}, nil
	case '|', '+':
		p.pos++
		return token{typ: tokOr, pos: start, val: string(c)}, nil
	case '^':
		p.pos++
		return token{typ: tokXor, pos: start, val: "^"}, nil
	case '(':
		p.pos++
		return token{typ: tokOpen, pos: start, val: "("}, nil
	case ')':
		p.pos++
		return token{typ: tokClose, pos: start, val: ")"}, nil
	case ',':
		p.pos++
		return token{typ: tokComma, pos: start, val: ","}, nil
	case '0', '1':
		p.pos++
		return token{typ: tokConst, pos: start, val: string(c)}, nil
	}

	if isIdentStart(rune(c)) {
		for p.pos < len(p.input) && isIdentPart(rune(p.input[p.pos])) {
			p.pos++
		}
		return token{typ: tokIdent, pos: start, val: p.input[start:p.pos]}, nil
	}

	return token{}, &ParseError{Pos: start, Message: fmt.Sprintf("unexpected character %q", c)}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
