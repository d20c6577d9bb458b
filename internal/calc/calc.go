// Package calc evaluates plain arithmetic expressions.
//
// Only numeric literals, + - * / ^ and parentheses are accepted. Input is
// checked against an allow-list before parsing; nothing is ever executed.
package calc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidInput is returned when the input holds characters outside
	// the allowed set.
	ErrInvalidInput = errors.New("expression contains unsupported characters")
	ErrSyntax       = errors.New("malformed expression")
	ErrDivByZero    = errors.New("division by zero")
)

var allowed = regexp.MustCompile(`^[0-9+\-*/^().\s]+$`)

// maxDepth bounds parenthesis and unary nesting.
const maxDepth = 64

// IsExpression reports whether s consists only of allowed characters and
// contains at least one digit.
func IsExpression(s string) bool {
	return allowed.MatchString(s) && strings.ContainsAny(s, "0123456789")
}

// Eval parses and evaluates s.
//
// Grammar:
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = unary [ "^" factor ]          (right associative)
//	unary  = ("+" | "-") unary | primary
//	primary = number | "(" expr ")"
func Eval(s string) (float64, error) {
	if !allowed.MatchString(s) {
		return 0, ErrInvalidInput
	}
	p := &parser{src: s}
	p.next()
	v, err := p.expr(0)
	if err != nil {
		return 0, err
	}
	if p.err != nil {
		return 0, p.err
	}
	if p.tok.kind != tokEOF {
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, p.tok.text, p.tok.pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: result is not a finite number", ErrSyntax)
	}
	return v, nil
}

// Format renders a result the way the assistant reports it.
func Format(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

type parser struct {
	src string
	pos int
	tok token
	err error
}

func (p *parser) next() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: p.pos}
		return
	}
	start := p.pos
	c := p.src[p.pos]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		text := p.src[start:p.pos]
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.err = fmt.Errorf("%w: bad number %q", ErrSyntax, text)
			p.tok = token{kind: tokEOF, pos: start}
			return
		}
		p.tok = token{kind: tokNum, text: text, num: n, pos: start}
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	default:
		p.pos++
		p.tok = token{kind: tokOp, text: string(c), pos: start}
	}
}

func (p *parser) expr(depth int) (float64, error) {
	left, err := p.term(depth)
	if err != nil {
		return 0, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text
		p.next()
		right, err := p.term(depth)
		if err != nil {
			return 0, err
		}
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

func (p *parser) term(depth int) (float64, error) {
	left, err := p.factor(depth)
	if err != nil {
		return 0, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/") {
		op := p.tok.text
		p.next()
		right, err := p.factor(depth)
		if err != nil {
			return 0, err
		}
		if op == "*" {
			left *= right
		} else {
			if right == 0 {
				return 0, ErrDivByZero
			}
			left /= right
		}
	}
	return left, nil
}

func (p *parser) factor(depth int) (float64, error) {
	base, err := p.unary(depth)
	if err != nil {
		return 0, err
	}
	if p.tok.kind == tokOp && p.tok.text == "^" {
		if depth >= maxDepth {
			return 0, fmt.Errorf("%w: nesting too deep", ErrSyntax)
		}
		p.next()
		exp, err := p.factor(depth + 1)
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *parser) unary(depth int) (float64, error) {
	if depth >= maxDepth {
		return 0, fmt.Errorf("%w: nesting too deep", ErrSyntax)
	}
	if p.tok.kind == tokOp && (p.tok.text == "-" || p.tok.text == "+") {
		neg := p.tok.text == "-"
		p.next()
		v, err := p.unary(depth + 1)
		if err != nil {
			return 0, err
		}
		if neg {
			return -v, nil
		}
		return v, nil
	}
	return p.primary(depth)
}

func (p *parser) primary(depth int) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	switch p.tok.kind {
	case tokNum:
		v := p.tok.num
		p.next()
		if p.err != nil {
			return 0, p.err
		}
		return v, nil
	case tokLParen:
		p.next()
		v, err := p.expr(depth + 1)
		if err != nil {
			return 0, err
		}
		if p.tok.kind != tokRParen {
			return 0, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		p.next()
		return v, nil
	case tokEOF:
		return 0, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	default:
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, p.tok.text, p.tok.pos)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
