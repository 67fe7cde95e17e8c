// Package expr evaluates the integer expressions used by If conditions and
// the Evaluate command.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/josephlewis42/mpwsh/core/token"
)

// Error is an evaluation failure. It surfaces as a non-zero command status.
type Error struct {
	Label string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s - %s", e.Label, e.Msg)
}

type value struct {
	text  string
	num   int32
	isNum bool
}

func numeric(n int32) value {
	return value{text: strconv.Itoa(int(n)), num: n, isNum: true}
}

func boolean(b bool) value {
	if b {
		return numeric(1)
	}
	return numeric(0)
}

// ParseNumber parses decimal, 0x/$ hexadecimal and 0b binary numbers. The
// empty string is zero. Values wrap to 32 bits.
func ParseNumber(s string) (int32, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	base := 10
	switch lower := strings.ToLower(s); {
	case strings.HasPrefix(lower, "0x"):
		base, s = 16, s[2:]
	case strings.HasPrefix(lower, "$"):
		base, s = 16, s[1:]
	case strings.HasPrefix(lower, "0b"):
		base, s = 2, s[2:]
	}

	n, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, false
	}
	return int32(uint32(n)), true
}

func operand(text string) value {
	n, ok := ParseNumber(text)
	return value{text: text, num: n, isNum: ok}
}

type binaryOp func(a, b value) (value, error)

func arith(fn func(a, b int32) (int32, error)) binaryOp {
	return func(a, b value) (value, error) {
		if !a.isNum {
			return value{}, fmt.Errorf("invalid number: %q", a.text)
		}
		if !b.isNum {
			return value{}, fmt.Errorf("invalid number: %q", b.text)
		}
		n, err := fn(a.num, b.num)
		if err != nil {
			return value{}, err
		}
		return numeric(n), nil
	}
}

func pure(fn func(a, b int32) int32) binaryOp {
	return arith(func(a, b int32) (int32, error) {
		return fn(a, b), nil
	})
}

func compare(fn func(c int) bool) binaryOp {
	return func(a, b value) (value, error) {
		if a.isNum && b.isNum {
			switch {
			case a.num < b.num:
				return boolean(fn(-1)), nil
			case a.num > b.num:
				return boolean(fn(1)), nil
			}
			return boolean(fn(0)), nil
		}
		return boolean(fn(strings.Compare(a.text, b.text))), nil
	}
}

var errDivide = fmt.Errorf("division by zero")

// levels lists the binary operators from lowest to highest precedence.
var levels = []map[string]binaryOp{
	{
		"||": pure(func(a, b int32) int32 { return truth(a != 0 || b != 0) }),
		"or": pure(func(a, b int32) int32 { return truth(a != 0 || b != 0) }),
	},
	{
		"&&":  pure(func(a, b int32) int32 { return truth(a != 0 && b != 0) }),
		"and": pure(func(a, b int32) int32 { return truth(a != 0 && b != 0) }),
	},
	{"|": pure(func(a, b int32) int32 { return a | b })},
	{"^": pure(func(a, b int32) int32 { return a ^ b })},
	{"&": pure(func(a, b int32) int32 { return a & b })},
	{
		"==": compare(func(c int) bool { return c == 0 }),
		"=":  compare(func(c int) bool { return c == 0 }),
		"!=": compare(func(c int) bool { return c != 0 }),
		"≠":  compare(func(c int) bool { return c != 0 }),
	},
	{
		"<":  compare(func(c int) bool { return c < 0 }),
		"<=": compare(func(c int) bool { return c <= 0 }),
		"≤":  compare(func(c int) bool { return c <= 0 }),
		">":  compare(func(c int) bool { return c > 0 }),
		">=": compare(func(c int) bool { return c >= 0 }),
		"≥":  compare(func(c int) bool { return c >= 0 }),
	},
	{
		"<<": pure(func(a, b int32) int32 { return a << (uint32(b) & 31) }),
		">>": pure(func(a, b int32) int32 { return a >> (uint32(b) & 31) }),
	},
	{
		"+": pure(func(a, b int32) int32 { return a + b }),
		"-": pure(func(a, b int32) int32 { return a - b }),
	},
	{
		"*":   pure(func(a, b int32) int32 { return a * b }),
		"/":   arith(divide),
		"÷":   arith(divide),
		"div": arith(divide),
		"%":   arith(modulo),
		"mod": arith(modulo),
	},
}

func truth(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func divide(a, b int32) (int32, error) {
	if b == 0 {
		return 0, errDivide
	}
	return a / b, nil
}

func modulo(a, b int32) (int32, error) {
	if b == 0 {
		return 0, errDivide
	}
	return a % b, nil
}

type parser struct {
	toks []token.Token
	pos  int
}

func (p *parser) peek() (token.Token, bool) {
	if p.pos >= len(p.toks) {
		return token.Token{}, false
	}
	return p.toks[p.pos], true
}

// spelling returns the operator a token stands for. Word operators such as
// AND and MOD are matched without regard to case.
func spelling(t token.Token) string {
	if t.Kind == token.Text {
		return strings.ToLower(t.Text)
	}
	return t.Text
}

func isOperator(t token.Token) bool {
	if t.Kind != token.Text {
		return true
	}
	switch strings.ToLower(t.Text) {
	case "and", "or", "not", "mod", "div":
		return true
	}
	return false
}

func (p *parser) binary(level int) (value, error) {
	if level == len(levels) {
		return p.unary()
	}

	left, err := p.binary(level + 1)
	if err != nil {
		return value{}, err
	}
	for {
		t, ok := p.peek()
		if !ok || !isOperator(t) {
			return left, nil
		}
		fn, ok := levels[level][spelling(t)]
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.binary(level + 1)
		if err != nil {
			return value{}, err
		}
		if left, err = fn(left, right); err != nil {
			return value{}, err
		}
	}
}

func (p *parser) unary() (value, error) {
	t, ok := p.peek()
	if !ok {
		return value{}, fmt.Errorf("missing operand")
	}

	if isOperator(t) {
		switch spelling(t) {
		case "-", "+", "!", "¬", "not", "~":
			p.pos++
			v, err := p.unary()
			if err != nil {
				return value{}, err
			}
			if !v.isNum {
				return value{}, fmt.Errorf("invalid number: %q", v.text)
			}
			switch spelling(t) {
			case "-":
				return numeric(-v.num), nil
			case "+":
				return v, nil
			case "~":
				return numeric(^v.num), nil
			default:
				return boolean(v.num == 0), nil
			}
		case "(":
			p.pos++
			v, err := p.binary(0)
			if err != nil {
				return value{}, err
			}
			if closing, ok := p.peek(); !ok || closing.Text != ")" {
				return value{}, fmt.Errorf("missing )")
			}
			p.pos++
			return v, nil
		}
		return value{}, fmt.Errorf("unexpected %q", t.Text)
	}

	p.pos++
	return operand(t.Text), nil
}

// Evaluate computes the integer value of an expression. label names the
// command the expression belongs to and prefixes error messages.
func Evaluate(label string, toks []token.Token) (int32, error) {
	if len(toks) == 0 {
		return 0, &Error{Label: label, Msg: "missing expression"}
	}

	p := &parser{toks: toks}
	v, err := p.binary(0)
	if err != nil {
		return 0, &Error{Label: label, Msg: err.Error()}
	}
	if t, ok := p.peek(); ok {
		return 0, &Error{Label: label, Msg: fmt.Sprintf("unexpected %q", t.Text)}
	}
	if !v.isNum {
		return 0, &Error{Label: label, Msg: fmt.Sprintf("invalid number: %q", v.text)}
	}
	return v.num, nil
}
