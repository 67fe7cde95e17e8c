package commands

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/josephlewis42/mpwsh/core/expr"
	"github.com/josephlewis42/mpwsh/core/token"
)

// Evaluate computes an expression and writes the result, or assigns it to a
// variable with =, += or -=.
//
//	Evaluate [-h | -o | -b] expression
//	Evaluate name [= | += | -=] expression
func Evaluate(inv *Invocation) int {
	cmd := &SimpleCommand{
		Name: "Evaluate",
		Use:  "Evaluate [-h | -o | -b] expression | name [= | += | -=] expression",
	}

	text := inv.Text
	if text == "" && len(inv.Args) > 1 {
		text = strings.Join(inv.Args[1:], " ")
	}
	toks, err := token.ScanExpr(text, inv.Dialect)
	if err != nil {
		cmd.Errorf(inv, "%v", err)
		return 1
	}

	format := 'd'
	if len(toks) >= 2 && toks[0].Kind == token.OpMinus && toks[1].Kind == token.Text && len(toks[1].Text) == 1 {
		switch f := unicode.ToLower(rune(toks[1].Text[0])); f {
		case 'h', 'o', 'b':
			format = f
			toks = toks[2:]
		}
	}

	if len(toks) >= 2 && toks[0].Kind == token.Text {
		switch op := toks[1].Kind; op {
		case token.OpAssign, token.OpPlusAssign, token.OpMinusAssign:
			return assign(inv, cmd, toks[0].Text, op, toks[2:])
		}
	}

	v, err := expr.Evaluate(cmd.Name, toks)
	if err != nil {
		fmt.Fprintf(inv.Stderr(), "### %v\n", err)
		return 1
	}

	w := inv.Stdout()
	switch format {
	case 'h':
		fmt.Fprintf(w, "0x%08x\n", uint32(v))
	case 'o':
		fmt.Fprintf(w, "0%o\n", uint32(v))
	case 'b':
		fmt.Fprintf(w, "0b%032b\n", uint32(v))
	default:
		fmt.Fprintf(w, "%d\n", v)
	}
	return 0
}

func assign(inv *Invocation, cmd *SimpleCommand, name string, op token.Kind, toks []token.Token) int {
	v, err := expr.Evaluate(cmd.Name, toks)
	if err != nil {
		fmt.Fprintf(inv.Stderr(), "### %v\n", err)
		return 1
	}

	if op != token.OpAssign {
		old, ok := expr.ParseNumber(inv.Env.Getenv(name))
		if !ok {
			cmd.Errorf(inv, "invalid number: %q", inv.Env.Getenv(name))
			return 1
		}
		if op == token.OpPlusAssign {
			v = old + v
		} else {
			v = old - v
		}
	}

	inv.Env.Set(name, strconv.Itoa(int(v)), false)
	return 0
}

var _ ExpressionCommand = ExpressionFunc(Evaluate)

func init() {
	Register("Evaluate", ExpressionFunc(Evaluate))
}
