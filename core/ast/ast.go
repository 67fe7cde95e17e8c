// Package ast defines the command tree produced by the parser.
//
// Every node is owned by exactly one parent and trees are executed once.
package ast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/josephlewis42/mpwsh/core/dialect"
	"github.com/josephlewis42/mpwsh/core/expr"
	"github.com/josephlewis42/mpwsh/core/token"
)

// Kind discriminates the node variants.
type Kind int

const (
	KindSimple Kind = iota
	KindBinary
	KindSequence
	KindGroup
	KindIf
	KindClause
)

// Command is implemented by the executable node types: *Simple, *Binary,
// *Sequence, *Group and *If.
type Command interface {
	Kind() Kind
	command()
}

// Simple is a command line that has not been split into words yet.
type Simple struct {
	Text string
}

func (*Simple) Kind() Kind { return KindSimple }
func (*Simple) command()   {}

// BinaryOp is a boolean combinator.
type BinaryOp int

const (
	And BinaryOp = iota
	Or
)

func (op BinaryOp) String() string {
	if op == And {
		return "&&"
	}
	return "||"
}

// Binary runs Right depending on the status of Left.
type Binary struct {
	Op    BinaryOp
	Left  Command
	Right Command
}

func (*Binary) Kind() Kind { return KindBinary }
func (*Binary) command()   {}

// Sequence runs its body in order.
type Sequence struct {
	Body []Command
}

func (*Sequence) Kind() Kind { return KindSequence }
func (*Sequence) command()   {}

// Group is a Begin...End block.
type Group struct {
	Body Sequence
	// End is the closing line as written, including any redirections.
	End string
}

func (*Group) Kind() Kind { return KindGroup }
func (*Group) command()   {}

// ClauseKind is the arm type of an If chain.
type ClauseKind int

const (
	IfClause ClauseKind = iota
	ElseIfClause
	ElseClause
)

func (k ClauseKind) String() string {
	switch k {
	case IfClause:
		return "if"
	case ElseIfClause:
		return "elseif"
	default:
		return "else"
	}
}

// Clause pairs a condition with a body.
type Clause struct {
	Kind ClauseKind
	Body Sequence
	// Condition is the unparsed condition text. It is empty for Else.
	Condition string
}

// Expander performs variable and command substitution on condition text.
type Expander func(text string) (string, error)

// Evaluate reports whether the clause should run. Else clauses are always
// true.
func (c *Clause) Evaluate(expand Expander, d dialect.Dialect) (bool, error) {
	if c.Kind == ElseClause {
		return true, nil
	}

	text, err := expand(c.Condition)
	if err != nil {
		return false, err
	}
	toks, err := token.ScanExpr(text, d)
	if err != nil {
		return false, &expr.Error{Label: "If", Msg: err.Error()}
	}
	v, err := expr.Evaluate("If", toks)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// If is an If / Else If / Else chain.
type If struct {
	Clauses []Clause
	End     string
}

func (*If) Kind() Kind { return KindIf }
func (*If) command()   {}

// NewIf validates the clause list: it must start with an If clause and may
// hold at most one Else, which must be last.
func NewIf(clauses []Clause, end string) (*If, error) {
	if len(clauses) == 0 {
		return nil, errors.New("If without clauses")
	}
	if clauses[0].Kind != IfClause {
		return nil, errors.New("first clause must be If")
	}
	for i, c := range clauses[1:] {
		switch {
		case c.Kind == IfClause:
			return nil, errors.New("nested If clause in chain")
		case c.Kind == ElseClause && i+1 != len(clauses)-1:
			return nil, errors.New("Else must be the last clause")
		}
	}
	return &If{Clauses: clauses, End: end}, nil
}

// Dump writes a compact s-expression of the tree, used in tests and
// debugging output.
func Dump(cmd Command) string {
	var sb strings.Builder
	dump(&sb, cmd)
	return sb.String()
}

func dumpSeq(sb *strings.Builder, name string, seq *Sequence) {
	sb.WriteString("(" + name)
	for _, c := range seq.Body {
		sb.WriteString(" ")
		dump(sb, c)
	}
	sb.WriteString(")")
}

func dump(sb *strings.Builder, cmd Command) {
	switch c := cmd.(type) {
	case *Simple:
		fmt.Fprintf(sb, "%q", c.Text)
	case *Binary:
		sb.WriteString("(" + c.Op.String() + " ")
		dump(sb, c.Left)
		sb.WriteString(" ")
		dump(sb, c.Right)
		sb.WriteString(")")
	case *Sequence:
		dumpSeq(sb, "seq", c)
	case *Group:
		dumpSeq(sb, "begin", &c.Body)
	case *If:
		sb.WriteString("(if")
		for i := range c.Clauses {
			cl := &c.Clauses[i]
			sb.WriteString(" ")
			name := cl.Kind.String()
			if cl.Kind != ElseClause {
				name += fmt.Sprintf(" %q", cl.Condition)
			}
			dumpSeq(sb, name, &cl.Body)
		}
		sb.WriteString(")")
	default:
		fmt.Fprintf(sb, "<%T>", cmd)
	}
}
