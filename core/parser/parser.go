// Package parser builds command trees from logical lines.
//
// Blocks may span any number of calls to Process: Begin and If push an entry
// on the open-block stack and the matching End pops it. Completed top-level
// commands are handed on in batches once no block is open.
package parser

import (
	"strings"

	"github.com/josephlewis42/mpwsh/core/ast"
	"github.com/josephlewis42/mpwsh/core/dialect"
	"github.com/josephlewis42/mpwsh/core/token"
)

// BatchFunc receives completed top-level commands.
type BatchFunc func(batch []ast.Command) error

type frameKind int

const (
	frameBegin frameKind = iota
	frameIf
)

// frame is an open block.
type frame struct {
	kind   frameKind
	opener string
	body   []ast.Command

	// If blocks only.
	clauses    []ast.Clause
	clauseKind ast.ClauseKind
	condition  string
}

func (f *frame) closeClause() {
	f.clauses = append(f.clauses, ast.Clause{
		Kind:      f.clauseKind,
		Body:      ast.Sequence{Body: f.body},
		Condition: f.condition,
	})
	f.body = nil
}

// Parser is Stage 2 of the parsing pipeline.
type Parser struct {
	dialect dialect.Dialect
	emit    BatchFunc
	stack   []*frame
	pending []ast.Command
}

// New creates a parser that hands completed batches to emit.
func New(d dialect.Dialect, emit BatchFunc) *Parser {
	return &Parser{dialect: d, emit: emit}
}

// Depth is the number of open blocks.
func (p *Parser) Depth() int {
	return len(p.stack)
}

// Reset discards open blocks and pending commands.
func (p *Parser) Reset() {
	p.stack = nil
	p.pending = nil
}

// Process parses one logical line.
func (p *Parser) Process(line string) error {
	toks, err := token.Scan(line, p.dialect)
	if err != nil {
		return &GrammarError{Line: line, Msg: err.Error()}
	}

	start := 0
	for i := 0; i <= len(toks); i++ {
		if i < len(toks) && toks[i].Kind != token.Separator {
			continue
		}
		if i > start {
			if err := p.statement(line, toks[start:i]); err != nil {
				return err
			}
		}
		start = i + 1
	}

	return p.flush()
}

// Finish emits anything pending. It fails if a block is still open.
func (p *Parser) Finish() error {
	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		err := &IncompleteBlockError{Depth: len(p.stack), Opener: top.opener}
		p.Reset()
		return err
	}
	return p.flush()
}

func (p *Parser) flush() error {
	if len(p.stack) > 0 || len(p.pending) == 0 {
		return nil
	}
	batch := p.pending
	p.pending = nil
	return p.emit(batch)
}

func (p *Parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *Parser) add(cmd ast.Command) {
	if f := p.top(); f != nil {
		f.body = append(f.body, cmd)
		return
	}
	p.pending = append(p.pending, cmd)
}

// text returns the source text spanned by toks.
func text(line string, toks []token.Token) string {
	if len(toks) == 0 {
		return ""
	}
	return strings.TrimSpace(line[toks[0].Pos:toks[len(toks)-1].End])
}

func (p *Parser) statement(line string, toks []token.Token) error {
	stmt := text(line, toks)
	first := toks[0]
	if first.Kind != token.Keyword {
		return p.andOr(line, toks)
	}

	rest := toks[1:]
	switch first.Keyword {
	case token.If:
		cond, body := splitThen(rest)
		if len(cond) == 0 {
			return &GrammarError{Line: stmt, Msg: "If - missing condition"}
		}
		p.stack = append(p.stack, &frame{
			kind:       frameIf,
			opener:     stmt,
			clauseKind: ast.IfClause,
			condition:  text(line, cond),
		})
		return p.remainder(line, body)

	case token.Else:
		f := p.top()
		if f == nil || f.kind != frameIf {
			return &GrammarError{Line: stmt, Msg: "Else without matching If"}
		}
		if f.clauseKind == ast.ElseClause {
			return &GrammarError{Line: stmt, Msg: "Else after Else"}
		}
		f.closeClause()
		if len(rest) > 0 && rest[0].Kind == token.Keyword && rest[0].Keyword == token.If {
			cond, body := splitThen(rest[1:])
			if len(cond) == 0 {
				return &GrammarError{Line: stmt, Msg: "Else If - missing condition"}
			}
			f.clauseKind = ast.ElseIfClause
			f.condition = text(line, cond)
			return p.remainder(line, body)
		}
		f.clauseKind = ast.ElseClause
		f.condition = ""
		return p.remainder(line, rest)

	case token.Then:
		f := p.top()
		if f == nil || f.kind != frameIf || f.clauseKind == ast.ElseClause || len(f.body) > 0 {
			return &GrammarError{Line: stmt, Msg: "Then without matching If"}
		}
		return p.remainder(line, rest)

	case token.Begin:
		p.stack = append(p.stack, &frame{kind: frameBegin, opener: stmt})
		return p.remainder(line, rest)

	case token.End:
		f := p.top()
		if f == nil {
			return &GrammarError{Line: stmt, Msg: "End without matching Begin or If"}
		}
		if err := checkRedirections(rest); err != nil {
			return &GrammarError{Line: stmt, Msg: err.Error()}
		}
		p.stack = p.stack[:len(p.stack)-1]

		if f.kind == frameBegin {
			p.add(&ast.Group{Body: ast.Sequence{Body: f.body}, End: stmt})
			return nil
		}
		f.closeClause()
		node, err := ast.NewIf(f.clauses, stmt)
		if err != nil {
			return &GrammarError{Line: stmt, Msg: err.Error()}
		}
		p.add(node)
		return nil

	default:
		return &GrammarError{Line: stmt, Msg: first.Keyword.String() + " blocks are not supported"}
	}
}

// remainder parses the text after a block keyword as a statement of the
// block.
func (p *Parser) remainder(line string, toks []token.Token) error {
	if len(toks) == 0 {
		return nil
	}
	return p.andOr(line, toks)
}

// splitThen separates an If condition from a body statement introduced by
// Then on the same line.
func splitThen(toks []token.Token) (cond, body []token.Token) {
	for i, t := range toks {
		if t.Kind == token.Keyword && t.Keyword == token.Then {
			return toks[:i], toks[i+1:]
		}
	}
	return toks, nil
}

// andOr folds a run of commands joined by && and || into a left-associative
// tree.
func (p *Parser) andOr(line string, toks []token.Token) error {
	var tree ast.Command
	var op ast.BinaryOp
	start := 0

	for i := 0; i <= len(toks); i++ {
		if i < len(toks) && toks[i].Kind != token.OpAnd && toks[i].Kind != token.OpOr {
			continue
		}

		if i == start {
			if i < len(toks) {
				return &GrammarError{Line: text(line, toks), Msg: "missing command before " + toks[i].Text}
			}
			return &GrammarError{Line: text(line, toks), Msg: "missing command after " + toks[i-1].Text}
		}

		simple := &ast.Simple{Text: text(line, toks[start:i])}
		if tree == nil {
			tree = simple
		} else {
			tree = &ast.Binary{Op: op, Left: tree, Right: simple}
		}

		if i < len(toks) {
			op = ast.And
			if toks[i].Kind == token.OpOr {
				op = ast.Or
			}
		}
		start = i + 1
	}

	p.add(tree)
	return nil
}

// checkRedirections allows only redirection pairs after End.
func checkRedirections(toks []token.Token) error {
	for i := 0; i < len(toks); i += 2 {
		if toks[i].Kind != token.Redirect {
			return errExtraParameters
		}
		if i+1 >= len(toks) || toks[i+1].Kind == token.Redirect {
			return errMissingFile
		}
	}
	return nil
}
