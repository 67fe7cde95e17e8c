// Package token splits logical lines into tokens.
//
// Command mode (Scan) keeps word text exactly as written so the parser can
// slice the original line; expression mode (ScanExpr) unquotes words and
// recognises arithmetic operators.
package token

import (
	"fmt"
	"strings"
)

// Kind is the semantic class of a token.
type Kind int

const (
	Text Kind = iota
	OpOr
	OpAnd
	OpAssign
	OpPlusAssign
	OpMinusAssign
	OpMinus
	Keyword
	Separator
	// Redirect is one of the redirection operators, e.g. ">>" or "≥".
	Redirect
	// Operator is any other expression operator, e.g. "*" or "==".
	Operator
)

var kindNames = map[Kind]string{
	Text:          "Text",
	OpOr:          "||",
	OpAnd:         "&&",
	OpAssign:      "=",
	OpPlusAssign:  "+=",
	OpMinusAssign: "-=",
	OpMinus:       "-",
	Keyword:       "Keyword",
	Separator:     "Separator",
	Redirect:      "Redirect",
	Operator:      "Operator",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Word identifies a keyword.
type Word int

const (
	NotKeyword Word = iota
	If
	Then
	Else
	End
	Begin
	Loop
	For
	Break
	Continue
)

var keywords = map[string]Word{
	"if":       If,
	"then":     Then,
	"else":     Else,
	"end":      End,
	"begin":    Begin,
	"loop":     Loop,
	"for":      For,
	"break":    Break,
	"continue": Continue,
}

// LookupKeyword returns the keyword spelled by s, ignoring case.
func LookupKeyword(s string) Word {
	return keywords[strings.ToLower(s)]
}

func (w Word) String() string {
	for name, kw := range keywords {
		if kw == w {
			return strings.ToUpper(name[:1]) + name[1:]
		}
	}
	return ""
}

// Token is one lexical unit of a logical line.
type Token struct {
	Kind Kind
	// Keyword is set when Kind is Keyword.
	Keyword Word
	// Text is the payload: the raw word for Text and Keyword tokens in command
	// mode, the unquoted word in expression mode, the operator spelling
	// otherwise.
	Text string
	// Pos and End are byte offsets of the token in the scanned line.
	Pos, End int
}

func (t Token) String() string {
	if t.Kind == Text {
		return fmt.Sprintf("%q", t.Text)
	}
	return t.Text
}

// Error is returned for malformed words.
type Error struct {
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	return e.Msg
}
