package token

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ZadenRB/go-lexer"
	"github.com/josephlewis42/mpwsh/core/dialect"
)

// RedirectOps are the redirection operators, longest spelling first.
var RedirectOps = []string{">>", ">", "<", "≥≥", "≥", "∑∑", "∑"}

var exprOps = []struct {
	text string
	kind Kind
}{
	{"||", OpOr},
	{"&&", OpAnd},
	{"+=", OpPlusAssign},
	{"-=", OpMinusAssign},
	{"==", Operator},
	{"!=", Operator},
	{"<=", Operator},
	{">=", Operator},
	{"<<", Operator},
	{">>", Operator},
	{"=", OpAssign},
	{"-", OpMinus},
	{"+", Operator},
	{"*", Operator},
	{"/", Operator},
	{"%", Operator},
	{"(", Operator},
	{")", Operator},
	{"!", Operator},
	{"~", Operator},
	{"<", Operator},
	{">", Operator},
	{"&", Operator},
	{"|", Operator},
	{"^", Operator},
	{"≠", Operator},
	{"≤", Operator},
	{"≥", Operator},
	{"÷", Operator},
	{"¬", Operator},
}

// Token types emitted by the state functions. go-lexer reserves -1 and 0.
const (
	spaceToken lexer.TokenType = iota + 1
	wordToken
	separatorToken
	operatorToken
)

const eof rune = -1

// scanState holds what the state functions share. Every rune of the line
// is emitted in some token so offsets can be summed on the receiving side.
type scanState struct {
	src     string
	d       dialect.Dialect
	expr    bool
	emitted int

	// quote is the quote being read by lexQuoted.
	quote rune
	err   error
}

// pos is the byte offset of the lexer's cursor in src.
func (s *scanState) pos(l *lexer.L) int {
	return s.emitted + len(l.Current())
}

func (s *scanState) emit(l *lexer.L, t lexer.TokenType) {
	if l.Current() == "" {
		return
	}
	s.emitted += len(l.Current())
	l.Emit(t)
}

func (s *scanState) fail(offset int, msg string) lexer.StateFunc {
	s.err = &Error{Offset: offset, Msg: msg}
	return nil
}

// operator returns the operator starting at offset, if any.
func (s *scanState) operator(offset int) (string, bool) {
	rest := s.src[offset:]
	if s.expr {
		for _, op := range exprOps {
			if strings.HasPrefix(rest, op.text) {
				return op.text, true
			}
		}
		return "", false
	}

	for _, op := range []string{"&&", "||"} {
		if strings.HasPrefix(rest, op) {
			return op, true
		}
	}
	for _, op := range RedirectOps {
		if strings.HasPrefix(rest, op) {
			return op, true
		}
	}
	return "", false
}

func (s *scanState) lexStart(l *lexer.L) lexer.StateFunc {
	r := l.Peek()
	switch {
	case r == eof:
		return nil

	case unicode.IsSpace(r):
		for unicode.IsSpace(l.Peek()) {
			l.Next()
		}
		s.emit(l, spaceToken)
		return s.lexStart

	case r == s.d.Separator:
		l.Next()
		s.emit(l, separatorToken)
		return s.lexStart
	}

	if op, ok := s.operator(s.pos(l)); ok {
		for range op {
			l.Next()
		}
		s.emit(l, operatorToken)
		return s.lexStart
	}
	return s.lexWord
}

// lexWord reads one word. Quoted text, brace substitutions and escaped
// characters never end a word.
func (s *scanState) lexWord(l *lexer.L) lexer.StateFunc {
	for {
		r := l.Peek()
		switch {
		case r == eof || unicode.IsSpace(r) || r == s.d.Separator:
			s.emit(l, wordToken)
			return s.lexStart

		case r == s.d.Escape:
			l.Next()
			if l.Peek() != eof {
				l.Next()
			}
			continue

		case r == s.d.OpenBrace:
			l.StateRecord.Push(s.lexWord)
			return s.lexBraces
		}

		if _, ok := s.d.Quote(r); ok {
			s.quote = r
			l.StateRecord.Push(s.lexWord)
			return s.lexQuoted
		}
		if _, ok := s.operator(s.pos(l)); ok {
			s.emit(l, wordToken)
			return s.lexStart
		}
		l.Next()
	}
}

func (s *scanState) lexQuoted(l *lexer.L) lexer.StateFunc {
	start := s.pos(l)
	q, _ := s.d.Quote(s.quote)
	l.Next()

	for {
		switch r := l.Next(); {
		case r == eof:
			return s.fail(start, string(s.quote)+"s must occur in pairs")
		case q.Escapes && r == s.d.Escape:
			if l.Peek() != eof {
				l.Next()
			}
		case r == s.quote:
			return l.StateRecord.Pop()
		}
	}
}

func (s *scanState) lexBraces(l *lexer.L) lexer.StateFunc {
	start := s.pos(l)
	depth := 0

	for {
		switch l.Next() {
		case eof:
			return s.fail(start, string(s.d.OpenBrace)+"s must occur in pairs")
		case s.d.OpenBrace:
			depth++
		case s.d.CloseBrace:
			depth--
			if depth == 0 {
				return l.StateRecord.Pop()
			}
		}
	}
}

func scan(src string, d dialect.Dialect, expr bool) ([]Token, error) {
	// go-lexer rewinds by the encoded width of the rune it read, which is
	// wrong for invalid bytes. Offsets then refer to the repaired text.
	if !utf8.ValidString(src) {
		src = strings.ToValidUTF8(src, string(utf8.RuneError))
	}

	s := &scanState{src: src, d: d, expr: expr}
	l := lexer.New(src, s.lexStart)
	l.Start()

	var out []Token
	var err error
	offset := 0
	// The lexer runs in its own goroutine; drain it even after an error.
	for {
		lt, done := l.NextToken()
		if done {
			break
		}
		tok := Token{Text: lt.Value, Pos: offset, End: offset + len(lt.Value)}
		offset = tok.End
		if err != nil {
			continue
		}

		switch lt.Type {
		case spaceToken:
			continue
		case separatorToken:
			tok.Kind = Separator
		case operatorToken:
			tok.Kind = operatorKind(tok.Text, expr)
		case wordToken:
			tok.Kind = Text
			if expr {
				tok.Text, err = Unquote(tok.Text, d)
			} else if kw := LookupKeyword(tok.Text); kw != NotKeyword {
				tok.Kind = Keyword
				tok.Keyword = kw
			}
		}
		out = append(out, tok)
	}

	if err == nil {
		err = s.err
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func operatorKind(op string, expr bool) Kind {
	switch {
	case expr:
		for _, e := range exprOps {
			if e.text == op {
				return e.kind
			}
		}
		return Operator
	case op == "&&":
		return OpAnd
	case op == "||":
		return OpOr
	}
	return Redirect
}

// Scan splits a command line into words, "&&", "||", separators and
// redirection operators. Word text is returned exactly as written.
func Scan(line string, d dialect.Dialect) ([]Token, error) {
	return scan(line, d, false)
}

// ScanExpr splits an expression into operators and unquoted operands.
func ScanExpr(text string, d dialect.Dialect) ([]Token, error) {
	return scan(text, d, true)
}
