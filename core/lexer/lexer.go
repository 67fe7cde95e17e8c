// Package lexer assembles raw input bytes into logical lines.
//
// Input may arrive in chunks of any size. Open quotes, brace substitutions,
// comments and pending line continuations are carried between calls in an
// explicit State value.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/josephlewis42/mpwsh/core/dialect"
)

// Mode is the structural position of the lexer.
type Mode int

const (
	Normal Mode = iota
	InQuote
	InComment
	PendingContinuation
	InBraceSubstitution
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case InQuote:
		return "quote"
	case InComment:
		return "comment"
	case PendingContinuation:
		return "continuation"
	case InBraceSubstitution:
		return "brace substitution"
	}
	return "unknown"
}

// State is everything the lexer carries between calls.
type State struct {
	Mode Mode
	// Quote is the open quote character when Mode is InQuote.
	Quote rune
	// Escaped is set when the escape character was the last rune seen inside
	// a quote that honors escapes.
	Escaped bool
	// Depth is the brace nesting depth when Mode is InBraceSubstitution.
	Depth int
	// Line holds the logical line assembled so far.
	Line []byte
	// Partial holds an incomplete UTF-8 sequence from the end of the last
	// chunk.
	Partial []byte
}

// Closed reports whether a logical line could end here.
func (s State) Closed() bool {
	return (s.Mode == Normal || s.Mode == InComment) && !s.Escaped
}

// LineFunc receives each completed logical line.
type LineFunc func(line string) error

// Lexer is Stage 1 of the parsing pipeline.
type Lexer struct {
	dialect dialect.Dialect
	emit    LineFunc
	state   State
}

// New creates a lexer that hands logical lines to emit.
func New(d dialect.Dialect, emit LineFunc) *Lexer {
	return &Lexer{dialect: d, emit: emit}
}

// State returns a copy of the carried state.
func (l *Lexer) State() State {
	out := l.state
	out.Line = append([]byte(nil), l.state.Line...)
	out.Partial = append([]byte(nil), l.state.Partial...)
	return out
}

// Reset discards all open state.
func (l *Lexer) Reset() {
	l.state = State{}
}

// Process consumes a chunk of input. If final is set the input is finished
// as if Finish had been called.
func (l *Lexer) Process(p []byte, final bool) error {
	if len(l.state.Partial) > 0 {
		p = append(l.state.Partial, p...)
		l.state.Partial = nil
	}

	for len(p) > 0 {
		if !utf8.FullRune(p) && !final {
			l.state.Partial = append([]byte(nil), p...)
			break
		}

		r, width := decodeRune(p)
		p = p[width:]

		if err := l.step(r); err != nil {
			return err
		}
	}

	if final {
		return l.Finish()
	}
	return nil
}

// decodeRune reads UTF-8, falling back to MacRoman for a byte that does not
// start a valid sequence.
func decodeRune(p []byte) (rune, int) {
	r, width := utf8.DecodeRune(p)
	if r == utf8.RuneError && width <= 1 {
		return dialect.DecodeMacRoman(p[0]), 1
	}
	return r, width
}

// Finish flushes a trailing partial line. It fails with
// ErrUnterminatedInput if a quote, brace or continuation is still open.
func (l *Lexer) Finish() error {
	partial := l.state.Partial
	l.state.Partial = nil
	for _, b := range partial {
		// A truncated UTF-8 sequence is read byte by byte as MacRoman.
		if err := l.step(dialect.DecodeMacRoman(b)); err != nil {
			return err
		}
	}

	if !l.state.Closed() {
		return unterminated(l.state, l.dialect)
	}
	l.state.Mode = Normal
	return l.flush()
}

func (l *Lexer) flush() error {
	line := strings.TrimSpace(string(l.state.Line))
	l.state.Line = l.state.Line[:0]
	if line == "" {
		return nil
	}
	return l.emit(line)
}

func (l *Lexer) appendRune(r rune) {
	l.state.Line = utf8.AppendRune(l.state.Line, r)
}

func (l *Lexer) step(r rune) error {
	d := l.dialect
	st := &l.state

	switch st.Mode {
	case InComment:
		if dialect.IsNewline(r) {
			st.Mode = Normal
			return l.flush()
		}
		return nil

	case PendingContinuation:
		st.Mode = Normal
		if dialect.IsNewline(r) {
			return nil
		}
		l.appendRune(d.Escape)
		l.appendRune(r)
		return nil

	case InQuote:
		q, _ := d.Quote(st.Quote)
		switch {
		case st.Escaped:
			st.Escaped = false
			if !dialect.IsNewline(r) {
				l.appendRune(d.Escape)
				l.appendRune(r)
			}
		case q.Escapes && r == d.Escape:
			st.Escaped = true
		case r == st.Quote:
			l.appendRune(r)
			st.Mode = Normal
			st.Quote = 0
		default:
			l.appendRune(r)
		}
		return nil

	case InBraceSubstitution:
		l.appendRune(r)
		switch r {
		case d.OpenBrace:
			st.Depth++
		case d.CloseBrace:
			st.Depth--
			if st.Depth == 0 {
				st.Mode = Normal
			}
		}
		return nil
	}

	switch {
	case dialect.IsNewline(r) || r == d.Separator:
		return l.flush()
	case r == d.Escape:
		st.Mode = PendingContinuation
	case r == d.Comment:
		st.Mode = InComment
	case r == d.OpenBrace:
		l.appendRune(r)
		st.Mode = InBraceSubstitution
		st.Depth = 1
	case r == d.CloseBrace:
		return &Error{Mode: Normal, Rune: r, Msg: string(d.OpenBrace) + "s and " + string(d.CloseBrace) + "s must occur in pairs"}
	default:
		if _, ok := d.Quote(r); ok {
			st.Mode = InQuote
			st.Quote = r
		}
		l.appendRune(r)
	}
	return nil
}
