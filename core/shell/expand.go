package shell

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/josephlewis42/mpwsh/core/redir"
	"github.com/josephlewis42/mpwsh/core/token"
)

// expansion is the result of substituting a command line.
type expansion struct {
	// words is safe to split: substituted text is escaped so that only its
	// white space separates words.
	words string
	// text has substituted values inserted as they are.
	text string
}

type expander struct {
	s  *Shell
	ec execContext

	words strings.Builder
	text  strings.Builder
}

// expand performs {variable} and `command` substitution. Nothing inside
// literal quotes or after an escape character is substituted.
func (s *Shell) expand(ec execContext, line string) (expansion, error) {
	x := &expander{s: s, ec: ec}
	if err := x.run([]rune(line)); err != nil {
		return expansion{}, err
	}
	return expansion{words: x.words.String(), text: x.text.String()}, nil
}

func (x *expander) writeRune(r rune) {
	x.words.WriteRune(r)
	x.text.WriteRune(r)
}

// insert adds substituted text.
func (x *expander) insert(value string) {
	x.text.WriteString(value)
	for _, r := range value {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			x.words.WriteRune(x.s.Dialect.Escape)
		}
		x.words.WriteRune(r)
	}
}

func (x *expander) run(runes []rune) error {
	d := x.s.Dialect
	var open rune

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if open != 0 {
			q, _ := d.Quote(open)
			if !q.Expands {
				x.writeRune(r)
				if r == open {
					open = 0
				}
				continue
			}
		}

		switch q, isQuote := d.Quote(r); {
		case r == d.Escape:
			x.writeRune(r)
			if i+1 < len(runes) {
				i++
				x.writeRune(runes[i])
			}

		case r == d.OpenBrace:
			end, err := matchBrace(runes, i, d.OpenBrace, d.CloseBrace)
			if err != nil {
				return err
			}
			name, err := x.s.expand(x.ec, string(runes[i+1:end]))
			if err != nil {
				return err
			}
			x.insert(x.s.Env.Getenv(strings.TrimSpace(name.text)))
			i = end

		case isQuote && q.Command && open != r:
			end, err := matchQuote(runes, i, d.Escape)
			if err != nil {
				return err
			}
			out, err := x.s.capture(x.ec, string(runes[i+1:end]))
			if err != nil {
				return err
			}
			x.insert(out)
			i = end

		case open != 0 && r == open:
			open = 0
			x.writeRune(r)

		case isQuote && open == 0:
			open = r
			x.writeRune(r)

		default:
			x.writeRune(r)
		}
	}
	return nil
}

func matchBrace(runes []rune, start int, openBrace, closeBrace rune) (int, error) {
	depth := 0
	for i := start; i < len(runes); i++ {
		switch runes[i] {
		case openBrace:
			depth++
		case closeBrace:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, &token.Error{Offset: start, Msg: fmt.Sprintf("%cs and %cs must occur in pairs", openBrace, closeBrace)}
}

func matchQuote(runes []rune, start int, escape rune) (int, error) {
	open := runes[start]
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case escape:
			i++
		case open:
			return i, nil
		}
	}
	return 0, &token.Error{Offset: start, Msg: fmt.Sprintf("%cs must occur in pairs", open)}
}

// SubstitutionError is returned when a command substitution fails while
// {Exit} is set. The command containing it is not run.
type SubstitutionError struct {
	Status int
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("command substitution failed with status %d", e.Status)
}

// capture runs script and returns its output with line breaks turned into
// spaces.
func (s *Shell) capture(ec execContext, script string) (string, error) {
	var buf bytes.Buffer
	r := s.newRunner(Script, redir.Fds{Out: &buf}.Inherit(ec.fds))
	r.Feed([]byte(script))
	if status := r.Finish(); status != 0 && s.Env.Exit() {
		return "", &SubstitutionError{Status: status}
	}

	out := strings.TrimRight(buf.String(), "\r\n")
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(out), nil
}

// split separates scanned command words from redirections and removes
// quoting.
func (s *Shell) split(toks []token.Token) (argv []string, targets []redir.Target, err error) {
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == token.Redirect {
			op, _ := redir.ParseOp(t.Text)
			if i+1 >= len(toks) || toks[i+1].Kind == token.Redirect {
				return nil, nil, fmt.Errorf("missing file name after %s", t.Text)
			}
			i++
			path, err := token.Unquote(toks[i].Text, s.Dialect)
			if err != nil {
				return nil, nil, err
			}
			targets = append(targets, redir.Target{Op: op, Path: path})
			continue
		}

		word, err := token.Unquote(t.Text, s.Dialect)
		if err != nil {
			return nil, nil, err
		}
		argv = append(argv, word)
	}
	return argv, targets, nil
}
