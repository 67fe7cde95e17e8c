package token

import (
	"strings"
	"unicode"

	"github.com/anmitsu/go-shlex"
	"github.com/josephlewis42/mpwsh/core/dialect"
)

// posix rewrites a word into POSIX shell quoting so shlex can remove the
// quotes. Escape sequences are resolved on the way.
func posix(word string, d dialect.Dialect) string {
	var sb strings.Builder
	var open rune
	var q dialect.Quote

	runes := []rune(word)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case open == 0:
			if r == d.Escape && i+1 < len(runes) {
				i++
				sb.WriteRune('\\')
				sb.WriteRune(dialect.EscapeValue(runes[i]))
				continue
			}
			if quote, ok := d.Quote(r); ok {
				open, q = r, quote
				if q.Escapes {
					sb.WriteRune('"')
				} else {
					sb.WriteRune('\'')
				}
				continue
			}
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
				sb.WriteRune('\\')
			}
			sb.WriteRune(r)

		case r == open:
			open = 0
			if q.Escapes {
				sb.WriteRune('"')
			} else {
				sb.WriteRune('\'')
			}

		case !q.Escapes:
			sb.WriteRune(r)

		default:
			if r == d.Escape && i+1 < len(runes) {
				i++
				r = dialect.EscapeValue(runes[i])
			}
			if r == '"' || r == '\\' {
				sb.WriteRune('\\')
			}
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// Unquote removes quoting and escapes from a single word.
func Unquote(word string, d dialect.Dialect) (string, error) {
	fields, err := shlex.Split(posix(word, d), true)
	if err != nil {
		return "", &Error{Msg: err.Error()}
	}
	return strings.Join(fields, " "), nil
}

const special = "#;&|()'\"`{}<>≥≤∑∂\\/"

// Quote returns s quoted so that it reads back as a single word.
func Quote(s string, d dialect.Dialect) string {
	if s == "" {
		return "''"
	}
	needs := false
	for _, r := range s {
		if unicode.IsSpace(r) || strings.ContainsRune(special, r) || r == d.Escape {
			needs = true
			break
		}
	}
	if !needs {
		return s
	}

	var sb strings.Builder
	sb.WriteRune('\'')
	for _, r := range s {
		if r == '\'' {
			sb.WriteRune('\'')
			sb.WriteRune(d.Escape)
			sb.WriteString("''")
			continue
		}
		sb.WriteRune(r)
	}
	sb.WriteRune('\'')
	return sb.String()
}
