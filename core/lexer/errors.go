package lexer

import (
	"errors"
	"fmt"

	"github.com/josephlewis42/mpwsh/core/dialect"
)

// ErrUnterminatedInput is returned by Finish when the input ends inside a
// quote, a brace substitution or a line continuation.
var ErrUnterminatedInput = errors.New("unterminated input")

// Error is a malformed-input error. The lexer must be Reset before it is
// used again.
type Error struct {
	Mode Mode
	Rune rune
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func unterminated(st State, d dialect.Dialect) error {
	switch {
	case st.Mode == InQuote:
		return fmt.Errorf("%w: %cs must occur in pairs", ErrUnterminatedInput, st.Quote)
	case st.Mode == InBraceSubstitution:
		return fmt.Errorf("%w: %cs and %cs must occur in pairs", ErrUnterminatedInput, d.OpenBrace, d.CloseBrace)
	default:
		return fmt.Errorf("%w: %c at end of input", ErrUnterminatedInput, d.Escape)
	}
}
