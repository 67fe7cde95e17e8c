package parser

import (
	"errors"
	"fmt"
)

var (
	errExtraParameters = errors.New("End - too many parameters were specified")
	errMissingFile     = errors.New("End - missing file name after redirection")
)

// GrammarError is a misplaced or unbalanced block keyword, or a malformed
// statement.
type GrammarError struct {
	Line string
	Msg  string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("%s (%q)", e.Msg, e.Line)
}

// IncompleteBlockError is returned by Finish when a block is still open.
type IncompleteBlockError struct {
	Depth  int
	Opener string
}

func (e *IncompleteBlockError) Error() string {
	return fmt.Sprintf("End is missing for %q", e.Opener)
}
