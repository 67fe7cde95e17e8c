package commands

import (
	"fmt"
	"strings"

	"github.com/josephlewis42/mpwsh/core/token"
)

// Echo writes its parameters separated by spaces. -n suppresses the
// trailing newline.
func Echo(inv *Invocation) int {
	words, noNewline := splitNoNewline(inv.Args[1:])
	return writeWords(inv, words, noNewline)
}

// Quote is like Echo but quotes each parameter so that it reads back as a
// single word.
func Quote(inv *Invocation) int {
	words, noNewline := splitNoNewline(inv.Args[1:])
	for i, w := range words {
		words[i] = token.Quote(w, inv.Dialect)
	}
	return writeWords(inv, words, noNewline)
}

func writeWords(inv *Invocation, words []string, noNewline bool) int {
	w := inv.Stdout()
	fmt.Fprint(w, strings.Join(words, " "))
	if !noNewline {
		fmt.Fprintln(w)
	}

	return 0
}

// Parameters lists its parameters one per line, numbered from the command
// name.
func Parameters(inv *Invocation) int {
	for i, arg := range inv.Args {
		fmt.Fprintf(inv.Stdout(), "{%d} %s\n", i, arg)
	}
	return 0
}

var _ BuiltinFunc = Echo

func init() {
	Register("Echo", BuiltinFunc(Echo))
	Register("Quote", BuiltinFunc(Quote))
	Register("Parameters", BuiltinFunc(Parameters))
}
