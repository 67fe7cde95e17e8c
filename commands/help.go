package commands

import (
	"fmt"
)

// Help lists the builtin commands.
func Help(inv *Invocation) int {
	for _, name := range Names() {
		fmt.Fprintln(inv.Stdout(), name)
	}
	return 0
}

func init() {
	Register("Help", BuiltinFunc(Help))
}
