package commands

import (
	"fmt"

	"github.com/josephlewis42/mpwsh/core/env"
	"github.com/josephlewis42/mpwsh/core/token"
)

// Set assigns a variable, prints one, or lists all of them.
func Set(inv *Invocation) int {
	cmd := &SimpleCommand{
		Name:  "Set",
		Use:   "Set [-e] [name [value]]",
		Short: "Define or write shell variables.",
	}
	exported := cmd.Flag('e', "export the variable")

	return cmd.Run(inv, func(args []string) int {
		switch len(args) {
		case 0:
			for _, ent := range inv.Env.Entries() {
				if exported() && !ent.Exported {
					continue
				}
				printSet(inv, ent)
			}
			return 0

		case 1:
			ent, ok := inv.Env.Lookup(args[0])
			if !ok {
				cmd.Errorf(inv, "No variable definition exists for %s.", args[0])
				return 2
			}
			printSet(inv, ent)
			return 0

		case 2:
			inv.Env.Set(args[0], args[1], exported())
			return 0

		default:
			return cmd.UsageError(inv, "Too many parameters were specified.")
		}
	})
}

func printSet(inv *Invocation, ent env.Entry) {
	flag := ""
	if ent.Exported {
		flag = "-e "
	}
	fmt.Fprintf(inv.Stdout(), "Set %s%s %s\n", flag, token.Quote(ent.Name, inv.Dialect), token.Quote(ent.Value, inv.Dialect))
}

// Unset removes the named variables. With no names every variable is
// removed.
func Unset(inv *Invocation) int {
	if len(inv.Args) <= 1 {
		inv.Env.UnsetAll()
		return 0
	}
	for _, name := range inv.Args[1:] {
		inv.Env.Unset(name)
	}
	return 0
}

func init() {
	Register("Set", BuiltinFunc(Set))
	Register("Unset", BuiltinFunc(Unset))
}
