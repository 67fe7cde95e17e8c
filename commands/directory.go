package commands

import (
	"fmt"

	"github.com/josephlewis42/mpwsh/core/token"
)

// Directory prints or changes the current directory.
func Directory(inv *Invocation) int {
	cmd := &SimpleCommand{
		Name:  "Directory",
		Use:   "Directory [-q | directory]",
		Short: "Set or write the default directory.",
	}
	quiet := cmd.Flag('q', "don't quote the directory name")

	return cmd.Run(inv, func(args []string) int {
		switch {
		case len(args) > 1:
			return cmd.UsageError(inv, "Too many parameters were specified.")

		case len(args) == 1:
			if quiet() {
				return cmd.UsageError(inv, "Conflicting options or parameters were specified.")
			}
			if err := inv.Dir.Chdir(args[0]); err != nil {
				cmd.Errorf(inv, "Unable to set current directory. (%v)", err)
				return 1
			}
			return 0

		default:
			dir := inv.Dir.Getwd()
			if !quiet() {
				dir = token.Quote(dir, inv.Dialect)
			}
			fmt.Fprintln(inv.Stdout(), dir)
			return 0
		}
	})
}

func init() {
	Register("Directory", BuiltinFunc(Directory))
}
