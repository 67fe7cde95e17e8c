package commands

import (
	"fmt"

	"github.com/josephlewis42/mpwsh/core/token"
)

// Export marks variables as exported to external commands.
func Export(inv *Invocation) int {
	return exportCommon(inv, true)
}

// Unexport clears the exported mark.
func Unexport(inv *Invocation) int {
	return exportCommon(inv, false)
}

func exportCommon(inv *Invocation, export bool) int {
	name, inverse := "Export", "Unexport"
	if !export {
		name, inverse = inverse, name
	}

	cmd := &SimpleCommand{
		Name:  name,
		Use:   name + " [-r | -s | name...]",
		Short: "Change which variables are passed to external commands.",
	}
	reverse := cmd.Flag('r', "write "+inverse+" commands for the listed variables")
	short := cmd.Flag('s', "write variable names only")

	return cmd.Run(inv, func(args []string) int {
		if len(args) > 0 {
			if reverse() || short() {
				return cmd.UsageError(inv, "Conflicting options or parameters were specified.")
			}
			for _, v := range args {
				inv.Env.SetExported(v, export)
			}
			return 0
		}

		if reverse() && short() {
			return cmd.UsageError(inv, "Conflicting options or parameters were specified.")
		}

		prefix := name + " "
		switch {
		case short():
			prefix = ""
		case reverse():
			prefix = inverse + " "
		}
		for _, ent := range inv.Env.Entries() {
			if ent.Exported == export {
				fmt.Fprintf(inv.Stdout(), "%s%s\n", prefix, token.Quote(ent.Name, inv.Dialect))
			}
		}
		return 0
	})
}

func init() {
	Register("Export", BuiltinFunc(Export))
	Register("Unexport", BuiltinFunc(Unexport))
}
