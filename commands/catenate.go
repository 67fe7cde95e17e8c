package commands

import (
	"io"
)

// Catenate writes the contents of each file to standard output, or copies
// standard input if no files are given.
func Catenate(inv *Invocation) int {
	cmd := &SimpleCommand{
		Name:  "Catenate",
		Use:   "Catenate [file...]",
		Short: "Concatenate files.",
	}

	return cmd.Run(inv, func(args []string) int {
		if len(args) == 0 {
			if _, err := io.Copy(inv.Stdout(), inv.Stdin()); err != nil {
				cmd.Errorf(inv, "%v", err)
				return 3
			}
			return 0
		}

		status := 0
		for _, arg := range args {
			fd, err := inv.Open(arg)
			if err != nil {
				cmd.Errorf(inv, "Unable to open %q. (%v)", arg, err)
				status = 2
				continue
			}

			_, err = io.Copy(inv.Stdout(), fd)
			fd.Close()
			if err != nil {
				cmd.Errorf(inv, "%v", err)
				return 3
			}
		}

		return status
	})
}

var _ BuiltinFunc = Catenate

func init() {
	Register("Catenate", BuiltinFunc(Catenate))
}
