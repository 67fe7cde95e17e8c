package commands

import (
	"fmt"
	"io"
)

type countTotals struct {
	lines int
	chars int
	name  string

	last byte
}

func (c *countTotals) Write(data []byte) (int, error) {
	for _, b := range data {
		// Continuation bytes of a UTF-8 sequence start with 0b10.
		if b < 0b10000000 || b > 0b10111111 {
			c.chars++
		}
		if b == '\n' || b == '\r' {
			c.lines++
		}
		c.last = b
	}

	return len(data), nil
}

func newCount(name string, fd io.Reader) (*countTotals, error) {
	out := &countTotals{name: name}

	if _, err := io.Copy(out, fd); err != nil {
		return nil, err
	}
	// An unterminated last line still counts.
	if out.chars > 0 && out.last != '\n' && out.last != '\r' {
		out.lines++
	}

	return out, nil
}

func (c *countTotals) add(other *countTotals) {
	c.lines += other.lines
	c.chars += other.chars
}

// Count writes the number of lines and characters in each file, or in
// standard input if no files are given. With more than one file a total is
// written too.
func Count(inv *Invocation) int {
	cmd := &SimpleCommand{
		Name:  "Count",
		Use:   "Count [-l] [-c] [file...]",
		Short: "Count lines and characters.",
	}
	onlyLines := cmd.Flag('l', "write line counts")
	onlyChars := cmd.Flag('c', "write character counts")

	return cmd.Run(inv, func(args []string) int {
		showLines := onlyLines() || !onlyChars()
		showChars := onlyChars() || !onlyLines()

		columns := func(c *countTotals) string {
			switch {
			case showLines && showChars:
				return fmt.Sprintf("%d %d", c.lines, c.chars)
			case showLines:
				return fmt.Sprint(c.lines)
			default:
				return fmt.Sprint(c.chars)
			}
		}

		if len(args) == 0 {
			c, err := newCount("", inv.Stdin())
			if err != nil {
				cmd.Errorf(inv, "%v", err)
				return 3
			}
			fmt.Fprintln(inv.Stdout(), columns(c))
			return 0
		}

		total := &countTotals{name: "Total"}
		status := 0
		for _, arg := range args {
			fd, err := inv.Open(arg)
			if err != nil {
				cmd.Errorf(inv, "Unable to open %q. (%v)", arg, err)
				status = 2
				continue
			}
			c, err := newCount(arg, fd)
			fd.Close()
			if err != nil {
				cmd.Errorf(inv, "%v", err)
				return 3
			}

			total.add(c)
			if len(args) == 1 {
				fmt.Fprintln(inv.Stdout(), columns(c))
			} else {
				fmt.Fprintf(inv.Stdout(), "%-16s %s\n", c.name, columns(c))
			}
		}

		if len(args) > 1 {
			fmt.Fprintf(inv.Stdout(), "%-16s %s\n", total.name, columns(total))
		}
		return status
	})
}

var _ BuiltinFunc = Count

func init() {
	Register("Count", BuiltinFunc(Count))
}
