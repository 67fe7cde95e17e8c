package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/josephlewis42/mpwsh/core/dialect"
	"github.com/josephlewis42/mpwsh/core/env"
	"github.com/josephlewis42/mpwsh/core/redir"
	getopt "github.com/pborman/getopt/v2"
	"github.com/spf13/afero"
)

// Workdir is the shell's current directory.
type Workdir interface {
	Getwd() string
	Chdir(dir string) error
}

// Invocation is everything a builtin can see of the shell.
type Invocation struct {
	// Args holds the command name followed by its parameters, unquoted.
	Args []string
	// Text is the expanded operand text for expression commands.
	Text string

	Env     *env.Environment
	IO      redir.Fds
	Dir     Workdir
	Dialect dialect.Dialect

	// Fs holds the files commands read. Relative names are resolved
	// against Dir.
	Fs afero.Fs
}

// Stdin returns the command's input stream.
func (inv *Invocation) Stdin() io.Reader { return inv.IO.Stdin() }

// Stdout returns the command's output stream.
func (inv *Invocation) Stdout() io.Writer { return inv.IO.Stdout() }

// Stderr returns the command's diagnostic stream.
func (inv *Invocation) Stderr() io.Writer { return inv.IO.Stderr() }

// Open opens a file relative to the current directory.
func (inv *Invocation) Open(name string) (afero.File, error) {
	if !filepath.IsAbs(name) {
		name = filepath.Join(inv.Dir.Getwd(), name)
	}
	return inv.Fs.Open(name)
}

// Name is the command name as it was typed.
func (inv *Invocation) Name() string {
	if len(inv.Args) == 0 {
		return ""
	}
	return inv.Args[0]
}

// Builtin is a command that runs inside the shell.
type Builtin interface {
	Main(inv *Invocation) int
}

// BuiltinFunc adapts a function to a Builtin.
type BuiltinFunc func(inv *Invocation) int

// Main calls f(inv).
func (f BuiltinFunc) Main(inv *Invocation) int {
	return f(inv)
}

// ExpressionCommand is a Builtin whose operands form one expression. The
// shell passes the expanded operands unsplit in Invocation.Text and does not
// look for redirections on its command line.
type ExpressionCommand interface {
	Builtin
	ExpressionOperands()
}

// ExpressionFunc adapts a function to an ExpressionCommand.
type ExpressionFunc func(inv *Invocation) int

// Main calls f(inv).
func (f ExpressionFunc) Main(inv *Invocation) int {
	return f(inv)
}

func (ExpressionFunc) ExpressionOperands() {}

var (
	// AllBuiltins holds every registered builtin keyed by lowercase name.
	AllBuiltins = make(map[string]Builtin)

	builtinNames = make(map[string]string)
)

// Register adds a builtin. Names are matched without regard to case.
func Register(name string, cmd Builtin) {
	key := strings.ToLower(name)
	AllBuiltins[key] = cmd
	builtinNames[key] = name
}

// Lookup finds a builtin by name.
func Lookup(name string) (Builtin, bool) {
	cmd, ok := AllBuiltins[strings.ToLower(name)]
	return cmd, ok
}

// Names lists the registered builtins in their display spelling.
func Names() []string {
	var out []string
	for key := range AllBuiltins {
		name := builtinNames[key]
		if name == "" {
			name = key
		}
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// SimpleCommand handles flag parsing and diagnostics for builtins.
type SimpleCommand struct {
	// Name is the command name used in diagnostics.
	Name string
	// Use holds a one line usage string.
	Use string
	// Short holds a one line description of the command.
	Short string

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// Flag registers a flag that may be given in either case and returns a
// function reporting whether it was set.
func (s *SimpleCommand) Flag(name rune, help string) func() bool {
	lower := s.Flags().Bool(unicode.ToLower(name), help)
	upper := s.Flags().Bool(unicode.ToUpper(name), help)
	return func() bool {
		return *lower || *upper
	}
}

// Errorf writes a diagnostic in the form "### Name - message".
func (s *SimpleCommand) Errorf(inv *Invocation, format string, a ...interface{}) {
	fmt.Fprintf(inv.Stderr(), "### %s - %s\n", s.Name, fmt.Sprintf(format, a...))
}

// PrintUsage writes the usage line.
func (s *SimpleCommand) PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "# Usage - %s\n", s.Use)
}

// UsageError reports a diagnostic followed by the usage line and returns the
// status for a usage error.
func (s *SimpleCommand) UsageError(inv *Invocation, format string, a ...interface{}) int {
	s.Errorf(inv, format, a...)
	s.PrintUsage(inv.Stderr())
	return 1
}

// Run parses flags and, if parsing succeeded, calls the callback with the
// remaining parameters.
func (s *SimpleCommand) Run(inv *Invocation, callback func(args []string) int) int {
	opts := s.Flags()

	if err := opts.Getopt(inv.Args, nil); err != nil {
		return s.UsageError(inv, "%s", err)
	}

	return callback(opts.Args())
}

// splitNoNewline removes -n and -N from args. Any other word, including
// ones that start with a dash, is data.
func splitNoNewline(args []string) (words []string, noNewline bool) {
	for _, arg := range args {
		if arg == "-n" || arg == "-N" {
			noNewline = true
			continue
		}
		words = append(words, arg)
	}
	return
}
