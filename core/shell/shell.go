// Package shell runs command trees against an environment.
package shell

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/josephlewis42/mpwsh/commands"
	"github.com/josephlewis42/mpwsh/core/dialect"
	"github.com/josephlewis42/mpwsh/core/env"
	"github.com/josephlewis42/mpwsh/core/logger"
	"github.com/josephlewis42/mpwsh/core/redir"
	"github.com/spf13/afero"
)

// ShellName prefixes diagnostics that don't belong to a command.
const ShellName = "MPW Shell"

// Shell holds the state shared by every command of a session.
type Shell struct {
	Env     *env.Environment
	Dialect dialect.Dialect
	// Fs is used for redirections and script files.
	Fs afero.Fs
	// IO is the outermost redirection scope.
	IO      redir.Fds
	Printer Printer
	Events  *logger.SessionLogger

	// Builtins resolves builtin commands. It defaults to commands.Lookup.
	Builtins func(name string) (commands.Builtin, bool)
	// DisableExternal reports every command that isn't a builtin as not found.
	DisableExternal bool

	dir string
}

// New creates a shell in the process's working directory.
func New(e *env.Environment, fds redir.Fds) *Shell {
	dir, err := os.Getwd()
	if err != nil {
		dir = string(filepath.Separator)
	}
	if _, ok := e.Get(env.NameStatus); !ok {
		e.SetStatus(0)
	}

	return &Shell{
		Env:     e,
		Dialect: dialect.Default(),
		Fs:      afero.NewOsFs(),
		IO:      fds,
		dir:     dir,
	}
}

var _ commands.Workdir = (*Shell)(nil)

// Getwd returns the shell's current directory.
func (s *Shell) Getwd() string {
	return s.dir
}

// Chdir changes the shell's current directory.
func (s *Shell) Chdir(dir string) error {
	target := resolve(s.dir, dir)
	fi, err := s.Fs.Stat(target)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	s.dir = target
	return nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}

func (s *Shell) lookup(name string) (commands.Builtin, bool) {
	if s.Builtins != nil {
		return s.Builtins(name)
	}
	return commands.Lookup(name)
}

// AbortError is returned when a command fails while {Exit} is set. It
// unwinds every enclosing block up to the runner.
type AbortError struct {
	Status int
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("execution of input terminated with status %d", e.Status)
}
