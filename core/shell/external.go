package shell

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/josephlewis42/mpwsh/core/logger"
	"github.com/josephlewis42/mpwsh/core/redir"
)

// Status codes for commands that could not be started.
const (
	StatusNotFound      = 127
	StatusCannotExecute = 126
)

var errNotFound = errors.New("command not found")

// lookPath searches the directories in {PATH}. External programs run from
// the host file system, so this does not go through Fs.
func (s *Shell) lookPath(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		path := resolve(s.dir, name)
		if executable(path) {
			return path, nil
		}
		return "", errNotFound
	}

	for _, dir := range filepath.SplitList(s.Env.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(resolve(s.dir, dir), name)
		if executable(path) {
			return path, nil
		}
	}
	return "", errNotFound
}

func executable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir() && fi.Mode()&0111 != 0
}

func (s *Shell) notFound(fds redir.Fds, name string) int {
	s.Printer.Fprintf(fds.Stderr(), ShellName, "Command %q was not found.", name)
	s.Events.Record(logger.EventUnknownCommand, map[string]interface{}{
		"name":   name,
		"text":   name,
		"status": StatusNotFound,
	})
	return StatusNotFound
}

// external runs a program with the exported variables as its environment.
func (s *Shell) external(fds redir.Fds, argv []string) int {
	if s.DisableExternal {
		return s.notFound(fds, argv[0])
	}
	path, err := s.lookPath(argv[0])
	if err != nil {
		return s.notFound(fds, argv[0])
	}
	if s.Env.Test() {
		return 0
	}

	start := time.Now()
	cmd := exec.Command(path, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Env = s.Env.Environ()
	cmd.Dir = s.dir
	cmd.Stdin = fds.Stdin()
	cmd.Stdout = fds.Stdout()
	cmd.Stderr = fds.Stderr()

	status := 0
	var exitErr *exec.ExitError
	switch err := cmd.Run(); {
	case err == nil:
	case errors.As(err, &exitErr):
		status = exitErr.ExitCode()
		if status < 0 {
			// Killed by a signal.
			status = 1
		}
	default:
		s.Printer.Fprintf(fds.Stderr(), ShellName, "%v", err)
		status = StatusCannotExecute
	}

	s.Events.Record(logger.EventRunCommand, map[string]interface{}{
		"name":        argv[0],
		"args":        logger.Strings(argv[1:]),
		"text":        strings.Join(argv, " "),
		"builtin":     false,
		"path":        path,
		"status":      status,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return status
}
