package shell

import (
	"errors"
	"io"

	"github.com/josephlewis42/mpwsh/core/ast"
	"github.com/josephlewis42/mpwsh/core/lexer"
	"github.com/josephlewis42/mpwsh/core/logger"
	"github.com/josephlewis42/mpwsh/core/parser"
	"github.com/josephlewis42/mpwsh/core/redir"
)

// MsgTerminated is reported when an abort skips statements.
const MsgTerminated = "Execution of input Terminated."

// Mode selects how far an abort reaches.
type Mode int

const (
	// Script stops the whole input source on an abort.
	Script Mode = iota
	// Interactive stops only the rest of the current Feed call.
	Interactive
)

func (m Mode) String() string {
	if m == Interactive {
		return "interactive"
	}
	return "script"
}

// Runner drives input through the lexer and parser and executes each
// statement batch as it completes.
//
// When a command aborts, the statements after it are skipped. The abort is
// reported only if something was skipped: an abort raised by the last
// command of a batch is held until another statement arrives, and is
// dropped silently if the input ends first.
type Runner struct {
	shell *Shell
	mode  Mode
	fds   redir.Fds

	lexer  *lexer.Lexer
	parser *parser.Parser

	// pending is an abort from the last command of a batch.
	pending *AbortError
	// stopped is set once an abort has ended the input source.
	stopped *AbortError
	// failed is set if the input ended inside a quote or block.
	failed bool
}

// NewRunner creates a runner writing to the shell's outermost scope.
func (s *Shell) NewRunner(mode Mode) *Runner {
	return s.newRunner(mode, s.IO)
}

func (s *Shell) newRunner(mode Mode, fds redir.Fds) *Runner {
	r := &Runner{shell: s, mode: mode, fds: fds}
	r.parser = parser.New(s.Dialect, r.batch)
	r.lexer = lexer.New(s.Dialect, r.line)
	return r
}

// line hands a logical line to the parser. Grammar errors are reported
// here so the lexer carries on with the rest of its input.
func (r *Runner) line(text string) error {
	if err := r.parser.Process(text); err != nil {
		r.report(err)
	}
	return nil
}

// Stopped reports whether an abort ended the input source. Further input is
// ignored.
func (r *Runner) Stopped() bool {
	return r.stopped != nil
}

// Incomplete reports whether a quote, continuation or block is still open.
func (r *Runner) Incomplete() bool {
	return !r.lexer.State().Closed() || r.parser.Depth() > 0
}

// Feed processes a chunk of input. Chunks may split lines, quotes and
// blocks anywhere.
func (r *Runner) Feed(p []byte) {
	if r.mode == Interactive {
		r.pending, r.stopped = nil, nil
	}
	if r.stopped != nil {
		return
	}

	if err := r.lexer.Process(p, false); err != nil {
		r.syntaxError(err)
	}
}

// ReadFrom feeds rd to the runner in chunks until EOF or an abort.
func (r *Runner) ReadFrom(rd io.Reader) (int64, error) {
	buf := make([]byte, 2048)
	var total int64

	for !r.Stopped() {
		n, err := rd.Read(buf)
		total += int64(n)
		if n > 0 {
			r.Feed(buf[:n])
		}
		switch {
		case err == io.EOF:
			return total, nil
		case err != nil:
			return total, err
		}
	}
	return total, nil
}

var _ io.ReaderFrom = (*Runner)(nil)

// RunFile feeds a script file from the shell's file system.
func (r *Runner) RunFile(name string) error {
	fd, err := r.shell.Fs.Open(name)
	if err != nil {
		return err
	}
	defer fd.Close()

	_, err = r.ReadFrom(fd)
	return err
}

// Finish flushes buffered input and returns the final status: the status of
// the aborting command if input was aborted, otherwise {Status}.
func (r *Runner) Finish() int {
	if r.stopped == nil {
		if err := r.lexer.Finish(); err != nil {
			r.syntaxError(err)
			r.failed = true
		}
		if err := r.parser.Finish(); err != nil {
			r.report(err)
			r.failed = true
		}
	}
	r.lexer.Reset()

	switch {
	case r.stopped != nil:
		return r.stopped.Status
	case r.pending != nil:
		return r.pending.Status
	case r.failed:
		return 1
	}
	return r.shell.Env.Status()
}

// RunString runs a complete script and returns the final status.
func (r *Runner) RunString(script string) int {
	r.Feed([]byte(script))
	return r.Finish()
}

func (r *Runner) batch(cmds []ast.Command) error {
	if r.stopped != nil {
		return nil
	}
	if r.pending != nil {
		r.stop(r.pending)
		return nil
	}

	for i, cmd := range cmds {
		_, err := r.shell.execute(execContext{fds: r.fds}, cmd)

		var abort *AbortError
		switch {
		case errors.As(err, &abort):
			r.shell.Events.Record(logger.EventAbort, map[string]interface{}{
				"status": abort.Status,
				"mode":   r.mode.String(),
			})
			if i == len(cmds)-1 {
				r.pending = abort
			} else {
				r.stop(abort)
			}
			return nil
		case err != nil:
			r.report(err)
			return nil
		}
	}
	return nil
}

func (r *Runner) stop(abort *AbortError) {
	r.pending = nil
	r.stopped = abort
	r.shell.Printer.Fprintf(r.fds.Stderr(), ShellName, MsgTerminated)
}

func (r *Runner) report(err error) {
	r.shell.Printer.Fprintf(r.fds.Stderr(), ShellName, "%v", err)
	r.shell.Events.Record(logger.EventSyntaxError, map[string]interface{}{
		"error": err.Error(),
	})
}

// syntaxError reports a lexical error. The lexer starts over with the next
// input.
func (r *Runner) syntaxError(err error) {
	r.report(err)
	r.lexer.Reset()
}
