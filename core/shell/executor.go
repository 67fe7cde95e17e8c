package shell

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/josephlewis42/mpwsh/commands"
	"github.com/josephlewis42/mpwsh/core/ast"
	"github.com/josephlewis42/mpwsh/core/expr"
	"github.com/josephlewis42/mpwsh/core/logger"
	"github.com/josephlewis42/mpwsh/core/redir"
	"github.com/josephlewis42/mpwsh/core/token"
)

type execContext struct {
	fds redir.Fds

	// noAbort is set while running the left operand of && or ||. The
	// combined status is checked instead.
	noAbort bool
}

// Execute runs a command tree in the shell's outermost redirection scope.
// It returns an *AbortError if a command failed while {Exit} was set.
func (s *Shell) Execute(cmd ast.Command) (int, error) {
	return s.execute(execContext{fds: s.IO}, cmd)
}

func (s *Shell) execute(ec execContext, cmd ast.Command) (int, error) {
	switch c := cmd.(type) {
	case *ast.Simple:
		return s.check(ec, s.simple(ec, c.Text))

	case *ast.Binary:
		operand := ec
		operand.noAbort = true
		status, err := s.execute(operand, c.Left)
		if err != nil {
			return status, err
		}
		if (c.Op == ast.And) == (status == 0) {
			if status, err = s.execute(operand, c.Right); err != nil {
				return status, err
			}
		}
		return s.check(ec, status)

	case *ast.Sequence:
		return s.sequence(ec, c)

	case *ast.Group:
		return s.block(ec, c.End, func(ec execContext) (int, error) {
			return s.sequence(ec, &c.Body)
		})

	case *ast.If:
		return s.block(ec, c.End, func(ec execContext) (int, error) {
			return s.runIf(ec, c)
		})
	}

	return 0, fmt.Errorf("unknown command type %T", cmd)
}

// check turns a failing status into an abort when {Exit} is set.
func (s *Shell) check(ec execContext, status int) (int, error) {
	if status != 0 && !ec.noAbort && s.Env.Exit() {
		return status, &AbortError{Status: status}
	}
	return status, nil
}

func (s *Shell) sequence(ec execContext, seq *ast.Sequence) (int, error) {
	status := 0
	for _, cmd := range seq.Body {
		var err error
		if status, err = s.execute(ec, cmd); err != nil {
			return status, err
		}
	}
	return status, nil
}

func (s *Shell) runIf(ec execContext, c *ast.If) (int, error) {
	expand := func(text string) (string, error) {
		x, err := s.expand(ec, text)
		return x.text, err
	}

	for i := range c.Clauses {
		clause := &c.Clauses[i]
		ok, err := clause.Evaluate(expand, s.Dialect)
		if err != nil {
			var exprErr *expr.Error
			if errors.As(err, &exprErr) {
				fmt.Fprintf(ec.fds.Stderr(), "### %v\n", exprErr)
			} else {
				s.Printer.Fprintf(ec.fds.Stderr(), "If", "%v", err)
			}
			return s.check(ec, s.Env.SetStatus(1))
		}
		if ok {
			return s.sequence(ec, &clause.Body)
		}
	}
	return s.Env.SetStatus(0), nil
}

// block runs body with the redirections written after its End keyword.
func (s *Shell) block(ec execContext, end string, body func(ec execContext) (int, error)) (int, error) {
	targets, err := s.endRedirections(ec, end)
	if err != nil {
		s.Printer.Fprintf(ec.fds.Stderr(), "End", "%v", err)
		return s.check(ec, s.Env.SetStatus(1))
	}
	if len(targets) == 0 {
		return body(ec)
	}

	fds, closer, err := redir.Open(s.Fs, s.dir, targets, ec.fds)
	if err != nil {
		s.Printer.Fprintf(ec.fds.Stderr(), ShellName, "%v", err)
		return s.check(ec, s.Env.SetStatus(1))
	}
	defer closer.Close()

	inner := ec
	inner.fds = fds
	return body(inner)
}

func (s *Shell) endRedirections(ec execContext, end string) ([]redir.Target, error) {
	x, err := s.expand(ec, end)
	if err != nil {
		return nil, err
	}
	toks, err := token.Scan(x.words, s.Dialect)
	if err != nil {
		return nil, err
	}
	if len(toks) <= 1 {
		return nil, nil
	}
	argv, targets, err := s.split(toks[1:])
	if err != nil {
		return nil, err
	}
	if len(argv) > 0 {
		return nil, errors.New("too many parameters were specified")
	}
	return targets, nil
}

// simple runs one command line and records its status.
func (s *Shell) simple(ec execContext, line string) int {
	stderr := ec.fds.Stderr()

	if name, cmd, operands, ok := s.expressionCommand(line); ok {
		x, err := s.expand(ec, operands)
		if err != nil {
			s.Printer.Fprintf(stderr, ShellName, "%v", err)
			return s.Env.SetStatus(expandStatus(err))
		}
		if s.Env.Echo() {
			fmt.Fprintln(stderr, strings.TrimSpace(name+" "+x.text))
		}
		status := s.invoke(ec.fds, cmd, []string{name}, strings.TrimSpace(x.text))
		return s.Env.SetStatus(status)
	}

	x, err := s.expand(ec, line)
	if err != nil {
		s.Printer.Fprintf(stderr, ShellName, "%v", err)
		return s.Env.SetStatus(expandStatus(err))
	}
	if s.Env.Echo() {
		fmt.Fprintln(stderr, x.text)
	}

	toks, err := token.Scan(x.words, s.Dialect)
	if err != nil {
		s.Printer.Fprintf(stderr, ShellName, "%v", err)
		return s.Env.SetStatus(1)
	}
	argv, targets, err := s.split(toks)
	if err != nil {
		s.Printer.Fprintf(stderr, ShellName, "%v", err)
		return s.Env.SetStatus(1)
	}

	fds, closer, err := redir.Open(s.Fs, s.dir, targets, ec.fds)
	if err != nil {
		s.Printer.Fprintf(stderr, ShellName, "%v", err)
		return s.Env.SetStatus(1)
	}
	defer closer.Close()

	if len(argv) == 0 {
		return s.Env.SetStatus(0)
	}
	return s.Env.SetStatus(s.dispatch(fds, argv))
}

// expandStatus is the status of a command whose words could not be
// expanded.
func expandStatus(err error) int {
	var subst *SubstitutionError
	if errors.As(err, &subst) {
		return subst.Status
	}
	return 1
}

// expressionCommand reports whether line invokes a builtin that takes an
// expression. The command name must be written literally.
func (s *Shell) expressionCommand(line string) (string, commands.Builtin, string, bool) {
	toks, err := token.Scan(line, s.Dialect)
	if err != nil || len(toks) == 0 || (toks[0].Kind != token.Text && toks[0].Kind != token.Keyword) {
		return "", nil, "", false
	}
	name := toks[0].Text
	if strings.ContainsAny(name, "{}`'\"") || strings.ContainsRune(name, s.Dialect.Escape) {
		return "", nil, "", false
	}
	cmd, ok := s.lookup(name)
	if !ok {
		return "", nil, "", false
	}
	if _, ok := cmd.(commands.ExpressionCommand); !ok {
		return "", nil, "", false
	}
	return name, cmd, line[toks[0].End:], true
}

func (s *Shell) dispatch(fds redir.Fds, argv []string) int {
	if cmd, ok := s.lookup(argv[0]); ok {
		return s.invoke(fds, cmd, argv, "")
	}
	return s.external(fds, argv)
}

func (s *Shell) invoke(fds redir.Fds, cmd commands.Builtin, argv []string, text string) int {
	start := time.Now()
	status := cmd.Main(&commands.Invocation{
		Args:    argv,
		Text:    text,
		Env:     s.Env,
		IO:      fds,
		Dir:     s,
		Dialect: s.Dialect,
		Fs:      s.Fs,
	})

	args := append([]string(nil), argv[1:]...)
	if text != "" {
		args = append(args, text)
	}
	s.Events.Record(logger.EventRunCommand, map[string]interface{}{
		"name":        argv[0],
		"args":        logger.Strings(args),
		"text":        strings.Join(append([]string{argv[0]}, args...), " "),
		"builtin":     true,
		"status":      status,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return status
}
