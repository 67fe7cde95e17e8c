package shell

import (
	"fmt"
	"io"
	"log"

	"github.com/abiosoft/readline"
)

// EditorConfig configures the interactive line editor.
type EditorConfig struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	HistoryFile  string
	HistoryLimit int

	// IsTerminal and Width describe the terminal, if any.
	IsTerminal func() bool
	Width      func() int
}

// NewLineEditor creates a readline instance. History is saved by
// RunInteractive rather than automatically.
func NewLineEditor(c EditorConfig) (*readline.Instance, error) {
	cfg := &readline.Config{
		Stdin:                  readline.NewCancelableStdin(c.In),
		Stdout:                 c.Out,
		Stderr:                 c.Err,
		HistoryFile:            c.HistoryFile,
		HistoryLimit:           c.HistoryLimit,
		DisableAutoSaveHistory: true,
		FuncIsTerminal:         c.IsTerminal,
		FuncGetWidth:           c.Width,
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	return readline.NewEx(cfg)
}

// RunInteractive reads lines from rl until end of input and returns the
// final status. A line is added to the history unless it repeats the one
// before it.
func (s *Shell) RunInteractive(rl *readline.Instance, prompt, continuation string) int {
	r := s.NewRunner(Interactive)
	var previous string

	for {
		if r.Incomplete() {
			rl.SetPrompt(continuation)
		} else {
			rl.SetPrompt(prompt)
		}
		line, err := rl.Readline()

		switch {
		case err == io.EOF:
			fmt.Fprintln(s.IO.Stdout())
			return r.Finish()

		case err == readline.ErrInterrupt:
			// Interrupt clears line.
			continue

		case err != nil:
			log.Printf("Error readline: %v", err)
			return r.Finish()

		case len(line) == 0 && !r.Incomplete():
			continue
		}

		if line != previous {
			if err := rl.SaveHistory(line); err != nil {
				log.Printf("Error saving history: %v", err)
			}
			previous = line
		}

		r.Feed([]byte(line + "\n"))
	}
}
