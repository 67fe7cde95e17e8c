package shell

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color modes.
const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

var diagColor = func() *color.Color {
	c := color.New(color.FgRed, color.Bold)
	c.EnableColor()
	return c
}()

// Printer writes "### Source - message" diagnostics.
type Printer struct {
	// Color is one of ColorAlways, ColorAuto or ColorNever. Auto colors
	// only when writing to a terminal.
	Color string
}

// ShouldColor reports whether diagnostics written to w are colored.
func (p Printer) ShouldColor(w io.Writer) bool {
	switch p.Color {
	case ColorAlways:
		return true
	case ColorAuto:
		return IsTerminal(w)
	default:
		return false
	}
}

// Fprintf writes a diagnostic.
func (p Printer) Fprintf(w io.Writer, source, format string, a ...interface{}) {
	msg := fmt.Sprintf("### %s - %s", source, fmt.Sprintf(format, a...))
	if p.ShouldColor(w) {
		diagColor.Fprintln(w, msg)
		return
	}
	fmt.Fprintln(w, msg)
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v interface{}) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
