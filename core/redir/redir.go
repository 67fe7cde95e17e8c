// Package redir holds the standard stream triple a command runs with.
package redir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Fds is the {stdin, stdout, stderr} triple. A nil slot inherits the
// enclosing scope's stream.
type Fds struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Inherit fills unset slots from parent.
func (f Fds) Inherit(parent Fds) Fds {
	if f.In == nil {
		f.In = parent.In
	}
	if f.Out == nil {
		f.Out = parent.Out
	}
	if f.Err == nil {
		f.Err = parent.Err
	}
	return f
}

// Stdin returns the input stream, or an empty reader if it is unset.
func (f Fds) Stdin() io.Reader {
	if f.In == nil {
		return &devNull{}
	}
	return f.In
}

// Stdout returns the output stream, or a discarding writer if it is unset.
func (f Fds) Stdout() io.Writer {
	if f.Out == nil {
		return &devNull{}
	}
	return f.Out
}

// Stderr returns the diagnostic stream, or a discarding writer if it is
// unset.
func (f Fds) Stderr() io.Writer {
	if f.Err == nil {
		return &devNull{}
	}
	return f.Err
}

// devNull reads as empty and discards writes.
type devNull struct{}

var _ io.Reader = (*devNull)(nil)
var _ io.Writer = (*devNull)(nil)

func (*devNull) Read([]byte) (int, error) {
	return 0, io.EOF
}

func (*devNull) Write(b []byte) (int, error) {
	return len(b), nil
}

// Op is a redirection operator.
type Op int

const (
	In Op = iota
	Out
	OutAppend
	Err
	ErrAppend
	Both
	BothAppend
)

var ops = map[string]Op{
	"<":  In,
	">":  Out,
	">>": OutAppend,
	"≥":  Err,
	"≥≥": ErrAppend,
	"∑":  Both,
	"∑∑": BothAppend,
}

// ParseOp looks up a redirection operator.
func ParseOp(s string) (Op, bool) {
	op, ok := ops[s]
	return op, ok
}

// Target is one redirection: an operator and the file it names.
type Target struct {
	Op   Op
	Path string
}

// Pseudo-device names, matched without regard to case.
const (
	DevNull   = "dev:null"
	DevStdout = "dev:stdout"
	DevStderr = "dev:stderr"
)

// ListCloser closes every element, returning the last error.
type ListCloser []io.Closer

func (lc ListCloser) Close() error {
	var lastErr error
	for _, v := range lc {
		if err := v.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Open applies targets on top of parent. Relative paths are resolved
// against dir. The returned closer releases any opened files.
func Open(fs afero.Fs, dir string, targets []Target, parent Fds) (Fds, io.Closer, error) {
	var toClose ListCloser
	out := parent

	for _, t := range targets {
		if t.Op == In {
			r, err := openInput(fs, dir, t.Path)
			if err != nil {
				toClose.Close()
				return Fds{}, nil, err
			}
			if c, ok := r.(io.Closer); ok {
				toClose = append(toClose, c)
			}
			out.In = r
			continue
		}

		w, closer, err := openOutput(fs, dir, t, parent)
		if err != nil {
			toClose.Close()
			return Fds{}, nil, err
		}
		if closer != nil {
			toClose = append(toClose, closer)
		}
		switch t.Op {
		case Out, OutAppend:
			out.Out = w
		case Err, ErrAppend:
			out.Err = w
		case Both, BothAppend:
			out.Out, out.Err = w, w
		}
	}

	return out, toClose, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func openInput(fs afero.Fs, dir, path string) (io.Reader, error) {
	switch strings.ToLower(path) {
	case DevNull:
		return &devNull{}, nil
	case DevStdout, DevStderr:
		return nil, fmt.Errorf("%s is not readable", path)
	}
	return fs.Open(resolve(dir, path))
}

func openOutput(fs afero.Fs, dir string, t Target, parent Fds) (io.Writer, io.Closer, error) {
	switch strings.ToLower(t.Path) {
	case DevNull:
		return &devNull{}, nil, nil
	case DevStdout:
		return parent.Stdout(), nil, nil
	case DevStderr:
		return parent.Stderr(), nil, nil
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if t.Op == OutAppend || t.Op == ErrAppend || t.Op == BothAppend {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	fd, err := fs.OpenFile(resolve(dir, t.Path), flags, 0644)
	if err != nil {
		return nil, nil, err
	}
	return fd, fd, nil
}
