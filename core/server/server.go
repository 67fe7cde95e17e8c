// Package server runs shell sessions over SSH.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync/atomic"

	"github.com/gliderlabs/ssh"
	"github.com/josephlewis42/mpwsh/core/config"
	"github.com/josephlewis42/mpwsh/core/env"
	"github.com/josephlewis42/mpwsh/core/logger"
	"github.com/josephlewis42/mpwsh/core/redir"
	"github.com/josephlewis42/mpwsh/core/shell"
	"github.com/josephlewis42/mpwsh/core/ttylog"
	"github.com/juju/ratelimit"
	"github.com/spf13/afero"
)

// ContinuationPrompt is shown while a quote or block is open.
const ContinuationPrompt = "… "

type Server struct {
	configuration *config.Configuration
	logger        *logger.Logger
	sshServer     *ssh.Server
}

// New creates a server. Events from every session go to eventLog.
func New(configuration *config.Configuration, eventLog *logger.Logger) (*Server, error) {
	srv := &Server{
		configuration: configuration,
		logger:        eventLog,
	}

	srv.sshServer = &ssh.Server{
		Addr: fmt.Sprintf(":%d", configuration.Serve.Port),
		Handler: func(s ssh.Session) {
			s.Exit(srv.HandleSession(s))
		},
		PasswordHandler: srv.checkPassword,
	}

	keyPem, err := configuration.HostKeyPem()
	if err != nil {
		return nil, err
	}
	if keyPem != nil {
		if err := srv.sshServer.SetOption(ssh.HostKeyPEM(keyPem)); err != nil {
			return nil, err
		}
	}

	return srv, nil
}

func (srv *Server) checkPassword(ctx ssh.Context, password string) bool {
	want := srv.configuration.Serve.Password
	ok := want == "" || subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1

	result := "rejected"
	if ok {
		result = "accepted"
	}
	srv.logger.Sessionless().Record(logger.EventLoginAttempt, map[string]interface{}{
		"user":        ctx.User(),
		"remote_addr": fmt.Sprintf("%s", ctx.RemoteAddr()),
		"result":      result,
	})
	return ok
}

// sessionFs lets a session read the MPW directory. Writes stay in memory and
// are lost when the session ends.
func (srv *Server) sessionFs() afero.Fs {
	mem := afero.NewMemMapFs()
	root := srv.configuration.MPW()
	if root == "" {
		return mem
	}
	base := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), root))
	return afero.NewCopyOnWriteFs(base, mem)
}

// sessionEnv builds the variables for a session: the configured ones, then
// the client's environment exported, then {User}.
func (srv *Server) sessionEnv(s ssh.Session) *env.Environment {
	e := srv.configuration.NewEnvironment()
	e.Set("MPW", "/", false)

	for _, kv := range s.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok && name != "" {
			e.Set(name, value, true)
		}
	}
	e.Set("User", s.User(), false)
	return e
}

// startRecording creates the session's asciicast recording. It returns nil
// if sessions aren't recorded.
func (srv *Server) startRecording(sessionID string, s ssh.Session) (*ttylog.Recorder, io.Closer) {
	fd, err := srv.configuration.CreateRecording(sessionID + "." + ttylog.AsciicastFileExt)
	if err != nil {
		log.Printf("Error creating recording: %v", err)
		return nil, nil
	}
	if fd == nil {
		return nil, nil
	}

	ptyInfo, _, _ := s.Pty()
	header := ttylog.Header{
		Width:  ptyInfo.Window.Width,
		Height: ptyInfo.Window.Height,
		Title:  fmt.Sprintf("%s@mpwsh", s.User()),
	}
	if ptyInfo.Term != "" {
		header.Env = map[string]string{"TERM": ptyInfo.Term}
	}

	rec, err := ttylog.NewRecorder(fd, header)
	if err != nil {
		log.Printf("Error creating recording: %v", err)
		fd.Close()
		return nil, nil
	}
	return rec, fd
}

// HandleSession runs one session and returns its exit status. A session with
// a command runs it as a script; otherwise the shell reads commands
// interactively.
func (srv *Server) HandleSession(s ssh.Session) int {
	sessionLogger := srv.logger.NewSession()

	var in io.Reader = s
	var out, errOut io.Writer = s, s.Stderr()
	if rec, fd := srv.startRecording(sessionLogger.SessionID(), s); rec != nil {
		defer fd.Close()
		in = io.TeeReader(in, rec.Input())
		out = io.MultiWriter(out, rec.Output())
		errOut = io.MultiWriter(errOut, rec.Output())
	}
	if rate := srv.configuration.Serve.OutputRate; rate > 0 {
		bucket := ratelimit.NewBucketWithRate(float64(rate), rate)
		out = ratelimit.Writer(out, bucket)
		errOut = ratelimit.Writer(errOut, bucket)
	}

	sh := shell.New(srv.sessionEnv(s), redir.Fds{In: in, Out: out, Err: errOut})
	sh.Dialect = srv.configuration.Dialect.Table()
	sh.Fs = srv.sessionFs()
	sh.Printer = shell.Printer{Color: srv.configuration.Color}
	sh.Events = sessionLogger
	sh.DisableExternal = true
	if err := sh.Chdir("/"); err != nil {
		fmt.Fprintf(errOut, "### %s - %v\n", shell.ShellName, err)
		return 1
	}

	ptyInfo, winch, isPTY := s.Pty()
	mode := shell.Script
	if s.RawCommand() == "" {
		mode = shell.Interactive
	}

	sessionLogger.Record(logger.EventSessionStart, map[string]interface{}{
		"mode":        mode.String(),
		"user":        s.User(),
		"remote_addr": fmt.Sprintf("%s", s.RemoteAddr()),
		"command":     s.RawCommand(),
		"term":        ptyInfo.Term,
	})

	var status int
	if mode == shell.Script {
		status = sh.NewRunner(shell.Script).RunString(s.RawCommand() + "\n")
	} else {
		status = srv.interactive(sh, ptyInfo.Window.Width, winch, isPTY)
	}

	sessionLogger.Record(logger.EventSessionEnd, map[string]interface{}{
		"status": status,
	})
	return status
}

func (srv *Server) interactive(sh *shell.Shell, width int, winch <-chan ssh.Window, isPTY bool) int {
	currentWidth := int64(width)

	// Watch for window changes.
	if isPTY {
		go func() {
			for window := range winch {
				atomic.StoreInt64(&currentWidth, int64(window.Width))
			}
		}()
	}

	if startup := srv.configuration.Startup; startup != "" {
		if exists, _ := afero.Exists(sh.Fs, "/"+startup); exists {
			r := sh.NewRunner(shell.Script)
			if err := r.RunFile("/" + startup); err != nil {
				sh.Printer.Fprintf(sh.IO.Stderr(), shell.ShellName, "%v", err)
			}
			r.Finish()
		}
	}

	rl, err := shell.NewLineEditor(shell.EditorConfig{
		In:  sh.IO.Stdin(),
		Out: sh.IO.Stdout(),
		Err: sh.IO.Stderr(),
		IsTerminal: func() bool {
			return isPTY
		},
		Width: func() int {
			return int(atomic.LoadInt64(&currentWidth))
		},
	})
	if err != nil {
		sh.Printer.Fprintf(sh.IO.Stderr(), shell.ShellName, "%v", err)
		return 1
	}
	defer rl.Close()

	return sh.RunInteractive(rl, srv.configuration.Prompt, ContinuationPrompt)
}

// Serve accepts connections on l.
func (srv *Server) Serve(l net.Listener) error {
	log.Printf("- Starting SSH server on %s\n", l.Addr())
	return srv.sshServer.Serve(l)
}

// ListenAndServe listens on the configured port.
func (srv *Server) ListenAndServe() error {
	log.Printf("- Starting SSH server on %s\n", srv.sshServer.Addr)
	return srv.sshServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for sessions to end.
func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.sshServer.Shutdown(ctx)
}

// Close stops the server immediately.
func (srv *Server) Close() error {
	return srv.sshServer.Close()
}
