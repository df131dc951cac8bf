package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log"

	"github.com/gliderlabs/ssh"
	"github.com/juju/ratelimit"
	gossh "golang.org/x/crypto/ssh"

	"josephlewis.net/gosh/core/config"
	"josephlewis.net/gosh/core/logger"
)

// Server exposes the shell over SSH. Every accepted connection gets its
// own session against a shared interpreter.
type Server struct {
	configuration *config.Configuration
	interpreter   *Interpreter
	logger        *logger.Logger
	sshServer     *ssh.Server
}

// NewServer builds the SSH front end. Interaction events are written to
// the application log as JSON lines.
func NewServer(configuration *config.Configuration, appLog io.Writer) (*Server, error) {
	server := &Server{
		configuration: configuration,
		interpreter:   NewInterpreter(configuration),
		logger:        logger.NewJsonLinesLogRecorder(appLog),
	}

	server.sshServer = &ssh.Server{
		Addr: fmt.Sprintf(":%d", configuration.SSH.Port),
		Handler: func(s ssh.Session) {
			if err := server.HandleConnection(s); err != nil {
				log.Printf("Session from %s failed: %v", s.RemoteAddr(), err)
			}
		},
		PasswordHandler: func(ctx ssh.Context, password string) bool {
			ok := server.checkPassword(ctx.User(), password)
			server.logger.Sessionless().LoginAttempt(ok, ctx.User(), ctx.RemoteAddr().String())
			return ok
		},
	}

	pem, err := configuration.PrivateKeyPem()
	if err != nil {
		return nil, err
	}
	// Parse eagerly for a clear startup error on a corrupt key.
	if _, err := gossh.ParsePrivateKey(pem); err != nil {
		return nil, fmt.Errorf("parsing host key: %w", err)
	}
	if err := server.sshServer.SetOption(ssh.HostKeyPEM(pem)); err != nil {
		return nil, err
	}

	return server, nil
}

// checkPassword accepts a password listed for the user or in the global
// list. Every candidate is compared to keep timing flat.
func (s *Server) checkPassword(username, password string) bool {
	ok := false
	for _, candidate := range s.configuration.GetPasswords(username) {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(password)) == 1 {
			ok = true
		}
	}
	return ok
}

// HandleConnection runs a console for one SSH session.
func (s *Server) HandleConnection(sshSession ssh.Session) error {
	sessionLog := s.logger.NewSession()
	defer sessionLog.SessionEnd()

	var out io.Writer = sshSession
	if bps := s.configuration.SSH.BytesPerSecond; bps > 0 {
		bucket := ratelimit.NewBucketWithRate(float64(bps), bps)
		out = ratelimit.Writer(sshSession, bucket)
	}

	if banner := s.configuration.SSH.Banner; banner != "" {
		fmt.Fprintln(out, banner)
	}

	shellSession := s.interpreter.NewSession(sshSession, out, out)
	defer shellSession.Close()

	ctx := sshSession.Context()
	if err := s.interpreter.RunStartupScripts(ctx, shellSession); err != nil {
		sessionLog.RunScript("", err)
		fmt.Fprintf(out, "%v\n", err)
	}

	// Watch for window changes.
	ptyInfo, winch, isPty := sshSession.Pty()
	windowWidth := ptyInfo.Window.Width
	go (func() {
		for window := range winch {
			windowWidth = window.Width
		}
	})()

	console, err := NewConsole(shellSession, ConsoleOptions{
		Prompt: s.configuration.Prompt,
		WindowWidth: func() int {
			return windowWidth
		},
		IsTerminal: func() bool {
			return isPty
		},
		Log: sessionLog,
	})
	if err != nil {
		sshSession.Exit(1)
		return err
	}
	defer console.Close()

	if err := console.Run(ctx); err != nil && err != context.Canceled {
		sshSession.Exit(1)
		return err
	}

	sshSession.Exit(0)
	return nil
}

func (s *Server) ListenAndServe() error {
	log.Printf("- Starting SSH server on %s\n", s.sshServer.Addr)
	return s.sshServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.sshServer.Shutdown(ctx)
}
