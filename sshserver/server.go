package sshserver

import (
	"context"
	"errors"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"github.com/kvterm/kvterm/console"
	"github.com/kvterm/kvterm/internal/logx"
	"github.com/kvterm/kvterm/schema"
	"pkt.systems/pslog"
)

// LoginAuthStore validates SSH login credentials.
type LoginAuthStore interface {
	ValidatePassword(username, password string) error
	ValidateTOTP(username, totpCode string) error
	HasTOTP(username string) bool
}

// Server exposes the kvterm console over SSH.
type Server struct {
	Addr        string
	HostKeyPath string
	Listener    net.Listener
	Executor    console.Executor
	Prompt      string
	AuthStore   LoginAuthStore
	logger      pslog.Logger
}

type authContextKey string

const loginPasswordOK authContextKey = "login-password-ok"

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Prompt == "" {
		s.Prompt = "> "
	}
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	if s.AuthStore == nil {
		return errors.New("auth store is required for SSH")
	}

	server := &gliderssh.Server{
		Addr:                       s.Addr,
		Handler:                    s.handleSession,
		PasswordHandler:            s.handlePassword,
		KeyboardInteractiveHandler: s.handleKeyboardInteractive,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

// handlePassword validates the password stage. When the user has a TOTP
// secret enrolled, it records success and returns false so the client
// falls through to keyboard-interactive for the second factor.
func (s *Server) handlePassword(ctx gliderssh.Context, password string) bool {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	remote := remoteAddr(ctx)
	username := ctx.User()
	if username == "" {
		log.Warn("ssh password rejected", "reason", "missing user", "remote", remote)
		return false
	}
	log = log.With("user", username, "remote", remote)
	if sshSession := ctx.SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	if err := s.AuthStore.ValidatePassword(username, password); err != nil {
		log.Warn("ssh password rejected", "err", err)
		return false
	}
	if !s.AuthStore.HasTOTP(username) {
		log.Info("ssh password accepted")
		return true
	}
	ctx.SetValue(loginPasswordOK, true)
	log.Info("ssh password accepted", "next", "totp")
	return false
}

func (s *Server) handleKeyboardInteractive(ctx gliderssh.Context, challenger ssh.KeyboardInteractiveChallenge) bool {
	if ctx.Value(loginPasswordOK) != true {
		return false
	}
	log := s.logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	remote := remoteAddr(ctx)
	username := ctx.User()
	log = log.With("user", username, "remote", remote)
	if sshSession := ctx.SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	answers, err := challenger(username, "", []string{"Verification code: "}, []bool{false})
	if err != nil {
		log.Warn("ssh totp rejected", "reason", "challenge failed", "err", err)
		return false
	}
	if len(answers) != 1 {
		log.Warn("ssh totp rejected", "reason", "invalid answer count", "count", len(answers))
		return false
	}
	if err := s.AuthStore.ValidateTOTP(username, answers[0]); err != nil {
		log.Warn("ssh totp rejected", "reason", "invalid code", "err", err)
		return false
	}
	log.Info("ssh totp accepted")
	return true
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	userID := schema.UserID(sess.User())
	remote := sess.RemoteAddr().String()
	if userID == "" {
		log.Info("ssh session rejected", "reason", "missing user", "remote", remote)
		_, _ = io.WriteString(sess, "missing user\n")
		return
	}
	log = log.With("user", userID, "remote", remote)
	if sshSession := sess.Context().SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	ctx := logx.ContextWithUserLogger(sess.Context(), log, userID)

	pty, _, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		return
	}

	log.Info("ssh session opened", "term", pty.Term)
	ui := console.NewSession(sess, sess, s.Executor, console.Config{
		Prompt: s.Prompt,
		Logger: log,
	})
	if err := ui.Run(ctx); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("ssh session error", "err", err)
	}
	log.Info("ssh session closed", "term", pty.Term)
}
