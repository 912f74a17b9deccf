// Package tmux wraps a dedicated tmux server identified by its socket
// path. The debugging session gets its own server (the -S flag is always
// passed) so that it can never collide with a tmux server the CI job
// itself might be running, and -f /dev/null keeps any ambient tmux
// configuration from leaking in.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type Server struct {
	socketPath string
	env        []string
}

// NewServer returns a Server that targets the given socket path. A
// non-nil env is what the tmux server and everything it spawns will run
// with; nil inherits the ambient process environment.
func NewServer(socketPath string, env []string) *Server {
	return &Server{
		socketPath: socketPath,
		env:        env,
	}
}

func (server *Server) SocketPath() string {
	return server.socketPath
}

// NewSession creates a detached session running the given shell command.
// This may start the tmux server as a side effect.
func (server *Server) NewSession(ctx context.Context, name string, shellCommand string) error {
	args := newSessionArgs(server.socketPath, name, shellCommand)

	cmd := exec.CommandContext(ctx, "tmux", args...)
	cmd.Env = server.env

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tmux new-session %q: %w (%s)",
			name, err, strings.TrimSpace(string(output)))
	}

	return nil
}

func newSessionArgs(socketPath string, name string, shellCommand string) []string {
	return []string{"-f", "/dev/null", "-S", socketPath, "new-session", "-d", "-s", name, shellCommand}
}

// HasSession reports whether the named session exists. A server that is
// not running simply has no sessions.
func (server *Server) HasSession(ctx context.Context, name string) bool {
	cmd := exec.CommandContext(ctx, "tmux", "-S", server.socketPath, "has-session", "-t", name)
	cmd.Env = server.env

	return cmd.Run() == nil
}

// KillSession terminates the named session. A session that is already
// gone is a normal condition during cleanup, not an error.
func (server *Server) KillSession(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "tmux", "-S", server.socketPath, "kill-session", "-t", name)
	cmd.Env = server.env

	if output, err := cmd.CombinedOutput(); err != nil {
		outputString := strings.TrimSpace(string(output))

		if isBenignKillError(outputString) {
			return nil
		}

		return fmt.Errorf("tmux kill-session %q: %w (%s)", name, err, outputString)
	}

	return nil
}

func isBenignKillError(output string) bool {
	return strings.Contains(output, "can't find session") ||
		strings.Contains(output, "no server running") ||
		strings.Contains(output, "server exited unexpectedly")
}
