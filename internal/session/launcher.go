package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cirruslabs/breakpoint/internal/tmux"
	"github.com/creack/pty"
	"go.uber.org/zap"
)

var ErrNoAdminSocket = errors.New("terminal-sharing daemon did not create an admin socket")

const (
	// WrapperSessionName is the detached multiplexer session the daemon
	// itself runs in, InnerSessionName the one shared with the guests.
	WrapperSessionName = "breakpoint-wrapper"
	InnerSessionName   = "breakpoint"

	adminSocketWaitTimeout = 30 * time.Second
	adminSocketProbeDelay  = 250 * time.Millisecond
)

// Launcher creates the terminal-sharing session and resolves a handle
// to it. A launcher is used at most once per run.
type Launcher interface {
	Launch(ctx context.Context) (*Handle, error)
}

// LaunchConfig is what both launcher flavors need to know. Env must
// agree with HomeDir: the daemon resolves ~/.upterm from its own HOME,
// and the admin socket is awaited underneath HomeDir.
type LaunchConfig struct {
	ServerAddress      string
	AuthorizedKeysPath string
	HomeDir            string
	Env                []string
}

// hostArgs builds the argument list for "upterm host". With a
// multiplexer available the shared command is a named tmux session that
// guests get force-attached to; without one the daemon hosts a plain
// shell.
func hostArgs(config LaunchConfig, withMultiplexer bool) []string {
	args := []string{"host", "--server", ensureSSHScheme(config.ServerAddress)}

	if config.AuthorizedKeysPath != "" {
		args = append(args, "--authorized-keys", config.AuthorizedKeysPath)
	}

	if withMultiplexer {
		args = append(args,
			"--force-command", "tmux attach -t "+InnerSessionName,
			"--", "tmux", "new", "-s", InnerSessionName)
	}

	return args
}

func ensureSSHScheme(serverAddress string) string {
	if strings.Contains(serverAddress, "://") {
		return serverAddress
	}

	return "ssh://" + serverAddress
}

// awaitAdminSocket waits for the daemon to create its admin socket
// underneath ~/.upterm and returns its path.
func awaitAdminSocket(ctx context.Context, homeDir string) (string, error) {
	socketGlob := filepath.Join(homeDir, ".upterm", "*.sock")

	deadline := time.Now().Add(adminSocketWaitTimeout)

	for {
		if matches, err := filepath.Glob(socketGlob); err == nil && len(matches) != 0 {
			return matches[0], nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w at %s", ErrNoAdminSocket, socketGlob)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(adminSocketProbeDelay):
		}
	}
}

// TmuxLauncher runs the daemon inside a detached multiplexer session,
// which both detaches it from our controlling terminal and keeps the
// shared session around independently of guest connections.
type TmuxLauncher struct {
	logger *zap.SugaredLogger
	server *tmux.Server
	config LaunchConfig
}

func NewTmuxLauncher(server *tmux.Server, config LaunchConfig, logger *zap.SugaredLogger) *TmuxLauncher {
	return &TmuxLauncher{
		logger: logger,
		server: server,
		config: config,
	}
}

func (launcher *TmuxLauncher) Launch(ctx context.Context) (*Handle, error) {
	command := shellJoin(append([]string{"upterm"}, hostArgs(launcher.config, true)...))

	launcher.logger.Debugf("creating wrapper session: %s", command)

	if err := launcher.server.NewSession(ctx, WrapperSessionName, command); err != nil {
		return nil, err
	}

	adminSocket, err := awaitAdminSocket(ctx, launcher.config.HomeDir)
	if err != nil {
		_ = launcher.server.KillSession(context.WithoutCancel(ctx), WrapperSessionName)

		return nil, err
	}

	return &Handle{
		adminSocket: adminSocket,
		cleanup: func() error {
			return launcher.server.KillSession(context.Background(), WrapperSessionName)
		},
	}, nil
}

// PTYLauncher runs the daemon directly underneath a pseudo-terminal.
// This is the fallback for machines without a multiplexer: the daemon
// insists on a terminal, so we hand it one ourselves.
type PTYLauncher struct {
	logger *zap.SugaredLogger
	config LaunchConfig
}

func NewPTYLauncher(config LaunchConfig, logger *zap.SugaredLogger) *PTYLauncher {
	return &PTYLauncher{
		logger: logger,
		config: config,
	}
}

func (launcher *PTYLauncher) Launch(ctx context.Context) (*Handle, error) {
	cmd := exec.Command("upterm", hostArgs(launcher.config, false)...)
	cmd.Env = launcher.config.Env

	ptyFile, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	launcher.logger.Debugf("started terminal-sharing daemon with PID %d", cmd.Process.Pid)

	// Keep the PTY drained so the daemon never blocks on writes
	go func() {
		_, _ = io.Copy(io.Discard, ptyFile)
	}()

	cleanup := func() error {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()

		return ptyFile.Close()
	}

	adminSocket, err := awaitAdminSocket(ctx, launcher.config.HomeDir)
	if err != nil {
		_ = cleanup()

		return nil, err
	}

	return &Handle{
		adminSocket: adminSocket,
		pid:         cmd.Process.Pid,
		cleanup:     cleanup,
	}, nil
}

// shellJoin quotes the arguments that need it and joins them into one
// shell command, the form tmux new-session expects.
func shellJoin(args []string) string {
	quoted := make([]string, 0, len(args))

	for _, arg := range args {
		if strings.ContainsAny(arg, " \t'\"$&|;<>()*?") {
			arg = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		}

		quoted = append(quoted, arg)
	}

	return strings.Join(quoted, " ")
}
