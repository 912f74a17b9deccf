package sshenv

import (
	"context"
	"net"
	"strings"

	"github.com/cirruslabs/breakpoint/internal/executor"
	"go.uber.org/zap"
)

// SSHProbe returns a ProbeFunc that makes a single throwaway SSH
// connection to the session server. The connection runs "false" and is
// expected to fail; all it needs to achieve is populating the trust
// store with the server's host key, so the exit status is ignored.
func SSHProbe(exec *executor.Executor, knownHostsPath string, logger *zap.SugaredLogger) ProbeFunc {
	return func(ctx context.Context, server string) error {
		args := []string{
			"-o", "StrictHostKeyChecking=no",
			"-o", "UserKnownHostsFile=" + knownHostsPath,
		}

		if port := serverPort(server); port != "" {
			args = append(args, "-p", port)
		}

		args = append(args, serverHost(server), "false")

		if _, err := exec.Run(ctx, "ssh", args...); err != nil {
			logger.Debugf("throwaway connection to %s finished: %v", server, err)
		}

		return nil
	}
}

func serverPort(server string) string {
	server = strings.TrimPrefix(server, "ssh://")

	if _, port, err := net.SplitHostPort(server); err == nil {
		return port
	}

	return ""
}
