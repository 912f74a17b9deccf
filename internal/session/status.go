package session

import (
	"context"
	"strings"

	"github.com/cirruslabs/breakpoint/internal/executor"
)

// Querier recomputes the session's status by asking the external
// process. A returned error means the session can no longer be queried;
// how fatal that is depends on whether the session was ever active.
type Querier interface {
	Current(ctx context.Context, handle *Handle) (string, error)
}

// UptermQuerier asks the upterm daemon for the current session over its
// admin socket and extracts the connection string.
type UptermQuerier struct {
	executor *executor.Executor
}

func NewUptermQuerier(exec *executor.Executor) *UptermQuerier {
	return &UptermQuerier{executor: exec}
}

func (querier *UptermQuerier) Current(ctx context.Context, handle *Handle) (string, error) {
	output, err := querier.executor.Run(ctx, "upterm", "session", "current",
		"--admin-socket", handle.AdminSocket())
	if err != nil {
		return "", err
	}

	return parseConnectionString(output), nil
}

// parseConnectionString extracts the "SSH Session:" value from the
// daemon's status output, falling back to the whole output when the
// format is not recognized.
func parseConnectionString(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "SSH Session:"); ok {
			return strings.TrimSpace(rest)
		}
	}

	return strings.TrimSpace(output)
}
