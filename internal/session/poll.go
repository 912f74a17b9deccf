package session

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cirruslabs/breakpoint/internal/config"
)

// DefaultPollInterval bounds the load that status queries put on the
// external process.
const DefaultPollInterval = 30 * time.Second

// Poller owns the sleep/loop mechanics of the idle phase and the
// sentinel-file checks. All status interpretation stays with the
// coordinator.
type Poller struct {
	interval      time.Duration
	sentinelPaths []string
}

func NewPoller(interval time.Duration, sentinelPaths ...string) *Poller {
	return &Poller{
		interval:      interval,
		sentinelPaths: sentinelPaths,
	}
}

// DefaultSentinelPaths returns the two candidate locations of the exit
// sentinel: a fixed absolute path and a path inside the job's working
// directory.
func DefaultSentinelPaths(workingDirectory string) []string {
	return []string{
		"/" + config.SentinelName,
		filepath.Join(workingDirectory, config.SentinelName),
	}
}

// SentinelPresent reports whether the exit sentinel exists at any of the
// candidate paths.
func (poller *Poller) SentinelPresent() (string, bool) {
	for _, sentinelPath := range poller.sentinelPaths {
		if _, err := os.Stat(sentinelPath); err == nil {
			return sentinelPath, true
		}
	}

	return "", false
}

// Wait blocks for the inter-poll delay or until the context is
// cancelled.
func (poller *Poller) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(poller.interval):
		return nil
	}
}
