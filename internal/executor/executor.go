package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cirruslabs/breakpoint/internal/config"
	"go.uber.org/zap"
)

// Executor runs external commands to completion, capturing their output.
// It has no internal state besides its configuration.
type Executor struct {
	logger    *zap.SugaredLogger
	overrides *config.EnvironmentOverrides
}

func New(opts ...Option) *Executor {
	executor := &Executor{}

	// Apply options
	for _, opt := range opts {
		opt(executor)
	}

	// Apply defaults
	if executor.logger == nil {
		executor.logger = zap.NewNop().Sugar()
	}

	return executor
}

// Run executes the given command and returns its standard output. On a
// non-zero exit the returned error carries the command's captured
// standard error.
func (executor *Executor) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = executor.overrides.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	executor.logger.Debugf("running %s %s", name, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		details := strings.TrimSpace(stderr.String())
		if details == "" {
			details = strings.TrimSpace(stdout.String())
		}

		if details != "" {
			return "", fmt.Errorf("%s: %w (%s)", name, err, details)
		}

		return "", fmt.Errorf("%s: %w", name, err)
	}

	return stdout.String(), nil
}
