//go:build !windows

package executor_test

import (
	"context"
	"testing"

	"github.com/cirruslabs/breakpoint/internal/config"
	"github.com/cirruslabs/breakpoint/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	output, err := executor.New().Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", output)
}

func TestRunFailureCarriesStderr(t *testing.T) {
	_, err := executor.New().Run(context.Background(), "sh", "-c", "echo oh no >&2; exit 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oh no")
}

func TestRunAppliesEnvironmentOverrides(t *testing.T) {
	overrides := &config.EnvironmentOverrides{Home: "/home/elsewhere"}

	output, err := executor.New(executor.WithEnvironmentOverrides(overrides)).
		Run(context.Background(), "sh", "-c", "echo $HOME")
	require.NoError(t, err)
	assert.Equal(t, "/home/elsewhere\n", output)
}
