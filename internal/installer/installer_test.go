package installer

import (
	"testing"

	"github.com/cirruslabs/breakpoint/internal/executor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestProbe(t *testing.T) {
	assert.Equal(t, Installed, Probe("sh"))
	assert.Equal(t, Missing, Probe("definitely-not-an-installed-binary"))
}

func TestForPlatform(t *testing.T) {
	exec := executor.New()
	logger := zap.NewNop().Sugar()

	assert.IsType(t, &LinuxInstaller{}, forPlatform("linux", exec, logger))
	assert.IsType(t, &GenericInstaller{}, forPlatform("darwin", exec, logger))
	assert.IsType(t, &GenericInstaller{}, forPlatform("windows", exec, logger))
}
