package tmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionArgs(t *testing.T) {
	args := newSessionArgs("/tmp/scratch/tmux.sock", "wrapper", "upterm host -- tmux new -s debug")

	assert.Equal(t, []string{
		"-f", "/dev/null",
		"-S", "/tmp/scratch/tmux.sock",
		"new-session", "-d", "-s", "wrapper",
		"upterm host -- tmux new -s debug",
	}, args)
}

func TestIsBenignKillError(t *testing.T) {
	assert.True(t, isBenignKillError("can't find session: wrapper"))
	assert.True(t, isBenignKillError("no server running on /tmp/tmux.sock"))
	assert.True(t, isBenignKillError("error connecting to /tmp/tmux.sock (server exited unexpectedly)"))
	assert.False(t, isBenignKillError("lost server"))
}
