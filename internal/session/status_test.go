//nolint:testpackage // parseConnectionString and hostArgs are deliberately unexported
package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const uptermStatusOutput = `=== IQJILXO5V2HPF32QY3XO
Command:                tmux new -s breakpoint
Force Command:          tmux attach -t breakpoint
Host:                   ssh://example.upterm.dev:22
SSH Session:            ssh IqJilXo5:token@example.upterm.dev
`

func TestParseConnectionString(t *testing.T) {
	assert.Equal(t, "ssh IqJilXo5:token@example.upterm.dev",
		parseConnectionString(uptermStatusOutput))

	// Unrecognized output is passed through as-is
	assert.Equal(t, "something unexpected",
		parseConnectionString("something unexpected\n"))
}

func TestHostArgs(t *testing.T) {
	config := LaunchConfig{
		ServerAddress:      "example.upterm.dev:22",
		AuthorizedKeysPath: "/home/ci/.ssh/authorized_keys",
	}

	assert.Equal(t, []string{
		"host",
		"--server", "ssh://example.upterm.dev:22",
		"--authorized-keys", "/home/ci/.ssh/authorized_keys",
		"--force-command", "tmux attach -t " + InnerSessionName,
		"--", "tmux", "new", "-s", InnerSessionName,
	}, hostArgs(config, true))

	assert.Equal(t, []string{
		"host",
		"--server", "ssh://example.upterm.dev:22",
	}, hostArgs(LaunchConfig{ServerAddress: "ssh://example.upterm.dev:22"}, false))
}

func TestShellJoinQuoting(t *testing.T) {
	assert.Equal(t,
		"upterm host --force-command 'tmux attach -t breakpoint'",
		shellJoin([]string{"upterm", "host", "--force-command", "tmux attach -t breakpoint"}))
}

func TestDefaultSentinelPaths(t *testing.T) {
	assert.Equal(t, []string{"/continue", "/workspace/continue"},
		DefaultSentinelPaths("/workspace"))
}
