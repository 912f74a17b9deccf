package session

import (
	"github.com/shirou/gopsutil/v3/process"
)

// Handle represents the running terminal-sharing process: an opaque
// admin socket to query it through and a liveness predicate. It is
// created once the session is launched and only ever queried afterwards.
type Handle struct {
	adminSocket string
	pid         int
	cleanup     func() error
}

// AdminSocket returns the path of the daemon's admin socket.
func (handle *Handle) AdminSocket() string {
	return handle.adminSocket
}

// Alive reports whether the terminal-sharing process still appears to be
// running. When the process was launched directly its PID is known;
// when it runs inside the multiplexer we can only scan for it by name.
func (handle *Handle) Alive() bool {
	if handle.pid != 0 {
		alive, err := process.PidExists(int32(handle.pid))

		return err == nil && alive
	}

	processes, err := process.Processes()
	if err != nil {
		return false
	}

	for _, candidate := range processes {
		if name, err := candidate.Name(); err == nil && name == "upterm" {
			return true
		}
	}

	return false
}

// Close releases whatever the launcher left behind (the wrapper
// multiplexer session or the PTY). Safe to call when there's nothing to
// release.
func (handle *Handle) Close() error {
	if handle.cleanup == nil {
		return nil
	}

	cleanup := handle.cleanup
	handle.cleanup = nil

	return cleanup()
}
