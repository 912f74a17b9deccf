package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrMisconfigured = errors.New("session coordinator misconfigured")
	ErrLaunchFailed  = errors.New("failed to launch the debugging session")
	ErrSessionFailed = errors.New("debugging session failed to report its status")
)

type State int

const (
	Uninitialized State = iota
	Provisioning
	Active
	Ended
	Failed
)

func (state State) String() string {
	switch state {
	case Provisioning:
		return "provisioning"
	case Active:
		return "active"
	case Ended:
		return "ended"
	case Failed:
		return "failed"
	default:
		return "uninitialized"
	}
}

type EndReason int

const (
	EndedNormally EndReason = iota
	EndedRemotely
)

type ConnectionCallback func(connectionString string)

// Coordinator owns the transition from "no session" to "terminated" and
// is the sole decision point for the process's exit status: a nil error
// from Run means the session ended in an expected way, anything else is
// a setup failure.
//
// At most one session handle exists per run. The coordinator never
// retries session creation: a launch failure, or a failure of the very
// first status query after the launch, unwinds the whole run.
type Coordinator struct {
	logger             *zap.SugaredLogger
	launcher           Launcher
	querier            Querier
	poller             *Poller
	connectionCallback ConnectionCallback

	state  State
	reason EndReason
}

func New(opts ...Option) (*Coordinator, error) {
	coordinator := &Coordinator{}

	// Apply options
	for _, opt := range opts {
		opt(coordinator)
	}

	// Apply defaults
	if coordinator.logger == nil {
		coordinator.logger = zap.NewNop().Sugar()
	}
	if coordinator.poller == nil {
		coordinator.poller = NewPoller(DefaultPollInterval, DefaultSentinelPaths("")...)
	}

	// Sanity check
	if coordinator.launcher == nil {
		return nil, fmt.Errorf("%w: no launcher provided", ErrMisconfigured)
	}
	if coordinator.querier == nil {
		return nil, fmt.Errorf("%w: no status querier provided", ErrMisconfigured)
	}

	return coordinator, nil
}

func (coordinator *Coordinator) State() State {
	return coordinator.state
}

func (coordinator *Coordinator) Reason() EndReason {
	return coordinator.reason
}

// Run drives the session from launch to termination. All setup
// (keys, trust store, authorized users) must be complete before Run is
// called.
func (coordinator *Coordinator) Run(ctx context.Context) error {
	coordinator.state = Provisioning

	handle, err := coordinator.launcher.Launch(ctx)
	if err != nil {
		coordinator.state = Failed

		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	defer func() {
		if err := handle.Close(); err != nil {
			coordinator.logger.Warnf("failed to clean up the session: %v", err)
		}
	}()

	// The first status query doubles as the launch handshake: a session
	// that can't report a connection string right after being created
	// never worked in the first place.
	connectionString, err := coordinator.querier.Current(ctx, handle)
	if err != nil {
		coordinator.state = Failed

		return fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}

	coordinator.state = Active
	coordinator.logger.Infof("debugging session is ready: %s", connectionString)

	if coordinator.connectionCallback != nil {
		coordinator.connectionCallback(connectionString)
	}

	for {
		if path, ok := coordinator.poller.SentinelPresent(); ok {
			coordinator.logger.Infof("exit signal found at %s, ending the debugging session", path)
			coordinator.state, coordinator.reason = Ended, EndedNormally

			return nil
		}

		// The connection string ought to be stable, but we don't assume
		// that and re-read it on every poll
		connectionString, err = coordinator.querier.Current(ctx, handle)
		if err != nil {
			if handle.Alive() {
				coordinator.logger.Infof("admin socket is gone (%v), session was closed remotely", err)
			} else {
				coordinator.logger.Infof("terminal-sharing process exited (%v), session was closed remotely", err)
			}

			coordinator.state, coordinator.reason = Ended, EndedRemotely

			return nil
		}

		coordinator.logger.Infof("debugging session is still active: %s", connectionString)

		if err := coordinator.poller.Wait(ctx); err != nil {
			coordinator.logger.Warnf("interrupted, exiting immediately: %v", err)

			return err
		}
	}
}
