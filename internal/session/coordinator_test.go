//nolint:testpackage // the fakes need to construct Handle values directly
package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSocketGone = errors.New("admin socket disappeared")

type fakeLauncher struct {
	handle *Handle
	err    error
}

func (launcher *fakeLauncher) Launch(ctx context.Context) (*Handle, error) {
	return launcher.handle, launcher.err
}

// fakeQuerier replays a scripted sequence of results and optionally
// runs a side effect after a given number of calls.
type fakeQuerier struct {
	results []error
	calls   int

	afterCalls int
	sideEffect func()
}

func (querier *fakeQuerier) Current(ctx context.Context, handle *Handle) (string, error) {
	index := querier.calls
	querier.calls++

	if querier.sideEffect != nil && querier.calls == querier.afterCalls {
		querier.sideEffect()
	}

	if index < len(querier.results) && querier.results[index] != nil {
		return "", querier.results[index]
	}

	return "ssh example:token@example.upterm.dev", nil
}

func aliveHandle() *Handle {
	return &Handle{pid: os.Getpid()}
}

func newCoordinator(t *testing.T, launcher Launcher, querier Querier, poller *Poller) *Coordinator {
	t.Helper()

	coordinator, err := New(
		WithLauncher(launcher),
		WithQuerier(querier),
		WithPoller(poller),
	)
	require.NoError(t, err)

	return coordinator
}

func fastPoller(sentinelPaths ...string) *Poller {
	if len(sentinelPaths) == 0 {
		sentinelPaths = []string{filepath.Join(os.TempDir(), "nonexistent-sentinel")}
	}

	return NewPoller(time.Millisecond, sentinelPaths...)
}

func TestCoordinatorRequiresLauncherAndQuerier(t *testing.T) {
	_, err := New(WithQuerier(&fakeQuerier{}))
	require.ErrorIs(t, err, ErrMisconfigured)

	_, err = New(WithLauncher(&fakeLauncher{}))
	require.ErrorIs(t, err, ErrMisconfigured)
}

func TestLaunchFailureIsFatal(t *testing.T) {
	coordinator := newCoordinator(t,
		&fakeLauncher{err: errors.New("tmux new-session failed")},
		&fakeQuerier{},
		fastPoller())

	err := coordinator.Run(context.Background())
	require.ErrorIs(t, err, ErrLaunchFailed)
	assert.Equal(t, Failed, coordinator.State())
}

func TestFirstStatusQueryFailureIsFatal(t *testing.T) {
	querier := &fakeQuerier{results: []error{errSocketGone}}

	coordinator := newCoordinator(t,
		&fakeLauncher{handle: aliveHandle()},
		querier,
		fastPoller())

	err := coordinator.Run(context.Background())
	require.ErrorIs(t, err, ErrSessionFailed)
	assert.Equal(t, Failed, coordinator.State())
	assert.Equal(t, 1, querier.calls)
}

func TestSentinelBeforeFirstPollEndsAfterOneQuery(t *testing.T) {
	sentinelPath := filepath.Join(t.TempDir(), "continue")
	require.NoError(t, os.WriteFile(sentinelPath, []byte{}, 0600))

	querier := &fakeQuerier{}

	coordinator := newCoordinator(t,
		&fakeLauncher{handle: aliveHandle()},
		querier,
		fastPoller(sentinelPath))

	require.NoError(t, coordinator.Run(context.Background()))
	assert.Equal(t, Ended, coordinator.State())
	assert.Equal(t, EndedNormally, coordinator.Reason())
	assert.Equal(t, 1, querier.calls)
}

func TestStatusQueryFailureAfterActivePollEndsNormally(t *testing.T) {
	querier := &fakeQuerier{results: []error{nil, errSocketGone}}

	coordinator := newCoordinator(t,
		&fakeLauncher{handle: aliveHandle()},
		querier,
		fastPoller())

	require.NoError(t, coordinator.Run(context.Background()))
	assert.Equal(t, Ended, coordinator.State())
	assert.Equal(t, EndedRemotely, coordinator.Reason())
	assert.Equal(t, 2, querier.calls)
}

func TestConnectionStringIsReReadEveryPoll(t *testing.T) {
	sentinelPath := filepath.Join(t.TempDir(), "continue")

	querier := &fakeQuerier{
		afterCalls: 3,
		sideEffect: func() {
			require.NoError(t, os.WriteFile(sentinelPath, []byte{}, 0600))
		},
	}

	coordinator := newCoordinator(t,
		&fakeLauncher{handle: aliveHandle()},
		querier,
		fastPoller(sentinelPath))

	require.NoError(t, coordinator.Run(context.Background()))
	assert.Equal(t, EndedNormally, coordinator.Reason())

	// One activation query plus two active polls, the last of which
	// dropped the sentinel
	assert.Equal(t, 3, querier.calls)
}

func TestConnectionCallbackFiresOnce(t *testing.T) {
	querier := &fakeQuerier{results: []error{nil, nil, errSocketGone}}

	var connectionStrings []string

	coordinator, err := New(
		WithLauncher(&fakeLauncher{handle: aliveHandle()}),
		WithQuerier(querier),
		WithPoller(fastPoller()),
		WithConnectionCallback(func(connectionString string) {
			connectionStrings = append(connectionStrings, connectionString)
		}),
	)
	require.NoError(t, err)

	require.NoError(t, coordinator.Run(context.Background()))
	assert.Equal(t, []string{"ssh example:token@example.upterm.dev"}, connectionStrings)
}

func TestCancellationInterruptsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	coordinator := newCoordinator(t,
		&fakeLauncher{handle: aliveHandle()},
		&fakeQuerier{},
		NewPoller(time.Hour, filepath.Join(os.TempDir(), "nonexistent-sentinel")))

	err := coordinator.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHandleCleanupRunsOnce(t *testing.T) {
	cleanups := 0

	handle := &Handle{cleanup: func() error {
		cleanups++

		return nil
	}}

	require.NoError(t, handle.Close())
	require.NoError(t, handle.Close())
	assert.Equal(t, 1, cleanups)
}

func TestHandleAlive(t *testing.T) {
	assert.True(t, (&Handle{pid: os.Getpid()}).Alive())
	assert.False(t, (&Handle{pid: 1 << 30}).Alive())
}
