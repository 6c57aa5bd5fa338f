package curve

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/curvewatch/utils"
)

func newTestWatcher(t *testing.T, backend *testBackend, batchSize uint64) (*Watcher, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	watcher := NewWatcher(backend, newTestContract(t), WatcherConfig{
		PollInterval: time.Second,
		BatchSize:    batchSize,
		CallTimeout:  time.Second,
	}, logger)

	return watcher, hook
}

func TestWatcherStartsAtHead(t *testing.T) {
	backend := newTestBackend()
	backend.head = 100
	backend.logs = []types.Log{purchaseLog(t, testToken, 90)}
	watcher, _ := newTestWatcher(t, backend, 10)

	received := 0
	watcher.Subscribe(testToken, func(ev *Event) { received++ })

	require.NoError(t, watcher.Poll(context.Background()))
	assert.Equal(t, uint64(100), watcher.LastBlock())
	assert.Equal(t, 0, received)
	assert.Empty(t, backend.queries)
}

func TestWatcherPollsInChunks(t *testing.T) {
	backend := newTestBackend()
	backend.head = 100
	watcher, _ := newTestWatcher(t, backend, 10)
	require.NoError(t, watcher.Poll(context.Background()))

	backend.set(func(b *testBackend) {
		b.head = 125
		b.logs = []types.Log{
			purchaseLog(t, testToken, 101),
			purchaseLog(t, testToken2, 115),
			purchaseLog(t, testToken, 125),
		}
	})

	tokenEvents := []uint64{}
	subscription := watcher.Subscribe(testToken, func(ev *Event) {
		tokenEvents = append(tokenEvents, ev.BlockNumber)
	})
	allEvents := watcher.Events().Subscribe(10, false)

	require.NoError(t, watcher.Poll(context.Background()))
	assert.Equal(t, uint64(125), watcher.LastBlock())
	assert.Equal(t, []uint64{101, 125}, tokenEvents)
	assert.Len(t, allEvents.Channel(), 3)

	require.Len(t, backend.queries, 3)
	ranges := [][2]uint64{}
	for _, query := range backend.queries {
		ranges = append(ranges, [2]uint64{query.FromBlock.Uint64(), query.ToBlock.Uint64()})
		assert.Equal(t, testFactory, query.Addresses[0])
		assert.Len(t, query.Topics[0], 5)
	}
	assert.Equal(t, [][2]uint64{{101, 110}, {111, 120}, {121, 125}}, ranges)

	subscription.Unsubscribe()
	subscription.Unsubscribe()
	assert.Equal(t, 0, watcher.ListenerTopics())
}

func TestWatcherKeepsPositionOnFailure(t *testing.T) {
	backend := newTestBackend()
	backend.head = 100
	watcher, _ := newTestWatcher(t, backend, 1000)
	require.NoError(t, watcher.Poll(context.Background()))

	backend.set(func(b *testBackend) {
		b.head = 105
		b.logs = []types.Log{purchaseLog(t, testToken, 103)}
		b.transientFailures = 1
	})

	received := 0
	watcher.Subscribe(testToken, func(ev *Event) { received++ })

	err := watcher.Poll(context.Background())
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.Equal(t, uint64(100), watcher.LastBlock())

	require.NoError(t, watcher.Poll(context.Background()))
	assert.Equal(t, uint64(105), watcher.LastBlock())
	assert.Equal(t, 1, received)
}

func TestWatcherDropsUndecodableLogs(t *testing.T) {
	backend := newTestBackend()
	watcher, hook := newTestWatcher(t, backend, 1000)
	watcher.SetStartBlock(1)

	broken := purchaseLog(t, testToken, 2)
	broken.Data = broken.Data[:10]

	backend.set(func(b *testBackend) {
		b.head = 3
		b.logs = []types.Log{broken, purchaseLog(t, testToken, 3)}
	})

	received := 0
	watcher.Subscribe(testToken, func(ev *Event) { received++ })

	require.NoError(t, watcher.Poll(context.Background()))
	assert.Equal(t, 1, received)
	require.NotNil(t, hook.LastEntry())

	warned := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "dropping undecodable factory log" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestWatcherListenerPanic(t *testing.T) {
	backend := newTestBackend()
	watcher, _ := newTestWatcher(t, backend, 1000)
	watcher.SetStartBlock(1)
	backend.set(func(b *testBackend) {
		b.head = 1
		b.logs = []types.Log{purchaseLog(t, testToken, 1)}
	})

	watcher.Subscribe(testToken, func(ev *Event) { panic("listener failure") })

	assert.NotPanics(t, func() {
		require.NoError(t, watcher.Poll(context.Background()))
	})
}

func TestWatcherRestartsAfterPanic(t *testing.T) {
	restartDelay := utils.SubroutineRestartDelay
	utils.SubroutineRestartDelay = 20 * time.Millisecond
	t.Cleanup(func() {
		utils.SubroutineRestartDelay = restartDelay
	})

	tests := []struct {
		name     string
		shutdown bool
		calls    int
	}{
		{"running", false, 2},
		{"shutting down", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newTestBackend()
			backend.headPanics = 1
			watcher, _ := newTestWatcher(t, backend, 10)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			watcher.Start(ctx)

			require.Eventually(t, func() bool {
				backend.mutex.Lock()
				defer backend.mutex.Unlock()
				return backend.headCalls == 1
			}, time.Second, time.Millisecond)
			if tt.shutdown {
				cancel()
			}

			time.Sleep(100 * time.Millisecond)

			backend.mutex.Lock()
			defer backend.mutex.Unlock()
			assert.Equal(t, tt.calls, backend.headCalls)
		})
	}
}
