package curve

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/utils"
)

// Snapshot is the last known state of a tracked token.
// A failed read keeps the previous state and marks the snapshot stale.
type Snapshot struct {
	State       *TokenChainState `json:"state"`
	Progress    Progress         `json:"progress"`
	Stale       bool             `json:"stale"`
	LastError   error            `json:"-"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

type TrackerConfig struct {
	PollInterval time.Duration
}

// Tracker keeps reference counted snapshots of observed tokens fresh
type Tracker struct {
	ctx    context.Context
	reader *Reader
	config TrackerConfig
	logger logrus.FieldLogger

	mutex  sync.Mutex
	tokens map[common.Address]*trackedToken
}

type trackedToken struct {
	token       common.Address
	refCount    int
	snapshot    atomic.Pointer[Snapshot]
	readMutex   sync.Mutex
	refreshChan chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewTracker(ctx context.Context, reader *Reader, config TrackerConfig, logger logrus.FieldLogger) *Tracker {
	return &Tracker{
		ctx:    ctx,
		reader: reader,
		config: config,
		logger: logger,
		tokens: map[common.Address]*trackedToken{},
	}
}

// Watch starts tracking token. The returned release func stops tracking once all watchers released it.
func (t *Tracker) Watch(token common.Address) (release func()) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	tracked := t.tokens[token]
	if tracked == nil {
		tracked = &trackedToken{
			token:       token,
			refreshChan: make(chan struct{}, 1),
		}
		tracked.ctx, tracked.cancel = context.WithCancel(t.ctx)
		t.tokens[token] = tracked

		go t.runPollLoop(tracked)
		trackedTokens.Inc()
	}
	tracked.refCount++

	var once sync.Once
	return func() {
		once.Do(func() {
			t.release(tracked)
		})
	}
}

func (t *Tracker) release(tracked *trackedToken) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	tracked.refCount--
	if tracked.refCount > 0 {
		return
	}

	tracked.cancel()
	if t.tokens[tracked.token] == tracked {
		delete(t.tokens, tracked.token)
		trackedTokens.Dec()
	}

	t.logger.WithField("token", tracked.token.Hex()).Debugf("stopped tracking token")
}

func (t *Tracker) getTracked(token common.Address) *trackedToken {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.tokens[token]
}

// GetSnapshot returns the snapshot of token and whether it is tracked.
// A tracked token without a successful read yet returns a nil snapshot.
func (t *Tracker) GetSnapshot(token common.Address) (*Snapshot, bool) {
	tracked := t.getTracked(token)
	if tracked == nil {
		return nil, false
	}

	return tracked.snapshot.Load(), true
}

// Refresh schedules an immediate re-read of a tracked token
func (t *Tracker) Refresh(token common.Address) {
	tracked := t.getTracked(token)
	if tracked == nil {
		return
	}

	select {
	case tracked.refreshChan <- struct{}{}:
	default:
	}
}

// RefreshNow reads token synchronously. The result is stored if the token is tracked.
func (t *Tracker) RefreshNow(ctx context.Context, token common.Address) (*Snapshot, error) {
	tracked := t.getTracked(token)
	if tracked == nil {
		state, err := t.reader.Read(ctx, token)
		if err != nil {
			return nil, err
		}

		return &Snapshot{
			State:       state,
			Progress:    ComputeProgress(state),
			LastUpdated: state.LastUpdated,
		}, nil
	}

	return t.readTracked(ctx, tracked)
}

// Tokens returns all tracked token addresses
func (t *Tracker) Tokens() []common.Address {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	tokens := make([]common.Address, 0, len(t.tokens))
	for token := range t.tokens {
		tokens = append(tokens, token)
	}

	return tokens
}

func (t *Tracker) runPollLoop(tracked *trackedToken) {
	defer utils.HandleSubroutinePanic("curve.Tracker.runPollLoop", func() {
		if tracked.ctx.Err() == nil {
			t.runPollLoop(tracked)
		}
	})

	ticker := time.NewTicker(t.config.PollInterval)
	defer ticker.Stop()

	for {
		if tracked.ctx.Err() != nil {
			return
		}

		t.readTracked(tracked.ctx, tracked)

		select {
		case <-tracked.ctx.Done():
			return
		case <-ticker.C:
		case <-tracked.refreshChan:
		}
	}
}

func (t *Tracker) readTracked(ctx context.Context, tracked *trackedToken) (*Snapshot, error) {
	tracked.readMutex.Lock()
	defer tracked.readMutex.Unlock()

	state, err := t.reader.Read(ctx, tracked.token)
	if err != nil {
		if tracked.ctx.Err() != nil {
			// released while reading
			return tracked.snapshot.Load(), err
		}

		logger := t.logger.WithError(err).WithField("token", tracked.token.Hex())
		if ErrorKindOf(err).Transient() {
			logger.Debugf("token read failed, keeping last snapshot")
		} else {
			logger.Warnf("token read failed, keeping last snapshot")
		}

		previous := tracked.snapshot.Load()
		if previous == nil {
			return nil, err
		}

		stale := *previous
		stale.Stale = true
		stale.LastError = err
		tracked.snapshot.Store(&stale)

		return &stale, err
	}

	snapshot := &Snapshot{
		State:       state,
		Progress:    ComputeProgress(state),
		LastUpdated: state.LastUpdated,
	}
	tracked.snapshot.Store(snapshot)

	return snapshot, nil
}
