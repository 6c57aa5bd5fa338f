package curve

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/utils"
)

type estimateInvalidator interface {
	Invalidate(token *common.Address)
}

type snapshotRefresher interface {
	Refresh(token common.Address)
}

type walletRefresher interface {
	Refresh()
}

type blockNumberReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

type InvalidatorConfig struct {
	SettleDelay       time.Duration
	ConfirmBlocks     bool
	MaxSettleWait     time.Duration
	BlockPollInterval time.Duration
}

// Invalidator reacts to factory events: estimates of the token are dropped right away,
// snapshot and wallet are refreshed once the burst of events settled. Every event is
// followed by a refresh at least one settle delay after it arrived.
type Invalidator struct {
	ctx       context.Context
	events    *utils.Dispatcher[*Event]
	estimator estimateInvalidator
	snapshots snapshotRefresher
	wallet    walletRefresher
	notifier  *Notifier
	blocks    blockNumberReader
	config    InvalidatorConfig
	logger    logrus.FieldLogger

	mutex    sync.Mutex
	settling map[common.Address]*settleTimer
}

type settleTimer struct {
	timer     *time.Timer
	block     uint64
	opened    time.Time
	lastEvent time.Time
}

func NewInvalidator(events *utils.Dispatcher[*Event], estimator estimateInvalidator, snapshots snapshotRefresher, wallet walletRefresher, notifier *Notifier, blocks blockNumberReader, config InvalidatorConfig, logger logrus.FieldLogger) *Invalidator {
	if config.BlockPollInterval == 0 {
		config.BlockPollInterval = 500 * time.Millisecond
	}

	return &Invalidator{
		ctx:       context.Background(),
		events:    events,
		estimator: estimator,
		snapshots: snapshots,
		wallet:    wallet,
		notifier:  notifier,
		blocks:    blocks,
		config:    config,
		logger:    logger,
		settling:  map[common.Address]*settleTimer{},
	}
}

func (i *Invalidator) Start(ctx context.Context) {
	i.ctx = ctx
	subscription := i.events.Subscribe(100, true)

	go i.runEventLoop(ctx, subscription)
}

func (i *Invalidator) runEventLoop(ctx context.Context, subscription *utils.Subscription[*Event]) {
	defer utils.HandleSubroutinePanic("curve.Invalidator.runEventLoop", func() {
		if ctx.Err() == nil {
			i.runEventLoop(ctx, subscription)
		}
	})

	for {
		select {
		case <-ctx.Done():
			subscription.Unsubscribe()
			i.stopTimers()
			return
		case ev := <-subscription.Channel():
			i.handleEvent(ev)
		}
	}
}

func (i *Invalidator) handleEvent(ev *Event) {
	token := ev.Token
	i.estimator.Invalidate(&token)

	if i.notifier != nil {
		i.notifier.Notify(NoticeForEvent(ev))
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()

	now := time.Now()

	// the window is fixed at the first event, later events are settled by a follow-up window
	settle := i.settling[token]
	if settle != nil {
		if ev.BlockNumber > settle.block {
			settle.block = ev.BlockNumber
		}
		settle.lastEvent = now
		return
	}

	i.armSettle(token, ev.BlockNumber, now, i.config.SettleDelay)
}

// must be called with the mutex held
func (i *Invalidator) armSettle(token common.Address, block uint64, opened time.Time, delay time.Duration) {
	settle := &settleTimer{
		block:     block,
		opened:    opened,
		lastEvent: opened,
	}
	settle.timer = time.AfterFunc(delay, func() {
		i.settle(token, settle)
	})
	i.settling[token] = settle
}

func (i *Invalidator) settle(token common.Address, settle *settleTimer) {
	i.mutex.Lock()
	if i.settling[token] != settle {
		i.mutex.Unlock()
		return
	}
	block := settle.block
	if settle.lastEvent.After(settle.opened) && i.ctx.Err() == nil {
		// events that arrived within the window get a full settle delay of their own
		delay := time.Until(settle.lastEvent.Add(i.config.SettleDelay))
		if delay < 0 {
			delay = 0
		}
		i.armSettle(token, settle.block, settle.lastEvent, delay)
	} else {
		delete(i.settling, token)
	}
	i.mutex.Unlock()

	if i.config.ConfirmBlocks {
		i.awaitBlock(token, block)
	}

	// drop estimates computed against the pre-settle state as well
	i.estimator.Invalidate(&token)
	i.snapshots.Refresh(token)
	if i.wallet != nil {
		i.wallet.Refresh()
	}

	i.logger.WithField("token", token.Hex()).Debugf("token settled after block %v", block)
}

// awaitBlock waits until the head moved past block or the maximum settle wait elapsed
func (i *Invalidator) awaitBlock(token common.Address, block uint64) {
	ctx, cancel := context.WithTimeout(i.ctx, i.config.MaxSettleWait)
	defer cancel()

	for {
		head, err := i.blocks.BlockNumber(ctx)
		if err == nil && head > block {
			return
		}
		if err != nil && ctx.Err() == nil {
			i.logger.WithError(err).WithField("token", token.Hex()).Debugf("failed polling head for settle")
		}

		select {
		case <-ctx.Done():
			i.logger.WithField("token", token.Hex()).Debugf("settle wait for block %v timed out", block)
			return
		case <-time.After(i.config.BlockPollInterval):
		}
	}
}

func (i *Invalidator) stopTimers() {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	for token, settle := range i.settling {
		settle.timer.Stop()
		delete(i.settling, token)
	}
}

// SettlingCount returns the number of tokens with an armed settle timer
func (i *Invalidator) SettlingCount() int {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	return len(i.settling)
}
