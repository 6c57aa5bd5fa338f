package curve

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/utils"
)

type WatcherConfig struct {
	PollInterval time.Duration
	BatchSize    uint64
	CallTimeout  time.Duration
}

// Watcher polls the factory logs and fans decoded events out to per token listeners
// and to the process wide event dispatcher.
type Watcher struct {
	backend  Backend
	contract *FactoryContract
	config   WatcherConfig
	logger   logrus.FieldLogger

	listeners *utils.TopicDispatcher[common.Address, *Event]
	events    utils.Dispatcher[*Event]

	pollMutex   sync.Mutex
	initialized bool
	lastBlock   uint64
}

func NewWatcher(backend Backend, contract *FactoryContract, config WatcherConfig, logger logrus.FieldLogger) *Watcher {
	if config.BatchSize == 0 {
		config.BatchSize = 1000
	}

	return &Watcher{
		backend:   backend,
		contract:  contract,
		config:    config,
		logger:    logger,
		listeners: utils.NewTopicDispatcher[common.Address, *Event](),
	}
}

// Subscribe registers handler for events of token. Handlers run synchronously on the watcher loop.
func (w *Watcher) Subscribe(token common.Address, handler func(*Event)) *utils.TopicSubscription[common.Address, *Event] {
	return w.listeners.Subscribe(token, func(ev *Event) {
		defer func() {
			if err := recover(); err != nil {
				w.logger.WithField("token", ev.Token.Hex()).Errorf("uncaught panic in event listener: %v", err)
			}
		}()

		handler(ev)
	})
}

// Events returns the process wide stream of all decoded events
func (w *Watcher) Events() *utils.Dispatcher[*Event] {
	return &w.events
}

func (w *Watcher) ListenerTopics() int {
	return w.listeners.TopicCount()
}

// LastBlock returns the last block that was scanned for logs
func (w *Watcher) LastBlock() uint64 {
	w.pollMutex.Lock()
	defer w.pollMutex.Unlock()

	return w.lastBlock
}

// SetStartBlock makes the next poll scan from block on instead of the current head
func (w *Watcher) SetStartBlock(block uint64) {
	w.pollMutex.Lock()
	defer w.pollMutex.Unlock()

	if block > 0 {
		w.lastBlock = block - 1
		w.initialized = true
	}
}

func (w *Watcher) Start(ctx context.Context) {
	go w.runWatcherLoop(ctx)
}

func (w *Watcher) runWatcherLoop(ctx context.Context) {
	defer utils.HandleSubroutinePanic("curve.Watcher.runWatcherLoop", func() {
		if ctx.Err() == nil {
			w.runWatcherLoop(ctx)
		}
	})

	for {
		err := w.Poll(ctx)
		if err != nil {
			w.logger.WithError(err).Warnf("error polling factory logs")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.config.PollInterval):
		}
	}
}

// Poll scans all blocks since the last poll. The first poll only records the current head.
func (w *Watcher) Poll(ctx context.Context) error {
	w.pollMutex.Lock()
	defer w.pollMutex.Unlock()

	head, err := w.blockNumber(ctx)
	if err != nil {
		return err
	}

	if !w.initialized {
		w.initialized = true
		w.lastBlock = head
		w.logger.Infof("watching factory logs from block %v", head)
		return nil
	}

	for w.lastBlock < head {
		from := w.lastBlock + 1
		to := from + w.config.BatchSize - 1
		if to > head {
			to = head
		}

		err := w.processRange(ctx, from, to)
		if err != nil {
			return fmt.Errorf("failed processing blocks %v-%v: %w", from, to, err)
		}

		w.lastBlock = to
	}

	return nil
}

func (w *Watcher) blockNumber(ctx context.Context) (uint64, error) {
	if w.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.CallTimeout)
		defer cancel()
	}

	head, err := w.backend.BlockNumber(ctx)
	if err != nil {
		return 0, classifyError("block number", common.Address{}, err)
	}

	return head, nil
}

func (w *Watcher) processRange(ctx context.Context, from, to uint64) error {
	if w.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.CallTimeout)
		defer cancel()
	}

	logs, err := w.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{w.contract.Address()},
		Topics:    [][]common.Hash{w.contract.EventTopics()},
	})
	if err != nil {
		return classifyError("filter logs", common.Address{}, err)
	}

	for i := range logs {
		ev, err := w.contract.DecodeLog(&logs[i])
		if err != nil {
			eventsDroppedTotal.Inc()
			w.logger.WithError(err).WithFields(logrus.Fields{
				"block": logs[i].BlockNumber,
				"tx":    logs[i].TxHash.Hex(),
			}).Warnf("dropping undecodable factory log")
			continue
		}

		w.dispatch(ev)
	}

	return nil
}

func (w *Watcher) dispatch(ev *Event) {
	eventsTotal.WithLabelValues(string(ev.Name)).Inc()

	w.logger.WithFields(logrus.Fields{
		"event": ev.Name,
		"token": ev.Token.Hex(),
		"block": ev.BlockNumber,
	}).Debugf("factory event")

	w.listeners.Publish(ev.Token, ev)

	if dropped := w.events.Fire(ev); dropped > 0 {
		eventsDroppedTotal.Add(float64(dropped))
	}
}
