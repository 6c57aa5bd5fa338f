package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/cache"
	"github.com/ethpandaops/curvewatch/clients/execution"
	"github.com/ethpandaops/curvewatch/curve"
	"github.com/ethpandaops/curvewatch/metadata"
	"github.com/ethpandaops/curvewatch/metrics"
	"github.com/ethpandaops/curvewatch/types"
	"github.com/ethpandaops/curvewatch/utils"
)

// ErrNoWallet is returned by wallet operations when no wallet address is configured
var ErrNoWallet = errors.New("no wallet configured")

var (
	pendingEstimatesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curvewatch_estimates_pending",
		Help: "Number of debounced estimates waiting for their remote call",
	})
	cachedEstimatesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curvewatch_estimates_cached",
		Help: "Number of estimates held in the estimate cache",
	})
	settlingTokensGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curvewatch_settling_tokens",
		Help: "Number of tokens waiting for their post event refresh",
	})
	listenerTopicsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curvewatch_listener_topics",
		Help: "Number of token addresses with registered event listeners",
	})
	lastScannedBlockGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curvewatch_last_scanned_block",
		Help: "Last block scanned for factory logs",
	})
)

type CurveService struct {
	logger        logrus.FieldLogger
	ctx           context.Context
	cancel        context.CancelFunc
	config        *types.Config
	executionPool *execution.Pool
	backend       curve.Backend
	contract      *curve.FactoryContract
	reader        *curve.Reader
	tracker       *curve.Tracker
	estimator     *curve.Estimator
	wallet        *curve.WalletTracker
	watcher       *curve.Watcher
	notifier      *curve.Notifier
	invalidator   *curve.Invalidator
	metadata      *metadata.Client
	metadataCache *cache.TieredCache
	notices       utils.Dispatcher[*curve.Notice]
	now           func() time.Time
	started       bool
}

// TradeImpact is the price impact summary of a prospective trade
type TradeImpact struct {
	Direction curve.Direction      `json:"direction"`
	Amount    string               `json:"amount"`
	Estimate  string               `json:"estimate"`
	Impact    float64              `json:"impact"`
	Severity  curve.ImpactSeverity `json:"severity"`
	Warning   string               `json:"warning,omitempty"`
	Slippage  float64              `json:"slippage"`
	// MinReceived is the smallest counterparty amount accepted at the given slippage
	MinReceived string `json:"minReceived"`
}

// TokenInfo combines the off-chain metadata of a token with its display status
type TokenInfo struct {
	Metadata *metadata.TokenMetadata `json:"metadata"`
	Status   *metadata.Status        `json:"status"`
}

var GlobalCurveService *CurveService

// InitCurveService is used to initialize the global curve service
func InitCurveService(ctx context.Context, logger logrus.FieldLogger) error {
	if GlobalCurveService != nil {
		return nil
	}

	executionPool, err := execution.NewPool(ctx, &execution.PoolConfig{
		SchedulerMode: utils.Config.ExecutionApi.SchedulerMode,
		ChainID:       utils.Config.Chain.ChainID,
	}, logger.WithField("service", "el-pool"))
	if err != nil {
		return fmt.Errorf("failed initializing execution pool: %w", err)
	}

	service, err := NewCurveService(ctx, executionPool, utils.Config, logger)
	if err != nil {
		return err
	}
	service.executionPool = executionPool

	GlobalCurveService = service
	return nil
}

// NewCurveService wires all curve components on top of backend
func NewCurveService(ctx context.Context, backend curve.Backend, cfg *types.Config, logger logrus.FieldLogger) (*CurveService, error) {
	contract, err := curve.NewFactoryContract(common.HexToAddress(cfg.Chain.FactoryAddress))
	if err != nil {
		return nil, fmt.Errorf("failed initializing factory contract: %w", err)
	}

	serviceCtx, cancel := context.WithCancel(ctx)
	cs := &CurveService{
		logger:   logger,
		ctx:      serviceCtx,
		cancel:   cancel,
		config:   cfg,
		backend:  backend,
		contract: contract,
		now:      time.Now,
	}

	curveCfg := &cfg.Curve
	decimals := int32(cfg.Chain.Decimals)
	retryConfig := curve.RetryConfig{
		CallTimeout:   curveCfg.CallTimeout,
		RetryAttempts: curveCfg.RetryAttempts,
	}

	cs.reader = curve.NewReader(backend, contract, retryConfig, logger.WithField("module", "reader"))
	cs.tracker = curve.NewTracker(serviceCtx, cs.reader, curve.TrackerConfig{
		PollInterval: curveCfg.SnapshotPollInterval,
	}, logger.WithField("module", "tracker"))
	cs.estimator = curve.NewEstimator(backend, contract, curve.EstimatorConfig{
		CacheDuration:    curveCfg.EstimateCacheDuration,
		Debounce:         curveCfg.EstimateDebounce,
		CacheSize:        curveCfg.EstimateCacheSize * 1024 * 1024,
		MaxInputDecimals: curveCfg.MaxInputDecimals,
		CallTimeout:      curveCfg.CallTimeout,
		Decimals:         decimals,
	}, logger.WithField("module", "estimator"))
	cs.watcher = curve.NewWatcher(backend, contract, curve.WatcherConfig{
		PollInterval: curveCfg.EventPollInterval,
		BatchSize:    curveCfg.LogBatchSize,
		CallTimeout:  curveCfg.CallTimeout,
	}, logger.WithField("module", "watcher"))
	cs.notifier = curve.NewNotifier(curveCfg.NotifyCooldown, logger.WithField("module", "notifier"), func(notice *curve.Notice) {
		cs.notices.Fire(notice)
	})

	var walletRefresher interface{ Refresh() }
	if cfg.Wallet.Address != "" {
		var walletToken *common.Address
		if cfg.Wallet.Token != "" {
			token := common.HexToAddress(cfg.Wallet.Token)
			walletToken = &token
		}

		cs.wallet = curve.NewWalletTracker(backend, contract, curve.WalletConfig{
			Address:         common.HexToAddress(cfg.Wallet.Address),
			Token:           walletToken,
			PollInterval:    curveCfg.WalletPollInterval,
			DisplayDecimals: curveCfg.DisplayDecimals,
			Decimals:        decimals,
			BuyGasReserve:   curveCfg.BuyGasReserve,
			MaxBuyRatio:     curveCfg.MaxBuyRatio,
			Retry:           retryConfig,
		}, logger.WithField("module", "wallet"))
		walletRefresher = cs.wallet
	}

	cs.invalidator = curve.NewInvalidator(cs.watcher.Events(), cs.estimator, cs.tracker, walletRefresher, cs.notifier, backend, curve.InvalidatorConfig{
		SettleDelay:   curveCfg.SettleDelay,
		ConfirmBlocks: curveCfg.SettleConfirmBlocks,
		MaxSettleWait: curveCfg.MaxSettleWait,
	}, logger.WithField("module", "invalidator"))

	if cfg.Metadata.Url != "" {
		cs.metadataCache, err = cache.NewTieredCache(cfg.Metadata.CacheSize, cfg.Metadata.RedisAddr, cfg.Metadata.RedisPrefix, logger.WithField("module", "metacache"))
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed initializing metadata cache: %w", err)
		}
	}
	cs.metadata = metadata.NewClient(metadata.ClientConfig{
		Url:          cfg.Metadata.Url,
		Headers:      cfg.Metadata.Headers,
		Timeout:      cfg.Metadata.Timeout,
		CacheTimeout: cfg.Metadata.CacheTimeout,
	}, cs.metadataCache, logger.WithField("module", "metadata"))

	return cs, nil
}

func (cs *CurveService) StartService() error {
	if cs.started {
		return fmt.Errorf("service already started")
	}
	cs.started = true

	if cs.executionPool != nil {
		// add execution clients
		for _, endpoint := range cs.config.ExecutionApi.Endpoints {
			_, err := cs.executionPool.AddEndpoint(&execution.ClientConfig{
				URL:     endpoint.Url,
				Name:    endpoint.Name,
				Headers: endpoint.Headers,
			})
			if err != nil {
				cs.logger.Errorf("could not add execution client '%v' to pool: %v", endpoint.Name, err)
				continue
			}
		}

		if len(cs.executionPool.GetAllEndpoints()) == 0 {
			return fmt.Errorf("no execution clients configured")
		}

		// await execution pool readiness
		lastLog := time.Now()
		for cs.executionPool.GetReadyEndpoint(execution.AnyClient) == nil {
			if cs.ctx.Err() != nil {
				return cs.ctx.Err()
			}

			if time.Since(lastLog) > 10*time.Second {
				cs.logger.Warnf("still waiting for a ready execution client...")
				lastLog = time.Now()
			}

			time.Sleep(1 * time.Second)
		}

		chainState := cs.executionPool.GetChainState()
		cs.logger.WithFields(logrus.Fields{
			"chain_id": chainState.GetChainID(),
			"factory":  cs.contract.Address().Hex(),
		}).Infof("execution client pool ready")
	}

	cs.watcher.Start(cs.ctx)
	cs.invalidator.Start(cs.ctx)
	if cs.wallet != nil {
		cs.wallet.Start(cs.ctx)
	}

	metrics.AddPreCollectFn(cs.updateMetrics)

	return nil
}

func (cs *CurveService) StopService() {
	if !cs.started {
		return
	}
	cs.started = false

	cs.cancel()

	if cs.metadataCache != nil {
		cs.metadataCache.Close()
	}
}

func (cs *CurveService) updateMetrics() {
	pendingEstimatesGauge.Set(float64(cs.estimator.PendingCount()))
	cachedEstimatesGauge.Set(float64(cs.estimator.CachedCount()))
	settlingTokensGauge.Set(float64(cs.invalidator.SettlingCount()))
	listenerTopicsGauge.Set(float64(cs.watcher.ListenerTopics()))
	lastScannedBlockGauge.Set(float64(cs.watcher.LastBlock()))
}

func (cs *CurveService) GetExecutionPool() *execution.Pool {
	return cs.executionPool
}

func (cs *CurveService) GetWatcher() *curve.Watcher {
	return cs.watcher
}

// Decimals returns the decimals of the native currency and of all curve tokens
func (cs *CurveService) Decimals() int32 {
	return int32(cs.config.Chain.Decimals)
}

func (cs *CurveService) DisplayDecimals() int32 {
	return int32(cs.config.Curve.DisplayDecimals)
}

func (cs *CurveService) NativeSymbol() string {
	return cs.config.Chain.TokenSymbol
}

// GetSnapshot returns the tracked snapshot of address, or a live read if it is not tracked yet
func (cs *CurveService) GetSnapshot(ctx context.Context, address string) (*curve.Snapshot, error) {
	token, err := curve.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	snapshot, tracked := cs.tracker.GetSnapshot(token)
	if tracked && snapshot != nil {
		return snapshot, nil
	}

	return cs.tracker.RefreshNow(ctx, token)
}

// Estimate returns the counterparty amount of a trade. On error the amount is curve.EstimateFallback.
func (cs *CurveService) Estimate(ctx context.Context, direction string, amount string, address string) (string, error) {
	dir, err := curve.ParseDirection(direction)
	if err != nil {
		return curve.EstimateFallback, err
	}

	token, err := curve.ParseAddress(address)
	if err != nil {
		return curve.EstimateFallback, err
	}

	return cs.estimator.Estimate(ctx, dir, amount, token)
}

func (cs *CurveService) IsValidAmount(amount string, direction string) bool {
	if cs.wallet == nil {
		return false
	}

	dir, err := curve.ParseDirection(direction)
	if err != nil {
		return false
	}

	return cs.wallet.IsValidAmount(amount, dir)
}

func (cs *CurveService) GetMaxAmount(direction string) string {
	if cs.wallet == nil {
		return "0"
	}

	dir, err := curve.ParseDirection(direction)
	if err != nil {
		return "0"
	}

	return cs.wallet.GetMaxAmount(dir)
}

// Refresh drops the cached estimates of address and reads its state right away.
// The wallet balances are refreshed in the background.
func (cs *CurveService) Refresh(ctx context.Context, address string) (*curve.Snapshot, error) {
	token, err := curve.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	cs.estimator.Invalidate(&token)
	if cs.wallet != nil {
		cs.wallet.Refresh()
	}

	return cs.tracker.RefreshNow(ctx, token)
}

// Subscribe registers handler for the events of address
func (cs *CurveService) Subscribe(address string, handler func(*curve.Event)) (unsubscribe func(), err error) {
	token, err := curve.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	subscription := cs.watcher.Subscribe(token, handler)
	return subscription.Unsubscribe, nil
}

// Watch keeps the snapshot of address polled until release is called
func (cs *CurveService) Watch(address string) (release func(), err error) {
	token, err := curve.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	return cs.tracker.Watch(token), nil
}

// SubscribeNotices returns a stream of the notices emitted for factory events
func (cs *CurveService) SubscribeNotices(capacity int) *utils.Subscription[*curve.Notice] {
	return cs.notices.Subscribe(capacity, false)
}

// Wallet returns the wallet tracker, nil if no wallet is configured
func (cs *CurveService) Wallet() *curve.WalletTracker {
	return cs.wallet
}

// GetWalletState returns the current balances of the configured wallet
func (cs *CurveService) GetWalletState(ctx context.Context) (*curve.WalletState, error) {
	if cs.wallet == nil {
		return nil, ErrNoWallet
	}

	state := cs.wallet.GetState()
	if state != nil {
		return state, nil
	}

	return cs.wallet.RefreshNow(ctx)
}

// SetWalletToken switches the token balance tracked for the wallet, an empty address tracks none
func (cs *CurveService) SetWalletToken(address string) error {
	if cs.wallet == nil {
		return ErrNoWallet
	}

	if address == "" {
		cs.wallet.SetToken(nil)
		return nil
	}

	token, err := curve.ParseAddress(address)
	if err != nil {
		return err
	}

	cs.wallet.SetToken(&token)
	return nil
}

// PriceImpact estimates the price impact of a trade and the minimum counterparty amount at slippage percent
func (cs *CurveService) PriceImpact(ctx context.Context, direction string, amount string, address string, slippage float64) (*TradeImpact, error) {
	dir, err := curve.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	if slippage < 0 || slippage >= 100 {
		return nil, fmt.Errorf("%w: slippage out of range: %v", curve.ErrInvalidInput, slippage)
	}

	snapshot, err := cs.GetSnapshot(ctx, address)
	if err != nil {
		return nil, err
	}

	estimate, err := cs.Estimate(ctx, direction, amount, address)
	if err != nil {
		return nil, err
	}

	impact := curve.PriceImpact(snapshot.State, amount, dir)
	result := &TradeImpact{
		Direction: dir,
		Amount:    amount,
		Estimate:  estimate,
		Impact:    impact,
		Severity:  curve.ImpactSeverityOf(impact),
		Warning:   curve.ImpactWarning(impact),
		Slippage:  slippage,
	}

	expected, err := decimal.NewFromString(estimate)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed estimate %q", curve.ErrDecodeError, estimate)
	}
	result.MinReceived = curve.MinTokensReceived(expected, slippage).String()

	return result, nil
}

// GetTokenInfo returns the off-chain metadata of address with its display status.
// The funding progress of the status prefers the tracked on-chain snapshot.
func (cs *CurveService) GetTokenInfo(ctx context.Context, address string) (*TokenInfo, error) {
	token, err := curve.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	meta, err := cs.metadata.GetToken(ctx, token)
	if err != nil {
		return nil, err
	}

	var progress *curve.Progress
	if snapshot, _ := cs.tracker.GetSnapshot(token); snapshot != nil {
		progress = &snapshot.Progress
	}

	return &TokenInfo{
		Metadata: meta,
		Status:   metadata.TokenStatus(meta, progress, cs.now()),
	}, nil
}
