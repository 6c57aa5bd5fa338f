package curve

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/utils"
)

// Balance is an amount in three representations.
// Truncated is cut to the display precision and never exceeds the real balance.
type Balance struct {
	Raw       *big.Int `json:"raw"`
	Formatted string   `json:"formatted"`
	Truncated string   `json:"truncated"`
}

type WalletState struct {
	Address      common.Address  `json:"address"`
	Token        *common.Address `json:"token,omitempty"`
	Native       Balance         `json:"native"`
	TokenBalance *Balance        `json:"tokenBalance,omitempty"`
	LastUpdated  time.Time       `json:"lastUpdated"`
	Stale        bool            `json:"stale"`
	LastError    error           `json:"-"`
}

type WalletConfig struct {
	Address         common.Address
	Token           *common.Address
	PollInterval    time.Duration
	DisplayDecimals int
	Decimals        int32
	BuyGasReserve   float64
	MaxBuyRatio     float64
	Retry           RetryConfig
}

// WalletTracker keeps the balances of one read-only account up to date
type WalletTracker struct {
	backend  Backend
	contract *FactoryContract
	config   WalletConfig
	logger   logrus.FieldLogger
	now      func() time.Time

	refreshChan chan struct{}
	readMutex   sync.Mutex

	stateMutex sync.RWMutex
	token      *common.Address
	state      *WalletState
}

func NewWalletTracker(backend Backend, contract *FactoryContract, config WalletConfig, logger logrus.FieldLogger) *WalletTracker {
	if config.Decimals == 0 {
		config.Decimals = nativeDecimals
	}

	return &WalletTracker{
		backend:     backend,
		contract:    contract,
		config:      config,
		logger:      logger,
		now:         time.Now,
		refreshChan: make(chan struct{}, 1),
		token:       config.Token,
	}
}

func (w *WalletTracker) Address() common.Address {
	return w.config.Address
}

func (w *WalletTracker) Start(ctx context.Context) {
	go w.runPollLoop(ctx)
}

func (w *WalletTracker) runPollLoop(ctx context.Context) {
	defer utils.HandleSubroutinePanic("curve.WalletTracker.runPollLoop", func() {
		if ctx.Err() == nil {
			w.runPollLoop(ctx)
		}
	})

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		w.RefreshNow(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.refreshChan:
		}
	}
}

// Refresh schedules an immediate balance poll
func (w *WalletTracker) Refresh() {
	select {
	case w.refreshChan <- struct{}{}:
	default:
	}
}

// SetToken changes the token whose balance is tracked. A nil token tracks the native balance only.
func (w *WalletTracker) SetToken(token *common.Address) {
	w.stateMutex.Lock()
	w.token = token
	if w.state != nil {
		state := *w.state
		state.Token = token
		state.TokenBalance = nil
		w.state = &state
	}
	w.stateMutex.Unlock()

	w.Refresh()
}

func (w *WalletTracker) GetState() *WalletState {
	w.stateMutex.RLock()
	defer w.stateMutex.RUnlock()

	return w.state
}

// RefreshNow polls all balances synchronously.
// On failure the previous balances are kept and marked stale.
func (w *WalletTracker) RefreshNow(ctx context.Context) (*WalletState, error) {
	w.readMutex.Lock()
	defer w.readMutex.Unlock()

	w.stateMutex.RLock()
	token := w.token
	w.stateMutex.RUnlock()

	state, err := w.readState(ctx, token)

	w.stateMutex.Lock()
	defer w.stateMutex.Unlock()

	if w.token != token {
		// token changed while reading, the queued refresh picks up the new one
		return w.state, err
	}

	if err != nil {
		w.logger.WithError(err).Warnf("wallet balance poll failed")
		if w.state == nil {
			return nil, err
		}

		stale := *w.state
		stale.Stale = true
		stale.LastError = err
		w.state = &stale

		return w.state, err
	}

	w.state = state
	return state, nil
}

func (w *WalletTracker) readState(ctx context.Context, token *common.Address) (*WalletState, error) {
	var native *big.Int
	err := callWithRetry(ctx, &w.config.Retry, "native balance", common.Address{}, func(ctx context.Context) error {
		var err error
		native, err = w.backend.BalanceAt(ctx, w.config.Address, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	state := &WalletState{
		Address:     w.config.Address,
		Token:       token,
		Native:      w.newBalance(native),
		LastUpdated: w.now(),
	}

	if token != nil {
		msg, err := w.contract.packBalanceOf(*token, w.config.Address)
		if err != nil {
			return nil, newError(KindInvalidInput, "token balance", *token, err)
		}

		var data []byte
		err = callWithRetry(ctx, &w.config.Retry, "token balance", *token, func(ctx context.Context) error {
			var err error
			data, err = w.backend.CallContract(ctx, msg, nil)
			return err
		})
		if err != nil {
			return nil, err
		}

		balance, err := w.contract.unpackBalance(data)
		if err != nil {
			return nil, newError(KindDecodeError, "token balance", *token, err)
		}

		tokenBalance := w.newBalance(balance)
		state.TokenBalance = &tokenBalance
	}

	return state, nil
}

func (w *WalletTracker) newBalance(raw *big.Int) Balance {
	formatted := FromBaseUnits(raw, w.config.Decimals).String()

	return Balance{
		Raw:       raw,
		Formatted: formatted,
		Truncated: TruncateAmount(formatted, w.config.DisplayDecimals),
	}
}

// truncatedBalance returns the display balance for a trade direction
func (w *WalletTracker) truncatedBalance(direction Direction) (decimal.Decimal, bool) {
	state := w.GetState()
	if state == nil {
		return decimal.Zero, false
	}

	var truncated string
	switch direction {
	case DirectionBuy:
		truncated = state.Native.Truncated
	case DirectionSell:
		if state.TokenBalance == nil {
			return decimal.Zero, false
		}
		truncated = state.TokenBalance.Truncated
	default:
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(truncated)
	if err != nil {
		return decimal.Zero, false
	}

	return value, true
}

// IsValidAmount checks amount against the truncated balance of the direction.
// Buys keep a share of the native balance back for gas.
func (w *WalletTracker) IsValidAmount(amount string, direction Direction) bool {
	value, err := ValidateAmount(amount, int(w.config.Decimals))
	if err != nil {
		return false
	}

	balance, ok := w.truncatedBalance(direction)
	if !ok {
		return false
	}

	limit := balance
	if direction == DirectionBuy {
		limit = balance.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(w.config.BuyGasReserve)))
	}

	return value.LessThanOrEqual(limit)
}

// GetMaxAmount returns the largest amount the account can trade in direction, "0" if unknown
func (w *WalletTracker) GetMaxAmount(direction Direction) string {
	balance, ok := w.truncatedBalance(direction)
	if !ok {
		return "0"
	}

	if direction == DirectionBuy {
		balance = balance.Mul(decimal.NewFromFloat(w.config.MaxBuyRatio)).Truncate(int32(w.config.DisplayDecimals))
	}

	return balance.String()
}
