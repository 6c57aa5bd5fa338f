package curve

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/coocood/freecache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// EstimateFallback is returned alongside every estimate error
const EstimateFallback = "0"

var errInvalidated = fmt.Errorf("estimate invalidated")

type EstimatorConfig struct {
	CacheDuration    time.Duration
	Debounce         time.Duration
	CacheSize        int // bytes
	MaxInputDecimals int
	CallTimeout      time.Duration
	Decimals         int32
}

// Estimator turns trade amounts into counterparty amounts via the factory simulation calls.
// Lookups go through a TTL cache, a per key debounce and a single flight group, in that order.
type Estimator struct {
	backend  Backend
	contract *FactoryContract
	config   EstimatorConfig
	logger   logrus.FieldLogger
	now      func() time.Time

	cache *freecache.Cache
	group singleflight.Group

	mutex            sync.Mutex
	pending          map[string]*pendingEstimate
	globalGeneration uint64
	tokenGenerations map[common.Address]uint64
}

type pendingEstimate struct {
	key       string
	token     common.Address
	direction Direction
	amount    decimal.Decimal
	timer     *time.Timer
	waiters   []chan estimateResult
}

type estimateResult struct {
	amount string
	err    error
}

type estimateGeneration struct {
	global uint64
	token  uint64
}

func NewEstimator(backend Backend, contract *FactoryContract, config EstimatorConfig, logger logrus.FieldLogger) *Estimator {
	if config.Decimals == 0 {
		config.Decimals = nativeDecimals
	}

	return &Estimator{
		backend:          backend,
		contract:         contract,
		config:           config,
		logger:           logger,
		now:              time.Now,
		cache:            freecache.NewCache(config.CacheSize),
		pending:          map[string]*pendingEstimate{},
		tokenGenerations: map[common.Address]uint64{},
	}
}

func estimateCacheKey(direction Direction, amount decimal.Decimal, token common.Address) string {
	return fmt.Sprintf("%v|%v|%v", direction, amount.String(), strings.ToLower(token.Hex()))
}

func tokenFromCacheKey(key string) string {
	return key[strings.LastIndexByte(key, '|')+1:]
}

// Estimate returns the counterparty amount for a trade of amount in direction.
// The returned amount is always displayable: on any error it is EstimateFallback.
func (e *Estimator) Estimate(ctx context.Context, direction Direction, amount string, token common.Address) (string, error) {
	if direction != DirectionBuy && direction != DirectionSell {
		estimateRequestsTotal.WithLabelValues("invalid").Inc()
		return EstimateFallback, newError(KindInvalidInput, "estimate", token, fmt.Errorf("unknown direction %q", direction))
	}
	if token == (common.Address{}) {
		estimateRequestsTotal.WithLabelValues("invalid").Inc()
		return EstimateFallback, newError(KindInvalidInput, "estimate", token, fmt.Errorf("zero token address"))
	}

	value, err := ValidateAmount(amount, e.config.MaxInputDecimals)
	if err != nil {
		estimateRequestsTotal.WithLabelValues("invalid").Inc()
		return EstimateFallback, err
	}

	key := estimateCacheKey(direction, value, token)

	if cached, ok := e.getCached(key); ok {
		estimateRequestsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}

	resultChan := e.schedule(key, direction, value, token)

	select {
	case result := <-resultChan:
		if result.err != nil {
			if ErrorKindOf(result.err) == KindCancelled {
				estimateRequestsTotal.WithLabelValues("cancelled").Inc()
			} else {
				estimateRequestsTotal.WithLabelValues("error").Inc()
			}
			return EstimateFallback, result.err
		}

		estimateRequestsTotal.WithLabelValues("miss").Inc()
		return result.amount, nil
	case <-ctx.Done():
		estimateRequestsTotal.WithLabelValues("cancelled").Inc()
		return EstimateFallback, classifyError("estimate", token, ctx.Err())
	}
}

// schedule attaches a waiter to the pending computation of key and (re)arms its debounce timer
func (e *Estimator) schedule(key string, direction Direction, amount decimal.Decimal, token common.Address) <-chan estimateResult {
	resultChan := make(chan estimateResult, 1)

	e.mutex.Lock()
	defer e.mutex.Unlock()

	pending := e.pending[key]
	if pending == nil {
		pending = &pendingEstimate{
			key:       key,
			token:     token,
			direction: direction,
			amount:    amount,
		}
		pending.timer = time.AfterFunc(e.config.Debounce, func() {
			e.fire(pending)
		})
		e.pending[key] = pending
	} else if pending.timer.Stop() {
		pending.timer.Reset(e.config.Debounce)
	}
	// if Stop returned false the timer already fired and fire() is waiting for the lock,
	// the waiter added below still gets picked up by that run

	pending.waiters = append(pending.waiters, resultChan)

	return resultChan
}

func (e *Estimator) fire(pending *pendingEstimate) {
	e.mutex.Lock()
	if e.pending[pending.key] != pending {
		// superseded or invalidated
		e.mutex.Unlock()
		return
	}

	delete(e.pending, pending.key)
	waiters := pending.waiters
	pending.waiters = nil
	generation := e.generationOf(pending.token)
	e.mutex.Unlock()

	var result estimateResult
	if cached, ok := e.getCached(pending.key); ok {
		// filled by a flight that finished while this key was debouncing
		result = estimateResult{amount: cached}
	} else {
		result = e.compute(pending, generation)
	}
	for _, waiter := range waiters {
		waiter <- result
	}
}

func (e *Estimator) compute(pending *pendingEstimate, generation estimateGeneration) estimateResult {
	flightKey := fmt.Sprintf("%v#%v.%v", pending.key, generation.global, generation.token)

	value, err, _ := e.group.Do(flightKey, func() (interface{}, error) {
		if cached, ok := e.getCached(pending.key); ok {
			return cached, nil
		}

		amount, err := e.remoteEstimate(pending.direction, pending.amount, pending.token)
		if err != nil {
			return nil, err
		}

		e.mutex.Lock()
		defer e.mutex.Unlock()

		if e.generationOf(pending.token) != generation {
			return nil, newError(KindCancelled, "estimate", pending.token, errInvalidated)
		}

		e.setCached(pending.key, amount)

		return amount, nil
	})
	if err != nil {
		e.logger.WithError(err).WithField("key", pending.key).Debugf("estimate failed")
		return estimateResult{amount: EstimateFallback, err: err}
	}

	return estimateResult{amount: value.(string)}
}

func (e *Estimator) remoteEstimate(direction Direction, amount decimal.Decimal, token common.Address) (string, error) {
	method := "calculateTokenAmount"
	if direction == DirectionSell {
		method = "calculateSellPrice"
	}

	msg, err := e.contract.packCall(method, token, ToBaseUnits(amount, e.config.Decimals))
	if err != nil {
		return "", newError(KindInvalidInput, "estimate", token, err)
	}

	ctx := context.Background()
	if e.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.CallTimeout)
		defer cancel()
	}

	estimateRemoteCallsTotal.Inc()

	data, err := e.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return "", classifyError("estimate", token, err)
	}

	result, err := e.contract.unpackUint(method, data)
	if err != nil {
		return "", newError(KindDecodeError, "estimate", token, err)
	}

	return FromBaseUnits(result, e.config.Decimals).String(), nil
}

// Invalidate drops cached and pending estimates of token, or of all tokens if token is nil.
// Waiters of cancelled computations receive EstimateFallback with ErrCancelled.
func (e *Estimator) Invalidate(token *common.Address) {
	cancelled := []*pendingEstimate{}

	e.mutex.Lock()
	if token == nil {
		e.globalGeneration++
		e.cache.Clear()

		for key, pending := range e.pending {
			pending.timer.Stop()
			delete(e.pending, key)
			cancelled = append(cancelled, pending)
		}
	} else {
		e.tokenGenerations[*token]++

		tokenKey := strings.ToLower(token.Hex())
		keys := [][]byte{}
		iterator := e.cache.NewIterator()
		for entry := iterator.Next(); entry != nil; entry = iterator.Next() {
			if tokenFromCacheKey(string(entry.Key)) == tokenKey {
				keys = append(keys, entry.Key)
			}
		}
		for _, key := range keys {
			e.cache.Del(key)
		}

		for key, pending := range e.pending {
			if pending.token != *token {
				continue
			}
			pending.timer.Stop()
			delete(e.pending, key)
			cancelled = append(cancelled, pending)
		}
	}
	e.mutex.Unlock()

	for _, pending := range cancelled {
		err := newError(KindCancelled, "estimate", pending.token, errInvalidated)
		for _, waiter := range pending.waiters {
			waiter <- estimateResult{amount: EstimateFallback, err: err}
		}
	}

	if len(cancelled) > 0 {
		e.logger.Debugf("invalidated %v pending estimates", len(cancelled))
	}
}

// PendingCount returns the number of keys waiting for their debounce timer
func (e *Estimator) PendingCount() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return len(e.pending)
}

// CachedCount returns the number of cached entries, including expired ones not yet evicted
func (e *Estimator) CachedCount() int64 {
	return e.cache.EntryCount()
}

// must be called with the mutex held
func (e *Estimator) generationOf(token common.Address) estimateGeneration {
	return estimateGeneration{
		global: e.globalGeneration,
		token:  e.tokenGenerations[token],
	}
}

func (e *Estimator) getCached(key string) (string, bool) {
	entry, err := e.cache.Get([]byte(key))
	if err != nil || len(entry) < 8 {
		return "", false
	}

	storedAt := time.Unix(0, int64(binary.BigEndian.Uint64(entry[:8])))
	if e.now().Sub(storedAt) >= e.config.CacheDuration {
		return "", false
	}

	return string(entry[8:]), true
}

// must be called with the mutex held
func (e *Estimator) setCached(key string, amount string) {
	entry := make([]byte, 8+len(amount))
	binary.BigEndian.PutUint64(entry[:8], uint64(e.now().UnixNano()))
	copy(entry[8:], amount)

	// freecache evicts on its own clock, validity is checked against e.now in getCached
	expireSeconds := int(math.Ceil(e.config.CacheDuration.Seconds())) + 1
	if err := e.cache.Set([]byte(key), entry, expireSeconds); err != nil {
		e.logger.WithError(err).Warnf("failed caching estimate")
	}
}
