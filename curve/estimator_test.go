package curve

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEstimator(t *testing.T, backend *testBackend, debounce time.Duration) (*Estimator, *testClock) {
	t.Helper()

	logger, _ := test.NewNullLogger()
	estimator := NewEstimator(backend, newTestContract(t), EstimatorConfig{
		CacheDuration:    15 * time.Second,
		Debounce:         debounce,
		CacheSize:        1024 * 1024,
		MaxInputDecimals: 10,
		CallTimeout:      time.Second,
	}, logger)

	clock := newTestClock()
	estimator.now = clock.Now

	return estimator, clock
}

type estimateOutcome struct {
	amount string
	err    error
}

func estimateAsync(estimator *Estimator, direction Direction, amount string, token common.Address) <-chan estimateOutcome {
	resultChan := make(chan estimateOutcome, 1)
	go func() {
		amount, err := estimator.Estimate(context.Background(), direction, amount, token)
		resultChan <- estimateOutcome{amount: amount, err: err}
	}()
	return resultChan
}

func TestEstimatorCoalescesBurst(t *testing.T) {
	backend := newTestBackend()
	estimator, _ := newTestEstimator(t, backend, 50*time.Millisecond)

	results := make([]<-chan estimateOutcome, 5)
	for i := range results {
		results[i] = estimateAsync(estimator, DirectionBuy, "0.5", testToken)
	}

	for _, resultChan := range results {
		result := <-resultChan
		require.NoError(t, result.err)
		assert.Equal(t, "500", result.amount)
	}

	_, estimates, _ := backend.counts()
	assert.Equal(t, 1, estimates)
	assert.Equal(t, 0, estimator.PendingCount())
}

func TestEstimatorCache(t *testing.T) {
	backend := newTestBackend()
	estimator, clock := newTestEstimator(t, backend, time.Millisecond)
	ctx := context.Background()

	amount, err := estimator.Estimate(ctx, DirectionSell, "2", testToken)
	require.NoError(t, err)
	assert.Equal(t, "2000", amount)

	// equal amounts share one cache entry
	clock.Advance(10 * time.Second)
	amount, err = estimator.Estimate(ctx, DirectionSell, "2.000", testToken)
	require.NoError(t, err)
	assert.Equal(t, "2000", amount)

	_, estimates, _ := backend.counts()
	assert.Equal(t, 1, estimates)

	clock.Advance(6 * time.Second)
	_, err = estimator.Estimate(ctx, DirectionSell, "2", testToken)
	require.NoError(t, err)

	_, estimates, _ = backend.counts()
	assert.Equal(t, 2, estimates)

	// directions are cached separately
	_, err = estimator.Estimate(ctx, DirectionBuy, "2", testToken)
	require.NoError(t, err)

	_, estimates, _ = backend.counts()
	assert.Equal(t, 3, estimates)
}

func TestEstimatorInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		amount    string
		token     common.Address
	}{
		{name: "empty", direction: DirectionBuy, amount: "", token: testToken},
		{name: "not a number", direction: DirectionBuy, amount: "abc", token: testToken},
		{name: "negative", direction: DirectionBuy, amount: "-1", token: testToken},
		{name: "zero", direction: DirectionSell, amount: "0", token: testToken},
		{name: "exponent", direction: DirectionBuy, amount: "1e5", token: testToken},
		{name: "too many decimals", direction: DirectionBuy, amount: "0.12345678901", token: testToken},
		{name: "two dots", direction: DirectionBuy, amount: "1.2.3", token: testToken},
		{name: "unknown direction", direction: Direction("swap"), amount: "1", token: testToken},
		{name: "zero token", direction: DirectionBuy, amount: "1", token: common.Address{}},
	}

	backend := newTestBackend()
	estimator, _ := newTestEstimator(t, backend, time.Millisecond)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := estimator.Estimate(context.Background(), tt.direction, tt.amount, tt.token)
			assert.Equal(t, EstimateFallback, amount)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, estimates, _ := backend.counts()
	assert.Equal(t, 0, estimates)
	assert.Equal(t, 0, estimator.PendingCount())
}

func TestEstimatorAcceptsMaxDecimals(t *testing.T) {
	backend := newTestBackend()
	estimator, _ := newTestEstimator(t, backend, time.Millisecond)

	amount, err := estimator.Estimate(context.Background(), DirectionBuy, "0.0000000001", testToken)
	require.NoError(t, err)
	assert.Equal(t, "0.0000001", amount)
}

func TestEstimatorFailuresAreNotCached(t *testing.T) {
	backend := newTestBackend()
	backend.estimateErr = testRevertError{}
	estimator, _ := newTestEstimator(t, backend, time.Millisecond)
	ctx := context.Background()

	amount, err := estimator.Estimate(ctx, DirectionBuy, "1", testToken)
	assert.Equal(t, EstimateFallback, amount)
	assert.ErrorIs(t, err, ErrContractReverted)

	backend.set(func(b *testBackend) { b.estimateErr = nil })

	amount, err = estimator.Estimate(ctx, DirectionBuy, "1", testToken)
	require.NoError(t, err)
	assert.Equal(t, "1000", amount)

	_, estimates, _ := backend.counts()
	assert.Equal(t, 2, estimates)
}

func TestEstimatorInvalidateCancelsPending(t *testing.T) {
	backend := newTestBackend()
	estimator, _ := newTestEstimator(t, backend, time.Minute)

	resultChan := estimateAsync(estimator, DirectionBuy, "1", testToken)
	otherChan := estimateAsync(estimator, DirectionBuy, "1", testToken2)
	require.Eventually(t, func() bool { return estimator.PendingCount() == 2 }, time.Second, time.Millisecond)

	estimator.Invalidate(&testToken)

	result := <-resultChan
	assert.Equal(t, EstimateFallback, result.amount)
	assert.ErrorIs(t, result.err, ErrCancelled)
	assert.Equal(t, 1, estimator.PendingCount())

	estimator.Invalidate(nil)

	result = <-otherChan
	assert.ErrorIs(t, result.err, ErrCancelled)
	assert.Equal(t, 0, estimator.PendingCount())

	_, estimates, _ := backend.counts()
	assert.Equal(t, 0, estimates)
}

func TestEstimatorInvalidateDropsInFlightResult(t *testing.T) {
	backend := newTestBackend()
	backend.estimateDelay = 100 * time.Millisecond
	estimator, _ := newTestEstimator(t, backend, time.Millisecond)

	resultChan := estimateAsync(estimator, DirectionBuy, "1", testToken)
	require.Eventually(t, func() bool {
		_, estimates, _ := backend.counts()
		return estimates == 1
	}, time.Second, time.Millisecond)

	estimator.Invalidate(&testToken)

	result := <-resultChan
	assert.Equal(t, EstimateFallback, result.amount)
	assert.ErrorIs(t, result.err, ErrCancelled)
	assert.Equal(t, int64(0), estimator.CachedCount())

	backend.set(func(b *testBackend) { b.estimateDelay = 0 })

	amount, err := estimator.Estimate(context.Background(), DirectionBuy, "1", testToken)
	require.NoError(t, err)
	assert.Equal(t, "1000", amount)

	_, estimates, _ := backend.counts()
	assert.Equal(t, 2, estimates)
}

func TestEstimatorInFlightResultServesLateDuplicate(t *testing.T) {
	backend := newTestBackend()
	backend.estimateDelay = 100 * time.Millisecond
	estimator, _ := newTestEstimator(t, backend, 50*time.Millisecond)

	first := estimateAsync(estimator, DirectionBuy, "1", testToken)
	require.Eventually(t, func() bool {
		_, estimates, _ := backend.counts()
		return estimates == 1
	}, time.Second, time.Millisecond)

	// the duplicate debounces past the end of the running call
	time.Sleep(80 * time.Millisecond)
	second := estimateAsync(estimator, DirectionBuy, "1", testToken)

	for _, resultChan := range []<-chan estimateOutcome{first, second} {
		result := <-resultChan
		require.NoError(t, result.err)
		assert.Equal(t, "1000", result.amount)
	}

	_, estimates, _ := backend.counts()
	assert.Equal(t, 1, estimates)
	assert.Equal(t, 0, estimator.PendingCount())
}

func TestEstimatorInvalidateToken(t *testing.T) {
	backend := newTestBackend()
	estimator, _ := newTestEstimator(t, backend, time.Millisecond)
	ctx := context.Background()

	for _, token := range []common.Address{testToken, testToken2} {
		_, err := estimator.Estimate(ctx, DirectionBuy, "1", token)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), estimator.CachedCount())

	estimator.Invalidate(&testToken)
	assert.Equal(t, int64(1), estimator.CachedCount())

	// the other token is still served from cache
	_, err := estimator.Estimate(ctx, DirectionBuy, "1", testToken2)
	require.NoError(t, err)
	_, estimates, _ := backend.counts()
	assert.Equal(t, 2, estimates)

	_, err = estimator.Estimate(ctx, DirectionBuy, "1", testToken)
	require.NoError(t, err)
	_, estimates, _ = backend.counts()
	assert.Equal(t, 3, estimates)

	estimator.Invalidate(nil)
	assert.Equal(t, int64(0), estimator.CachedCount())
}

func TestEstimatorContextCancel(t *testing.T) {
	backend := newTestBackend()
	estimator, _ := newTestEstimator(t, backend, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	amount, err := estimator.Estimate(ctx, DirectionBuy, "1", testToken)
	assert.Equal(t, EstimateFallback, amount)
	assert.ErrorIs(t, err, ErrTimeout)

	estimator.Invalidate(nil)
}

func TestEstimatorConcurrentKeys(t *testing.T) {
	backend := newTestBackend()
	estimator, _ := newTestEstimator(t, backend, 20*time.Millisecond)

	amounts := []string{"1", "2", "3"}
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		for _, amount := range amounts {
			wg.Add(1)
			go func(amount string) {
				defer wg.Done()
				_, err := estimator.Estimate(context.Background(), DirectionBuy, amount, testToken)
				assert.NoError(t, err)
			}(amount)
		}
	}
	wg.Wait()

	_, estimates, _ := backend.counts()
	assert.Equal(t, len(amounts), estimates)
}
