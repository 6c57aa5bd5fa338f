package curve

import (
	"context"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the contract rpc boundary used by all components of this package
type Backend interface {
	BatchCallContract(ctx context.Context, msgs []ethereum.CallMsg) ([][]byte, []error, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// RetryConfig bounds the retries of transient failures
type RetryConfig struct {
	CallTimeout   time.Duration
	RetryAttempts uint64
	RetryInterval time.Duration
}

func (config *RetryConfig) newBackOff(ctx context.Context) backoff.BackOff {
	expBackOff := backoff.NewExponentialBackOff()
	if config.RetryInterval > 0 {
		expBackOff.InitialInterval = config.RetryInterval
		expBackOff.MaxInterval = 10 * config.RetryInterval
	}
	expBackOff.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(expBackOff, config.RetryAttempts), ctx)
}

// callWithRetry runs fn with a per attempt timeout. Transient failures are retried with exponential backoff,
// all other kinds are returned immediately.
func callWithRetry(ctx context.Context, config *RetryConfig, op string, token common.Address, fn func(ctx context.Context) error) error {
	operation := func() error {
		callCtx := ctx
		if config.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, config.CallTimeout)
			defer cancel()
		}

		err := fn(callCtx)
		if err == nil {
			return nil
		}

		curveErr := classifyError(op, token, err)
		if !curveErr.Kind.Transient() || ctx.Err() != nil {
			return backoff.Permanent(curveErr)
		}

		return curveErr
	}

	err := backoff.Retry(operation, config.newBackOff(ctx))
	if err != nil {
		return classifyError(op, token, err)
	}

	return nil
}
