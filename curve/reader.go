package curve

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// aggregated read layout, one batch entry per field
var readMethods = []string{
	"lastPrice",
	"collateral",
	"virtualSupply",
	"getFundingGoal",
	"getMaxSupply",
	"totalSupply",
	"getTokenState",
	"TRADING_FEE",
}

const feeBasisPoints = 10000

// Reader fetches all contract derived facts about a token with one batched round trip
type Reader struct {
	backend  Backend
	contract *FactoryContract
	config   RetryConfig
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewReader(backend Backend, contract *FactoryContract, config RetryConfig, logger logrus.FieldLogger) *Reader {
	return &Reader{
		backend:  backend,
		contract: contract,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Read returns the current chain state of token
func (r *Reader) Read(ctx context.Context, token common.Address) (*TokenChainState, error) {
	if token == (common.Address{}) {
		snapshotReadsTotal.WithLabelValues("invalid").Inc()
		return nil, newError(KindInvalidInput, "read", token, fmt.Errorf("zero token address"))
	}

	msgs := make([]ethereum.CallMsg, len(readMethods))
	for i, method := range readMethods {
		var err error
		if method == "TRADING_FEE" {
			msgs[i], err = r.contract.packCall(method)
		} else {
			msgs[i], err = r.contract.packCall(method, token)
		}
		if err != nil {
			return nil, newError(KindInvalidInput, "read", token, err)
		}
	}

	var results [][]byte
	err := callWithRetry(ctx, &r.config, "read", token, func(ctx context.Context) error {
		data, errs, err := r.backend.BatchCallContract(ctx, msgs)
		if err != nil {
			return err
		}
		if len(data) != len(msgs) || len(errs) != len(msgs) {
			return newError(KindDecodeError, "read", token, fmt.Errorf("batch returned %v results for %v calls", len(data), len(msgs)))
		}

		// a revert of any field fails the whole read
		for i, callErr := range errs {
			if callErr != nil {
				return fmt.Errorf("%v: %w", readMethods[i], callErr)
			}
		}

		results = data
		return nil
	})
	if err != nil {
		snapshotReadsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	state, err := r.decode(token, results)
	if err != nil {
		snapshotReadsTotal.WithLabelValues("decode_error").Inc()
		return nil, err
	}

	snapshotReadsTotal.WithLabelValues("ok").Inc()
	r.logger.WithFields(logrus.Fields{
		"token": token.Hex(),
		"state": state.State.String(),
	}).Debugf("token state read")

	return state, nil
}

func (r *Reader) decode(token common.Address, results [][]byte) (*TokenChainState, error) {
	state := &TokenChainState{
		Token:       token,
		LastUpdated: r.now(),
	}

	var err error
	decodeErr := func(method string, err error) error {
		return newError(KindDecodeError, "read", token, fmt.Errorf("%v: %w", method, err))
	}

	if state.Price, err = r.contract.unpackUint("lastPrice", results[0]); err != nil {
		return nil, decodeErr("lastPrice", err)
	}
	if state.Collateral, err = r.contract.unpackUint("collateral", results[1]); err != nil {
		return nil, decodeErr("collateral", err)
	}
	if state.VirtualSupply, err = r.contract.unpackUint("virtualSupply", results[2]); err != nil {
		return nil, decodeErr("virtualSupply", err)
	}
	if state.FundingGoal, err = r.contract.unpackUint("getFundingGoal", results[3]); err != nil {
		return nil, decodeErr("getFundingGoal", err)
	}
	if state.MaxSupply, err = r.contract.unpackUint("getMaxSupply", results[4]); err != nil {
		return nil, decodeErr("getMaxSupply", err)
	}
	if state.TotalSupply, err = r.contract.unpackUint("totalSupply", results[5]); err != nil {
		return nil, decodeErr("totalSupply", err)
	}
	if state.State, err = r.contract.unpackState(results[6]); err != nil {
		return nil, decodeErr("getTokenState", err)
	}

	fee, err := r.contract.unpackUint("TRADING_FEE", results[7])
	if err != nil {
		return nil, decodeErr("TRADING_FEE", err)
	}
	if !fee.IsUint64() || fee.Uint64() > feeBasisPoints {
		return nil, decodeErr("TRADING_FEE", fmt.Errorf("fee %v out of range", fee))
	}
	state.TradingFeeBps = fee.Uint64()
	state.TradingFee = float64(state.TradingFeeBps) / feeBasisPoints

	return state, nil
}

func resultLabel(err error) string {
	switch ErrorKindOf(err) {
	case KindInvalidInput:
		return "invalid"
	case KindContractReverted:
		return "reverted"
	case KindDecodeError:
		return "decode_error"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "network_error"
	}
}
