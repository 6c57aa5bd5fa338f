// Package curvetest provides an in-memory factory backend for tests outside of the curve package.
package curvetest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/ethpandaops/curvewatch/curve"
)

var (
	Factory = common.HexToAddress("0x000000000000000000000000000000000000fac7")
	Token   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	Wallet  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	Buyer   = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

var tokenABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(`[{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}]`))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Ether converts a decimal native amount to wei
func Ether(amount string) *big.Int {
	return curve.ToBaseUnits(decimal.RequireFromString(amount), 18)
}

// Backend answers abi packed factory calls from configurable values.
// Estimates return the input amount multiplied by EstimateRate.
type Backend struct {
	mutex    sync.Mutex
	contract *curve.FactoryContract

	Values       map[string]*big.Int
	State        uint8
	Native       *big.Int
	Balances     map[common.Address]*big.Int
	Reverts      map[string]bool
	EstimateRate int64
	Head         uint64
	Logs         []types.Log
	Fail         error

	BatchCalls    int
	EstimateCalls int
	BalanceCalls  int
}

func NewBackend() *Backend {
	contract, err := curve.NewFactoryContract(Factory)
	if err != nil {
		panic(err)
	}

	return &Backend{
		contract: contract,
		Values: map[string]*big.Int{
			"lastPrice":      Ether("0.00002"),
			"collateral":     Ether("20"),
			"virtualSupply":  Ether("1000000"),
			"getFundingGoal": Ether("25"),
			"getMaxSupply":   Ether("1000000000"),
			"totalSupply":    Ether("250000000"),
			"TRADING_FEE":    big.NewInt(30),
		},
		State:        uint8(curve.TokenStateTrading),
		Native:       big.NewInt(0),
		Balances:     map[common.Address]*big.Int{},
		Reverts:      map[string]bool{},
		EstimateRate: 1000,
	}
}

// Set runs fn with the backend locked
func (b *Backend) Set(fn func(b *Backend)) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	fn(b)
}

func (b *Backend) Counts() (batch int, estimate int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.BatchCalls, b.EstimateCalls
}

// BalanceCount returns the number of native balance reads
func (b *Backend) BalanceCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.BalanceCalls
}

// PurchaseLog packs a TokensPurchased log of token at block
func (b *Backend) PurchaseLog(token common.Address, block uint64) types.Log {
	event := b.contract.ABI().Events[string(curve.EventTokensPurchased)]
	data, err := event.Inputs.NonIndexed().Pack(Ether("100"), Ether("0.5"), Ether("0.005"))
	if err != nil {
		panic(err)
	}

	return types.Log{
		Address:     Factory,
		Topics:      []common.Hash{event.ID, common.BytesToHash(token.Bytes()), common.BytesToHash(Buyer.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
	}
}

func (b *Backend) BatchCallContract(ctx context.Context, msgs []ethereum.CallMsg) ([][]byte, []error, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.BatchCalls++
	if b.Fail != nil {
		return nil, nil, b.Fail
	}

	data := make([][]byte, len(msgs))
	errs := make([]error, len(msgs))
	for i, msg := range msgs {
		data[i], errs[i] = b.call(msg)
	}

	return data, errs, nil
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.Fail != nil {
		return nil, b.Fail
	}

	return b.call(msg)
}

// must be called with the mutex held
func (b *Backend) call(msg ethereum.CallMsg) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("short call data")
	}

	if method, err := tokenABI.MethodById(msg.Data[:4]); err == nil {
		balance := b.Balances[*msg.To]
		if balance == nil {
			balance = big.NewInt(0)
		}
		return method.Outputs.Pack(balance)
	}

	method, err := b.contract.ABI().MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	if b.Reverts[method.Name] {
		return nil, revertError{}
	}

	switch method.Name {
	case "getTokenState":
		return method.Outputs.Pack(b.State)
	case "calculateTokenAmount", "calculateSellPrice":
		b.EstimateCalls++
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(new(big.Int).Mul(args[1].(*big.Int), big.NewInt(b.EstimateRate)))
	}

	value := b.Values[method.Name]
	if value == nil {
		value = big.NewInt(0)
	}
	return method.Outputs.Pack(value)
}

func (b *Backend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.Fail != nil {
		return nil, b.Fail
	}

	from, to := query.FromBlock.Uint64(), query.ToBlock.Uint64()
	logs := []types.Log{}
	for _, log := range b.Logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			logs = append(logs, log)
		}
	}

	return logs, nil
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.Fail != nil {
		return 0, b.Fail
	}
	return b.Head, nil
}

func (b *Backend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.BalanceCalls++
	if b.Fail != nil {
		return nil, b.Fail
	}
	return b.Native, nil
}

type revertError struct{}

func (revertError) Error() string          { return "execution reverted" }
func (revertError) ErrorCode() int         { return 3 }
func (revertError) ErrorData() interface{} { return "0x" }
