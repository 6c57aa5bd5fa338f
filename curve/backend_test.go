package curve

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testFactory = common.HexToAddress("0x000000000000000000000000000000000000fac7")
	testToken   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken2  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testWallet  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testBuyer   = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

var errTestConnection = errors.New("dial tcp 127.0.0.1:8545: connection refused")

type testRevertError struct{}

func (testRevertError) Error() string          { return "execution reverted" }
func (testRevertError) ErrorCode() int         { return 3 }
func (testRevertError) ErrorData() interface{} { return "0x" }

// testBackend answers abi packed factory and token calls from configurable values
type testBackend struct {
	mutex sync.Mutex

	values   map[string]*big.Int
	raw      map[string][]byte
	reverts  map[string]bool
	state    uint8
	balances map[common.Address]*big.Int
	native   *big.Int

	// number of upcoming requests failing with a connection error
	transientFailures int

	estimateRate  int64
	estimateDelay time.Duration
	estimateErr   error

	head       uint64
	headErr    error
	headPanics int
	headCalls  int
	logs    []types.Log
	queries []ethereum.FilterQuery

	batchCalls    int
	estimateCalls int
	balanceCalls  int
}

func newTestBackend() *testBackend {
	return &testBackend{
		values: map[string]*big.Int{
			"lastPrice":      ether("0.00002"),
			"collateral":     ether("20"),
			"virtualSupply":  ether("1000000"),
			"getFundingGoal": ether("25"),
			"getMaxSupply":   ether("1000000000"),
			"totalSupply":    ether("250000000"),
			"TRADING_FEE":    big.NewInt(30),
		},
		raw:          map[string][]byte{},
		reverts:      map[string]bool{},
		state:        uint8(TokenStateTrading),
		balances:     map[common.Address]*big.Int{},
		native:       big.NewInt(0),
		estimateRate: 1000,
	}
}

func newTestContract(t *testing.T) *FactoryContract {
	t.Helper()

	contract, err := NewFactoryContract(testFactory)
	require.NoError(t, err)

	return contract
}

func ether(amount string) *big.Int {
	return ToBaseUnits(decimal.RequireFromString(amount), 18)
}

func (b *testBackend) set(fn func(b *testBackend)) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	fn(b)
}

func (b *testBackend) counts() (batch int, estimate int, balance int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.batchCalls, b.estimateCalls, b.balanceCalls
}

// must be called with the mutex held
func (b *testBackend) failTransient() bool {
	if b.transientFailures > 0 {
		b.transientFailures--
		return true
	}
	return false
}

func (b *testBackend) BatchCallContract(ctx context.Context, msgs []ethereum.CallMsg) ([][]byte, []error, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.batchCalls++
	if b.failTransient() {
		return nil, nil, errTestConnection
	}

	data := make([][]byte, len(msgs))
	errs := make([]error, len(msgs))
	for i, msg := range msgs {
		data[i], errs[i] = b.call(msg)
	}

	return data, errs, nil
}

func (b *testBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if len(msg.Data) >= 4 {
		if method, err := factoryABI.MethodById(msg.Data[:4]); err == nil && (method.Name == "calculateTokenAmount" || method.Name == "calculateSellPrice") {
			return b.estimate(ctx, msg)
		}
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.failTransient() {
		return nil, errTestConnection
	}

	return b.call(msg)
}

func (b *testBackend) estimate(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	b.mutex.Lock()
	b.estimateCalls++
	delay := b.estimateDelay
	estimateErr := b.estimateErr
	rate := b.estimateRate
	b.mutex.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if estimateErr != nil {
		return nil, estimateErr
	}

	method, _ := factoryABI.MethodById(msg.Data[:4])
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	amount := new(big.Int).Mul(args[1].(*big.Int), big.NewInt(rate))
	return method.Outputs.Pack(amount)
}

// must be called with the mutex held
func (b *testBackend) call(msg ethereum.CallMsg) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("short call data")
	}

	if method, err := tokenABI.MethodById(msg.Data[:4]); err == nil {
		b.balanceCalls++
		balance := b.balances[*msg.To]
		if balance == nil {
			balance = big.NewInt(0)
		}
		return method.Outputs.Pack(balance)
	}

	method, err := factoryABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}

	if b.reverts[method.Name] {
		return nil, testRevertError{}
	}
	if raw, ok := b.raw[method.Name]; ok {
		return raw, nil
	}
	if method.Name == "getTokenState" {
		return method.Outputs.Pack(b.state)
	}

	value := b.values[method.Name]
	if value == nil {
		value = big.NewInt(0)
	}
	return method.Outputs.Pack(value)
}

func (b *testBackend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.queries = append(b.queries, query)
	if b.failTransient() {
		return nil, errTestConnection
	}

	from, to := query.FromBlock.Uint64(), query.ToBlock.Uint64()
	logs := []types.Log{}
	for _, log := range b.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			logs = append(logs, log)
		}
	}

	return logs, nil
}

func (b *testBackend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.headCalls++
	if b.headPanics > 0 {
		b.headPanics--
		panic("head lookup failure")
	}
	if b.headErr != nil {
		return 0, b.headErr
	}
	return b.head, nil
}

func (b *testBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.failTransient() {
		return nil, errTestConnection
	}
	return b.native, nil
}

func addressTopic(address common.Address) common.Hash {
	return common.BytesToHash(address.Bytes())
}

// buildLog packs a factory event log, values are the non indexed arguments in order
func buildLog(t *testing.T, name EventName, block uint64, indexed []common.Address, values ...interface{}) types.Log {
	t.Helper()

	event := factoryABI.Events[string(name)]
	data, err := event.Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err)

	topics := []common.Hash{event.ID}
	for _, address := range indexed {
		topics = append(topics, addressTopic(address))
	}

	return types.Log{
		Address:     testFactory,
		Topics:      topics,
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
	}
}

func purchaseLog(t *testing.T, token common.Address, block uint64) types.Log {
	return buildLog(t, EventTokensPurchased, block, []common.Address{token, testBuyer}, ether("100"), ether("0.5"), ether("0.005"))
}

// testClock is a manually advanced clock
type testClock struct {
	mutex sync.Mutex
	now   time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1700000000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}
