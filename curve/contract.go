package curve

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const factoryABIJson = `[
	{"type":"function","name":"lastPrice","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"collateral","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"virtualSupply","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getFundingGoal","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getMaxSupply","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getTokenState","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"TRADING_FEE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"DECIMALS","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"calculateTokenAmount","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"ethAmount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"calculateSellPrice","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"tokenAmount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"TokenCreated","anonymous":false,"inputs":[
		{"name":"tokenAddress","type":"address","indexed":true},
		{"name":"name","type":"string","indexed":false},
		{"name":"symbol","type":"string","indexed":false},
		{"name":"imageUrl","type":"string","indexed":false},
		{"name":"creator","type":"address","indexed":true},
		{"name":"fundingGoal","type":"uint256","indexed":false},
		{"name":"burnManager","type":"address","indexed":false},
		{"name":"creatorTokens","type":"uint256","indexed":false},
		{"name":"ethSpent","type":"uint256","indexed":false}]},
	{"type":"event","name":"TokensPurchased","anonymous":false,"inputs":[
		{"name":"token","type":"address","indexed":true},
		{"name":"buyer","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"price","type":"uint256","indexed":false},
		{"name":"fee","type":"uint256","indexed":false}]},
	{"type":"event","name":"TokensSold","anonymous":false,"inputs":[
		{"name":"token","type":"address","indexed":true},
		{"name":"seller","type":"address","indexed":true},
		{"name":"tokenAmount","type":"uint256","indexed":false},
		{"name":"ethAmount","type":"uint256","indexed":false},
		{"name":"fee","type":"uint256","indexed":false}]},
	{"type":"event","name":"TradingHalted","anonymous":false,"inputs":[
		{"name":"token","type":"address","indexed":true},
		{"name":"collateral","type":"uint256","indexed":false}]},
	{"type":"event","name":"TradingResumed","anonymous":false,"inputs":[
		{"name":"token","type":"address","indexed":true}]}
]`

const tokenABIJson = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var (
	factoryABI = mustParseABI(factoryABIJson)
	tokenABI   = mustParseABI(tokenABIJson)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid abi definition: %v", err))
	}
	return parsed
}

// FactoryContract packs calls to and decodes results and logs of the bonding curve factory
type FactoryContract struct {
	address common.Address
	abi     abi.ABI
	token   abi.ABI
}

func NewFactoryContract(address common.Address) (*FactoryContract, error) {
	if address == (common.Address{}) {
		return nil, fmt.Errorf("factory address must not be the zero address")
	}

	return &FactoryContract{
		address: address,
		abi:     factoryABI,
		token:   tokenABI,
	}, nil
}

func (c *FactoryContract) Address() common.Address {
	return c.address
}

func (c *FactoryContract) ABI() *abi.ABI {
	return &c.abi
}

func (c *FactoryContract) packCall(method string, args ...interface{}) (ethereum.CallMsg, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return ethereum.CallMsg{}, fmt.Errorf("failed packing %v call: %w", method, err)
	}

	return ethereum.CallMsg{
		To:   &c.address,
		Data: data,
	}, nil
}

func (c *FactoryContract) packBalanceOf(token common.Address, owner common.Address) (ethereum.CallMsg, error) {
	data, err := c.token.Pack("balanceOf", owner)
	if err != nil {
		return ethereum.CallMsg{}, fmt.Errorf("failed packing balanceOf call: %w", err)
	}

	return ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil
}

func unpackUint256(contractAbi *abi.ABI, method string, data []byte) (*big.Int, error) {
	values, err := contractAbi.Unpack(method, data)
	if err != nil {
		return nil, err
	}

	if len(values) != 1 {
		return nil, fmt.Errorf("abi: %v returned %v values, expected 1", method, len(values))
	}

	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("abi: %v returned %T, expected uint256", method, values[0])
	}

	return value, nil
}

func (c *FactoryContract) unpackUint(method string, data []byte) (*big.Int, error) {
	return unpackUint256(&c.abi, method, data)
}

func (c *FactoryContract) unpackBalance(data []byte) (*big.Int, error) {
	return unpackUint256(&c.token, "balanceOf", data)
}

func (c *FactoryContract) unpackState(data []byte) (TokenState, error) {
	values, err := c.abi.Unpack("getTokenState", data)
	if err != nil {
		return 0, err
	}

	if len(values) != 1 {
		return 0, fmt.Errorf("abi: getTokenState returned %v values, expected 1", len(values))
	}

	value, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("abi: getTokenState returned %T, expected uint8", values[0])
	}

	state := TokenState(value)
	if !state.IsValid() {
		return 0, fmt.Errorf("abi: unknown token state %v", value)
	}

	return state, nil
}

// EventTopics returns the topic ids of all watched factory events
func (c *FactoryContract) EventTopics() []common.Hash {
	topics := make([]common.Hash, 0, len(watchedEvents))
	for _, name := range watchedEvents {
		topics = append(topics, c.abi.Events[string(name)].ID)
	}

	return topics
}
