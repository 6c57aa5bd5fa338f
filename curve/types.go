package curve

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenState is the lifecycle stage of a token as reported by the factory
type TokenState uint8

const (
	TokenStateNotCreated  TokenState = 0
	TokenStateTrading     TokenState = 1
	TokenStateGoalReached TokenState = 2
	TokenStateHalted      TokenState = 3
	TokenStateResumed     TokenState = 4
)

func (state TokenState) String() string {
	switch state {
	case TokenStateNotCreated:
		return "NOT_CREATED"
	case TokenStateTrading:
		return "TRADING"
	case TokenStateGoalReached:
		return "GOAL_REACHED"
	case TokenStateHalted:
		return "HALTED"
	case TokenStateResumed:
		return "RESUMED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(state))
	}
}

func (state TokenState) IsValid() bool {
	return state <= TokenStateResumed
}

// IsTradable returns true if buys and sells are accepted in this state
func (state TokenState) IsTradable() bool {
	return state == TokenStateTrading || state == TokenStateResumed
}

func (state TokenState) MarshalText() ([]byte, error) {
	return []byte(state.String()), nil
}

// Direction is the side of a trade
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

func ParseDirection(direction string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(direction))) {
	case DirectionBuy:
		return DirectionBuy, nil
	case DirectionSell:
		return DirectionSell, nil
	default:
		return "", newError(KindInvalidInput, "parse direction", common.Address{}, fmt.Errorf("unknown direction %q", direction))
	}
}

// TokenChainState is a snapshot of one token's on-chain condition.
// Integer fields are in the smallest unit (wei / token base units).
type TokenChainState struct {
	Token         common.Address `json:"token"`
	Price         *big.Int       `json:"price"`
	Collateral    *big.Int       `json:"collateral"`
	VirtualSupply *big.Int       `json:"virtualSupply"`
	FundingGoal   *big.Int       `json:"fundingGoal"`
	MaxSupply     *big.Int       `json:"maxSupply"`
	TotalSupply   *big.Int       `json:"totalSupply"`
	State         TokenState     `json:"state"`
	TradingFeeBps uint64         `json:"tradingFeeBps"`
	TradingFee    float64        `json:"tradingFee"`
	LastUpdated   time.Time      `json:"lastUpdated"`
}

// Progress holds the metrics derived locally from a TokenChainState
type Progress struct {
	FundingPercentage float64 `json:"fundingPercentage"`
	IsGoalReached     bool    `json:"isGoalReached"`
	SupplyUtilization float64 `json:"supplyUtilization"`
}

// ParseAddress validates a hex address string
func ParseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return common.Address{}, newError(KindInvalidInput, "parse address", common.Address{}, fmt.Errorf("malformed address %q", address))
	}

	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return common.Address{}, newError(KindInvalidInput, "parse address", common.Address{}, fmt.Errorf("zero address"))
	}

	return addr, nil
}
