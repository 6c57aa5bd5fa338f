package curve

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type EventName string

const (
	EventTokenCreated    EventName = "TokenCreated"
	EventTokensPurchased EventName = "TokensPurchased"
	EventTokensSold      EventName = "TokensSold"
	EventTradingHalted   EventName = "TradingHalted"
	EventTradingResumed  EventName = "TradingResumed"
)

var watchedEvents = []EventName{
	EventTokenCreated,
	EventTokensPurchased,
	EventTokensSold,
	EventTradingHalted,
	EventTradingResumed,
}

// EventData is implemented by the typed payload of each factory event
type EventData interface {
	Kind() EventName
	token() common.Address
}

type TokenCreated struct {
	Token         common.Address `json:"tokenAddress"`
	Name          string         `json:"name"`
	Symbol        string         `json:"symbol"`
	ImageUrl      string         `json:"imageUrl"`
	Creator       common.Address `json:"creator"`
	FundingGoal   *big.Int       `json:"fundingGoal"`
	BurnManager   common.Address `json:"burnManager"`
	CreatorTokens *big.Int       `json:"creatorTokens"`
	EthSpent      *big.Int       `json:"ethSpent"`
}

type TokensPurchased struct {
	Token  common.Address `json:"token"`
	Buyer  common.Address `json:"buyer"`
	Amount *big.Int       `json:"amount"`
	Price  *big.Int       `json:"price"`
	Fee    *big.Int       `json:"fee"`
}

type TokensSold struct {
	Token       common.Address `json:"token"`
	Seller      common.Address `json:"seller"`
	TokenAmount *big.Int       `json:"tokenAmount"`
	EthAmount   *big.Int       `json:"ethAmount"`
	Fee         *big.Int       `json:"fee"`
}

type TradingHalted struct {
	Token      common.Address `json:"token"`
	Collateral *big.Int       `json:"collateral"`
}

type TradingResumed struct {
	Token common.Address `json:"token"`
}

func (*TokenCreated) Kind() EventName    { return EventTokenCreated }
func (*TokensPurchased) Kind() EventName { return EventTokensPurchased }
func (*TokensSold) Kind() EventName      { return EventTokensSold }
func (*TradingHalted) Kind() EventName   { return EventTradingHalted }
func (*TradingResumed) Kind() EventName  { return EventTradingResumed }

func (d *TokenCreated) token() common.Address    { return d.Token }
func (d *TokensPurchased) token() common.Address { return d.Token }
func (d *TokensSold) token() common.Address      { return d.Token }
func (d *TradingHalted) token() common.Address   { return d.Token }
func (d *TradingResumed) token() common.Address  { return d.Token }

// Event is a decoded factory log
type Event struct {
	Name        EventName      `json:"eventName"`
	Token       common.Address `json:"tokenAddress"`
	Data        EventData      `json:"data"`
	TxHash      common.Hash    `json:"transactionHash"`
	BlockNumber uint64         `json:"blockNumber"`
	LogIndex    uint           `json:"logIndex"`
}

// IsTrade returns true for purchases and sales
func (ev *Event) IsTrade() bool {
	return ev.Name == EventTokensPurchased || ev.Name == EventTokensSold
}

// DecodeLog validates a factory log and decodes it into a typed event
func (c *FactoryContract) DecodeLog(log *types.Log) (*Event, error) {
	decodeErr := func(err error) error {
		return newError(KindDecodeError, "decode log", common.Address{}, err)
	}

	if log.Address != c.address {
		return nil, decodeErr(fmt.Errorf("log from foreign contract %v", log.Address.Hex()))
	}
	if log.Removed {
		return nil, decodeErr(fmt.Errorf("log %v/%v was removed by a reorg", log.TxHash.Hex(), log.Index))
	}
	if len(log.Topics) == 0 {
		return nil, decodeErr(fmt.Errorf("anonymous log"))
	}

	event, err := c.abi.EventByID(log.Topics[0])
	if err != nil {
		return nil, decodeErr(fmt.Errorf("unknown event topic %v", log.Topics[0].Hex()))
	}

	indexed := abi.Arguments{}
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(log.Topics) != len(indexed)+1 {
		return nil, decodeErr(fmt.Errorf("%v log has %v topics, expected %v", event.Name, len(log.Topics), len(indexed)+1))
	}

	values, err := c.abi.Unpack(event.Name, log.Data)
	if err != nil {
		return nil, decodeErr(fmt.Errorf("%v data: %w", event.Name, err))
	}

	args := &eventArgs{
		name:   event.Name,
		topics: log.Topics[1:],
		values: values,
	}

	var data EventData
	switch EventName(event.Name) {
	case EventTokenCreated:
		data = &TokenCreated{
			Token:         args.topicAddress(0),
			Creator:       args.topicAddress(1),
			Name:          args.stringValue(0),
			Symbol:        args.stringValue(1),
			ImageUrl:      args.stringValue(2),
			FundingGoal:   args.bigValue(3),
			BurnManager:   args.addressValue(4),
			CreatorTokens: args.bigValue(5),
			EthSpent:      args.bigValue(6),
		}
	case EventTokensPurchased:
		data = &TokensPurchased{
			Token:  args.topicAddress(0),
			Buyer:  args.topicAddress(1),
			Amount: args.bigValue(0),
			Price:  args.bigValue(1),
			Fee:    args.bigValue(2),
		}
	case EventTokensSold:
		data = &TokensSold{
			Token:       args.topicAddress(0),
			Seller:      args.topicAddress(1),
			TokenAmount: args.bigValue(0),
			EthAmount:   args.bigValue(1),
			Fee:         args.bigValue(2),
		}
	case EventTradingHalted:
		data = &TradingHalted{
			Token:      args.topicAddress(0),
			Collateral: args.bigValue(0),
		}
	case EventTradingResumed:
		data = &TradingResumed{
			Token: args.topicAddress(0),
		}
	default:
		return nil, decodeErr(fmt.Errorf("unhandled event %v", event.Name))
	}

	if args.err != nil {
		return nil, decodeErr(args.err)
	}

	token := data.token()
	if token == (common.Address{}) {
		return nil, decodeErr(fmt.Errorf("%v log without token address", event.Name))
	}

	return &Event{
		Name:        data.Kind(),
		Token:       token,
		Data:        data,
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, nil
}

// eventArgs extracts typed log arguments, remembering the first mismatch
type eventArgs struct {
	name   string
	topics []common.Hash
	values []interface{}
	err    error
}

func (a *eventArgs) fail(format string, args ...interface{}) {
	if a.err == nil {
		a.err = fmt.Errorf("%v: %v", a.name, fmt.Sprintf(format, args...))
	}
}

func (a *eventArgs) topicAddress(idx int) common.Address {
	if idx >= len(a.topics) {
		a.fail("missing topic %v", idx)
		return common.Address{}
	}

	topic := a.topics[idx]
	// addresses are left padded to 32 bytes
	for _, b := range topic[:12] {
		if b != 0 {
			a.fail("topic %v is not an address", idx)
			return common.Address{}
		}
	}

	return common.BytesToAddress(topic[12:])
}

func (a *eventArgs) value(idx int) interface{} {
	if idx >= len(a.values) {
		a.fail("missing value %v", idx)
		return nil
	}
	return a.values[idx]
}

func (a *eventArgs) bigValue(idx int) *big.Int {
	value, ok := a.value(idx).(*big.Int)
	if !ok {
		a.fail("value %v is not a uint256", idx)
		return nil
	}
	return value
}

func (a *eventArgs) stringValue(idx int) string {
	value, ok := a.value(idx).(string)
	if !ok {
		a.fail("value %v is not a string", idx)
		return ""
	}
	return value
}

func (a *eventArgs) addressValue(idx int) common.Address {
	value, ok := a.value(idx).(common.Address)
	if !ok {
		a.fail("value %v is not an address", idx)
		return common.Address{}
	}
	return value
}
