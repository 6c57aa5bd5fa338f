package rpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

type ExecutionClient struct {
	name      string
	endpoint  string
	headers   map[string]string
	logger    logrus.FieldLogger
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// NewExecutionClient is used to create a new execution client
func NewExecutionClient(name, endpoint string, headers map[string]string, logger logrus.FieldLogger) (*ExecutionClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint url for client %v", name)
	}

	client := &ExecutionClient{
		name:     name,
		endpoint: endpoint,
		headers:  headers,
		logger:   logger,
	}

	return client, nil
}

// NewExecutionClientFromRPC wraps an already connected rpc client
func NewExecutionClientFromRPC(name string, rpcClient *rpc.Client, logger logrus.FieldLogger) *ExecutionClient {
	return &ExecutionClient{
		name:      name,
		logger:    logger,
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
	}
}

func (ec *ExecutionClient) Initialize(ctx context.Context) error {
	if ec.ethClient != nil {
		return nil
	}

	rpcClient, err := rpc.DialContext(ctx, ec.endpoint)
	if err != nil {
		return err
	}

	for hKey, hVal := range ec.headers {
		rpcClient.SetHeader(hKey, hVal)
	}

	ec.rpcClient = rpcClient
	ec.ethClient = ethclient.NewClient(rpcClient)

	return nil
}

func (ec *ExecutionClient) Close() {
	if ec.rpcClient != nil {
		ec.rpcClient.Close()
	}
}

func (ec *ExecutionClient) GetEthClient() *ethclient.Client {
	return ec.ethClient
}

func (ec *ExecutionClient) GetClientVersion(ctx context.Context) (string, error) {
	var result string
	err := ec.rpcClient.CallContext(ctx, &result, "web3_clientVersion")

	return result, err
}

func (ec *ExecutionClient) GetChainSpec(ctx context.Context) (*ChainSpec, error) {
	chainID, err := ec.ethClient.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	return &ChainSpec{
		ChainID: chainID.String(),
	}, nil
}

// IsSyncing reports whether the node is still catching up with the chain
func (ec *ExecutionClient) IsSyncing(ctx context.Context) (bool, error) {
	status, err := ec.ethClient.SyncProgress(ctx)
	if err != nil {
		return false, err
	}

	return status != nil, nil
}

func (ec *ExecutionClient) GetLatestHeader(ctx context.Context) (*types.Header, error) {
	header, err := ec.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}

	return header, nil
}

func (ec *ExecutionClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	return ec.ethClient.BlockNumber(ctx)
}

func (ec *ExecutionClient) GetBalanceAt(ctx context.Context, wallet common.Address, blockNumber *big.Int) (*big.Int, error) {
	return ec.ethClient.BalanceAt(ctx, wallet, blockNumber)
}

func (ec *ExecutionClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return ec.ethClient.CallContract(ctx, msg, blockNumber)
}

func (ec *ExecutionClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return ec.ethClient.FilterLogs(ctx, query)
}

// BatchCallContract sends all calls as one json-rpc batch of eth_call requests against the latest block.
// The returned slices are aligned with msgs. The error is only set if the batch as a whole failed.
func (ec *ExecutionClient) BatchCallContract(ctx context.Context, msgs []ethereum.CallMsg) ([][]byte, []error, error) {
	results := make([]hexutil.Bytes, len(msgs))
	batch := make([]rpc.BatchElem, len(msgs))

	for i, msg := range msgs {
		batch[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []interface{}{toCallArg(msg), "latest"},
			Result: &results[i],
		}
	}

	err := ec.rpcClient.BatchCallContext(ctx, batch)
	if err != nil {
		return nil, nil, err
	}

	data := make([][]byte, len(msgs))
	errs := make([]error, len(msgs))
	for i := range batch {
		data[i] = results[i]
		errs[i] = batch[i].Error
	}

	ec.logger.Debugf("batch call with %v calls completed", len(msgs))

	return data, errs, nil
}

func toCallArg(msg ethereum.CallMsg) interface{} {
	arg := map[string]interface{}{
		"to": msg.To,
	}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From
	}
	if len(msg.Data) > 0 {
		arg["input"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}

	return arg
}
