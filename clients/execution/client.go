package execution

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/clients/execution/rpc"
)

type ClientStatus uint8

var (
	ClientStatusOnline        ClientStatus = 1
	ClientStatusOffline       ClientStatus = 2
	ClientStatusSynchronizing ClientStatus = 3
)

func (status ClientStatus) String() string {
	switch status {
	case ClientStatusOnline:
		return "online"
	case ClientStatusSynchronizing:
		return "synchronizing"
	default:
		return "offline"
	}
}

type ClientConfig struct {
	URL     string
	Name    string
	Headers map[string]string
}

type Client struct {
	pool            *Pool
	clientIdx       uint16
	endpointConfig  *ClientConfig
	clientCtx       context.Context
	clientCtxCancel context.CancelFunc
	rpcClient       *rpc.ExecutionClient
	logger          *logrus.Entry
	statusMutex     sync.RWMutex
	isOnline        bool
	isSyncing       bool
	versionStr      string
	clientType      ClientType
	lastEvent       time.Time
	retryCounter    uint64
	lastError       error
	headMutex       sync.RWMutex
	headHash        common.Hash
	headNumber      uint64
}

func (pool *Pool) newPoolClient(clientIdx uint16, endpoint *ClientConfig) (*Client, error) {
	logger := pool.logger.WithField("client", endpoint.Name)

	rpcClient, err := rpc.NewExecutionClient(endpoint.Name, endpoint.URL, endpoint.Headers, logger)
	if err != nil {
		return nil, err
	}

	client := Client{
		pool:           pool,
		clientIdx:      clientIdx,
		endpointConfig: endpoint,
		rpcClient:      rpcClient,
		logger:         logger,
	}
	client.resetContext()

	go client.runClientLoop()

	return &client, nil
}

func (client *Client) resetContext() {
	if client.clientCtxCancel != nil {
		client.clientCtxCancel()
	}

	client.clientCtx, client.clientCtxCancel = context.WithCancel(client.pool.ctx)
}

func (client *Client) GetIndex() uint16 {
	return client.clientIdx
}

func (client *Client) GetName() string {
	return client.endpointConfig.Name
}

func (client *Client) GetVersion() string {
	client.statusMutex.RLock()
	defer client.statusMutex.RUnlock()

	return client.versionStr
}

func (client *Client) GetEndpointConfig() *ClientConfig {
	return client.endpointConfig
}

func (client *Client) GetLastHead() (uint64, common.Hash) {
	client.headMutex.RLock()
	defer client.headMutex.RUnlock()

	return client.headNumber, client.headHash
}

func (client *Client) GetLastError() error {
	client.statusMutex.RLock()
	defer client.statusMutex.RUnlock()

	return client.lastError
}

func (client *Client) GetLastEventTime() time.Time {
	client.statusMutex.RLock()
	defer client.statusMutex.RUnlock()

	return client.lastEvent
}

func (client *Client) GetRPCClient() *rpc.ExecutionClient {
	return client.rpcClient
}

func (client *Client) GetStatus() ClientStatus {
	client.statusMutex.RLock()
	defer client.statusMutex.RUnlock()

	switch {
	case client.isSyncing:
		return ClientStatusSynchronizing
	case client.isOnline:
		return ClientStatusOnline
	default:
		return ClientStatusOffline
	}
}

func (client *Client) setOnline(online bool) {
	client.statusMutex.Lock()
	defer client.statusMutex.Unlock()

	client.isOnline = online
	client.lastEvent = time.Now()
}
