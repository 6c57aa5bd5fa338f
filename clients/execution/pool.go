package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type SchedulerMode uint8

var (
	RoundRobinScheduler SchedulerMode = 1
)

// ErrNoReadyEndpoint is returned when no execution client is online and in sync
var ErrNoReadyEndpoint = errors.New("no ready execution endpoint")

type PoolConfig struct {
	SchedulerMode    string        `yaml:"schedulerMode" envconfig:"EXECUTION_POOL_SCHEDULER_MODE"`
	ChainID          uint64        `yaml:"chainId" envconfig:"EXECUTION_POOL_CHAIN_ID"`
	MaxHeadDistance  uint64        `yaml:"maxHeadDistance" envconfig:"EXECUTION_POOL_MAX_HEAD_DISTANCE"`
	HeadPollInterval time.Duration `yaml:"headPollInterval" envconfig:"EXECUTION_POOL_HEAD_POLL_INTERVAL"`
}

type Pool struct {
	config        *PoolConfig
	ctx           context.Context
	logger        logrus.FieldLogger
	chainState    *ChainState
	clientMutex   sync.RWMutex
	clientCounter uint16
	clients       []*Client

	schedulerMode  SchedulerMode
	schedulerMutex sync.Mutex
	rrLastIndexes  map[ClientType]uint16
}

func NewPool(ctx context.Context, config *PoolConfig, logger logrus.FieldLogger) (*Pool, error) {
	pool := Pool{
		config:        config,
		ctx:           ctx,
		logger:        logger,
		chainState:    newChainState(config.ChainID),
		clients:       make([]*Client, 0),
		rrLastIndexes: map[ClientType]uint16{},
	}

	switch config.SchedulerMode {
	case "", "rr", "roundrobin":
		pool.schedulerMode = RoundRobinScheduler
	default:
		return nil, fmt.Errorf("unknown pool schedulerMode: %v", config.SchedulerMode)
	}

	if pool.config.MaxHeadDistance == 0 {
		pool.config.MaxHeadDistance = 10
	}

	return &pool, nil
}

func (pool *Pool) GetChainState() *ChainState {
	return pool.chainState
}

func (pool *Pool) AddEndpoint(endpoint *ClientConfig) (*Client, error) {
	pool.clientMutex.Lock()
	defer pool.clientMutex.Unlock()

	clientIdx := pool.clientCounter
	pool.clientCounter++
	client, err := pool.newPoolClient(clientIdx, endpoint)

	if err != nil {
		return nil, err
	}

	pool.clients = append(pool.clients, client)

	return client, nil
}

func (pool *Pool) GetAllEndpoints() []*Client {
	pool.clientMutex.RLock()
	defer pool.clientMutex.RUnlock()

	clients := make([]*Client, len(pool.clients))
	copy(clients, pool.clients)

	return clients
}

func (pool *Pool) GetReadyEndpoint(clientType ClientType) *Client {
	readyClients := pool.GetReadyEndpoints()
	selectedClient := pool.runClientScheduler(readyClients, clientType)

	return selectedClient
}

func (pool *Pool) AwaitReadyEndpoint(ctx context.Context, clientType ClientType) *Client {
	for {
		client := pool.GetReadyEndpoint(clientType)
		if client != nil {
			return client
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(1 * time.Second):
		}
	}
}

// GetReadyEndpoints returns all online clients whose head is within MaxHeadDistance of the highest known head
func (pool *Pool) GetReadyEndpoints() []*Client {
	onlineClients := []*Client{}
	highestHead := uint64(0)

	for _, client := range pool.GetAllEndpoints() {
		if client.GetStatus() != ClientStatusOnline {
			continue
		}

		onlineClients = append(onlineClients, client)

		headNumber, _ := client.GetLastHead()
		if headNumber > highestHead {
			highestHead = headNumber
		}
	}

	readyClients := make([]*Client, 0, len(onlineClients))
	for _, client := range onlineClients {
		headNumber, _ := client.GetLastHead()
		if headNumber+pool.config.MaxHeadDistance < highestHead {
			continue
		}

		readyClients = append(readyClients, client)
	}

	if len(readyClients) == 0 {
		return nil
	}

	return readyClients
}

func (pool *Pool) IsClientReady(client *Client) bool {
	if client == nil {
		return false
	}

	for _, readyClient := range pool.GetReadyEndpoints() {
		if readyClient == client {
			return true
		}
	}

	return false
}

func (pool *Pool) runClientScheduler(readyClients []*Client, clientType ClientType) *Client {
	if len(readyClients) == 0 {
		return nil
	}

	pool.schedulerMutex.Lock()
	defer pool.schedulerMutex.Unlock()

	if pool.schedulerMode == RoundRobinScheduler {
		var firstReadyClient *Client

		for _, client := range readyClients {
			if clientType != AnyClient && clientType != client.clientType {
				continue
			}

			if firstReadyClient == nil {
				firstReadyClient = client
			}

			if client.clientIdx > pool.rrLastIndexes[clientType] {
				pool.rrLastIndexes[clientType] = client.clientIdx
				return client
			}
		}

		if firstReadyClient == nil {
			return nil
		}

		pool.rrLastIndexes[clientType] = firstReadyClient.clientIdx

		return firstReadyClient
	}

	return readyClients[0]
}
