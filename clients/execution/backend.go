package execution

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// The pool serves contract reads by delegating each request to a ready client chosen by the scheduler.
// Requests that fail without a json-rpc error response are retried on the other ready clients.

func (pool *Pool) withReadyClient(ctx context.Context, call func(client *Client) error) error {
	selected := pool.GetReadyEndpoint(AnyClient)
	if selected == nil {
		return ErrNoReadyEndpoint
	}

	clients := []*Client{selected}
	for _, client := range pool.GetReadyEndpoints() {
		if client != selected {
			clients = append(clients, client)
		}
	}

	var err error
	for idx, client := range clients {
		err = call(client)
		if err == nil || !isTransportError(err) || ctx.Err() != nil {
			return err
		}

		if idx < len(clients)-1 {
			pool.logger.WithFields(logrus.Fields{
				"client": client.GetName(),
				"next":   clients[idx+1].GetName(),
			}).WithError(err).Debugf("request failed, failing over")
		}
	}

	return err
}

// isTransportError reports whether err happened before the node answered the request
func isTransportError(err error) bool {
	var rpcErr gethrpc.Error
	return !errors.As(err, &rpcErr)
}

func (pool *Pool) BatchCallContract(ctx context.Context, msgs []ethereum.CallMsg) ([][]byte, []error, error) {
	var data [][]byte
	var errs []error

	err := pool.withReadyClient(ctx, func(client *Client) error {
		var err error
		data, errs, err = client.rpcClient.BatchCallContract(ctx, msgs)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return data, errs, nil
}

func (pool *Pool) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var data []byte

	err := pool.withReadyClient(ctx, func(client *Client) error {
		var err error
		data, err = client.rpcClient.CallContract(ctx, msg, blockNumber)
		return err
	})

	return data, err
}

func (pool *Pool) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log

	err := pool.withReadyClient(ctx, func(client *Client) error {
		var err error
		logs, err = client.rpcClient.FilterLogs(ctx, query)
		return err
	})

	return logs, err
}

func (pool *Pool) BlockNumber(ctx context.Context) (uint64, error) {
	var number uint64

	err := pool.withReadyClient(ctx, func(client *Client) error {
		var err error
		number, err = client.rpcClient.GetBlockNumber(ctx)
		return err
	})

	return number, err
}

func (pool *Pool) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	var balance *big.Int

	err := pool.withReadyClient(ctx, func(client *Client) error {
		var err error
		balance, err = client.rpcClient.GetBalanceAt(ctx, account, blockNumber)
		return err
	})

	return balance, err
}
