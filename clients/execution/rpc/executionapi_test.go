package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEthService struct {
	calls   int
	syncing bool
}

func (s *testEthService) Call(args map[string]interface{}, block string) (hexutil.Bytes, error) {
	s.calls++

	input, _ := args["input"].(string)
	if input == "0xdead" {
		return nil, errors.New("execution reverted")
	}

	data, err := hexutil.Decode(input)
	if err != nil {
		return nil, err
	}

	// echo the input back reversed
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}

	return data, nil
}

func (s *testEthService) BlockNumber() hexutil.Uint64 {
	return 1234
}

func (s *testEthService) Syncing() (interface{}, error) {
	if s.syncing {
		return map[string]interface{}{
			"startingBlock": "0x0",
			"currentBlock":  "0x10",
			"highestBlock":  "0x20",
		}, nil
	}
	return false, nil
}

func newTestClient(t *testing.T) (*ExecutionClient, *testEthService) {
	t.Helper()

	service := &testEthService{}
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", service))
	t.Cleanup(server.Stop)

	logger, _ := test.NewNullLogger()
	client := NewExecutionClientFromRPC("test", rpc.DialInProc(server), logger)
	t.Cleanup(client.Close)

	return client, service
}

func TestBatchCallContract(t *testing.T) {
	client, service := newTestClient(t)
	target := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	msgs := []ethereum.CallMsg{
		{To: &target, Data: []byte{0x01, 0x02}},
		{To: &target, Data: []byte{0xde, 0xad}},
		{To: &target, Data: []byte{0x03, 0x04, 0x05}},
	}

	data, errs, err := client.BatchCallContract(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, data, 3)
	require.Len(t, errs, 3)

	assert.Equal(t, 3, service.calls)

	assert.NoError(t, errs[0])
	assert.Equal(t, []byte{0x02, 0x01}, data[0])

	assert.Error(t, errs[1])
	assert.Contains(t, errs[1].Error(), "execution reverted")

	assert.NoError(t, errs[2])
	assert.Equal(t, []byte{0x05, 0x04, 0x03}, data[2])
}

func TestGetBlockNumber(t *testing.T) {
	client, _ := newTestClient(t)

	number, err := client.GetBlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), number)
}

func TestChainSpecMismatch(t *testing.T) {
	a := &ChainSpec{ChainID: "1"}
	b := &ChainSpec{ChainID: "5"}

	assert.Empty(t, a.CheckMismatch(&ChainSpec{ChainID: "1"}))
	assert.Equal(t, []string{"chain id 5, expected 1"}, a.CheckMismatch(b))
}

func TestIsSyncing(t *testing.T) {
	client, service := newTestClient(t)

	syncing, err := client.IsSyncing(context.Background())
	require.NoError(t, err)
	assert.False(t, syncing)

	service.syncing = true
	syncing, err = client.IsSyncing(context.Background())
	require.NoError(t, err)
	assert.True(t, syncing)
}
