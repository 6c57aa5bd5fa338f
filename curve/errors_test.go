package curve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     ErrorKind
		sentinel error
	}{
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), kind: KindTimeout, sentinel: ErrTimeout},
		{name: "cancelled", err: context.Canceled, kind: KindCancelled, sentinel: ErrCancelled},
		{name: "rpc revert", err: testRevertError{}, kind: KindContractReverted, sentinel: ErrContractReverted},
		{name: "revert message", err: errors.New("execution reverted: token not found"), kind: KindContractReverted, sentinel: ErrContractReverted},
		{name: "abi", err: errors.New("abi: cannot marshal in to go type"), kind: KindDecodeError, sentinel: ErrDecodeError},
		{name: "network", err: errTestConnection, kind: KindNetworkUnavailable, sentinel: ErrNetworkUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("read", testToken, tt.err)
			assert.Equal(t, tt.kind, err.Kind)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.kind, ErrorKindOf(fmt.Errorf("wrapped: %w", err)))
		})
	}

	assert.Nil(t, classifyError("read", testToken, nil))
}

func TestClassifyKeepsKind(t *testing.T) {
	inner := newError(KindInvalidInput, "validate amount", testToken, errors.New("bad"))
	err := classifyError("estimate", testToken, fmt.Errorf("outer: %w", inner))

	assert.Equal(t, KindInvalidInput, err.Kind)
	assert.NotErrorIs(t, err, ErrNetworkUnavailable)
}

func TestErrorKindTransient(t *testing.T) {
	assert.True(t, KindNetworkUnavailable.Transient())
	assert.True(t, KindTimeout.Transient())
	assert.False(t, KindContractReverted.Transient())
	assert.False(t, KindInvalidInput.Transient())
	assert.False(t, KindDecodeError.Transient())
	assert.False(t, KindCancelled.Transient())
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x1111111111111111111111111111111111111111")
	assert.NoError(t, err)
	assert.Equal(t, testToken, addr)

	for _, input := range []string{"", "0x1234", "not an address", "0x0000000000000000000000000000000000000000"} {
		_, err := ParseAddress(input)
		assert.ErrorIs(t, err, ErrInvalidInput, input)
	}
}

func TestParseDirection(t *testing.T) {
	direction, err := ParseDirection(" BUY ")
	assert.NoError(t, err)
	assert.Equal(t, DirectionBuy, direction)

	_, err = ParseDirection("swap")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
