package curve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

type ErrorKind uint8

const (
	KindInvalidInput ErrorKind = iota + 1
	KindNetworkUnavailable
	KindContractReverted
	KindDecodeError
	KindTimeout
	KindCancelled
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrContractReverted   = errors.New("contract reverted")
	ErrDecodeError        = errors.New("decode error")
	ErrTimeout            = errors.New("timeout")
	ErrCancelled          = errors.New("cancelled")
)

func (kind ErrorKind) sentinel() error {
	switch kind {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindNetworkUnavailable:
		return ErrNetworkUnavailable
	case KindContractReverted:
		return ErrContractReverted
	case KindDecodeError:
		return ErrDecodeError
	case KindTimeout:
		return ErrTimeout
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

func (kind ErrorKind) String() string {
	if err := kind.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("unknown error kind %d", uint8(kind))
}

// Transient kinds may succeed when retried
func (kind ErrorKind) Transient() bool {
	return kind == KindNetworkUnavailable || kind == KindTimeout
}

// Error is returned by all remote operations of this package
type Error struct {
	Kind  ErrorKind
	Op    string
	Token common.Address
	Err   error
}

func newError(kind ErrorKind, op string, token common.Address, err error) *Error {
	return &Error{
		Kind:  kind,
		Op:    op,
		Token: token,
		Err:   err,
	}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Token != (common.Address{}) {
		sb.WriteString(" ")
		sb.WriteString(e.Token.Hex())
	}
	sb.WriteString(": ")
	sb.WriteString(e.Kind.String())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// ErrorKindOf returns the kind of err, or 0 if err is not an *Error
func ErrorKindOf(err error) ErrorKind {
	var curveErr *Error
	if errors.As(err, &curveErr) {
		return curveErr.Kind
	}
	return 0
}

// classifyError converts a transport or decode error into the error taxonomy
func classifyError(op string, token common.Address, err error) *Error {
	if err == nil {
		return nil
	}

	var curveErr *Error
	if errors.As(err, &curveErr) {
		return curveErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimeout, op, token, err)
	case errors.Is(err, context.Canceled):
		return newError(KindCancelled, op, token, err)
	case isRevertError(err):
		return newError(KindContractReverted, op, token, err)
	case strings.HasPrefix(err.Error(), "abi:"):
		return newError(KindDecodeError, op, token, err)
	default:
		return newError(KindNetworkUnavailable, op, token, err)
	}
}

func isRevertError(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 3 {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
