package exception_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	be := exception.NewBatchError("db", "failed to connect", originalErr, false, true)

	assert.Equal(t, "db", be.Module)
	assert.Equal(t, "failed to connect", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Equal(t, "[db] failed to connect: db connection refused", be.Error())
	assert.NotEmpty(t, be.StackTrace)
}

func TestBatchError_WithoutOriginal(t *testing.T) {
	be := exception.NewBatchError("loader", "source missing", nil, false, false)
	assert.Equal(t, "[loader] source missing", be.Error())
	assert.Nil(t, be.Unwrap())
}

func TestKinds(t *testing.T) {
	parse := exception.NewParseError("caster", "fare_amount", "abc", errors.New("invalid syntax"))
	network := exception.NewNetworkError("fetcher", "GET failed", errors.New("503"), true)
	quarantine := exception.NewQuarantineError("loader", "move failed", errors.New("permission denied"))

	assert.True(t, exception.IsParseError(parse))
	assert.False(t, exception.IsNetworkError(parse))
	assert.Contains(t, parse.Error(), `cannot parse field 'fare_amount' from "abc"`)

	assert.True(t, exception.IsNetworkError(network))
	assert.True(t, network.IsRetryable())
	assert.False(t, exception.IsParseError(network))

	assert.True(t, exception.IsQuarantineError(quarantine))

	wrapped := fmt.Errorf("load 2019-01: %w", parse)
	assert.True(t, exception.IsParseError(wrapped))
	assert.False(t, exception.IsParseError(exception.NewBatchError("x", "y", nil, false, false)))
}

func TestAsBatchError(t *testing.T) {
	be := exception.NewBatchError("writer", "insert failed", nil, false, false)
	got, ok := exception.AsBatchError(fmt.Errorf("step: %w", be))
	assert.True(t, ok)
	assert.Same(t, be, got)

	_, ok = exception.AsBatchError(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, exception.IsTimeout(context.DeadlineExceeded))
	assert.True(t, exception.IsTimeout(fmt.Errorf("get: %w", timeoutError{})))
	assert.False(t, exception.IsTimeout(errors.New("boom")))
	assert.False(t, exception.IsTimeout(nil))
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, exception.IsTemporary(nil))
	assert.True(t, exception.IsTemporary(exception.NewBatchError("m", "x", nil, false, true)))
	// The BatchError flag wins over the wrapped cause.
	assert.False(t, exception.IsTemporary(exception.NewBatchError("m", "x", context.DeadlineExceeded, false, false)))
	assert.True(t, exception.IsTemporary(context.DeadlineExceeded))
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: connection refused")))
	assert.False(t, exception.IsTemporary(errors.New("syntax error")))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "insert failed", exception.ExtractErrorMessage(
		fmt.Errorf("wrapped: %w", exception.NewBatchError("writer", "insert failed", errors.New("x"), false, false))))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}
