// Package exception provides the error types shared by the load and dashboard paths.
// Errors raised while fetching, parsing or writing trip data are BatchErrors that carry the
// module they came from and whether the failure may be retried or skipped.
package exception

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"strings"
)

// Error kinds recognised by IsParseError, IsNetworkError and IsQuarantineError.
var (
	// ErrParse marks a raw field that is not a valid representation of its target type.
	ErrParse = errors.New("parse error")
	// ErrNetwork marks a failed or timed out remote fetch.
	ErrNetwork = errors.New("network error")
	// ErrQuarantine marks a failure to move a rejected source file aside.
	ErrQuarantine = errors.New("quarantine error")
)

// BatchError is an error raised during batch processing.
type BatchError struct {
	// Module is where the error occurred (for example "caster", "fetcher", "writer").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// StackTrace is captured at construction for debugging.
	StackTrace string

	kind        error
	isRetryable bool
	isSkippable bool
}

// NewBatchError creates a BatchError with no specific kind.
//
// module: The module where the error occurred.
// message: The error message.
// originalErr: The original error to wrap.
// isSkippable: Whether the failing item may be skipped.
// isRetryable: Whether the operation may be retried.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return newKindError(nil, module, message, originalErr, isSkippable, isRetryable)
}

func newKindError(kind error, module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
		kind:        kind,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
	}
}

// NewParseError reports a field value that could not be converted.
// Parse errors abort a load: they are neither retryable nor skippable.
//
// Parameters:
//
//	module: The module where the error occurred.
//	field: The name of the field being cast.
//	raw: The raw value, quoted in the message.
//	originalErr: The conversion error (e.g. from strconv).
//
// Returns:
//
//	A [BatchError] for which [IsParseError] reports true.
func NewParseError(module, field, raw string, originalErr error) *BatchError {
	msg := fmt.Sprintf("cannot parse field '%s' from %q", field, raw)
	return newKindError(ErrParse, module, msg, originalErr, false, false)
}

// NewNetworkError reports a failed remote call. Server-side failures (5xx) and timeouts are
// flagged retryable for callers that choose to retry; the fetcher itself never does.
//
// Parameters:
//
//	module: The module where the error occurred.
//	message: The error message, usually naming the URL.
//	originalErr: The transport error, or nil for an unexpected status.
//	isRetryable: Whether the failure is transient.
//
// Returns:
//
//	A [BatchError] for which [IsNetworkError] reports true.
func NewNetworkError(module, message string, originalErr error, isRetryable bool) *BatchError {
	return newKindError(ErrNetwork, module, message, originalErr, false, isRetryable)
}

// NewQuarantineError reports that a failed source could not be moved to quarantine.
func NewQuarantineError(module, message string, originalErr error) *BatchError {
	return newKindError(ErrQuarantine, module, message, originalErr, false, false)
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// Is reports whether target is the kind sentinel of this error.
func (e *BatchError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// AsBatchError returns the first BatchError in err's chain.
func AsBatchError(err error) (*BatchError, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsParseError reports whether err is or wraps a parse error.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsNetworkError reports whether err is or wraps a network error.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsQuarantineError reports whether err is or wraps a quarantine error.
func IsQuarantineError(err error) bool {
	return errors.Is(err, ErrQuarantine)
}

// IsTimeout reports whether err stems from a deadline or a net.Error timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsTemporary reports whether an error may succeed on a later attempt.
// A BatchError's own flag takes precedence over message inspection.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if be, ok := AsBatchError(err); ok {
		return be.IsRetryable()
	}
	if IsTimeout(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}

// ExtractErrorMessage returns the BatchError message when err is one, otherwise err.Error().
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if be, ok := AsBatchError(err); ok {
		return be.Message
	}
	return err.Error()
}
