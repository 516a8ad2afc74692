package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed gateway call
type ErrorKind string

const (
	KindNetworkUnreachable ErrorKind = "NETWORK_UNREACHABLE"
	KindCORSBlocked        ErrorKind = "CORS_BLOCKED"
	KindBadResponse        ErrorKind = "BAD_RESPONSE"
	KindServerError        ErrorKind = "SERVER_ERROR"
	KindUnknown            ErrorKind = "UNKNOWN"
)

// Error is the typed failure carried by a Result.
type Error struct {
	Kind ErrorKind `json:"kind"`

	// Status is the HTTP status for SERVER_ERROR, zero otherwise
	Status int `json:"status,omitempty"`

	Message string `json:"error"`

	cause error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsKind reports whether err is a gateway *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind == kind
	}
	return false
}

// Result is returned by every gateway operation instead of (value, error).
// Exactly one of Value (with Err == nil) or Err is meaningful.
type Result[T any] struct {
	Value T

	Err *Error

	// Degraded is set when the operation substituted a documented fallback for a
	// failure. Value is then the fallback and Err stays nil.
	Degraded *Error
}

// OK reports whether the call succeeded (possibly with a fallback value).
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Unpack converts the result into Go's usual value/error pair.
func (r Result[T]) Unpack() (T, error) {
	if r.Err != nil {
		return r.Value, r.Err
	}
	return r.Value, nil
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func fail[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}
