package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies completion failures so callers can decide between
// retrying, falling back and surfacing the error.
type ErrorKind string

const (
	// KindTimeout means the call exceeded its deadline.
	KindTimeout ErrorKind = "timeout"

	// KindRemote means the provider returned a failure response.
	KindRemote ErrorKind = "remote"

	// KindRateLimited means the provider rejected the call for quota.
	KindRateLimited ErrorKind = "rate_limited"

	// KindInvalidResponse means the provider answered with an unusable body.
	KindInvalidResponse ErrorKind = "invalid_response"
)

// Error is a classified completion failure.
type Error struct {
	// Provider names the provider that failed (gemini, openai, ollama).
	Provider string

	// Kind classifies the failure.
	Kind ErrorKind

	// Message describes what happened.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %s: %s: %v", e.Provider, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("llm %s: %s: %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: KindTimeout, Message: "call exceeded deadline", Err: err}
}

// NewRemoteError creates a remote failure error.
func NewRemoteError(provider, message string, err error) *Error {
	return &Error{Provider: provider, Kind: KindRemote, Message: message, Err: err}
}

// NewRateLimitedError creates a quota rejection error.
func NewRateLimitedError(provider, message string) *Error {
	return &Error{Provider: provider, Kind: KindRateLimited, Message: message}
}

// NewInvalidResponseError creates an unusable-response error.
func NewInvalidResponseError(provider, message string) *Error {
	return &Error{Provider: provider, Kind: KindInvalidResponse, Message: message}
}

// IsKind reports whether err is an llm Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind == kind
	}
	return false
}

// classifyTransportError maps a transport failure onto an Error kind.
func classifyTransportError(provider string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(provider, err)
	}
	return NewRemoteError(provider, "request failed", err)
}
