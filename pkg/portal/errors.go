package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies portal call failures.
type ErrorKind string

const (
	// KindTimeout means the portal did not answer within the deadline.
	KindTimeout ErrorKind = "timeout"

	// KindAuth means the session cookie was rejected or expired.
	KindAuth ErrorKind = "auth"

	// KindRemote means the portal returned a failure response.
	KindRemote ErrorKind = "remote"

	// KindInvalidResponse means the portal answered with an unusable body.
	KindInvalidResponse ErrorKind = "invalid_response"
)

// Error is a classified portal failure.
type Error struct {
	// Endpoint names the portal endpoint that failed (grades, schedule).
	Endpoint string

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
		return fmt.Sprintf("portal %s: %s: %s: %v", e.Endpoint, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("portal %s: %s: %s", e.Endpoint, e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(endpoint string, err error) *Error {
	return &Error{Endpoint: endpoint, Kind: KindTimeout, Message: "call exceeded deadline", Err: err}
}

// NewAuthError creates a rejected-session error.
func NewAuthError(endpoint string, statusCode int) *Error {
	return &Error{Endpoint: endpoint, Kind: KindAuth, Message: fmt.Sprintf("session rejected with status %d", statusCode)}
}

// NewRemoteError creates a remote failure error.
func NewRemoteError(endpoint, message string, err error) *Error {
	return &Error{Endpoint: endpoint, Kind: KindRemote, Message: message, Err: err}
}

// NewInvalidResponseError creates an unusable-response error.
func NewInvalidResponseError(endpoint, message string) *Error {
	return &Error{Endpoint: endpoint, Kind: KindInvalidResponse, Message: message}
}

// IsKind reports whether err is a portal Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// classifyTransportError maps a transport failure onto an Error kind.
func classifyTransportError(endpoint string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(endpoint, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(endpoint, err)
	}
	return NewRemoteError(endpoint, "request failed", err)
}
