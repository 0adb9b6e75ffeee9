// Copyright 2025 Mentor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// RerankErrorKind classifies rerank failures. Every kind triggers the
// same fallback (keep merged raw order) but they are reported under
// distinct metric labels.
type RerankErrorKind string

const (
	// RerankTimeout means the rerank call exceeded its deadline.
	RerankTimeout RerankErrorKind = "timeout"

	// RerankRemote means the rerank service returned a failure response.
	RerankRemote RerankErrorKind = "remote"

	// RerankInvalidResponse means the service answered with an unusable
	// body, such as a score count that does not match the input.
	RerankInvalidResponse RerankErrorKind = "invalid_response"
)

// RerankError is a classified rerank failure.
type RerankError struct {
	// Kind classifies the failure.
	Kind RerankErrorKind

	// Message describes what happened.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the error message.
func (e *RerankError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rerank: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("rerank: %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *RerankError) Unwrap() error {
	return e.Err
}

// newRerankTimeoutError creates a deadline failure.
func newRerankTimeoutError(err error) *RerankError {
	return &RerankError{Kind: RerankTimeout, Message: "call exceeded deadline", Err: err}
}

// newRerankRemoteError creates a remote failure.
func newRerankRemoteError(message string, err error) *RerankError {
	return &RerankError{Kind: RerankRemote, Message: message, Err: err}
}

// newRerankInvalidResponseError creates an unusable-response failure.
func newRerankInvalidResponseError(message string) *RerankError {
	return &RerankError{Kind: RerankInvalidResponse, Message: message}
}

// classifyRerankTransportError maps a transport failure onto a kind.
func classifyRerankTransportError(err error) *RerankError {
	if errors.Is(err, context.DeadlineExceeded) {
		return newRerankTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newRerankTimeoutError(err)
	}
	return newRerankRemoteError("request failed", err)
}

// rerankFallbackReason extracts the metric label for a rerank failure.
func rerankFallbackReason(err error) string {
	var re *RerankError
	if errors.As(err, &re) {
		return string(re.Kind)
	}
	return string(RerankRemote)
}

// ClassificationError means the routing LLM answered but the answer
// named no known collection. The router falls back to querying all.
type ClassificationError struct {
	// Answer is the raw LLM output that could not be parsed.
	Answer string
}

// Error returns the error message.
func (e *ClassificationError) Error() string {
	return fmt.Sprintf("route classification unparseable: %q", e.Answer)
}
