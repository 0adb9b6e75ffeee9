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

package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Common errors.
var (
	// ErrLimitExceeded is returned by Allow when the window is full.
	ErrLimitExceeded = errors.New("rate limit exceeded")

	// ErrStoreUnavailable is returned when the store is unavailable.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// LimitError reports a full window together with how long the caller
// would have to wait for the next free slot.
type LimitError struct {
	// Limit is the configured per-window budget.
	Limit int

	// RetryAfter is the time until the oldest dispatch leaves the window.
	RetryAfter time.Duration
}

// Error returns the error message.
func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit of %d/min exceeded, retry after %s", e.Limit, e.RetryAfter.Round(time.Millisecond))
}

// Unwrap returns the underlying sentinel error.
func (e *LimitError) Unwrap() error {
	return ErrLimitExceeded
}

// IsLimitError checks if an error reports an exhausted window.
func IsLimitError(err error) bool {
	if err == nil {
		return false
	}
	var le *LimitError
	if errors.As(err, &le) {
		return true
	}
	return errors.Is(err, ErrLimitExceeded)
}
