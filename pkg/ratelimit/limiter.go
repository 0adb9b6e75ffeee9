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
	"context"
	"sync"
	"time"
)

// Store persists dispatch timestamps for sliding-window accounting.
type Store interface {
	// Record appends a dispatch timestamp for the identifier.
	Record(ctx context.Context, identifier string, at time.Time) error

	// Window returns the timestamps recorded for the identifier at or
	// after since, oldest first.
	Window(ctx context.Context, identifier string, since time.Time) ([]time.Time, error)

	// DeleteBefore drops timestamps older than before for every identifier.
	DeleteBefore(ctx context.Context, before time.Time) error

	// Close releases store resources.
	Close() error
}

// Limiter paces dispatches to at most limit per sliding minute.
type Limiter struct {
	store      Store
	identifier string
	limit      int
	window     time.Duration

	mu  sync.Mutex
	now func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithIdentifier sets the store key the limiter accounts under.
// Limiters sharing a store and identifier share a budget.
func WithIdentifier(identifier string) Option {
	return func(l *Limiter) {
		l.identifier = identifier
	}
}

// WithWindow overrides the sliding window duration (default one minute).
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// withClock overrides the time source (for testing).
func withClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a limiter allowing at most limit dispatches per
// minute. A limit of 0 or below disables pacing.
func NewLimiter(limit int, store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:      store,
		identifier: "default",
		limit:      limit,
		window:     time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured per-window budget.
func (l *Limiter) Limit() int {
	return l.limit
}

// Wait blocks until dispatching one more request stays under the budget,
// then records the dispatch. It returns early with the context error if
// the context is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limit <= 0 {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, err := l.tryReserve(ctx)
		if err != nil {
			return err
		}
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Allow records a dispatch if the window has room, or returns a
// LimitError carrying the retry delay without blocking.
func (l *Limiter) Allow(ctx context.Context) error {
	if l.limit <= 0 {
		return nil
	}

	wait, err := l.tryReserve(ctx)
	if err != nil {
		return err
	}
	if wait > 0 {
		return &LimitError{Limit: l.limit, RetryAfter: wait}
	}
	return nil
}

// tryReserve records a dispatch when the window has room and returns 0,
// or returns the delay until the oldest dispatch leaves the window.
func (l *Limiter) tryReserve(ctx context.Context) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	since := now.Add(-l.window)

	times, err := l.store.Window(ctx, l.identifier, since)
	if err != nil {
		return 0, err
	}

	if len(times) < l.limit {
		return 0, l.store.Record(ctx, l.identifier, now)
	}

	wait := times[0].Add(l.window).Sub(now)
	if wait <= 0 {
		// Oldest entry just aged out between Window and now.
		return 0, l.store.Record(ctx, l.identifier, now)
	}
	return wait, nil
}
