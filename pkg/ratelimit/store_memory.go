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

// MemoryStore is an in-memory implementation of Store.
// It is thread-safe and suitable for single-process deployments, which is
// all the pipeline needs: pacing protects one process's API key.
type MemoryStore struct {
	data map[string][]time.Time
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]time.Time),
	}
}

// Record appends a dispatch timestamp for the identifier. Entries older
// than an hour are pruned opportunistically so slices stay bounded over
// long runs regardless of the limiter's window.
func (s *MemoryStore) Record(ctx context.Context, identifier string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	times := s.data[identifier]
	cutoff := at.Add(-time.Hour)
	pruned := times[:0]
	for _, t := range times {
		if !t.Before(cutoff) {
			pruned = append(pruned, t)
		}
	}
	s.data[identifier] = append(pruned, at)
	return nil
}

// Window returns the timestamps recorded for the identifier at or after
// since, oldest first.
func (s *MemoryStore) Window(ctx context.Context, identifier string, since time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	times := s.data[identifier]
	out := make([]time.Time, 0, len(times))
	for _, t := range times {
		if !t.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

// DeleteBefore drops timestamps older than before for every identifier.
func (s *MemoryStore) DeleteBefore(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for identifier, times := range s.data {
		kept := times[:0]
		for _, t := range times {
			if !t.Before(before) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(s.data, identifier)
			continue
		}
		s.data[identifier] = kept
	}
	return nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]time.Time)
	return nil
}

// Size returns the number of tracked identifiers (for testing).
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
