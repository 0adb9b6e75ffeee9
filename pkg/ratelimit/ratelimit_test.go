package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_AllowWithinBudget(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(3, NewMemoryStore(), withClock(clock.Now))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := limiter.Allow(ctx); err != nil {
			t.Fatalf("dispatch %d: unexpected error: %v", i, err)
		}
	}

	err := limiter.Allow(ctx)
	if err == nil {
		t.Fatal("expected fourth dispatch to be rejected")
	}
	if !IsLimitError(err) {
		t.Errorf("expected a limit error, got %v", err)
	}

	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LimitError, got %T", err)
	}
	if le.Limit != 3 {
		t.Errorf("expected limit 3 in error, got %d", le.Limit)
	}
	if le.RetryAfter <= 0 || le.RetryAfter > time.Minute {
		t.Errorf("expected retry delay within (0, 1m], got %s", le.RetryAfter)
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(2, NewMemoryStore(), withClock(clock.Now))

	ctx := context.Background()
	if err := limiter.Allow(ctx); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}

	clock.Advance(30 * time.Second)
	if err := limiter.Allow(ctx); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}

	// Window is full: [t0, t0+30s].
	if err := limiter.Allow(ctx); !IsLimitError(err) {
		t.Fatalf("expected limit error while window is full, got %v", err)
	}

	// Advance past the first entry; one slot frees up.
	clock.Advance(31 * time.Second)
	if err := limiter.Allow(ctx); err != nil {
		t.Fatalf("expected slot after first entry aged out, got %v", err)
	}

	// Full again until the second entry ages out.
	if err := limiter.Allow(ctx); !IsLimitError(err) {
		t.Fatalf("expected limit error, got %v", err)
	}
}

func TestLimiter_ZeroLimitDisablesPacing(t *testing.T) {
	limiter := NewLimiter(0, NewMemoryStore())

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("dispatch %d: unexpected error: %v", i, err)
		}
	}
}

func TestLimiter_WaitHonorsCancellation(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(1, NewMemoryStore(), withClock(clock.Now))

	ctx := context.Background()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- limiter.Wait(cancelCtx)
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestLimiter_WaitBlocksUntilSlotFrees(t *testing.T) {
	limiter := NewLimiter(2, NewMemoryStore(), WithWindow(50*time.Millisecond))

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("dispatch %d: unexpected error: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// Four dispatches at two per 50ms need at least one full window of waiting.
	if elapsed < 50*time.Millisecond {
		t.Errorf("expected Wait to pace dispatches, finished in %s", elapsed)
	}
}

func TestLimiter_SharedIdentifierSharesBudget(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	a := NewLimiter(2, store, WithIdentifier("gemini"), withClock(clock.Now))
	b := NewLimiter(2, store, WithIdentifier("gemini"), withClock(clock.Now))

	ctx := context.Background()
	if err := a.Allow(ctx); err != nil {
		t.Fatalf("limiter a: %v", err)
	}
	if err := b.Allow(ctx); err != nil {
		t.Fatalf("limiter b: %v", err)
	}
	if err := a.Allow(ctx); !IsLimitError(err) {
		t.Fatalf("expected shared budget to be exhausted, got %v", err)
	}
}

func TestMemoryStore_WindowFiltersOldEntries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, "k", base.Add(time.Duration(i)*10*time.Second)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	times, err := store.Window(ctx, "k", base.Add(25*time.Second))
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(times) != 2 {
		t.Fatalf("expected 2 entries at or after cutoff, got %d", len(times))
	}
	if !times[0].Before(times[1]) {
		t.Error("expected entries oldest first")
	}
}

func TestMemoryStore_DeleteBefore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	if err := store.Record(ctx, "old", base); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, "new", base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteBefore(ctx, base.Add(30*time.Second)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Size() != 1 {
		t.Errorf("expected 1 identifier after cleanup, got %d", store.Size())
	}
}
