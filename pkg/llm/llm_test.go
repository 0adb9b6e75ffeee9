package llm

import (
	"context"
	"testing"
	"time"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/ratelimit"
)

func TestNewCompleter_UnsupportedProvider(t *testing.T) {
	cfg := &config.LLMConfig{Provider: "mystery", Model: "m"}
	if _, err := NewCompleter(cfg); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestNewCompleter_NilConfig(t *testing.T) {
	if _, err := NewCompleter(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestNewCompleter_WrapsWithPacing(t *testing.T) {
	cfg := &config.LLMConfig{
		Provider:          config.LLMProviderOllama,
		Model:             "llama3.2",
		BaseURL:           "http://localhost:11434",
		RequestsPerMinute: 10,
	}

	completer, err := NewCompleter(cfg)
	if err != nil {
		t.Fatalf("NewCompleter() error = %v", err)
	}
	if _, ok := completer.(*PacedCompleter); !ok {
		t.Errorf("expected *PacedCompleter, got %T", completer)
	}
}

func TestRegistry_CreateAndGet(t *testing.T) {
	reg := NewRegistry()

	cfg := &config.LLMConfig{
		Provider: config.LLMProviderOllama,
		Model:    "llama3.2",
		BaseURL:  "http://localhost:11434",
	}

	created, err := reg.CreateFromConfig("fixer", cfg)
	if err != nil {
		t.Fatalf("CreateFromConfig() error = %v", err)
	}

	got, err := reg.GetCompleter("fixer")
	if err != nil {
		t.Fatalf("GetCompleter() error = %v", err)
	}
	if got != created {
		t.Error("expected registered instance to be returned")
	}

	if _, err := reg.GetCompleter("missing"); err == nil {
		t.Error("expected error for missing provider")
	}
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	reg := NewRegistry()
	cfg := &config.LLMConfig{Provider: config.LLMProviderOllama, Model: "llama3.2"}
	if _, err := reg.CreateFromConfig("", cfg); err == nil {
		t.Error("expected error for empty name")
	}
}

// countingCompleter records how many completions ran.
type countingCompleter struct {
	calls int
}

func (c *countingCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	c.calls++
	return &Response{Text: "ok"}, nil
}

func (c *countingCompleter) GetModelName() string { return "counting" }
func (c *countingCompleter) Close() error         { return nil }

func TestPacedCompleter_PacesDispatches(t *testing.T) {
	inner := &countingCompleter{}
	limiter := ratelimit.NewLimiter(2, ratelimit.NewMemoryStore(), ratelimit.WithWindow(50*time.Millisecond))
	paced := NewPacedCompleter(inner, limiter)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 4; i++ {
		if _, err := paced.Complete(ctx, Request{Prompt: "hi"}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if inner.calls != 4 {
		t.Errorf("expected 4 completions, got %d", inner.calls)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("expected pacing delay, finished in %s", elapsed)
	}
}

func TestPacedCompleter_PropagatesCancellation(t *testing.T) {
	inner := &countingCompleter{}
	limiter := ratelimit.NewLimiter(1, ratelimit.NewMemoryStore(), ratelimit.WithWindow(time.Hour))
	paced := NewPacedCompleter(inner, limiter)

	ctx := context.Background()
	if _, err := paced.Complete(ctx, Request{Prompt: "hi"}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := paced.Complete(cancelCtx, Request{Prompt: "hi"}); err == nil {
		t.Error("expected error from cancelled context")
	}
	if inner.calls != 1 {
		t.Errorf("expected inner to run once, got %d", inner.calls)
	}
}
