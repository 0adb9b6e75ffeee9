// Package llm provides text completion providers for the pipeline's
// LLM-assisted steps: markdown fixing, query routing, HyDE expansion and
// metadata extraction.
//
// Providers implement the Completer interface and are created from
// config.LLMConfig entries, optionally wrapped with requests-per-minute
// pacing for free-tier API keys.
package llm

import (
	"context"
	"fmt"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/ratelimit"
	"github.com/mentorvn/mentor/pkg/registry"
)

// Request describes one completion call.
type Request struct {
	// System is the system instruction, empty for none.
	System string

	// Prompt is the user prompt.
	Prompt string

	// Temperature overrides the provider default when non-nil.
	Temperature *float64

	// MaxTokens overrides the provider default when positive.
	MaxTokens int
}

// Response carries the completion text and token accounting.
type Response struct {
	// Text is the generated completion.
	Text string

	// PromptTokens counts input tokens as reported by the provider.
	PromptTokens int

	// OutputTokens counts generated tokens as reported by the provider.
	OutputTokens int
}

// TotalTokens returns the combined token count.
func (r *Response) TotalTokens() int {
	return r.PromptTokens + r.OutputTokens
}

// Completer performs text completions.
type Completer interface {
	// Complete runs one completion call.
	Complete(ctx context.Context, req Request) (*Response, error)

	// GetModelName returns the configured model identifier.
	GetModelName() string

	// Close releases provider resources.
	Close() error
}

// NewCompleter creates a provider from config. Providers with
// requests_per_minute set are wrapped with sliding-window pacing.
func NewCompleter(cfg *config.LLMConfig) (Completer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config cannot be nil")
	}

	var completer Completer
	var err error

	switch cfg.Provider {
	case config.LLMProviderGemini:
		completer, err = NewGeminiProvider(cfg)
	case config.LLMProviderOpenAI:
		completer, err = NewOpenAIProvider(cfg)
	case config.LLMProviderOllama:
		completer, err = NewOllamaProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (supported: gemini, openai, ollama)", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create llm provider: %w", err)
	}

	if cfg.RequestsPerMinute > 0 {
		limiter := ratelimit.NewLimiter(cfg.RequestsPerMinute, ratelimit.NewMemoryStore(),
			ratelimit.WithIdentifier(string(cfg.Provider)+"/"+cfg.Model))
		completer = NewPacedCompleter(completer, limiter)
	}

	return completer, nil
}

// Registry holds named Completer instances.
type Registry struct {
	*registry.BaseRegistry[Completer]
}

// NewRegistry creates an empty LLM registry.
func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Completer](),
	}
}

// CreateFromConfig creates a provider from config and registers it.
func (r *Registry) CreateFromConfig(name string, cfg *config.LLMConfig) (Completer, error) {
	if name == "" {
		return nil, fmt.Errorf("llm name cannot be empty")
	}

	completer, err := NewCompleter(cfg)
	if err != nil {
		return nil, err
	}

	if err := r.Register(name, completer); err != nil {
		return nil, fmt.Errorf("failed to register llm: %w", err)
	}

	return completer, nil
}

// GetCompleter returns the provider registered under name.
func (r *Registry) GetCompleter(name string) (Completer, error) {
	completer, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("llm provider '%s' not found", name)
	}
	return completer, nil
}

// Close closes all registered providers.
func (r *Registry) Close() error {
	var firstErr error
	for _, completer := range r.List() {
		if err := completer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PacedCompleter wraps a Completer with rate-limit pacing. Wait blocks
// before each dispatch so bursty callers stay inside the budget.
type PacedCompleter struct {
	inner   Completer
	limiter *ratelimit.Limiter
}

// NewPacedCompleter wraps completer with the limiter.
func NewPacedCompleter(inner Completer, limiter *ratelimit.Limiter) *PacedCompleter {
	return &PacedCompleter{inner: inner, limiter: limiter}
}

// Complete waits for a dispatch slot, then delegates.
func (p *PacedCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.Complete(ctx, req)
}

// GetModelName returns the wrapped provider's model.
func (p *PacedCompleter) GetModelName() string {
	return p.inner.GetModelName()
}

// Close closes the wrapped provider.
func (p *PacedCompleter) Close() error {
	return p.inner.Close()
}
