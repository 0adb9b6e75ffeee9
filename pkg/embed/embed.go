// Package embed provides embedding providers for indexing and retrieval.
//
// The embed-index pipeline stage and the retrieval engine must share one
// named provider so document and query vectors live in the same space.
package embed

import (
	"context"
	"fmt"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/registry"
)

// Embedder produces dense vectors for texts.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// GetDimension returns the vector dimensionality.
	GetDimension() int

	// GetModelName returns the configured model identifier.
	GetModelName() string

	// UnitPriceUSD returns the price per one million tokens for cost
	// accounting. Zero means free.
	UnitPriceUSD() float64

	// Close releases provider resources.
	Close() error
}

// NewEmbedder creates a provider from config.
func NewEmbedder(cfg *config.EmbedderConfig) (Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder config cannot be nil")
	}

	switch cfg.Provider {
	case config.EmbedderProviderGemini:
		return NewGeminiEmbedder(cfg)
	case config.EmbedderProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case config.EmbedderProviderOllama:
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s (supported: gemini, openai, ollama)", cfg.Provider)
	}
}

// Registry holds named Embedder instances.
type Registry struct {
	*registry.BaseRegistry[Embedder]
}

// NewRegistry creates an empty embedder registry.
func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Embedder](),
	}
}

// CreateFromConfig creates a provider from config and registers it.
func (r *Registry) CreateFromConfig(name string, cfg *config.EmbedderConfig) (Embedder, error) {
	if name == "" {
		return nil, fmt.Errorf("embedder name cannot be empty")
	}

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder provider: %w", err)
	}

	if err := r.Register(name, embedder); err != nil {
		return nil, fmt.Errorf("failed to register embedder: %w", err)
	}

	return embedder, nil
}

// GetEmbedder returns the provider registered under name.
func (r *Registry) GetEmbedder(name string) (Embedder, error) {
	embedder, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("embedder provider '%s' not found", name)
	}
	return embedder, nil
}

// Close closes all registered providers.
func (r *Registry) Close() error {
	var firstErr error
	for _, embedder := range r.List() {
		if err := embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
