package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/mentorvn/mentor/pkg/config"
)

// GeminiEmbedder embeds via the official google.golang.org/genai SDK.
type GeminiEmbedder struct {
	client *genai.Client
	config *config.EmbedderConfig
}

// NewGeminiEmbedder creates a Gemini embedding provider.
func NewGeminiEmbedder(cfg *config.EmbedderConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini embedder requires an API key")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client: client,
		config: cfg,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts. The Gemini API has
// native batch support.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.config.Model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: "RETRIEVAL_DOCUMENT",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at index %d", i)
		}
		vectors[i] = emb.Values
	}

	return vectors, nil
}

// GetDimension returns the vector dimensionality.
func (e *GeminiEmbedder) GetDimension() int {
	if e.config.Dimension > 0 {
		return e.config.Dimension
	}
	// text-embedding-004 produces 768-dimensional vectors.
	return 768
}

// GetModelName returns the configured model identifier.
func (e *GeminiEmbedder) GetModelName() string {
	return e.config.Model
}

// UnitPriceUSD returns the configured price per one million tokens.
func (e *GeminiEmbedder) UnitPriceUSD() float64 {
	return e.config.UnitPriceUSD
}

// Close closes the client.
func (e *GeminiEmbedder) Close() error {
	return nil
}
