package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mentorvn/mentor/pkg/config"
)

// GeminiProvider completes via the official google.golang.org/genai SDK.
type GeminiProvider struct {
	client *genai.Client
	config *config.LLMConfig
}

// NewGeminiProvider creates a Gemini completion provider.
func NewGeminiProvider(cfg *config.LLMConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini requires an API key")
	}

	// Constructors shouldn't require a context; initialization is local.
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: cfg,
	}, nil
}

// Complete runs one completion call.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{{Text: req.Prompt}},
			Role:  "user",
		},
	}

	genResp, err := p.client.Models.GenerateContent(ctx, p.config.Model, contents, p.buildConfig(req))
	if err != nil {
		return nil, classifyTransportError("gemini", err)
	}

	return p.parseResponse(genResp)
}

// buildConfig assembles the generation config from provider defaults and
// per-request overrides.
func (p *GeminiProvider) buildConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
			Role:  "user",
		}
	}

	temperature := p.config.Temperature
	if req.Temperature != nil {
		temperature = req.Temperature
	}
	if temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*temperature))
	}

	maxTokens := p.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	return cfg
}

// parseResponse extracts text and usage from a generation response.
func (p *GeminiProvider) parseResponse(genResp *genai.GenerateContentResponse) (*Response, error) {
	if len(genResp.Candidates) == 0 {
		return nil, NewInvalidResponseError("gemini", "empty response")
	}

	candidate := genResp.Candidates[0]
	if candidate.Content == nil {
		return nil, NewInvalidResponseError("gemini", "candidate has no content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, NewInvalidResponseError("gemini", "candidate contains no text")
	}

	resp := &Response{Text: text}
	if genResp.UsageMetadata != nil {
		resp.PromptTokens = int(genResp.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(genResp.UsageMetadata.CandidatesTokenCount)
	}

	return resp, nil
}

// GetModelName returns the configured model identifier.
func (p *GeminiProvider) GetModelName() string {
	return p.config.Model
}

// Close releases provider resources.
func (p *GeminiProvider) Close() error {
	return nil
}
