package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/httpclient"
)

// OllamaProvider completes via a local Ollama server's chat API.
type OllamaProvider struct {
	config     *config.LLMConfig
	baseURL    string
	httpClient *httpclient.Client
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error,omitempty"`
}

// NewOllamaProvider creates an Ollama completion provider.
func NewOllamaProvider(cfg *config.LLMConfig) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	client := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)

	return &OllamaProvider{
		config:     cfg,
		baseURL:    baseURL,
		httpClient: client,
	}, nil
}

// Complete runs one completion call.
func (p *OllamaProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	request := p.buildRequest(req)

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/chat", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			message := fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, NewRateLimitedError("ollama", message)
			}
			return nil, NewRemoteError("ollama", message, nil)
		}
	}
	if err != nil {
		return nil, classifyTransportError("ollama", err)
	}
	if resp == nil {
		return nil, NewRemoteError("ollama", "no response received", nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewInvalidResponseError("ollama", fmt.Sprintf("failed to read response: %v", err))
	}

	var response ollamaResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, NewInvalidResponseError("ollama", fmt.Sprintf("failed to unmarshal response: %v", err))
	}
	if response.Error != "" {
		return nil, NewRemoteError("ollama", response.Error, nil)
	}

	text := response.Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, NewInvalidResponseError("ollama", "response contains no text")
	}

	return &Response{
		Text:         text,
		PromptTokens: response.PromptEvalCount,
		OutputTokens: response.EvalCount,
	}, nil
}

func (p *OllamaProvider) buildRequest(req Request) ollamaRequest {
	var messages []ollamaMessage
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: req.Prompt})

	options := &ollamaOptions{}
	if req.Temperature != nil {
		options.Temperature = *req.Temperature
	} else if p.config.Temperature != nil {
		options.Temperature = *p.config.Temperature
	}
	if req.MaxTokens > 0 {
		options.NumPredict = req.MaxTokens
	} else if p.config.MaxTokens > 0 {
		options.NumPredict = p.config.MaxTokens
	}

	return ollamaRequest{
		Model:    p.config.Model,
		Messages: messages,
		Stream:   false,
		Options:  options,
	}
}

// GetModelName returns the configured model identifier.
func (p *OllamaProvider) GetModelName() string {
	return p.config.Model
}

// Close releases provider resources.
func (p *OllamaProvider) Close() error {
	return nil
}
