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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider completes via the OpenAI chat completions API. It also
// serves any openai-compatible endpoint through base_url.
type OpenAIProvider struct {
	config     *config.LLMConfig
	baseURL    string
	httpClient *httpclient.Client
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
	Stream      bool            `json:"stream"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// NewOpenAIProvider creates an OpenAI completion provider.
func NewOpenAIProvider(cfg *config.LLMConfig) (*OpenAIProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	client := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
	)

	return &OpenAIProvider{
		config:     cfg,
		baseURL:    baseURL,
		httpClient: client,
	}, nil
}

// Complete runs one completion call.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	request := p.buildRequest(req)

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, p.errorFromStatus(resp)
		}
	}
	if err != nil {
		return nil, classifyTransportError("openai", err)
	}
	if resp == nil {
		return nil, NewRemoteError("openai", "no response received", nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewInvalidResponseError("openai", fmt.Sprintf("failed to read response: %v", err))
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, NewInvalidResponseError("openai", fmt.Sprintf("failed to unmarshal response: %v", err))
	}
	if response.Error != nil {
		return nil, NewRemoteError("openai", fmt.Sprintf("%s (type: %s, code: %s)",
			response.Error.Message, response.Error.Type, response.Error.Code), nil)
	}
	if len(response.Choices) == 0 {
		return nil, NewInvalidResponseError("openai", "response has no choices")
	}

	text := response.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, NewInvalidResponseError("openai", "response contains no text")
	}

	return &Response{
		Text:         text,
		PromptTokens: response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
	}, nil
}

func (p *OpenAIProvider) buildRequest(req Request) openAIRequest {
	var messages []openAIMessage
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	temperature := 0.1
	if req.Temperature != nil {
		temperature = *req.Temperature
	} else if p.config.Temperature != nil {
		temperature = *p.config.Temperature
	}

	request := openAIRequest{
		Model:       p.config.Model,
		Messages:    messages,
		Temperature: temperature,
		Stream:      false,
	}

	maxTokens := p.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		request.MaxTokens = &maxTokens
	}

	return request
}

// errorFromStatus maps a non-200 response onto a classified error.
func (p *OpenAIProvider) errorFromStatus(resp *http.Response) *Error {
	body, _ := io.ReadAll(resp.Body)

	message := fmt.Sprintf("status %d", resp.StatusCode)
	var apiResp openAIResponse
	if json.Unmarshal(body, &apiResp) == nil && apiResp.Error != nil {
		message = fmt.Sprintf("status %d: %s (type: %s, code: %s)",
			resp.StatusCode, apiResp.Error.Message, apiResp.Error.Type, apiResp.Error.Code)
	} else if len(body) > 0 {
		message = fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return NewRateLimitedError("openai", message)
	}
	return NewRemoteError("openai", message, nil)
}

// GetModelName returns the configured model identifier.
func (p *OpenAIProvider) GetModelName() string {
	return p.config.Model
}

// Close releases provider resources.
func (p *OpenAIProvider) Close() error {
	return nil
}
