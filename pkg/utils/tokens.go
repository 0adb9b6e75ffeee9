// Package utils provides shared helpers for the Mentor substrate.
package utils

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter handles accurate BPE token counting for a model or encoding.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.RWMutex
}

var (
	// Cache encodings to avoid repeated initialization
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// NewTokenCounter creates a counter for a model name or a raw encoding name
// (e.g. "cl100k_base"). Unknown names fall back to cl100k_base.
func NewTokenCounter(model string) (*TokenCounter, error) {
	cacheMu.RLock()
	cached, exists := encodingCache[model]
	cacheMu.RUnlock()

	if exists {
		return &TokenCounter{
			encoding: cached,
			model:    model,
		}, nil
	}

	// Raw encoding names take precedence over model lookup.
	encoding, err := tiktoken.GetEncoding(model)
	if err != nil {
		encoding, err = tiktoken.EncodingForModel(model)
	}
	if err != nil {
		// Fallback to cl100k_base (GPT-4, GPT-3.5-turbo, text-embedding-ada-002)
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()

	return &TokenCounter{
		encoding: encoding,
		model:    model,
	}, nil
}

// Count returns the token count for text.
func (tc *TokenCounter) Count(text string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	tokens := tc.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// GetModel returns the model or encoding name this counter was built for.
func (tc *TokenCounter) GetModel() string {
	return tc.model
}

// EstimateTokens provides a rough token estimation (4 characters per token)
// for call sites where building a counter is not worth it.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// GetEncodingForModel returns the appropriate encoding name for a model
func GetEncodingForModel(model string) string {
	encodingMap := map[string]string{
		"gpt-4":              "cl100k_base",
		"gpt-4-turbo":        "cl100k_base",
		"gpt-4o":             "o200k_base",
		"gpt-4o-mini":        "o200k_base",
		"gpt-3.5-turbo":      "cl100k_base",
		"text-embedding-ada": "cl100k_base",
		"gemini":             "cl100k_base", // Approximate with OpenAI encoding
		"gemini-pro":         "cl100k_base",
		"gemini-2.0-flash":   "cl100k_base",
		"gemini-2.5-flash":   "cl100k_base",
	}

	if encoding, exists := encodingMap[model]; exists {
		return encoding
	}

	for modelPrefix, encoding := range encodingMap {
		if len(model) >= len(modelPrefix) && model[:len(modelPrefix)] == modelPrefix {
			return encoding
		}
	}

	return "cl100k_base"
}
