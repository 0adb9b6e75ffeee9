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

package config

import (
	"fmt"
	"os"
	"time"
)

// EmbedderProvider identifies the embedding provider type.
type EmbedderProvider string

const (
	EmbedderProviderGemini EmbedderProvider = "gemini"
	EmbedderProviderOpenAI EmbedderProvider = "openai"
	EmbedderProviderOllama EmbedderProvider = "ollama"
)

// EmbedderConfig configures one named embedding provider. The
// embed-index stage and the retrieval engine reference entries of the
// embedders map by name; index and query must use the same entry.
type EmbedderConfig struct {
	// Provider type (gemini, openai, ollama).
	Provider EmbedderProvider `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"title=Provider,description=Embedding provider,enum=gemini,enum=openai,enum=ollama,default=gemini"`

	// Model name (e.g., "text-embedding-004", "text-embedding-3-small").
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Embedding model identifier"`

	// APIKey for authentication. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key,description=API key for authentication (use ${ENV_VAR})"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=Custom base URL for API endpoint"`

	// Dimension of the produced vectors. Zero lets the provider decide.
	Dimension int `yaml:"dimension,omitempty" json:"dimension,omitempty" jsonschema:"title=Dimension,description=Embedding vector dimension (0 = provider default)"`

	// UnitPriceUSD is the price per one million tokens, used for
	// embed-stage cost accounting. Zero for free tiers.
	UnitPriceUSD float64 `yaml:"unit_price_usd,omitempty" json:"unit_price_usd,omitempty" jsonschema:"title=Unit Price,description=USD per 1M tokens for cost accounting"`

	// Timeout bounds one embedding call.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Per-call timeout,default=60s"`
}

// SetDefaults applies default values.
func (c *EmbedderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = EmbedderProviderGemini
	}

	if c.Model == "" {
		switch c.Provider {
		case EmbedderProviderGemini:
			c.Model = "text-embedding-004"
		case EmbedderProviderOpenAI:
			c.Model = "text-embedding-3-small"
		case EmbedderProviderOllama:
			c.Model = "nomic-embed-text"
		}
	}

	if c.APIKey == "" {
		switch c.Provider {
		case EmbedderProviderGemini:
			if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				c.APIKey = key
			} else {
				c.APIKey = os.Getenv("GOOGLE_API_KEY")
			}
		case EmbedderProviderOpenAI:
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if c.BaseURL == "" && c.Provider == EmbedderProviderOllama {
		c.BaseURL = "http://localhost:11434"
	}

	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

// Validate checks the embedder configuration.
func (c *EmbedderConfig) Validate() error {
	validProviders := map[EmbedderProvider]bool{
		EmbedderProviderGemini: true,
		EmbedderProviderOpenAI: true,
		EmbedderProviderOllama: true,
	}

	if c.Provider != "" && !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q (valid: gemini, openai, ollama)", c.Provider)
	}

	if c.Provider != EmbedderProviderOllama && c.APIKey == "" {
		return fmt.Errorf("api_key is required for provider %q", c.Provider)
	}

	if c.Dimension < 0 {
		return fmt.Errorf("dimension cannot be negative")
	}

	if c.UnitPriceUSD < 0 {
		return fmt.Errorf("unit_price_usd cannot be negative")
	}

	return nil
}
