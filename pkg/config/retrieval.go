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
	"path/filepath"
	"time"
)

// RetrievalConfig configures the blended retrieval engine.
//
// Example:
//
//	retrieval:
//	  available_collections: [regulation, curriculum]
//	  retrieval_top_k: 20
//	  top_k: 3
//	  rerank_score_threshold: 0.7
//	  lexical:
//	    enabled: true
type RetrievalConfig struct {
	// AvailableCollections lists the queryable vector collections.
	// Default: [regulation, curriculum]
	AvailableCollections []string `yaml:"available_collections,omitempty"`

	// RetrievalTopK is the candidate count fetched from dense (and
	// lexical) search before rerank. Default: 20
	RetrievalTopK int `yaml:"retrieval_top_k,omitempty"`

	// TopK is the final result count after rerank and filtering.
	// Default: 3
	TopK int `yaml:"top_k,omitempty"`

	// MinScoreThreshold filters dense candidates by raw similarity.
	// Default: 0.25
	MinScoreThreshold float64 `yaml:"min_score_threshold,omitempty"`

	// RerankScoreThreshold drops reranked candidates scoring below it;
	// if that empties the list the top-1 survives. Default: 0.7
	RerankScoreThreshold float64 `yaml:"rerank_score_threshold,omitempty"`

	// UseHyDE enables hypothetical-document query expansion.
	UseHyDE bool `yaml:"use_hyde,omitempty"`

	// HyDELLM names the llms entry used for HyDE generation.
	// Default: "default"
	HyDELLM string `yaml:"hyde_llm,omitempty"`

	Lexical LexicalConfig `yaml:"lexical,omitempty"`
}

// LexicalConfig configures the BM25 lexical sidecar index.
type LexicalConfig struct {
	// Enabled turns on lexical retrieval blended with dense results.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty"`

	// Path is the SQLite database file backing the FTS5 index.
	// ":memory:" is accepted. Default: <data_dir>/lexical.db, resolved
	// by the root config; "./data/lexical.db" standalone.
	Path string `yaml:"path,omitempty"`

	// TopK bounds lexical candidates per query.
	// Default: retrieval_top_k
	TopK int `yaml:"top_k,omitempty"`
}

// IsEnabled reports whether lexical retrieval is on.
func (c *LexicalConfig) IsEnabled() bool {
	return BoolValue(c.Enabled, true)
}

// RoutingStrategy selects how the router picks collections.
type RoutingStrategy string

const (
	RoutingQueryAll          RoutingStrategy = "query_all"
	RoutingLLMClassification RoutingStrategy = "llm_classification"
)

// RouterConfig configures query routing.
type RouterConfig struct {
	// Strategy is query_all (consult every collection) or
	// llm_classification (ask an LLM which collections apply, fall back
	// to all when unparseable). Default: query_all
	Strategy RoutingStrategy `yaml:"strategy,omitempty"`

	// LLM names the llms entry for llm_classification.
	// Default: "default"
	LLM string `yaml:"llm,omitempty"`

	// Collections restricts routing to a subset of
	// retrieval.available_collections. Empty means all of them.
	Collections []string `yaml:"collections,omitempty"`
}

// RerankerConfig configures the remote cross-encoder reranker.
type RerankerConfig struct {
	// URL is the rerank endpoint. Empty disables reranking (results
	// keep their merged raw order).
	URL string `yaml:"url,omitempty"`

	// Timeout bounds one rerank call. On timeout the engine falls back
	// to raw order. Default: 120s
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// IsEnabled reports whether rerank calls should be attempted.
func (c *RerankerConfig) IsEnabled() bool {
	return c.URL != ""
}

// SetDefaults applies default values to RetrievalConfig.
func (c *RetrievalConfig) SetDefaults() {
	if len(c.AvailableCollections) == 0 {
		c.AvailableCollections = []string{CategoryRegulation, CategoryCurriculum}
	}
	if c.RetrievalTopK == 0 {
		c.RetrievalTopK = 20
	}
	if c.TopK == 0 {
		c.TopK = 3
	}
	if c.MinScoreThreshold == 0 {
		c.MinScoreThreshold = 0.25
	}
	if c.RerankScoreThreshold == 0 {
		c.RerankScoreThreshold = 0.7
	}
	if c.HyDELLM == "" {
		c.HyDELLM = DefaultProviderName
	}
	if c.Lexical.Enabled == nil {
		c.Lexical.Enabled = BoolPtr(true)
	}
	if c.Lexical.Path == "" {
		c.Lexical.Path = filepath.Join("./data", "lexical.db")
	}
	if c.Lexical.TopK == 0 {
		c.Lexical.TopK = c.RetrievalTopK
	}
}

// Validate checks the retrieval configuration.
func (c *RetrievalConfig) Validate() error {
	if len(c.AvailableCollections) == 0 {
		return fmt.Errorf("available_collections cannot be empty")
	}
	if c.RetrievalTopK < 1 {
		return fmt.Errorf("retrieval_top_k must be at least 1, got %d", c.RetrievalTopK)
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", c.TopK)
	}
	if c.TopK > c.RetrievalTopK {
		return fmt.Errorf("top_k (%d) cannot exceed retrieval_top_k (%d)", c.TopK, c.RetrievalTopK)
	}
	if c.MinScoreThreshold < 0 {
		return fmt.Errorf("min_score_threshold cannot be negative")
	}
	if c.RerankScoreThreshold < 0 || c.RerankScoreThreshold > 1 {
		return fmt.Errorf("rerank_score_threshold must be between 0 and 1, got %f", c.RerankScoreThreshold)
	}
	if c.Lexical.TopK < 0 {
		return fmt.Errorf("lexical.top_k cannot be negative")
	}
	return nil
}

// SetDefaults applies default values to RouterConfig.
func (c *RouterConfig) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = RoutingQueryAll
	}
	if c.LLM == "" {
		c.LLM = DefaultProviderName
	}
}

// Validate checks the router configuration.
func (c *RouterConfig) Validate() error {
	switch c.Strategy {
	case RoutingQueryAll, RoutingLLMClassification:
	default:
		return fmt.Errorf("invalid routing strategy %q (valid: query_all, llm_classification)", c.Strategy)
	}
	return nil
}

// SetDefaults applies default values to RerankerConfig.
func (c *RerankerConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
}

// Validate checks the reranker configuration.
func (c *RerankerConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}
