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

// Package config holds the typed configuration tree for the mentor
// substrate: document pipeline, chunking, retrieval, routing, providers,
// tool host and server settings.
//
// Configuration is a single YAML document loaded through a Loader
// (see loader.go) from one of the source providers (file, consul, etcd,
// zookeeper). Every section implements SetDefaults and Validate.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/mentorvn/mentor/pkg/observability"
)

// DefaultConfigFile is the config file the CLI looks for when --config
// is not given.
const DefaultConfigFile = "mentor.yaml"

// DefaultProviderName is the name given to implicitly created LLM and
// embedder entries, and the name section references resolve to when left
// empty.
const DefaultProviderName = "default"

// Config is the root configuration.
type Config struct {
	Version string `yaml:"version,omitempty"`
	Name    string `yaml:"name,omitempty"`

	Logger    LoggerConfig    `yaml:"logger,omitempty"`
	Pipeline  PipelineConfig  `yaml:"pipeline,omitempty"`
	Chunking  ChunkingConfig  `yaml:"chunking,omitempty"`
	Retrieval RetrievalConfig `yaml:"retrieval,omitempty"`
	Router    RouterConfig    `yaml:"router,omitempty"`
	Reranker  RerankerConfig  `yaml:"reranker,omitempty"`

	LLMs      map[string]*LLMConfig      `yaml:"llms,omitempty"`
	Embedders map[string]*EmbedderConfig `yaml:"embedders,omitempty"`

	VectorStore VectorStoreConfig `yaml:"vector_store,omitempty"`

	Tools  ToolsConfig  `yaml:"tools,omitempty"`
	Portal PortalConfig `yaml:"portal,omitempty"`
	Server ServerConfig `yaml:"server,omitempty"`

	Observability observability.Config `yaml:"observability,omitempty"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "mentor"
	}

	if c.LLMs == nil {
		c.LLMs = make(map[string]*LLMConfig)
	}
	if c.Embedders == nil {
		c.Embedders = make(map[string]*EmbedderConfig)
	}
	if len(c.LLMs) == 0 {
		c.LLMs[DefaultProviderName] = &LLMConfig{}
	}
	if len(c.Embedders) == 0 {
		c.Embedders[DefaultProviderName] = &EmbedderConfig{}
	}

	c.Logger.SetDefaults()
	c.Pipeline.SetDefaults()
	c.Chunking.SetDefaults()

	// Paths anchored under the pipeline data dir unless set explicitly.
	if c.Retrieval.Lexical.Path == "" {
		c.Retrieval.Lexical.Path = filepath.Join(c.Pipeline.DataDir, "lexical.db")
	}
	if c.VectorStore.Path == "" {
		c.VectorStore.Path = filepath.Join(c.Pipeline.DataDir, "vector")
	}

	c.Retrieval.SetDefaults()
	c.Router.SetDefaults()
	c.Reranker.SetDefaults()

	for name := range c.LLMs {
		if c.LLMs[name] != nil {
			c.LLMs[name].SetDefaults()
		}
	}
	for name := range c.Embedders {
		if c.Embedders[name] != nil {
			c.Embedders[name].SetDefaults()
		}
	}

	c.VectorStore.SetDefaults()
	c.Tools.SetDefaults()
	c.Portal.SetDefaults()
	c.Server.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks every section and cross-section references.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config validation failed: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config validation failed: %w", err)
	}
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking config validation failed: %w", err)
	}
	if err := c.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval config validation failed: %w", err)
	}
	if err := c.Router.Validate(); err != nil {
		return fmt.Errorf("router config validation failed: %w", err)
	}
	if err := c.Reranker.Validate(); err != nil {
		return fmt.Errorf("reranker config validation failed: %w", err)
	}

	for name, llm := range c.LLMs {
		if llm != nil {
			if err := llm.Validate(); err != nil {
				return fmt.Errorf("llm '%s' validation failed: %w", name, err)
			}
		}
	}
	for name, embedder := range c.Embedders {
		if embedder != nil {
			if err := embedder.Validate(); err != nil {
				return fmt.Errorf("embedder '%s' validation failed: %w", name, err)
			}
		}
	}

	if err := c.VectorStore.Validate(); err != nil {
		return fmt.Errorf("vector store config validation failed: %w", err)
	}
	if err := c.Tools.Validate(); err != nil {
		return fmt.Errorf("tools config validation failed: %w", err)
	}
	if err := c.Portal.Validate(); err != nil {
		return fmt.Errorf("portal config validation failed: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config validation failed: %w", err)
	}

	if err := c.validateReferences(); err != nil {
		return fmt.Errorf("reference validation failed: %w", err)
	}

	return nil
}

// validateReferences checks that every by-name reference to an LLM or
// embedder resolves to a configured entry.
func (c *Config) validateReferences() error {
	if _, exists := c.LLMs[c.Pipeline.Fix.LLM]; !exists {
		return fmt.Errorf("pipeline.fix: llm '%s' not found (available: %v)",
			c.Pipeline.Fix.LLM, mapKeys(c.LLMs))
	}

	if c.Router.Strategy == RoutingLLMClassification {
		if _, exists := c.LLMs[c.Router.LLM]; !exists {
			return fmt.Errorf("router: llm '%s' not found (available: %v)",
				c.Router.LLM, mapKeys(c.LLMs))
		}
	}

	if c.Retrieval.UseHyDE {
		if _, exists := c.LLMs[c.Retrieval.HyDELLM]; !exists {
			return fmt.Errorf("retrieval: hyde_llm '%s' not found (available: %v)",
				c.Retrieval.HyDELLM, mapKeys(c.LLMs))
		}
	}

	if _, exists := c.Embedders[c.Pipeline.EmbedIndex.Embedder]; !exists {
		return fmt.Errorf("pipeline.embed_index: embedder '%s' not found (available: %v)",
			c.Pipeline.EmbedIndex.Embedder, mapKeys(c.Embedders))
	}

	for _, coll := range c.Router.Collections {
		if !containsString(c.Retrieval.AvailableCollections, coll) {
			return fmt.Errorf("router: collection '%s' not in retrieval.available_collections %v",
				coll, c.Retrieval.AvailableCollections)
		}
	}

	return nil
}

// GetLLM returns the named LLM config, falling back to the default entry
// for an empty name.
func (c *Config) GetLLM(name string) (*LLMConfig, bool) {
	if name == "" {
		name = DefaultProviderName
	}
	llm, exists := c.LLMs[name]
	return llm, exists
}

// GetEmbedder returns the named embedder config, falling back to the
// default entry for an empty name.
func (c *Config) GetEmbedder(name string) (*EmbedderConfig, bool) {
	if name == "" {
		name = DefaultProviderName
	}
	embedder, exists := c.Embedders[name]
	return embedder, exists
}

// GetCategory returns the pipeline config for a category.
func (c *Config) GetCategory(name string) (*CategoryConfig, bool) {
	cat, exists := c.Pipeline.Categories[name]
	return cat, exists
}

// ListCategories returns the configured category names.
func (c *Config) ListCategories() []string {
	return mapKeys(c.Pipeline.Categories)
}

func mapKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
