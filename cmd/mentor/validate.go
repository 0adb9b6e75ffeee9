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

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
)

// ValidateCmd loads the configuration, applies defaults, runs full
// validation, and prints what the substrate would run with.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, loader, err := loadConfig(context.Background(), cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	fmt.Println("Configuration OK")
	fmt.Printf("  LLMs:        %s\n", describeLLMs(cfg.LLMs))
	fmt.Printf("  Embedders:   %s\n", describeEmbedders(cfg.Embedders))
	fmt.Printf("  Vector:      %s\n", describeVectorStore(&cfg.VectorStore))
	fmt.Printf("  Collections: %s\n", strings.Join(cfg.Retrieval.AvailableCollections, ", "))
	fmt.Printf("  Categories:  %s\n", describeCategories(cfg.Pipeline.Categories))
	fmt.Printf("  Router:      %s\n", cfg.Router.Strategy)
	fmt.Printf("  Reranker:    %s\n", onOff(cfg.Reranker.IsEnabled()))
	fmt.Printf("  Lexical:     %s\n", onOff(cfg.Retrieval.Lexical.IsEnabled()))
	fmt.Printf("  Portal:      %s\n", onOff(cfg.Portal.IsEnabled()))
	fmt.Printf("  Server:      %s (auth %s, mcp %s)\n",
		cfg.Server.Address(),
		onOff(cfg.Server.Auth.IsEnabled()),
		describeMCP(cfg.Server.MCP))
	return nil
}

func describeLLMs(llms map[string]*config.LLMConfig) string {
	if len(llms) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(llms))
	for _, name := range sortedKeys(llms) {
		cfg := llms[name]
		parts = append(parts, fmt.Sprintf("%s (%s/%s)", name, cfg.Provider, cfg.Model))
	}
	return strings.Join(parts, ", ")
}

func describeEmbedders(embedders map[string]*config.EmbedderConfig) string {
	if len(embedders) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(embedders))
	for _, name := range sortedKeys(embedders) {
		cfg := embedders[name]
		parts = append(parts, fmt.Sprintf("%s (%s/%s)", name, cfg.Provider, cfg.Model))
	}
	return strings.Join(parts, ", ")
}

func describeVectorStore(cfg *config.VectorStoreConfig) string {
	switch cfg.Provider {
	case config.VectorProviderQdrant:
		return fmt.Sprintf("qdrant (%s:%d)", cfg.Qdrant.Host, cfg.Qdrant.Port)
	case config.VectorProviderPinecone:
		return "pinecone"
	default:
		return fmt.Sprintf("%s (%s)", cfg.Provider, cfg.Path)
	}
}

func describeCategories(categories map[string]*config.CategoryConfig) string {
	if len(categories) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(categories))
	for _, name := range sortedKeys(categories) {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, categories[name].SourceDir))
	}
	return strings.Join(parts, ", ")
}

func describeMCP(cfg config.MCPConfig) string {
	if !cfg.Enabled {
		return "off"
	}
	return string(cfg.Transport)
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
