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
	"log/slog"
	"os"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/embed"
	"github.com/mentorvn/mentor/pkg/llm"
	"github.com/mentorvn/mentor/pkg/pipeline"
	"github.com/mentorvn/mentor/pkg/portal"
	"github.com/mentorvn/mentor/pkg/retrieval"
	"github.com/mentorvn/mentor/pkg/tools"
	"github.com/mentorvn/mentor/pkg/vector"
)

// loadConfig loads the configuration file named by --config, falling
// back to mentor.yaml in the working directory, and to built-in defaults
// when neither exists.
func loadConfig(ctx context.Context, path string) (*config.Config, *config.Loader, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigFile); err == nil {
			path = config.DefaultConfigFile
		}
	}
	if path == "" {
		slog.Info("No config file found, using built-in defaults")
		return config.Default(), nil, nil
	}

	cfg, loader, err := config.LoadConfigFile(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.Info("Loaded configuration", "path", path)
	return cfg, loader, nil
}

// components holds the wired substrate pieces a command needs, plus
// every handle that must be released on exit.
type components struct {
	cfg *config.Config

	llms      *llm.Registry
	embedders *embed.Registry
	vectors   vector.Provider
	lexical   *retrieval.LexicalIndex

	processor *pipeline.Processor
	engine    *retrieval.Engine
	router    *retrieval.Router
	executor  *tools.Executor
}

func newComponents(cfg *config.Config) *components {
	return &components{
		cfg:       cfg,
		llms:      llm.NewRegistry(),
		embedders: embed.NewRegistry(),
	}
}

// Close releases providers in reverse construction order. Safe to call
// with partially built components.
func (c *components) Close() {
	if c.lexical != nil {
		if err := c.lexical.Close(); err != nil {
			slog.Warn("Failed to close lexical index", "error", err)
		}
	}
	if c.vectors != nil {
		if err := c.vectors.Close(); err != nil {
			slog.Warn("Failed to close vector store", "error", err)
		}
	}
	if err := c.embedders.Close(); err != nil {
		slog.Warn("Failed to close embedders", "error", err)
	}
	if err := c.llms.Close(); err != nil {
		slog.Warn("Failed to close llm providers", "error", err)
	}
}

// completer returns the named LLM provider, creating it on first use.
func (c *components) completer(name string) (llm.Completer, error) {
	if name == "" {
		name = config.DefaultProviderName
	}
	if completer, err := c.llms.GetCompleter(name); err == nil {
		return completer, nil
	}
	llmCfg, ok := c.cfg.GetLLM(name)
	if !ok {
		return nil, fmt.Errorf("llm provider '%s' is not configured", name)
	}
	return c.llms.CreateFromConfig(name, llmCfg)
}

// embedder returns the named embedder, creating it on first use.
func (c *components) embedder(name string) (embed.Embedder, error) {
	if name == "" {
		name = config.DefaultProviderName
	}
	if embedder, err := c.embedders.GetEmbedder(name); err == nil {
		return embedder, nil
	}
	embedderCfg, ok := c.cfg.GetEmbedder(name)
	if !ok {
		return nil, fmt.Errorf("embedder provider '%s' is not configured", name)
	}
	return c.embedders.CreateFromConfig(name, embedderCfg)
}

// vectorStore returns the process-wide vector store handle, opened on
// first use.
func (c *components) vectorStore() (vector.Provider, error) {
	if c.vectors != nil {
		return c.vectors, nil
	}
	provider, err := vector.NewProvider(&c.cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	c.vectors = provider
	return provider, nil
}

// lexicalIndex returns the BM25 sidecar index, opened on first use.
// Returns nil when lexical retrieval is disabled.
func (c *components) lexicalIndex() (*retrieval.LexicalIndex, error) {
	if !c.cfg.Retrieval.Lexical.IsEnabled() {
		return nil, nil
	}
	if c.lexical != nil {
		return c.lexical, nil
	}
	ix, err := retrieval.OpenLexicalIndex(c.cfg.Retrieval.Lexical.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lexical index: %w", err)
	}
	c.lexical = ix
	return ix, nil
}

// buildProcessor wires the document pipeline: parsers, the markdown
// fixer, metadata generators, chunkers, embedder and vector store.
func (c *components) buildProcessor() (*pipeline.Processor, error) {
	if c.processor != nil {
		return c.processor, nil
	}

	fixLLM, err := c.completer(c.cfg.Pipeline.Fix.LLM)
	if err != nil {
		return nil, fmt.Errorf("fix stage: %w", err)
	}
	metadataLLM, err := c.completer(c.cfg.Pipeline.Metadata.LLM)
	if err != nil {
		return nil, fmt.Errorf("metadata stage: %w", err)
	}
	embedder, err := c.embedder(c.cfg.Pipeline.EmbedIndex.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embed_index stage: %w", err)
	}
	vectors, err := c.vectorStore()
	if err != nil {
		return nil, err
	}

	proc, err := pipeline.NewProcessor(pipeline.Options{
		Config:      &c.cfg.Pipeline,
		Chunking:    c.cfg.Chunking,
		FixLLM:      fixLLM,
		MetadataLLM: metadataLLM,
		Embedder:    embedder,
		Vectors:     vectors,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline processor: %w", err)
	}
	c.processor = proc
	return proc, nil
}

// buildEngine wires the blended retrieval engine: embedder, vector
// store, optional HyDE, reranker and lexical arms.
func (c *components) buildEngine() (*retrieval.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}

	embedder, err := c.embedder(c.cfg.Pipeline.EmbedIndex.Embedder)
	if err != nil {
		return nil, fmt.Errorf("retrieval embedder: %w", err)
	}
	vectors, err := c.vectorStore()
	if err != nil {
		return nil, err
	}

	var hyde *retrieval.HyDE
	if c.cfg.Retrieval.UseHyDE {
		hydeLLM, err := c.completer(c.cfg.Retrieval.HyDELLM)
		if err != nil {
			return nil, fmt.Errorf("hyde: %w", err)
		}
		hyde = retrieval.NewHyDE(hydeLLM)
	}

	var reranker *retrieval.Reranker
	if c.cfg.Reranker.IsEnabled() {
		reranker = retrieval.NewReranker(&c.cfg.Reranker)
	}

	var lexical retrieval.LexicalSearcher
	if ix, err := c.lexicalIndex(); err != nil {
		return nil, err
	} else if ix != nil {
		lexical = ix
	}

	engine, err := retrieval.NewEngine(retrieval.EngineOptions{
		Config:   c.cfg.Retrieval,
		Embedder: embedder,
		Vectors:  vectors,
		HyDE:     hyde,
		Reranker: reranker,
		Lexical:  lexical,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build retrieval engine: %w", err)
	}
	c.engine = engine
	return engine, nil
}

// buildRouter wires the query router, with a completer only when the
// llm_classification strategy needs one.
func (c *components) buildRouter() (*retrieval.Router, error) {
	if c.router != nil {
		return c.router, nil
	}

	var completer llm.Completer
	if c.cfg.Router.Strategy == config.RoutingLLMClassification {
		var err error
		completer, err = c.completer(c.cfg.Router.LLM)
		if err != nil {
			return nil, fmt.Errorf("router: %w", err)
		}
	}

	c.router = retrieval.NewRouter(&c.cfg.Router, c.cfg.Retrieval.AvailableCollections, completer)
	return c.router, nil
}

// buildExecutor assembles the tool host: retrieval tools always, portal
// tools when a portal base URL is configured.
func (c *components) buildExecutor() (*tools.Executor, error) {
	if c.executor != nil {
		return c.executor, nil
	}

	engine, err := c.buildEngine()
	if err != nil {
		return nil, err
	}
	router, err := c.buildRouter()
	if err != nil {
		return nil, err
	}

	var portalClient *portal.Client
	if c.cfg.Portal.IsEnabled() {
		portalClient = portal.NewClient(c.cfg.Portal)
	}

	executor, err := tools.NewHost(tools.HostOptions{
		Config: c.cfg.Tools,
		Engine: engine,
		Router: router,
		Portal: portalClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build tool host: %w", err)
	}
	c.executor = executor
	return executor, nil
}

// refreshLexicalIndex rebuilds the BM25 corpus from the chunks.json
// artifacts under the stages root. Called after pipeline runs and at
// serve startup so lexical search always reflects the indexed chunks.
func (c *components) refreshLexicalIndex(ctx context.Context) error {
	ix, err := c.lexicalIndex()
	if err != nil {
		return err
	}
	if ix == nil {
		return nil
	}
	return ix.IndexPipelineArtifacts(ctx, &c.cfg.Pipeline)
}
