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

// Package retrieval blends dense vector search with lexical BM25 search
// over the indexed document collections, reranks the merged candidates
// on a remote cross-encoder, and applies program-disambiguation
// filtering before returning a bounded result set.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/embed"
	"github.com/mentorvn/mentor/pkg/metadata"
	"github.com/mentorvn/mentor/pkg/observability"
	"github.com/mentorvn/mentor/pkg/utils"
	"github.com/mentorvn/mentor/pkg/vector"
)

// Node is one retrieved chunk. Score starts as the raw retrieval signal
// (cosine similarity or normalized BM25) and is overwritten by the
// reranker when one is available.
type Node struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]any
}

// DocumentID returns the owning document's ID from the chunk metadata.
func (n Node) DocumentID() string {
	return metaString(n.Metadata, "document_id")
}

// Result is the outcome of one retrieval pass. TotalRetrieved counts
// merged candidates before thresholding and truncation; FinalCount is
// len(Nodes).
type Result struct {
	Nodes           []Node
	RetrievalMethod string
	Reranked        bool
	TotalRetrieved  int
	FinalCount      int
}

// LexicalSearcher is the lexical arm of the blended search. Scores must
// already be normalized into [0,1].
type LexicalSearcher interface {
	Search(ctx context.Context, collection, query string, topK int) ([]Node, error)
}

// EngineOptions carries the engine's dependencies. Config, Embedder and
// Vectors are required; HyDE, Reranker and Lexical are optional arms.
type EngineOptions struct {
	Config   config.RetrievalConfig
	Embedder embed.Embedder
	Vectors  vector.Provider
	HyDE     *HyDE
	Reranker *Reranker
	Lexical  LexicalSearcher
}

// Engine orchestrates blended retrieval. It is stateless per request
// and safe to share across concurrent callers once built.
type Engine struct {
	cfg      config.RetrievalConfig
	embedder embed.Embedder
	store    vector.Provider
	hyde     *HyDE
	reranker *Reranker
	lexical  LexicalSearcher
}

// NewEngine builds a retrieval engine from the given options.
func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retrieval config: %w", err)
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if opts.Vectors == nil {
		return nil, fmt.Errorf("vector provider is required")
	}

	slog.Info("Created retrieval engine",
		"collections", cfg.AvailableCollections,
		"retrieval_top_k", cfg.RetrievalTopK,
		"top_k", cfg.TopK,
		"hyde_enabled", cfg.UseHyDE && opts.HyDE != nil,
		"reranker_enabled", opts.Reranker != nil,
		"lexical_enabled", opts.Lexical != nil && cfg.Lexical.IsEnabled())

	return &Engine{
		cfg:      cfg,
		embedder: opts.Embedder,
		store:    opts.Vectors,
		hyde:     opts.HyDE,
		reranker: opts.Reranker,
		lexical:  opts.Lexical,
	}, nil
}

// Collections returns the queryable collection names.
func (e *Engine) Collections() []string {
	return e.cfg.AvailableCollections
}

// Retrieve runs one blended retrieval pass over a collection:
// normalize, optional HyDE expansion, dense plus lexical search, merge,
// rerank, threshold, program filter, truncate.
func (e *Engine) Retrieve(ctx context.Context, query, collection string) (*Result, error) {
	query = NormalizeQuery(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if !e.collectionAvailable(collection) {
		return nil, fmt.Errorf("unknown collection %q (available: %s)",
			collection, strings.Join(e.cfg.AvailableCollections, ", "))
	}

	method := "dense"

	// The hypothetical document replaces the query for embedding only;
	// lexical search, reranking and program detection keep the original.
	textToEmbed := query
	usedHyDE := false
	if e.cfg.UseHyDE && e.hyde != nil {
		hypothetical, err := e.hyde.GenerateHypotheticalDocument(ctx, query)
		if err != nil {
			slog.Warn("HyDE generation failed, using the raw query", "error", err)
		} else {
			textToEmbed = hypothetical
			usedHyDE = true
		}
	}

	dense, err := e.denseSearch(ctx, collection, textToEmbed)
	if err != nil {
		return nil, err
	}

	var lexical []Node
	if e.lexical != nil && e.cfg.Lexical.IsEnabled() {
		lexical, err = e.lexical.Search(ctx, collection, query, e.cfg.Lexical.TopK)
		if err != nil {
			slog.Warn("Lexical search failed, continuing dense-only",
				"collection", collection, "error", err)
			lexical = nil
		}
		if len(lexical) > 0 {
			method = "dense+lexical"
		}
	}

	nodes := mergeNodes(dense, lexical)
	totalRetrieved := len(nodes)
	if usedHyDE {
		method = "hyde+" + method
	}

	if totalRetrieved == 0 {
		return &Result{RetrievalMethod: method}, nil
	}

	reranked := false
	if e.reranker != nil {
		texts := make([]string, len(nodes))
		for i, n := range nodes {
			texts[i] = n.Text
		}
		scores, err := e.reranker.Score(ctx, query, texts)
		if err != nil {
			slog.Warn("Reranking failed, keeping raw-score order", "error", err)
			observability.GlobalMetrics().RecordRerankFallback(ctx, rerankFallbackReason(err))
		} else {
			for i := range nodes {
				nodes[i].Score = scores[i]
			}
			reranked = true
		}
	}
	sortByScore(nodes)

	// Raw similarity scores are recall signals, not calibrated
	// relevance, so the threshold only applies to reranked scores.
	if reranked {
		nodes = applyThreshold(nodes, e.cfg.RerankScoreThreshold)
	}

	if program, ok := metadata.DetectProgram(query); ok {
		filtered := filterByProgram(nodes, program)
		if len(filtered) == 0 {
			slog.Warn("Program filter emptied the result set, keeping unfiltered nodes",
				"program", program.Slug, "query", query)
		} else {
			nodes = filtered
		}
	}

	if len(nodes) > e.cfg.TopK {
		nodes = nodes[:e.cfg.TopK]
	}

	return &Result{
		Nodes:           nodes,
		RetrievalMethod: method,
		Reranked:        reranked,
		TotalRetrieved:  totalRetrieved,
		FinalCount:      len(nodes),
	}, nil
}

func (e *Engine) collectionAvailable(collection string) bool {
	for _, c := range e.cfg.AvailableCollections {
		if c == collection {
			return true
		}
	}
	return false
}

// denseSearch embeds the text and queries the vector store, dropping
// candidates below the similarity floor.
func (e *Engine) denseSearch(ctx context.Context, collection, text string) ([]Node, error) {
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := e.store.Search(ctx, collection, vec, e.cfg.RetrievalTopK)
	if err != nil {
		return nil, fmt.Errorf("dense search in %s: %w", collection, err)
	}

	nodes := make([]Node, 0, len(results))
	for _, r := range results {
		if float64(r.Score) < e.cfg.MinScoreThreshold {
			continue
		}
		content := r.Content
		if content == "" {
			content = metaString(r.Metadata, "content")
		}
		nodes = append(nodes, Node{
			ID:       r.ID,
			Text:     content,
			Score:    float64(r.Score),
			Metadata: r.Metadata,
		})
	}
	return nodes, nil
}

// mergeNodes unions candidate sets, deduplicating by node ID and
// keeping the higher raw score. The first occurrence's text and
// metadata win, so the richer dense results are passed first.
func mergeNodes(sets ...[]Node) []Node {
	seen := make(map[string]int)
	var out []Node
	for _, set := range sets {
		for _, n := range set {
			if i, ok := seen[n.ID]; ok {
				if n.Score > out[i].Score {
					out[i].Score = n.Score
				}
				continue
			}
			seen[n.ID] = len(out)
			out = append(out, n)
		}
	}
	return out
}

// sortByScore orders nodes by score descending with the node ID as a
// deterministic tie-break.
func sortByScore(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Score == nodes[j].Score {
			return nodes[i].ID < nodes[j].ID
		}
		return nodes[i].Score > nodes[j].Score
	})
}

// applyThreshold drops nodes scoring below the floor. When every node
// falls below it the best one survives, so a non-empty retrieval never
// returns empty.
func applyThreshold(nodes []Node, threshold float64) []Node {
	kept := nodes[:0:0]
	for _, n := range nodes {
		if n.Score >= threshold {
			kept = append(kept, n)
		}
	}
	if len(kept) == 0 && len(nodes) > 0 {
		return nodes[:1]
	}
	return kept
}

// filterByProgram keeps nodes whose document ID mentions the detected
// program, by slugified name or alias.
func filterByProgram(nodes []Node, program metadata.Program) []Node {
	forms := programMatchForms(program)
	kept := nodes[:0:0]
	for _, n := range nodes {
		if matchesProgram(n.DocumentID(), forms) {
			kept = append(kept, n)
		}
	}
	return kept
}

func programMatchForms(program metadata.Program) []string {
	forms := []string{utils.Slugify(program.Name)}
	for _, alias := range program.Aliases {
		forms = append(forms, strings.ReplaceAll(alias, " ", "-"))
	}
	return forms
}

func matchesProgram(documentID string, forms []string) bool {
	id := strings.ToLower(documentID)
	for _, form := range forms {
		if form != "" && strings.Contains(id, form) {
			return true
		}
	}
	return false
}

// NormalizeQuery brings a query to NFC form and collapses whitespace.
// The operation is idempotent.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(norm.NFC.String(query)), " ")
}
