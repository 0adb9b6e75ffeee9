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

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mentorvn/mentor/pkg/chunker"
	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/embed"
	"github.com/mentorvn/mentor/pkg/vector"
)

// embedTokensPerChunk is the flat per-chunk token estimate used for
// embedding cost accounting.
const embedTokensPerChunk = 200

// EmbedIndexStage embeds the chunks of chunks.json and upserts them into
// the category's vector collection. The document's existing vectors are
// deleted first, so a rerun never leaves stale chunks behind; a missing
// document on delete is fine. Rerunning against unchanged chunks.json is
// skipped by the hash check.
type EmbedIndexStage struct {
	embedder embed.Embedder
	store    vector.Provider
	batch    int
}

// NewEmbedIndexStage wires the embedder and vector store.
func NewEmbedIndexStage(embedder embed.Embedder, store vector.Provider, cfg config.EmbedIndexConfig) *EmbedIndexStage {
	cfg.SetDefaults()
	return &EmbedIndexStage{embedder: embedder, store: store, batch: cfg.BatchSize}
}

func (s *EmbedIndexStage) Name() string        { return StageEmbedIndex }
func (s *EmbedIndexStage) Description() string { return "Embed chunks and index them in the vector store" }

// OutputFilename is empty: the stage writes to the vector store, not a file.
func (s *EmbedIndexStage) OutputFilename() string { return "" }
func (s *EmbedIndexStage) Costly() bool           { return true }
func (s *EmbedIndexStage) Idempotent() bool       { return true }

func (s *EmbedIndexStage) Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	var chunks []chunker.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode %s: %w", FileChunks, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to index")
	}

	if err := s.store.CreateCollection(ctx, doc.Category, s.embedder.GetDimension()); err != nil {
		return nil, fmt.Errorf("prepare collection %s: %w", doc.Category, err)
	}

	// Clear the document's previous vectors. A delete failure is not
	// fatal: first-time documents have nothing to delete.
	filter := map[string]any{"document_id": doc.ID}
	if err := s.store.DeleteByFilter(ctx, doc.Category, filter); err != nil {
		slog.Debug("Stale-vector delete failed, continuing",
			"collection", doc.Category,
			"document_id", doc.ID,
			"error", err)
	}

	indexed := 0
	for start := 0; start < len(chunks); start += s.batch {
		end := min(start+s.batch, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch at chunk %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		docs := make([]vector.Document, len(batch))
		for i, c := range batch {
			docs[i] = vector.Document{
				ID:       c.ID,
				Content:  c.Text,
				Vector:   vectors[i],
				Metadata: sanitizeMetadata(c.Metadata),
			}
		}
		if err := s.store.UpsertBatch(ctx, doc.Category, docs); err != nil {
			return nil, fmt.Errorf("upsert batch at chunk %d: %w", start, err)
		}
		indexed += len(docs)
	}

	cost := float64(len(chunks)) * embedTokensPerChunk / 1e6 * s.embedder.UnitPriceUSD()
	return map[string]any{
		"nodes_indexed": indexed,
		"collection":    doc.Category,
		"embed_model":   s.embedder.GetModelName(),
		"cost":          cost,
	}, nil
}

// sanitizeMetadata converts chunk metadata to the value shapes vector
// stores accept: booleans become strings, lists join with ", ", nested
// objects become JSON text, nils drop out.
func sanitizeMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case nil:
			continue
		case bool:
			out[k] = strconv.FormatBool(val)
		case string:
			out[k] = val
		case float64, float32, int, int32, int64:
			out[k] = val
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[k] = strings.Join(parts, ", ")
		case []string:
			out[k] = strings.Join(val, ", ")
		case map[string]any:
			encoded, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(encoded)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
