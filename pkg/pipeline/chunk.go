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
	"os"
	"path/filepath"
	"strings"

	"github.com/mentorvn/mentor/pkg/chunker"
	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/utils"
)

// ChunkStage splits the final markdown into retrieval chunks and writes
// chunks.json. It runs on every invocation: the output is cheap to
// regenerate, and rerunning keeps chunks.json aligned with any upstream
// artifact a human may have corrected in place.
type ChunkStage struct {
	chunker chunker.Chunker
}

// NewChunkStage builds the category-specific chunker up front so an
// unsupported category fails at wiring time, not mid-run.
func NewChunkStage(category string, cfg config.ChunkingConfig) (*ChunkStage, error) {
	ck, err := chunker.NewChunker(category, cfg)
	if err != nil {
		return nil, err
	}
	return &ChunkStage{chunker: ck}, nil
}

func (s *ChunkStage) Name() string           { return StageChunk }
func (s *ChunkStage) Description() string    { return "Split the final markdown into retrieval chunks" }
func (s *ChunkStage) OutputFilename() string { return FileChunks }
func (s *ChunkStage) Costly() bool           { return false }
func (s *ChunkStage) Idempotent() bool       { return true }

// AlwaysRuns opts the stage out of the completed-and-unchanged skip.
func (s *ChunkStage) AlwaysRuns() bool { return true }

func (s *ChunkStage) Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	docMeta, err := loadDocumentMetadata(doc.ArtifactPath(FileMetadata))
	if err != nil {
		return nil, err
	}
	docMeta["category"] = doc.Category
	docMeta["document_id"] = doc.ID
	if doc.SourceFile != "" {
		docMeta["source_file"] = filepath.Base(doc.SourceFile)
	}

	chunks, stats, err := s.chunker.Chunk(string(data), docMeta)
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal chunks: %w", err)
	}
	if err := utils.WriteFileAtomic(outputPath, append(out, '\n'), 0644); err != nil {
		return nil, err
	}

	return map[string]any{
		"chunks_generated": len(chunks),
		"chunks_file":      FileChunks,
		"splitter_stats":   stats,
	}, nil
}

// loadDocumentMetadata reads metadata.json when present and flattens its
// values into the scalar shapes chunk metadata carries. A document
// without metadata chunks fine; the map just starts empty.
func loadDocumentMetadata(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	flat := make(map[string]any, len(raw))
	for k, v := range raw {
		flat[k] = flattenMetaValue(v)
	}
	return flat, nil
}

// flattenMetaValue reduces one metadata value to a primitive: lists join
// with ", ", nested objects become JSON text, scalars pass through.
func flattenMetaValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	default:
		return fmt.Sprint(val)
	}
}
