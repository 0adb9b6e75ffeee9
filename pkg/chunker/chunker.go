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

// Package chunker splits processed markdown into retrieval chunks.
//
// Two variants share one header-stack algorithm. The regulation chunker
// understands the CHƯƠNG > Điều > Khoản > Mục hierarchy of Vietnamese
// administrative documents and merges fragmented title pages; the
// curriculum chunker keeps section headers verbatim and never breaks a
// markdown table. Every chunk gets a prepended context header naming the
// document and its position in the hierarchy, so the text stored in the
// vector collection is self-describing.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/utils"
)

// Document categories with a dedicated chunker variant.
const (
	CategoryRegulation = "regulation"
	CategoryCurriculum = "curriculum"
)

// TitleHeader names the section holding content that precedes the first
// header of a document.
const TitleHeader = "TITLE"

// ContextSeparator divides the prepended context header from the chunk
// content.
const ContextSeparator = "\n---\n"

// Chunk is the unit of retrieval. The JSON shape matches chunks.json as
// written by the chunk stage and read back by the indexing stage and the
// lexical corpus loader.
type Chunk struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	Metadata      map[string]any `json:"metadata"`
	StartCharIdx  *int           `json:"start_char_idx"`
	EndCharIdx    *int           `json:"end_char_idx"`
	Relationships map[string]any `json:"relationships"`
}

// Hierarchy locates a chunk inside the document structure. Path holds the
// truncated parent headers only; String renders the full chain including
// the current header.
type Hierarchy struct {
	Path    []string
	Current string
	Level   int
}

// String renders the hierarchy as "A > B > C".
func (h Hierarchy) String() string {
	parts := make([]string, 0, len(h.Path)+1)
	parts = append(parts, h.Path...)
	if h.Current != "" {
		parts = append(parts, h.Current)
	}
	return strings.Join(parts, " > ")
}

// Stats summarizes one chunking run. TitleChunksMerged and
// PatternsDetected stay zero outside the regulation variant.
type Stats struct {
	TotalChunks       int `json:"total_chunks"`
	LargeChunksSplit  int `json:"large_chunks_split"`
	FinalNodes        int `json:"final_nodes"`
	TitleChunksMerged int `json:"title_chunks_merged,omitempty"`
	PatternsDetected  int `json:"patterns_detected,omitempty"`
}

// Chunker splits one document's final markdown into chunks.
type Chunker interface {
	// Chunk splits content into retrieval chunks. docMeta is the
	// flattened document metadata; it is copied onto every chunk and
	// must carry category and document_id.
	Chunk(content string, docMeta map[string]any) ([]Chunk, *Stats, error)

	// Category returns the document category this chunker serves.
	Category() string
}

// NewChunker returns the chunker variant for a document category.
func NewChunker(category string, cfg config.ChunkingConfig) (Chunker, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}
	counter, err := utils.NewTokenCounter(cfg.Encoding)
	if err != nil {
		return nil, fmt.Errorf("token counter for encoding %q: %w", cfg.Encoding, err)
	}
	core := core{cfg: cfg, counter: counter}
	switch category {
	case CategoryRegulation:
		return &RegulationChunker{core: core}, nil
	case CategoryCurriculum:
		return &CurriculumChunker{core: core}, nil
	default:
		return nil, fmt.Errorf("no chunker for category %q (supported: %s, %s)",
			category, CategoryRegulation, CategoryCurriculum)
	}
}

// chunkID derives a stable UUID from the chunk's position and content, so
// rerunning the chunk stage on unchanged input produces identical IDs.
// subIndex is -1 for chunks that were not sub-chunked.
func chunkID(category, documentID string, index, subIndex int, text string) string {
	sum := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(sum[:])[:16]
	var name string
	if subIndex >= 0 {
		name = fmt.Sprintf("%s/%s/%d/%d/%s", category, documentID, index, subIndex, contentHash)
	} else {
		name = fmt.Sprintf("%s/%s/%d/%s", category, documentID, index, contentHash)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
