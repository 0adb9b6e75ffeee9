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

package chunker

import (
	"fmt"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/utils"
)

// variant supplies the category-specific pieces of the shared algorithm.
type variant interface {
	splitterType() string
	hooks() parseHooks
	mergeTitles(sections []section) ([]section, int)
	contextPairs(docMeta map[string]any, currentHeader string) [][2]string
}

// core holds what both chunker variants share: the configuration and the
// BPE token counter.
type core struct {
	cfg     config.ChunkingConfig
	counter *utils.TokenCounter
}

// chunkDocument runs the shared pipeline: preprocess, parse into
// sections, merge title fragments, prepend the context header, then emit
// each section as one chunk or a run of sub-chunks depending on its
// token count.
func (c *core) chunkDocument(v variant, content string, docMeta map[string]any) ([]Chunk, *Stats, error) {
	stats := &Stats{}
	sections, patterns := parseSections(preprocess(content), v.hooks())
	stats.PatternsDetected = patterns

	sections, merged := v.mergeTitles(sections)
	stats.TitleChunksMerged = merged
	stats.TotalChunks = len(sections)

	category := metaString(docMeta, "category")
	documentID := metaString(docMeta, "document_id")

	var chunks []Chunk
	for i, sec := range sections {
		chunks = append(chunks, c.emitSection(v, sec, i, category, documentID, docMeta, stats)...)
	}
	stats.FinalNodes = len(chunks)
	return chunks, stats, nil
}

// emitSection turns one section into chunks. A section within the token
// budget becomes exactly one chunk; an oversized one is split
// sentence-aware with the context header prepended to every sub-chunk.
func (c *core) emitSection(v variant, sec section, index int, category, documentID string, docMeta map[string]any, stats *Stats) []Chunk {
	contextHeader := buildContextHeader(v.contextPairs(docMeta, sec.display))
	body := sec.content()
	text := contextHeader + ContextSeparator + body
	tokens := c.counter.Count(text)

	hierarchy := Hierarchy{Path: sec.path, Current: sec.display, Level: sec.level}
	baseMeta := func() map[string]any {
		m := make(map[string]any, len(docMeta)+8)
		for k, val := range docMeta {
			m[k] = val
		}
		m["chunk_index"] = index
		m["current_header"] = sec.display
		m["hierarchy"] = hierarchy.String()
		m["header_level"] = sec.level
		m["splitter_type"] = v.splitterType()
		return m
	}

	if tokens <= c.cfg.MaxTokens {
		start, end := sec.startChar, sec.endChar
		meta := baseMeta()
		meta["token_count"] = tokens
		meta["is_sub_chunked"] = false
		return []Chunk{{
			ID:            chunkID(category, documentID, index, -1, text),
			Text:          text,
			Metadata:      meta,
			StartCharIdx:  &start,
			EndCharIdx:    &end,
			Relationships: map[string]any{},
		}}
	}

	stats.LargeChunksSplit++
	parts := splitContent(body, c.cfg.SubChunkSize, c.cfg.SubChunkOverlap, c.counter)
	chunks := make([]Chunk, 0, len(parts))
	for j, part := range parts {
		subText := contextHeader + ContextSeparator + part
		meta := baseMeta()
		meta["token_count"] = c.counter.Count(subText)
		meta["is_sub_chunked"] = true
		meta["sub_chunk_index"] = j
		meta["total_sub_chunks"] = len(parts)
		meta["parent_chunk_tokens"] = tokens
		chunks = append(chunks, Chunk{
			ID:            chunkID(category, documentID, index, j, subText),
			Text:          subText,
			Metadata:      meta,
			Relationships: map[string]any{},
		})
	}
	return chunks
}

// buildContextHeader renders "Key: value" lines, skipping empty values.
func buildContextHeader(pairs [][2]string) string {
	var b strings.Builder
	for _, pair := range pairs {
		if pair[1] == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pair[0])
		b.WriteString(": ")
		b.WriteString(pair[1])
	}
	return b.String()
}

// metaString reads a metadata value as its string form. Numbers render
// without a trailing ".0" so years look like years.
func metaString(docMeta map[string]any, key string) string {
	v, ok := docMeta[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
