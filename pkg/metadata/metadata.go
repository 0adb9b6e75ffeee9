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

// Package metadata generates structured document metadata for the
// pipeline's metadata stage. Each category has a generator that prompts
// an LLM for the typed fields and then overrides whatever can be
// extracted deterministically: regulation codes and dates from filenames
// and content, majors and years from document slugs. The program table
// in this package is also the vocabulary the retrieval program filter
// resolves against.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/llm"
	"github.com/mentorvn/mentor/pkg/ratelimit"
)

// maxPromptRunes bounds how much of a document reaches the model. The
// title, header block and Căn cứ section all sit near the top; sending
// whole regulations wastes tokens without improving extraction.
const maxPromptRunes = 12000

// Document is the input to a generator: the processed markdown plus the
// identifiers the deterministic extractors work from.
type Document struct {
	// Markdown is the fixed markdown content.
	Markdown string

	// SourceFile is the original filename, e.g.
	// "790-qd-dhcntt_28-9-22_quy_che_dao_tao.pdf".
	SourceFile string

	// DocumentID is the document slug, e.g. "ctdt-khoa-hoc-may-tinh-2021".
	DocumentID string
}

// Record is a validated, category-specific metadata record.
type Record interface {
	Validate() error
}

// Generator produces a metadata record for one document.
type Generator interface {
	// Generate extracts and validates the record.
	Generate(ctx context.Context, doc Document) (Record, error)

	// Category returns the category this generator serves.
	Category() string
}

// NewGenerator creates the generator for a category. The completer is
// wrapped with requests-per-minute pacing when configured. The code
// table may be nil, in which case the regulation generator uses an
// unpersisted in-memory table.
func NewGenerator(category string, cfg config.MetadataConfig, completer llm.Completer, codes *CodeTable) (Generator, error) {
	if completer == nil {
		return nil, fmt.Errorf("metadata: llm completer is required")
	}
	cfg.SetDefaults()

	if cfg.RequestsPerMinute > 0 {
		limiter := ratelimit.NewLimiter(cfg.RequestsPerMinute, ratelimit.NewMemoryStore(),
			ratelimit.WithIdentifier("metadata"))
		completer = llm.NewPacedCompleter(completer, limiter)
	}

	switch category {
	case config.CategoryRegulation:
		if codes == nil {
			codes = NewCodeTable("")
		}
		return &regulationGenerator{completer: completer, codes: codes}, nil
	case config.CategoryCurriculum:
		return &curriculumGenerator{completer: completer}, nil
	default:
		return nil, fmt.Errorf("metadata: no generator for category %q (supported: %s, %s)",
			category, config.CategoryRegulation, config.CategoryCurriculum)
	}
}

// completeExtraction runs one temperature-0 extraction call and returns
// the raw model text.
func completeExtraction(ctx context.Context, completer llm.Completer, system, markdown string) (string, error) {
	temp := 0.0
	resp, err := completer.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      truncateRunes(markdown, maxPromptRunes),
		Temperature: &temp,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", fmt.Errorf("metadata: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("metadata: LLM returned empty response")
	}
	return resp.Text, nil
}

// unmarshalModelJSON parses the JSON object in a model response,
// tolerating code fences and prose around it.
func unmarshalModelJSON(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in model response")
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
