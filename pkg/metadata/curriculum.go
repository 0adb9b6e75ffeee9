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

package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/llm"
)

// CurriculumMetadata is the metadata record for curriculum documents.
type CurriculumMetadata struct {
	Title       string   `json:"title"`
	Year        int      `json:"year,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Major       string   `json:"major"`
	ProgramType string   `json:"program_type"`
	ProgramName string   `json:"program_name,omitempty"`
	IsIndexPage bool     `json:"is_index_page"`
}

// Validate checks the record's field constraints.
func (m *CurriculumMetadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if _, ok := CanonicalMajor(m.Major); !ok {
		return fmt.Errorf("major %q is not a known program", m.Major)
	}
	validType := false
	for _, t := range ProgramTypes {
		if m.ProgramType == t {
			validType = true
			break
		}
	}
	if !validType {
		return fmt.Errorf("invalid program_type %q (valid: %s)", m.ProgramType, strings.Join(ProgramTypes, ", "))
	}
	if m.ProgramName != "" {
		if _, ok := CanonicalProgramName(m.ProgramName); !ok {
			return fmt.Errorf("program_name %q is not in the vocabulary", m.ProgramName)
		}
	}
	if m.Year != 0 && (m.Year < 1990 || m.Year > 2100) {
		return fmt.Errorf("implausible year %d", m.Year)
	}
	return nil
}

// curriculumGenerator extracts curriculum metadata. The document slug is
// authoritative for the major and cohort year; the LLM's values only
// stand when the slug says nothing.
type curriculumGenerator struct {
	completer llm.Completer
}

var _ Generator = (*curriculumGenerator)(nil)

func (g *curriculumGenerator) Category() string { return config.CategoryCurriculum }

func (g *curriculumGenerator) Generate(ctx context.Context, doc Document) (Record, error) {
	raw, err := completeExtraction(ctx, g.completer, curriculumExtractionPrompt, doc.Markdown)
	if err != nil {
		return nil, err
	}

	var m CurriculumMetadata
	if err := unmarshalModelJSON(raw, &m); err != nil {
		return nil, fmt.Errorf("metadata: curriculum extraction: %w", err)
	}

	applyCurriculumOverrides(&m, doc)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("metadata: curriculum record invalid: %w", err)
	}

	slog.Debug("Generated curriculum metadata",
		"document_id", doc.DocumentID,
		"major", m.Major,
		"year", m.Year,
		"model", g.completer.GetModelName())
	return &m, nil
}

func applyCurriculumOverrides(m *CurriculumMetadata, doc Document) {
	m.Title = strings.Join(strings.Fields(m.Title), " ")

	slug := firstNonEmpty(doc.DocumentID, doc.SourceFile)
	if p, ok := MajorByAlias(slug); ok {
		m.Major = p.Name
	} else if name, ok := CanonicalMajor(m.Major); ok {
		m.Major = name
	}

	if t, ok := CanonicalProgramType(m.ProgramType); ok {
		m.ProgramType = t
	} else if strings.Contains(normalizeText(slug), "tu xa") {
		m.ProgramType = "Từ xa"
	} else {
		m.ProgramType = "Chính quy"
	}

	if name, ok := CanonicalProgramName(m.ProgramName); ok {
		m.ProgramName = name
	} else {
		m.ProgramName = ""
	}

	if year, ok := extractSlugYear(slug); ok {
		m.Year = year
	}
}
