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
	"strconv"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/llm"
)

// Document types carried by regulation records. Generators emit original
// and update; replacement is accepted on ingest for forward
// compatibility.
const (
	DocTypeOriginal    = "original"
	DocTypeUpdate      = "update"
	DocTypeReplacement = "replacement"
)

// RegulationMetadata is the metadata record for regulation documents.
type RegulationMetadata struct {
	Title              string   `json:"title"`
	Year               int      `json:"year,omitempty"`
	Summary            string   `json:"summary,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	DocumentType       string   `json:"document_type"`
	EffectiveDate      string   `json:"effective_date,omitempty"`
	IsIndexPage        bool     `json:"is_index_page"`
	BaseRegulationCode string   `json:"base_regulation_code,omitempty"`
}

// Validate checks the record's field constraints.
func (m *RegulationMetadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("title is required")
	}
	switch m.DocumentType {
	case DocTypeOriginal, DocTypeUpdate, DocTypeReplacement:
	default:
		return fmt.Errorf("invalid document_type %q (valid: original, update, replacement)", m.DocumentType)
	}
	if m.EffectiveDate != "" && !isoDatePattern.MatchString(m.EffectiveDate) {
		return fmt.Errorf("effective_date %q is not an ISO date", m.EffectiveDate)
	}
	if m.Year != 0 && (m.Year < 1990 || m.Year > 2100) {
		return fmt.Errorf("implausible year %d", m.Year)
	}
	return nil
}

// regulationGenerator extracts regulation metadata. The LLM supplies
// title, summary, keywords and type; codes and dates are overridden by
// the deterministic extractors, which are more reliable than the model
// on those fields.
type regulationGenerator struct {
	completer llm.Completer
	codes     *CodeTable
}

var _ Generator = (*regulationGenerator)(nil)

func (g *regulationGenerator) Category() string { return config.CategoryRegulation }

func (g *regulationGenerator) Generate(ctx context.Context, doc Document) (Record, error) {
	raw, err := completeExtraction(ctx, g.completer, regulationExtractionPrompt, doc.Markdown)
	if err != nil {
		return nil, err
	}

	var m RegulationMetadata
	if err := unmarshalModelJSON(raw, &m); err != nil {
		return nil, fmt.Errorf("metadata: regulation extraction: %w", err)
	}

	g.applyOverrides(&m, doc)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("metadata: regulation record invalid: %w", err)
	}

	slog.Debug("Generated regulation metadata",
		"document_id", doc.DocumentID,
		"document_type", m.DocumentType,
		"base_regulation_code", m.BaseRegulationCode,
		"model", g.completer.GetModelName())
	return &m, nil
}

func (g *regulationGenerator) applyOverrides(m *RegulationMetadata, doc Document) {
	m.Title = strings.Join(strings.Fields(m.Title), " ")
	m.DocumentType = strings.ToLower(strings.TrimSpace(m.DocumentType))
	if m.DocumentType == "" {
		m.DocumentType = DocTypeOriginal
	}

	name := firstNonEmpty(doc.SourceFile, doc.DocumentID)
	switch m.DocumentType {
	case DocTypeOriginal:
		// The filename is authoritative for standalone regulations.
		if number, code, ok := extractFilenameCode(name); ok {
			m.BaseRegulationCode = number + "/" + g.codes.Canonical(code)
		}
	case DocTypeUpdate:
		// An update's base code is the regulation it amends, referenced
		// in the Căn cứ block.
		if ref, ok := extractPredecessorCode(doc.Markdown, m.Title); ok {
			m.BaseRegulationCode = ref
		}
	}

	if iso, ok := extractFilenameDate(name); ok {
		m.EffectiveDate = iso
	} else if iso, ok := extractContentDate(doc.Markdown); ok {
		m.EffectiveDate = iso
	} else {
		m.EffectiveDate = normalizeISODate(m.EffectiveDate)
	}

	if m.Year == 0 && len(m.EffectiveDate) >= 4 {
		if y, err := strconv.Atoi(m.EffectiveDate[:4]); err == nil {
			m.Year = y
		}
	}
}
