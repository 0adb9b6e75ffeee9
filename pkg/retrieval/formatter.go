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

package retrieval

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mentorvn/mentor/pkg/metadata"
)

// RegulationDocument is one formatted regulation hit.
type RegulationDocument struct {
	Content          string  `json:"content"`
	Title            string  `json:"title"`
	RegulationNumber string  `json:"regulation_number,omitempty"`
	Hierarchy        string  `json:"hierarchy"`
	EffectiveDate    string  `json:"effective_date,omitempty"`
	DocumentType     string  `json:"document_type"`
	Year             int     `json:"year,omitempty"`
	PDFFile          string  `json:"pdf_file,omitempty"`
	Score            float64 `json:"score"`
}

// CurriculumDocument is one formatted curriculum hit.
type CurriculumDocument struct {
	Content     string  `json:"content"`
	Title       string  `json:"title"`
	Year        int     `json:"year,omitempty"`
	Major       string  `json:"major"`
	MajorCode   string  `json:"major_code,omitempty"`
	ProgramType string  `json:"program_type"`
	ProgramName string  `json:"program_name,omitempty"`
	SourceURL   string  `json:"source_url,omitempty"`
	Score       float64 `json:"score"`
}

// RegulationResult is the typed result of a regulation retrieval.
type RegulationResult struct {
	Query          string               `json:"query"`
	TotalRetrieved int                  `json:"total_retrieved"`
	Documents      []RegulationDocument `json:"documents"`
}

// CurriculumResult is the typed result of a curriculum retrieval.
type CurriculumResult struct {
	Query          string               `json:"query"`
	TotalRetrieved int                  `json:"total_retrieved"`
	Documents      []CurriculumDocument `json:"documents"`
}

// FormatRegulationResult shapes engine output into the regulation
// result schema. Scores are rounded to two decimals.
func FormatRegulationResult(query string, res *Result) *RegulationResult {
	out := &RegulationResult{
		Query:          query,
		TotalRetrieved: res.TotalRetrieved,
		Documents:      make([]RegulationDocument, 0, len(res.Nodes)),
	}
	for _, n := range res.Nodes {
		docType := metaString(n.Metadata, "document_type")
		if docType == "" {
			docType = metadata.DocTypeOriginal
		}
		out.Documents = append(out.Documents, RegulationDocument{
			Content:          n.Text,
			Title:            metaString(n.Metadata, "title"),
			RegulationNumber: metaString(n.Metadata, "base_regulation_code"),
			Hierarchy:        metaString(n.Metadata, "hierarchy"),
			EffectiveDate:    metaString(n.Metadata, "effective_date"),
			DocumentType:     docType,
			Year:             metaInt(n.Metadata, "year"),
			PDFFile:          metaString(n.Metadata, "source_file"),
			Score:            roundScore(n.Score),
		})
	}
	return out
}

// FormatCurriculumResult shapes engine output into the curriculum
// result schema. The major code is resolved from the program table when
// the chunk metadata does not carry one.
func FormatCurriculumResult(query string, res *Result) *CurriculumResult {
	out := &CurriculumResult{
		Query:          query,
		TotalRetrieved: res.TotalRetrieved,
		Documents:      make([]CurriculumDocument, 0, len(res.Nodes)),
	}
	for _, n := range res.Nodes {
		major := metaString(n.Metadata, "major")
		majorCode := metaString(n.Metadata, "major_code")
		if majorCode == "" {
			majorCode = majorCodeFor(major)
		}
		sourceURL := metaString(n.Metadata, "source_url")
		if sourceURL == "" {
			sourceURL = metaString(n.Metadata, "source_file")
		}
		out.Documents = append(out.Documents, CurriculumDocument{
			Content:     n.Text,
			Title:       metaString(n.Metadata, "title"),
			Year:        metaInt(n.Metadata, "year"),
			Major:       major,
			MajorCode:   majorCode,
			ProgramType: metaString(n.Metadata, "program_type"),
			ProgramName: metaString(n.Metadata, "program_name"),
			SourceURL:   sourceURL,
			Score:       roundScore(n.Score),
		})
	}
	return out
}

// FormatText renders engine output as the human-readable block the
// generic retrieve_documents tool returns.
func FormatText(query string, res *Result) string {
	if len(res.Nodes) == 0 {
		return fmt.Sprintf("Không tìm thấy tài liệu nào cho: %q", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tìm thấy %d tài liệu cho %q (phương pháp: %s):\n",
		len(res.Nodes), query, res.RetrievalMethod)
	for i, n := range res.Nodes {
		b.WriteString("\n")
		fmt.Fprintf(&b, "[%d] score %.2f", i+1, roundScore(n.Score))
		if title := metaString(n.Metadata, "title"); title != "" {
			fmt.Fprintf(&b, " - %s", title)
		}
		if hierarchy := metaString(n.Metadata, "hierarchy"); hierarchy != "" {
			fmt.Fprintf(&b, " (%s)", hierarchy)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(n.Text))
		b.WriteString("\n")
	}
	return b.String()
}

// majorCodeFor resolves a canonical major name to its program slug.
func majorCodeFor(major string) string {
	if major == "" {
		return ""
	}
	name, ok := metadata.CanonicalMajor(major)
	if !ok {
		return ""
	}
	for _, p := range metadata.Programs {
		if p.Name == name {
			return p.Slug
		}
	}
	return ""
}

// roundScore rounds to two decimals for presentation.
func roundScore(s float64) float64 {
	return math.Round(s*100) / 100
}

// metaString reads a metadata value as a string. Non-string scalars are
// rendered; missing keys and nil maps yield "".
func metaString(md map[string]any, key string) string {
	if md == nil {
		return ""
	}
	switch v := md[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

// metaInt reads a metadata value as an int, tolerating the float64 that
// JSON decoding produces and numeric strings.
func metaInt(md map[string]any, key string) int {
	if md == nil {
		return 0
	}
	switch v := md[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
