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
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// titleMergeWindow bounds how far into the document title fragments
	// are looked for.
	titleMergeWindow = 5

	// titleMaxChars and titleMaxLines define a "short" section eligible
	// for the title merge.
	titleMaxChars = 150
	titleMaxLines = 3

	// implicitHeaderLevel is where pattern-detected CHƯƠNG and Điều
	// lines slot into the hierarchy.
	implicitHeaderLevel = 2
)

// specialSections are never merged into a title chunk even when short.
var specialSections = []string{"MỤC LỤC", "DANH MỤC TỪ VIẾT TẮT", "QUYẾT ĐỊNH"}

// dieuImplicitPattern requires the trailing period so prose lines that
// merely open with an article reference ("Điều 5 được sửa đổi ...") are
// not mistaken for headers.
var dieuImplicitPattern = regexp.MustCompile(`^Điều\s+\d+\.`)

// documentTypeLabels maps document_type metadata to the Vietnamese label
// shown in context headers.
var documentTypeLabels = map[string]string{
	"original":    "Văn bản gốc",
	"update":      "Văn bản cập nhật",
	"supplement":  "Văn bản bổ sung",
	"replacement": "Văn bản thay thế",
}

// RegulationChunker splits Vietnamese regulation documents. Beyond
// explicit markdown headers it recognizes bare "CHƯƠNG I" and "Điều 4."
// lines as section boundaries, because converted decision documents
// frequently lose their header markup. Khoản ("1.") and Mục ("a)") lines
// are deliberately not pattern-detected: they are indistinguishable from
// ordinary list markup and must arrive as explicit headers from the
// markdown fix stage.
type RegulationChunker struct {
	core
}

var _ Chunker = (*RegulationChunker)(nil)

// Chunk implements Chunker.
func (r *RegulationChunker) Chunk(content string, docMeta map[string]any) ([]Chunk, *Stats, error) {
	return r.chunkDocument(r, content, docMeta)
}

// Category implements Chunker.
func (r *RegulationChunker) Category() string { return CategoryRegulation }

func (r *RegulationChunker) splitterType() string { return "regulation" }

func (r *RegulationChunker) hooks() parseHooks {
	return parseHooks{
		maxLevel:       r.cfg.MaxHeaderLevel,
		detectImplicit: detectRegulationHeader,
		truncate:       truncateRegulationHeader,
	}
}

// detectRegulationHeader recognizes chapter and article lines that carry
// no markdown header markup.
func detectRegulationHeader(line string) (int, bool) {
	if chuongPattern.MatchString(line) || dieuImplicitPattern.MatchString(line) {
		return implicitHeaderLevel, true
	}
	return 0, false
}

// mergeTitles collapses a fragmented title page. Scanned decisions often
// open with several one-line sections (university name, document title,
// issuing formula); when at least two consecutive short sections lead the
// document they merge into a single TITLE chunk. Returns the number of
// sections merged.
func (r *RegulationChunker) mergeTitles(sections []section) ([]section, int) {
	k := 0
	for k < len(sections) && k < titleMergeWindow && isTitleFragment(sections[k]) {
		k++
	}
	if k < 2 {
		return sections, 0
	}
	merged := section{
		header:    TitleHeader,
		display:   TitleHeader,
		level:     1,
		startChar: sections[0].startChar,
		endChar:   sections[k-1].endChar,
	}
	for _, sec := range sections[:k] {
		if len(merged.lines) > 0 {
			merged.lines = append(merged.lines, "")
		}
		merged.lines = append(merged.lines, sec.lines...)
	}
	return append([]section{merged}, sections[k:]...), k
}

// isTitleFragment reports whether a section is short enough to be part
// of a fragmented title and is not a special section.
func isTitleFragment(sec section) bool {
	content := sec.content()
	if utf8.RuneCountInString(content) >= titleMaxChars {
		return false
	}
	if countContentLines(content) >= titleMaxLines {
		return false
	}
	upper := strings.ToUpper(sec.header)
	for _, special := range specialSections {
		if strings.Contains(upper, special) {
			return false
		}
	}
	return true
}

func countContentLines(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func (r *RegulationChunker) contextPairs(docMeta map[string]any, currentHeader string) [][2]string {
	pairs := [][2]string{
		{"Tài liệu", metaString(docMeta, "document_id")},
		{"Tiêu đề", metaString(docMeta, "title")},
	}
	if currentHeader != TitleHeader {
		pairs = append(pairs, [2]string{"Phần", currentHeader})
	}
	pairs = append(pairs,
		[2]string{"Ngày hiệu lực", metaString(docMeta, "effective_date")},
		[2]string{"Loại", documentTypeLabel(metaString(docMeta, "document_type"))},
	)
	return pairs
}

// documentTypeLabel translates a document_type value for display,
// passing unknown values through unchanged.
func documentTypeLabel(documentType string) string {
	if label, ok := documentTypeLabels[documentType]; ok {
		return label
	}
	return documentType
}
