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

// CurriculumChunker splits curriculum documents. Headers are kept
// verbatim (course tables and program sections have no fixed hierarchy
// vocabulary) and markdown tables are atomic: the sub-chunk splitter
// never cuts through one.
type CurriculumChunker struct {
	core
}

var _ Chunker = (*CurriculumChunker)(nil)

// Chunk implements Chunker.
func (c *CurriculumChunker) Chunk(content string, docMeta map[string]any) ([]Chunk, *Stats, error) {
	return c.chunkDocument(c, content, docMeta)
}

// Category implements Chunker.
func (c *CurriculumChunker) Category() string { return CategoryCurriculum }

func (c *CurriculumChunker) splitterType() string { return "curriculum" }

func (c *CurriculumChunker) hooks() parseHooks {
	return parseHooks{
		maxLevel: c.cfg.MaxHeaderLevel,
		truncate: truncateCurriculumHeader,
	}
}

func (c *CurriculumChunker) mergeTitles(sections []section) ([]section, int) {
	return sections, 0
}

func (c *CurriculumChunker) contextPairs(docMeta map[string]any, currentHeader string) [][2]string {
	pairs := [][2]string{
		{"Tài liệu", metaString(docMeta, "document_id")},
		{"Tiêu đề", metaString(docMeta, "title")},
	}
	if currentHeader != TitleHeader {
		pairs = append(pairs, [2]string{"Phần", currentHeader})
	}
	pairs = append(pairs,
		[2]string{"Ngành", metaString(docMeta, "major")},
		[2]string{"Năm", metaString(docMeta, "year")},
		[2]string{"Hệ", metaString(docMeta, "program_type")},
		[2]string{"Chương trình", metaString(docMeta, "program_name")},
	)
	return pairs
}
