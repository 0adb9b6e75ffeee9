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
	"fmt"
	"strings"
)

const regulationExtractionPrompt = `You extract structured metadata from Vietnamese university regulation documents.

Return a JSON object with exactly these fields:
- "title": the document's full official title.
- "year": the issuance year as a number, or 0 if unknown.
- "summary": 1-2 Vietnamese sentences describing what the document regulates.
- "keywords": 3-8 Vietnamese keyword phrases students would search with.
- "document_type": "original" for a standalone regulation, "update" when the document amends an earlier one (look for "sửa đổi, bổ sung").
- "effective_date": the effective date as "YYYY-MM-DD", or "" if not stated.
- "is_index_page": true only when the document is just a table of contents or a list of links, with no regulation content of its own.
- "base_regulation_code": the regulation number like "828/QĐ-ĐHCNTT", or "" if not stated.

Hard constraints:
- Return only the JSON object. No commentary, no code fences.
- Every string value is in Vietnamese except document_type.
- Never invent values; use "" or 0 when the document does not say.`

var curriculumExtractionPrompt = fmt.Sprintf(`You extract structured metadata from Vietnamese university curriculum documents.

Return a JSON object with exactly these fields:
- "title": the document's full title.
- "year": the admission cohort year (khóa tuyển) as a number, or 0 if unknown.
- "summary": 1-2 Vietnamese sentences describing the program and its focus.
- "keywords": 3-8 Vietnamese keyword phrases students would search with.
- "major": the program's major, one of: %s.
- "program_type": "Chính quy" or "Từ xa".
- "program_name": one of: %s - or "" when the document does not say.
- "is_index_page": true only when the document is just a table of contents or a list of links.

Hard constraints:
- Return only the JSON object. No commentary, no code fences.
- Pick "major" and "program_name" from the given lists only.
- Never invent values; use "" or 0 when the document does not say.`,
	majorList(), strings.Join(ProgramNames, ", "))

func majorList() string {
	names := make([]string, len(Programs))
	for i, p := range Programs {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}
