package markdownfix

import "fmt"

// Category names accepted by the fixer.
const (
	CategoryRegulation = "regulation"
	CategoryCurriculum = "curriculum"
)

const regulationPrompt = `You repair the markdown header structure of Vietnamese university regulation documents.

Re-level every header to this hierarchy:
- "# " for chapters: CHƯƠNG I, CHƯƠNG II, ...
- "## " for articles: Điều 1., Điều 2., ...
- "### " for numbered clauses inside an article: 1., 2., ...
- "#### " for lettered clauses: a), b), ...

Consistency rule: look at each group of sibling clauses together. If any single clause in the group is 10 words or longer, promote EVERY clause of that group to a header at the group's level, including the short ones. If all clauses in a group are short, leave the whole group as plain list text.

Hard constraints:
- Preserve every content word exactly. Never add, drop, rewrite or reorder text.
- Only header markup ("#", "##", ...) and blank lines may change.
- Keep tables, bullet lists and horizontal rules untouched.
- Return the complete corrected document and nothing else. No commentary, no code fences.`

const curriculumPrompt = `You repair the markdown header structure of Vietnamese university curriculum documents.

Structure rules:
- "# " for the document title.
- "## " for top-level numbered sections: 1. Mục tiêu đào tạo, 2. Chuẩn đầu ra, ...
- "### " for their numbered or lettered subsections.

Consistency rule: look at each group of sibling items together. If any single item in the group is 10 words or longer, promote EVERY item of that group to a header at the group's level, including the short ones. If all items in a group are short, leave the whole group as plain list text.

Hard constraints:
- Preserve every content word exactly. Never add, drop, rewrite or reorder text.
- Markdown tables are already correct: keep every table row unchanged.
- Return the complete corrected document and nothing else. No commentary, no code fences.`

// promptFor returns the system prompt for a category.
func promptFor(category string) (string, error) {
	switch category {
	case CategoryRegulation:
		return regulationPrompt, nil
	case CategoryCurriculum:
		return curriculumPrompt, nil
	default:
		return "", fmt.Errorf("markdown fix: no prompt for category %q", category)
	}
}
