package markdownfix

import "strings"

// stripCodeFences removes the outer code fence pair when the model
// wrapped the document in one. Fences inside the document stay.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	lines := strings.Split(trimmed, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// ensureTableSpacing inserts a blank line before every table header row
// so markdown renderers recognize the table. A header row is a line
// containing "|" immediately followed by a separator row; no line is
// inserted when the preceding line is already blank or itself a
// separator. Deterministic and idempotent, applied after every repair
// regardless of what the model produced.
func ensureTableSpacing(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+4)
	for i, line := range lines {
		headerRow := strings.Contains(line, "|") &&
			!isTableSeparator(line) &&
			i+1 < len(lines) && isTableSeparator(lines[i+1])
		if headerRow && len(out) > 0 {
			prev := out[len(out)-1]
			if strings.TrimSpace(prev) != "" && !isTableSeparator(prev) {
				out = append(out, "")
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// isTableSeparator reports whether a line is a table separator row like
// "| --- | :--- |".
func isTableSeparator(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.Contains(trimmed, "-") || !strings.Contains(trimmed, "|") {
		return false
	}
	for _, r := range trimmed {
		switch r {
		case '|', '-', ':', ' ':
		default:
			return false
		}
	}
	return true
}
