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

var (
	// headerPattern matches an explicit markdown header line.
	headerPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

	// emptyHeaderPattern matches headers with no text, a common parser
	// artifact in converted PDFs.
	emptyHeaderPattern = regexp.MustCompile(`(?m)^#{1,6}\s*$\n?`)

	// falseBulletPattern matches bullet points that were promoted to
	// headers during conversion, e.g. "#### - text".
	falseBulletPattern = regexp.MustCompile(`(?m)^#{1,6}\s+-\s+`)
)

// preprocess removes structural artifacts left behind by document
// conversion: empty headers disappear and false-header bullets become
// plain bullets again. Horizontal rules are kept.
func preprocess(content string) string {
	content = emptyHeaderPattern.ReplaceAllString(content, "")
	content = falseBulletPattern.ReplaceAllString(content, "- ")
	return content
}

// section is one header-delimited region of the document. lines include
// the header line itself so no words are lost to header truncation;
// display holds the truncated form used for hierarchy rendering.
type section struct {
	header    string
	display   string
	level     int
	path      []string
	lines     []string
	startChar int
	endChar   int
}

// content returns the section text with surrounding blank lines trimmed.
func (s *section) content() string {
	return strings.TrimSpace(strings.Join(s.lines, "\n"))
}

// parseHooks carries the category-specific pieces of section parsing.
// detectImplicit may be nil when the category has no implicit headers.
type parseHooks struct {
	maxLevel       int
	detectImplicit func(line string) (level int, ok bool)
	truncate       func(header string) string
}

// parseSections walks the document line by line maintaining a header
// stack. Each explicit markdown header up to maxLevel closes the current
// section and opens a new one; the stack drops entries of equal or deeper
// level so the new section's path holds its parents only. Content before
// the first header lands in a TITLE section. The second return value
// counts implicit headers recognized by detectImplicit.
//
// Character offsets are rune indices into the preprocessed content.
func parseSections(content string, hooks parseHooks) ([]section, int) {
	lines := strings.Split(content, "\n")
	totalRunes := utf8.RuneCountInString(content)

	var (
		sections []section
		stack    []string
		levels   []int
		patterns int
	)
	cur := &section{header: TitleHeader, display: TitleHeader, level: 1}
	offset := 0

	flush := func(end int) {
		if cur.content() == "" {
			return
		}
		cur.endChar = end
		sections = append(sections, *cur)
	}
	open := func(headerLine, headerText string, level, start int) {
		for len(levels) > 0 && levels[len(levels)-1] >= level {
			stack = stack[:len(stack)-1]
			levels = levels[:len(levels)-1]
		}
		display := hooks.truncate(headerText)
		cur = &section{
			header:    headerText,
			display:   display,
			level:     level,
			path:      append([]string(nil), stack...),
			lines:     []string{headerLine},
			startChar: start,
		}
		stack = append(stack, display)
		levels = append(levels, level)
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := headerPattern.FindStringSubmatch(trimmed); m != nil && len(m[1]) <= hooks.maxLevel {
			flush(offset)
			open(line, strings.TrimSpace(m[2]), len(m[1]), offset)
		} else if lvl, ok := detectImplicitHeader(hooks, trimmed); ok {
			patterns++
			flush(offset)
			open(line, trimmed, lvl, offset)
		} else {
			cur.lines = append(cur.lines, line)
		}
		offset += utf8.RuneCountInString(line) + 1
	}
	flush(totalRunes)
	return sections, patterns
}

func detectImplicitHeader(hooks parseHooks, trimmed string) (int, bool) {
	if hooks.detectImplicit == nil || trimmed == "" {
		return 0, false
	}
	return hooks.detectImplicit(trimmed)
}
