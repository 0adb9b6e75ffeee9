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
	"strings"
	"unicode"

	"github.com/mentorvn/mentor/pkg/utils"
)

// segment is the smallest unit the sub-chunk packer moves around: a
// sentence, or a whole markdown table. Atomic segments are never split
// and never duplicated into the overlap window.
type segment struct {
	text   string
	sep    string
	tokens int
	atomic bool
}

// splitContent splits oversized chunk content into sub-chunk parts of at
// most size tokens, overlapping consecutive parts by up to overlap
// tokens of trailing sentences. Boundaries respect sentences and
// paragraphs; a markdown table travels as one atomic segment and an
// oversized table becomes a part of its own.
func splitContent(content string, size, overlap int, counter *utils.TokenCounter) []string {
	segments := buildSegments(content, counter)
	if len(segments) == 0 {
		return nil
	}
	return packSegments(segments, size, overlap)
}

// buildSegments decomposes content into sentence and table segments.
// Consecutive table lines form one segment; plain text splits into
// paragraphs on blank lines and into sentences within each paragraph.
func buildSegments(content string, counter *utils.TokenCounter) []segment {
	var segments []segment
	add := func(text, sep string, atomic bool) {
		text = strings.TrimRight(text, "\n")
		if strings.TrimSpace(text) == "" {
			return
		}
		segments = append(segments, segment{
			text:   text,
			sep:    sep,
			tokens: counter.Count(text),
			atomic: atomic,
		})
	}
	addParagraph := func(paragraph string) {
		for i, sentence := range splitSentences(paragraph) {
			sep := " "
			if i == 0 {
				sep = "\n\n"
			}
			add(sentence, sep, false)
		}
	}

	var text, table []string
	flushText := func() {
		if len(text) == 0 {
			return
		}
		for _, paragraph := range strings.Split(strings.Join(text, "\n"), "\n\n") {
			addParagraph(strings.TrimSpace(paragraph))
		}
		text = nil
	}
	flushTable := func() {
		if len(table) == 0 {
			return
		}
		add(strings.Join(table, "\n"), "\n\n", true)
		table = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if isTableLine(line) {
			flushText()
			table = append(table, line)
		} else {
			flushTable()
			text = append(text, line)
		}
	}
	flushText()
	flushTable()
	return segments
}

func isTableLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

// splitSentences cuts a paragraph after sentence-ending punctuation
// followed by whitespace. Decimal points and numbered references like
// "1.5" stay intact because the period is not followed by a space.
func splitSentences(paragraph string) []string {
	var out []string
	runes := []rune(paragraph)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			end := i + 1
			for end < len(runes) && (runes[end] == ')' || runes[end] == '"' || runes[end] == '”') {
				end++
			}
			if end < len(runes) && !unicode.IsSpace(runes[end]) {
				continue
			}
			if s := strings.TrimSpace(string(runes[start:end])); s != "" {
				out = append(out, s)
			}
			for end < len(runes) && unicode.IsSpace(runes[end]) {
				end++
			}
			start = end
			i = end - 1
		}
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// packSegments greedily fills parts up to size tokens. When a part
// closes, the next one is seeded with the trailing sentences of the
// previous part worth up to overlap tokens; the seed is dropped when the
// incoming segment would not fit beside it, so no part consists of
// duplicated text only.
func packSegments(segments []segment, size, overlap int) []string {
	var (
		parts     []string
		cur       []segment
		curTokens int
	)
	for _, seg := range segments {
		if len(cur) > 0 && curTokens+seg.tokens > size {
			parts = append(parts, joinSegments(cur))
			cur = overlapSeed(cur, overlap)
			curTokens = sumTokens(cur)
			if len(cur) > 0 && curTokens+seg.tokens > size {
				cur = nil
				curTokens = 0
			}
		}
		cur = append(cur, seg)
		curTokens += seg.tokens
	}
	if len(cur) > 0 {
		parts = append(parts, joinSegments(cur))
	}
	return parts
}

// overlapSeed returns the trailing run of sentence segments totalling at
// most overlap tokens. Tables are excluded so a large table is never
// duplicated across parts.
func overlapSeed(segments []segment, overlap int) []segment {
	if overlap <= 0 {
		return nil
	}
	total := 0
	i := len(segments)
	for i > 0 {
		seg := segments[i-1]
		if seg.atomic || total+seg.tokens > overlap {
			break
		}
		total += seg.tokens
		i--
	}
	return append([]segment(nil), segments[i:]...)
}

func joinSegments(segments []segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString(seg.sep)
		}
		b.WriteString(seg.text)
	}
	return b.String()
}

func sumTokens(segments []segment) int {
	total := 0
	for _, seg := range segments {
		total += seg.tokens
	}
	return total
}
