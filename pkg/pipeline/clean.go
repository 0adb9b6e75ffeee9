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

package pipeline

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/mentorvn/mentor/pkg/utils"
)

// CleanStage strips the formal letterhead block that opens Vietnamese
// administrative documents (issuing university, national motto, document
// number, place-and-date line) together with leading navigation
// boilerplate, so downstream stages see the document body.
type CleanStage struct{}

func (s *CleanStage) Name() string           { return StageClean }
func (s *CleanStage) Description() string    { return "Remove letterheads and navigation boilerplate" }
func (s *CleanStage) OutputFilename() string { return FileCleaned }
func (s *CleanStage) Costly() bool           { return false }
func (s *CleanStage) Idempotent() bool       { return true }

func (s *CleanStage) Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	cleaned := cleanMarkdown(string(data))
	if err := utils.WriteFileAtomic(outputPath, []byte(cleaned), 0644); err != nil {
		return nil, err
	}

	return map[string]any{
		"removed_chars": len(data) - len(cleaned),
	}, nil
}

// cleanScanLimit bounds how far into the document the letterhead scan
// reaches. Letterheads sit in the first screenful; anything deeper is
// body text.
const cleanScanLimit = 40

// Content markers open the document body. The letterhead, when present,
// ends right before one of these.
var contentMarkers = []string{
	"QUYẾT ĐỊNH",
	"THÔNG BÁO",
	"QUY CHẾ",
	"QUY ĐỊNH",
	"THÔNG TƯ",
	"NGHỊ ĐỊNH",
	"HƯỚNG DẪN",
	"KẾ HOẠCH",
	"ĐỀ ÁN",
	"CHƯƠNG TRÌNH",
}

var (
	letterheadNumberPattern = regexp.MustCompile(`^Số[:.]`)
	letterheadDatePattern   = regexp.MustCompile(`ngày\s+\d{1,2}\s+tháng\s+\d{1,2}\s+năm\s+\d{4}`)
	horizontalRulePattern   = regexp.MustCompile(`^[-_*=]{3,}$`)
)

var letterheadPrefixes = []string{
	"ĐẠI HỌC QUỐC GIA",
	"TRƯỜNG ĐẠI HỌC",
	"CỘNG HÒA XÃ HỘI CHỦ NGHĨA",
	"CỘNG HOÀ XÃ HỘI CHỦ NGHĨA",
	"BỘ GIÁO DỤC VÀ ĐÀO TẠO",
	"Độc lập",
}

// cleanMarkdown walks the head of the document past letterhead lines and
// cuts everything above the first content marker or, failing that, the
// first plain body line. Documents without a detected letterhead come
// back unchanged.
func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	sawLetterhead := false

	for i, line := range lines {
		if i >= cleanScanLimit {
			break
		}
		stripped := stripLineMarkup(line)
		if stripped == "" {
			continue
		}
		if isContentMarker(stripped) {
			if sawLetterhead && i > 0 {
				return strings.Join(lines[i:], "\n")
			}
			return content
		}
		if isLetterheadLine(stripped) {
			sawLetterhead = true
			continue
		}
		// Plain body text before any marker: cut the letterhead above it
		// when there was one.
		if sawLetterhead && i > 0 {
			return strings.Join(lines[i:], "\n")
		}
		return content
	}
	return content
}

// stripLineMarkup reduces a line to its text for pattern checks: header
// hashes, blockquote marks, emphasis, and surrounding space go away.
func stripLineMarkup(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "#>")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_")
	return strings.TrimSpace(s)
}

func isLetterheadLine(stripped string) bool {
	for _, prefix := range letterheadPrefixes {
		if strings.HasPrefix(stripped, prefix) {
			return true
		}
	}
	if letterheadNumberPattern.MatchString(stripped) {
		return true
	}
	if horizontalRulePattern.MatchString(stripped) {
		return true
	}
	if strings.HasPrefix(stripped, "![") {
		return true
	}
	// Short place-and-date line, e.g. "Thành phố Hồ Chí Minh, ngày 28
	// tháng 9 năm 2022". The length cap keeps body sentences that merely
	// mention a date out of the letterhead.
	return len([]rune(stripped)) <= 60 && letterheadDatePattern.MatchString(stripped)
}

func isContentMarker(stripped string) bool {
	for _, marker := range contentMarkers {
		if strings.HasPrefix(stripped, marker) {
			return true
		}
	}
	return false
}
