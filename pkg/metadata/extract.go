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
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mentorvn/mentor/pkg/utils"
)

var (
	// filenameCodePattern matches regulation numbers in source filenames:
	// "828_qd-dhcntt" and "790-qd-dhcntt_28-9-22_quy_che" both yield
	// (number, type, issuer).
	filenameCodePattern = regexp.MustCompile(`(\d+)[-_]([a-z]+)-([a-z\p{L}-]+)`)

	// filenameDatePattern matches day-month-year runs in filenames;
	// two-digit years are 20xx.
	filenameDatePattern = regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{2,4})`)

	// contentDateLongPattern matches the formal issuance line
	// "ngày 28 tháng 9 năm 2022".
	contentDateLongPattern = regexp.MustCompile(`ngày\s+(\d{1,2})\s+tháng\s+(\d{1,2})\s+năm\s+(\d{4})`)

	// contentDateSlashPattern matches "28/9/2022".
	contentDateSlashPattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)

	// contentCodePattern matches regulation references in prose:
	// "số 828/QĐ-ĐHCNTT", "số 17/2021/TT-BGDĐT".
	contentCodePattern = regexp.MustCompile(`[Ss]ố\s+(\d+(?:/\d{4})?)\s*/\s*([A-ZĐ]+(?:-[A-ZĐ]+)+)`)

	// isoDatePattern recognizes already-normalized dates.
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

	// slugYearPattern finds four-digit years in document slugs.
	slugYearPattern = regexp.MustCompile(`(?:19|20)\d{2}`)
)

// extractFilenameCode pulls the regulation number and lowercase code
// suffix from a source filename: "828_qd-dhcntt.pdf" yields
// ("828", "qd-dhcntt", true).
func extractFilenameCode(name string) (number, code string, ok bool) {
	base := strings.ToLower(filepath.Base(name))
	m := filenameCodePattern.FindStringSubmatch(base)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2] + "-" + m[3], true
}

// extractFilenameDate pulls an ISO date from a filename's D-M-Y run, if
// the run is a plausible calendar date.
func extractFilenameDate(name string) (string, bool) {
	base := filepath.Base(name)
	for _, m := range filenameDatePattern.FindAllStringSubmatch(base, -1) {
		if iso, ok := isoFromDMY(m[1], m[2], m[3]); ok {
			return iso, true
		}
	}
	return "", false
}

// extractContentDate pulls the first issuance date from document text,
// preferring the formal "ngày D tháng M năm Y" form over D/M/Y.
func extractContentDate(markdown string) (string, bool) {
	if m := contentDateLongPattern.FindStringSubmatch(markdown); m != nil {
		if iso, ok := isoFromDMY(m[1], m[2], m[3]); ok {
			return iso, true
		}
	}
	for _, m := range contentDateSlashPattern.FindAllStringSubmatch(markdown, -1) {
		if iso, ok := isoFromDMY(m[1], m[2], m[3]); ok {
			return iso, true
		}
	}
	return "", false
}

// normalizeISODate coerces a claimed date value to ISO form; unparseable
// values become empty.
func normalizeISODate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if m := isoDatePattern.FindStringSubmatch(value); m != nil {
		if iso, ok := isoFromYMD(m[1], m[2], m[3]); ok {
			return iso
		}
		return ""
	}
	if m := contentDateSlashPattern.FindStringSubmatch(value); m != nil {
		if iso, ok := isoFromDMY(m[1], m[2], m[3]); ok {
			return iso
		}
	}
	return ""
}

func isoFromDMY(day, month, year string) (string, bool) {
	d, _ := strconv.Atoi(day)
	mo, _ := strconv.Atoi(month)
	y, _ := strconv.Atoi(year)
	if len(year) == 2 {
		y += 2000
	} else if len(year) != 4 {
		return "", false
	}
	return validDate(y, mo, d)
}

func isoFromYMD(year, month, day string) (string, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return validDate(y, mo, d)
}

func validDate(year, month, day int) (string, bool) {
	if year < 1990 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// extractSlugYear pulls the last four-digit year from a document slug:
// "ctdt-khoa-hoc-may-tinh-2021" yields 2021.
func extractSlugYear(slug string) (int, bool) {
	matches := slugYearPattern.FindAllString(slug, -1)
	if len(matches) == 0 {
		return 0, false
	}
	y, _ := strconv.Atoi(matches[len(matches)-1])
	return y, true
}

// extractPredecessorCode scans the document's "Căn cứ" lines for the
// regulation this update amends. Among the referenced codes, lines
// sharing topic keywords with the title score highest; codes issued by
// the university break ties over ministry-level ones.
func extractPredecessorCode(markdown, title string) (string, bool) {
	titleWords := topicWords(title)

	bestScore := -1
	bestCode := ""
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "Căn cứ") && !strings.HasPrefix(trimmed, "căn cứ") {
			continue
		}
		m := contentCodePattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		score := 0
		if strings.Contains(m[2], "ĐHCNTT") || strings.Contains(m[2], "DHCNTT") {
			score += 2
		}
		lineWords := topicWords(trimmed)
		for w := range titleWords {
			if lineWords[w] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestCode = m[1] + "/" + m[2]
		}
	}
	return bestCode, bestCode != ""
}

// topicWords folds text into a set of content words for overlap scoring.
// Short words and the boilerplate every Căn cứ line shares are dropped.
var topicStopwords = map[string]bool{
	"can": true, "ngay": true, "thang": true, "nam": true, "so": true,
	"cua": true, "truong": true, "viec": true, "theo": true, "ban": true,
	"hanh": true, "quyet": true, "dinh": true,
}

func topicWords(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(utils.StripDiacritics(s))) {
		w = strings.Trim(w, ".,;:()[]\"'")
		if len(w) < 3 || topicStopwords[w] {
			continue
		}
		words[w] = true
	}
	return words
}
