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
)

// maxHeaderDisplay caps header length in hierarchy strings and context
// headers. The full header text stays in the chunk content.
const maxHeaderDisplay = 80

var (
	dieuPattern   = regexp.MustCompile(`^Điều\s+(\d+)`)
	chuongPattern = regexp.MustCompile(`^CHƯƠNG\s+([IVXLCDM0-9]+)`)
	khoanPattern  = regexp.MustCompile(`^(\d+)\.`)
	mucPattern    = regexp.MustCompile(`^([a-zđ])[).]`)
)

// truncateRegulationHeader maps a raw regulation header to its short
// hierarchy form: "Điều 4. Thời gian đào tạo" becomes "Điều 4", a "2."
// header becomes "Khoản 2", an "a)" header becomes "Mục a". Headers
// outside the hierarchy vocabulary fall back to the display cap.
func truncateRegulationHeader(header string) string {
	header = strings.TrimSpace(header)
	if m := dieuPattern.FindStringSubmatch(header); m != nil {
		return "Điều " + m[1]
	}
	if m := chuongPattern.FindStringSubmatch(header); m != nil {
		return "CHƯƠNG " + m[1]
	}
	if m := khoanPattern.FindStringSubmatch(header); m != nil {
		return "Khoản " + m[1]
	}
	if m := mucPattern.FindStringSubmatch(header); m != nil {
		return "Mục " + m[1]
	}
	return truncateDisplay(header)
}

// truncateCurriculumHeader keeps headers verbatim up to the display cap.
func truncateCurriculumHeader(header string) string {
	return truncateDisplay(strings.TrimSpace(header))
}

func truncateDisplay(header string) string {
	runes := []rune(header)
	if len(runes) <= maxHeaderDisplay {
		return header
	}
	return string(runes[:maxHeaderDisplay]) + "..."
}
