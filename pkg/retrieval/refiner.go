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

package retrieval

import "strings"

// academicAcronyms maps Vietnamese academic shorthand to its full form.
// Students type these constantly; regulation text mostly spells them
// out, so expansion bridges the vocabulary gap for lexical search.
var academicAcronyms = map[string]string{
	"ĐKHP": "đăng ký học phần",
	"DKHP": "đăng ký học phần",
	"CTĐT": "chương trình đào tạo",
	"CTDT": "chương trình đào tạo",
	"GDTC": "giáo dục thể chất",
	"GDQP": "giáo dục quốc phòng",
	"ĐATN": "đồ án tốt nghiệp",
	"DATN": "đồ án tốt nghiệp",
	"TTTN": "thực tập tốt nghiệp",
	"KLTN": "khóa luận tốt nghiệp",
	"NCKH": "nghiên cứu khoa học",
	"CNTT": "công nghệ thông tin",
	"QCHV": "quy chế học vụ",
	"CVHT": "cố vấn học tập",
	"HP":   "học phần",
	"HK":   "học kỳ",
	"TC":   "tín chỉ",
	"SV":   "sinh viên",
	"GV":   "giảng viên",
	"TKB":  "thời khóa biểu",
	"ĐTB":  "điểm trung bình",
	"DTB":  "điểm trung bình",
}

// ExpandAcronyms appends the full form after each recognized acronym,
// keeping the original token so exact matches still hit:
//
//	"cách ĐKHP cho HK 2" → "cách ĐKHP (đăng ký học phần) cho HK (học kỳ) 2"
//
// Matching is per whitespace token and case-sensitive on the acronym;
// lowercase tokens like "tc" stay untouched because they are far more
// often ordinary words than shorthand. A query already carrying an
// acronym's full form is left alone, which makes expansion idempotent.
func ExpandAcronyms(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return query
	}

	expanded := make([]string, 0, len(fields))
	for _, token := range fields {
		core, trailing := splitTrailingPunct(token)
		if full, ok := academicAcronyms[core]; ok && !strings.Contains(query, full) {
			expanded = append(expanded, core+" ("+full+")"+trailing)
			continue
		}
		expanded = append(expanded, token)
	}
	return strings.Join(expanded, " ")
}

// splitTrailingPunct peels sentence punctuation off a token so "ĐKHP?"
// still expands.
func splitTrailingPunct(token string) (core, trailing string) {
	core = strings.TrimRight(token, ".,;:?!")
	return core, token[len(core):]
}
