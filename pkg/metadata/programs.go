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
	"sort"
	"strings"

	"github.com/mentorvn/mentor/pkg/utils"
)

// Program describes one degree program. Name is the canonical major as it
// appears in metadata records; Aliases are folded (lowercase, diacritics
// stripped) match forms used to detect the program in document slugs and
// user queries.
type Program struct {
	Slug    string
	Name    string
	Aliases []string
}

// Programs is the closed major vocabulary. Both the curriculum metadata
// generator and the retrieval program filter resolve against this table.
var Programs = []Program{
	{
		Slug:    "khmt",
		Name:    "Khoa học máy tính",
		Aliases: []string{"khoa hoc may tinh", "khmt", "computer science"},
	},
	{
		Slug:    "ktpm",
		Name:    "Kỹ thuật phần mềm",
		Aliases: []string{"ky thuat phan mem", "ktpm", "cong nghe phan mem", "software engineering"},
	},
	{
		Slug:    "httt",
		Name:    "Hệ thống thông tin",
		Aliases: []string{"he thong thong tin", "httt", "information systems"},
	},
	{
		Slug:    "ktmt",
		Name:    "Kỹ thuật máy tính",
		Aliases: []string{"ky thuat may tinh", "ktmt", "computer engineering"},
	},
	{
		Slug:    "mmtt",
		Name:    "Mạng máy tính và truyền thông dữ liệu",
		Aliases: []string{"mang may tinh va truyen thong du lieu", "mang may tinh", "truyen thong du lieu", "mmtt", "mmt"},
	},
	{
		Slug:    "attt",
		Name:    "An toàn thông tin",
		Aliases: []string{"an toan thong tin", "attt", "an ninh thong tin", "information security"},
	},
	{
		Slug:    "cntt",
		Name:    "Công nghệ thông tin",
		Aliases: []string{"cong nghe thong tin", "cntt", "information technology"},
	},
	{
		Slug:    "tmdt",
		Name:    "Thương mại điện tử",
		Aliases: []string{"thuong mai dien tu", "tmdt", "e-commerce"},
	},
	{
		Slug:    "khdl",
		Name:    "Khoa học dữ liệu",
		Aliases: []string{"khoa hoc du lieu", "khdl", "data science"},
	},
	{
		Slug:    "ttnt",
		Name:    "Trí tuệ nhân tạo",
		Aliases: []string{"tri tue nhan tao", "ttnt", "artificial intelligence"},
	},
	{
		Slug:    "tkvm",
		Name:    "Thiết kế vi mạch",
		Aliases: []string{"thiet ke vi mach", "vi mach ban dan", "tkvm"},
	},
}

// ProgramTypes is the closed program_type vocabulary.
var ProgramTypes = []string{"Chính quy", "Từ xa"}

// ProgramNames is the closed program_name vocabulary. Values outside it
// resolve to empty.
var ProgramNames = []string{
	"Chương trình chuẩn",
	"Chất lượng cao",
	"Cử nhân tài năng",
	"Chương trình tiên tiến",
}

// UniversityNames are phrasings of the university's own name. Queries are
// stripped of these before program detection so that mentioning the
// university is never mistaken for mentioning the CNTT major.
var UniversityNames = []string{
	"Trường Đại học Công nghệ Thông tin",
	"Đại học Công nghệ Thông tin",
	"ĐH Công nghệ Thông tin",
	"Trường ĐH CNTT",
	"ĐH CNTT",
	"ĐHCNTT",
	"UIT",
}

// normalizeText folds text for alias matching: diacritics stripped,
// lowercased, separators flattened to spaces.
func normalizeText(s string) string {
	s = strings.ToLower(utils.StripDiacritics(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '/', '.':
			return ' '
		}
		return r
	}, s)
}

// MajorByAlias finds the program referenced in text. When several aliases
// match, the earliest occurrence wins; at equal positions the longest
// alias wins.
func MajorByAlias(text string) (Program, bool) {
	t := normalizeText(text)

	var best Program
	bestPos, bestLen := -1, 0
	for _, p := range Programs {
		for _, alias := range p.Aliases {
			pos := strings.Index(t, alias)
			if pos < 0 {
				continue
			}
			if bestPos == -1 || pos < bestPos || (pos == bestPos && len(alias) > bestLen) {
				best, bestPos, bestLen = p, pos, len(alias)
			}
		}
	}
	return best, bestPos >= 0
}

// DetectProgram strips university names from a query and then resolves
// the program by alias.
func DetectProgram(query string) (Program, bool) {
	t := normalizeText(query)

	names := make([]string, len(UniversityNames))
	for i, n := range UniversityNames {
		names[i] = normalizeText(n)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	for _, n := range names {
		t = strings.ReplaceAll(t, n, " ")
	}

	return MajorByAlias(t)
}

// ProgramBySlug returns the program with the given slug.
func ProgramBySlug(slug string) (Program, bool) {
	for _, p := range Programs {
		if p.Slug == slug {
			return p, true
		}
	}
	return Program{}, false
}

// CanonicalMajor resolves a claimed major value (canonical name, code or
// alias, any casing) to its canonical form.
func CanonicalMajor(value string) (string, bool) {
	v := strings.Join(strings.Fields(normalizeText(value)), " ")
	if v == "" {
		return "", false
	}
	for _, p := range Programs {
		if v == normalizeText(p.Name) {
			return p.Name, true
		}
		for _, alias := range p.Aliases {
			if v == alias {
				return p.Name, true
			}
		}
	}
	return "", false
}

// CanonicalProgramType resolves a claimed program_type value to the
// closed vocabulary.
func CanonicalProgramType(value string) (string, bool) {
	v := strings.Join(strings.Fields(normalizeText(value)), " ")
	switch {
	case v == "":
		return "", false
	case strings.Contains(v, "tu xa"):
		return "Từ xa", true
	case strings.Contains(v, "chinh quy"):
		return "Chính quy", true
	}
	return "", false
}

// programNameAliases maps folded forms to canonical program names.
var programNameAliases = map[string]string{
	"chuong trinh chuan":     "Chương trình chuẩn",
	"chuan":                  "Chương trình chuẩn",
	"dai tra":                "Chương trình chuẩn",
	"chat luong cao":         "Chất lượng cao",
	"clc":                    "Chất lượng cao",
	"cu nhan tai nang":       "Cử nhân tài năng",
	"tai nang":               "Cử nhân tài năng",
	"cntn":                   "Cử nhân tài năng",
	"chuong trinh tien tien": "Chương trình tiên tiến",
	"tien tien":              "Chương trình tiên tiến",
}

// CanonicalProgramName resolves a claimed program_name value to the
// closed vocabulary; values outside it resolve to ("", false).
func CanonicalProgramName(value string) (string, bool) {
	v := strings.Join(strings.Fields(normalizeText(value)), " ")
	if v == "" {
		return "", false
	}
	if name, ok := programNameAliases[v]; ok {
		return name, true
	}
	for _, name := range ProgramNames {
		if v == normalizeText(name) {
			return name, true
		}
	}
	return "", false
}
