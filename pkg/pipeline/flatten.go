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
	"strings"

	"github.com/mentorvn/mentor/pkg/utils"
)

// FlattenStage rewrites markdown tables into labeled row-wise text. A
// curriculum course table row like "| IT001 | Nhập môn lập trình | 4 |"
// becomes "Mã MH: IT001; Tên môn học: Nhập môn lập trình; Số TC: 4",
// which keeps the header-to-cell association intact when the row is
// chunked and embedded on its own. Non-table content passes through.
type FlattenStage struct{}

func (s *FlattenStage) Name() string           { return StageFlatten }
func (s *FlattenStage) Description() string    { return "Flatten markdown tables into labeled rows" }
func (s *FlattenStage) OutputFilename() string { return FileFlattened }
func (s *FlattenStage) Costly() bool           { return false }
func (s *FlattenStage) Idempotent() bool       { return true }

func (s *FlattenStage) Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	flattened, tables := flattenTables(string(data))
	if err := utils.WriteFileAtomic(outputPath, []byte(flattened), 0644); err != nil {
		return nil, err
	}
	return map[string]any{
		"tables_flattened": tables,
	}, nil
}

// flattenTables rewrites every markdown table in content and returns the
// result plus the number of tables touched.
func flattenTables(content string) (string, int) {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	tables := 0

	for i := 0; i < len(lines); i++ {
		if !startsTable(lines, i) {
			out = append(out, lines[i])
			continue
		}

		headers := splitTableRow(lines[i])
		tables++
		j := i + 2 // past the separator row
		emitted := 0
		for ; j < len(lines) && isTableDataRow(lines[j]); j++ {
			if row := labelRow(headers, splitTableRow(lines[j])); row != "" {
				out = append(out, row)
				emitted++
			}
		}
		if emitted == 0 {
			// Header-only table: keep the header text as a plain line.
			out = append(out, strings.Join(headers, "; "))
		}
		i = j - 1
	}

	return strings.Join(out, "\n"), tables
}

// startsTable reports whether lines[i] is a table header row, i.e. a
// pipe row directly followed by a separator row.
func startsTable(lines []string, i int) bool {
	return strings.Contains(lines[i], "|") &&
		!isSeparatorRow(lines[i]) &&
		i+1 < len(lines) &&
		isSeparatorRow(lines[i+1])
}

func isTableDataRow(line string) bool {
	return strings.Contains(line, "|") && !isSeparatorRow(line)
}

// isSeparatorRow matches the header/body divider of a markdown table:
// cells made of dashes and optional alignment colons.
func isSeparatorRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.Contains(trimmed, "-") {
		return false
	}
	sawDashes := false
	for _, cell := range strings.Split(strings.Trim(trimmed, "|"), "|") {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if strings.Trim(cell, ":-") != "" {
			return false
		}
		if strings.Contains(cell, "---") {
			sawDashes = true
		}
	}
	return sawDashes
}

func splitTableRow(line string) []string {
	trimmed := strings.Trim(strings.TrimSpace(line), "|")
	cells := strings.Split(trimmed, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

// labelRow pairs each cell with its column header. Empty cells drop
// out; surplus cells without a header keep their bare value.
func labelRow(headers, cells []string) string {
	pairs := make([]string, 0, len(cells))
	for i, cell := range cells {
		if cell == "" {
			continue
		}
		if i < len(headers) && headers[i] != "" {
			pairs = append(pairs, headers[i]+": "+cell)
		} else {
			pairs = append(pairs, cell)
		}
	}
	return strings.Join(pairs, "; ")
}
