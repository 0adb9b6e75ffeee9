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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mentorvn/mentor/pkg/utils"
)

// seedCodes are the lookup entries every table starts with. The file on
// disk extends them as generators meet unseen codes.
var seedCodes = map[string]string{
	"qd-dhcntt": "QĐ-DHCNTT",
}

// partCanonical restores the đ lost in ASCII filename slugs for the
// document-type abbreviations that carry one. Parts not listed here are
// uppercased as-is.
var partCanonical = map[string]string{
	"qd": "QĐ",
	"nd": "NĐ",
	"hd": "HĐ",
}

// CodeTable maps lowercase filename code suffixes ("qd-dhcntt") to
// canonical display codes ("QĐ-DHCNTT"). Unseen codes are derived, added
// to the table and persisted, so the file accumulates the corpus's
// issuer vocabulary over time. A table with an empty path never persists.
type CodeTable struct {
	mu    sync.Mutex
	path  string
	codes map[string]string
}

// NewCodeTable creates a table seeded with the built-in entries.
func NewCodeTable(path string) *CodeTable {
	codes := make(map[string]string, len(seedCodes))
	for k, v := range seedCodes {
		codes[k] = v
	}
	return &CodeTable{path: path, codes: codes}
}

// LoadCodeTable reads the persisted table at path, merging it over the
// seeds. A missing file yields a fresh table.
func LoadCodeTable(path string) (*CodeTable, error) {
	t := NewCodeTable(path)
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read code table '%s': %w", path, err)
	}

	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse code table '%s': %w", path, err)
	}
	for k, v := range stored {
		t.codes[strings.ToLower(k)] = v
	}
	return t, nil
}

// Canonical returns the display form of a lowercase filename code,
// deriving and recording it when unseen.
func (t *CodeTable) Canonical(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if display, ok := t.codes[code]; ok {
		return display
	}

	display := deriveDisplayCode(code)
	t.codes[code] = display
	t.persistLocked()
	return display
}

// Len returns the number of known codes.
func (t *CodeTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.codes)
}

func deriveDisplayCode(code string) string {
	parts := strings.Split(code, "-")
	for i, part := range parts {
		if display, ok := partCanonical[part]; ok {
			parts[i] = display
		} else {
			parts[i] = strings.ToUpper(part)
		}
	}
	return strings.Join(parts, "-")
}

func (t *CodeTable) persistLocked() {
	if t.path == "" {
		return
	}
	data, err := json.MarshalIndent(t.codes, "", "  ")
	if err != nil {
		slog.Warn("Failed to encode regulation code table", "path", t.path, "error", err)
		return
	}
	if err := utils.WriteFileAtomic(t.path, append(data, '\n'), 0644); err != nil {
		slog.Warn("Failed to persist regulation code table", "path", t.path, "error", err)
	}
}
