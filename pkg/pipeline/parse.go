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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mentorvn/mentor/pkg/docparse"
	"github.com/mentorvn/mentor/pkg/utils"
)

// ParseStage converts the raw source document (PDF, DOCX, XLSX, or
// plain text) to markdown through the configured parser.
type ParseStage struct {
	parser docparse.DocumentParser
}

// NewParseStage wraps the given parser.
func NewParseStage(parser docparse.DocumentParser) *ParseStage {
	return &ParseStage{parser: parser}
}

func (s *ParseStage) Name() string           { return StageParse }
func (s *ParseStage) Description() string    { return "Convert the source document to markdown" }
func (s *ParseStage) OutputFilename() string { return FileParsed }
func (s *ParseStage) Costly() bool           { return true }
func (s *ParseStage) Idempotent() bool       { return false }

func (s *ParseStage) Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error) {
	result, err := s.parser.Parse(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Markdown) == "" {
		return nil, fmt.Errorf("parser %s produced no text for %s", s.parser.Name(), filepath.Base(inputPath))
	}

	if err := utils.WriteFileAtomic(outputPath, []byte(result.Markdown), 0644); err != nil {
		return nil, err
	}

	meta := map[string]any{
		"parser": s.parser.Name(),
		"pages":  result.Pages,
		"cost":   result.CostUSD,
	}
	for k, v := range result.Metadata {
		meta[k] = v
	}
	return meta, nil
}
