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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mentorvn/mentor/pkg/metadata"
	"github.com/mentorvn/mentor/pkg/utils"
)

// MetadataStage produces the document's structured metadata record
// through the category-specific generator and writes it as
// metadata.json.
type MetadataStage struct {
	generator metadata.Generator
}

// NewMetadataStage wraps the given generator.
func NewMetadataStage(generator metadata.Generator) *MetadataStage {
	return &MetadataStage{generator: generator}
}

func (s *MetadataStage) Name() string           { return StageMetadata }
func (s *MetadataStage) Description() string    { return "Extract structured document metadata" }
func (s *MetadataStage) OutputFilename() string { return FileMetadata }
func (s *MetadataStage) Costly() bool           { return true }
func (s *MetadataStage) Idempotent() bool       { return false }

func (s *MetadataStage) Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	sourceFile := ""
	if doc.SourceFile != "" {
		sourceFile = filepath.Base(doc.SourceFile)
	}
	record, err := s.generator.Generate(ctx, metadata.Document{
		Markdown:   string(data),
		SourceFile: sourceFile,
		DocumentID: doc.ID,
	})
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata record: %w", err)
	}
	if err := utils.WriteFileAtomic(outputPath, append(out, '\n'), 0644); err != nil {
		return nil, err
	}

	return map[string]any{
		"generator": s.generator.Category(),
	}, nil
}
