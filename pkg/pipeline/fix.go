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

	"github.com/mentorvn/mentor/pkg/markdownfix"
	"github.com/mentorvn/mentor/pkg/utils"
)

// FixStage repairs the markdown header hierarchy through the LLM-backed
// fixer. The repair is structural only; content words survive.
type FixStage struct {
	fixer *markdownfix.Fixer
}

// NewFixStage wraps the given fixer.
func NewFixStage(fixer *markdownfix.Fixer) *FixStage {
	return &FixStage{fixer: fixer}
}

func (s *FixStage) Name() string           { return StageFix }
func (s *FixStage) Description() string    { return "Repair markdown header hierarchy" }
func (s *FixStage) OutputFilename() string { return FileFixed }
func (s *FixStage) Costly() bool           { return true }
func (s *FixStage) Idempotent() bool       { return false }

func (s *FixStage) Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	fixed, err := s.fixer.Fix(ctx, string(data), doc.Category)
	if err != nil {
		return nil, err
	}

	if err := utils.WriteFileAtomic(outputPath, []byte(fixed), 0644); err != nil {
		return nil, err
	}
	return map[string]any{
		"input_chars":  len(data),
		"output_chars": len(fixed),
	}, nil
}
