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

	"golang.org/x/text/unicode/norm"

	"github.com/mentorvn/mentor/pkg/utils"
)

// NormalizeStage canonicalizes the parsed text: NFC unicode form,
// uniform bullets and line endings, and collapsed whitespace.
// Vietnamese text arrives in a mix of composed and decomposed forms
// depending on the source tool; everything downstream (filtering,
// chunking, lexical search) assumes NFC.
type NormalizeStage struct{}

func (s *NormalizeStage) Name() string           { return StageNormalize }
func (s *NormalizeStage) Description() string    { return "Normalize whitespace, bullets, and unicode form" }
func (s *NormalizeStage) OutputFilename() string { return FileNormalized }
func (s *NormalizeStage) Costly() bool           { return false }
func (s *NormalizeStage) Idempotent() bool       { return true }

func (s *NormalizeStage) Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	normalized := normalizeMarkdown(string(data))
	if err := utils.WriteFileAtomic(outputPath, []byte(normalized), 0644); err != nil {
		return nil, err
	}
	return nil, nil
}

var (
	bulletPattern        = regexp.MustCompile(`(?m)^([ \t]*)[•●○◦▪‣·–][ \t]+`)
	trailingSpacePattern = regexp.MustCompile(`(?m)[ \t]+$`)
	multiBlankPattern    = regexp.MustCompile(`\n{3,}`)
)

var invisibleReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	" ", " ", // no-break space
	"​", "", // zero-width space
	"\uFEFF", "", // byte order mark
)

func normalizeMarkdown(content string) string {
	content = norm.NFC.String(content)
	content = invisibleReplacer.Replace(content)
	content = bulletPattern.ReplaceAllString(content, "${1}- ")
	content = trailingSpacePattern.ReplaceAllString(content, "")
	content = multiBlankPattern.ReplaceAllString(content, "\n\n")
	return strings.TrimRight(content, "\n") + "\n"
}
