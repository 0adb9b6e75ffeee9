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
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/utils"
)

// FilterStage is the quality gate between normalization and the costly
// LLM stages. Scraped error pages, navigation shells, and too-thin
// fragments are rejected here: the content and a JSON verdict land under
// the rejected root and the document's pipeline aborts with a
// QualityRejection.
type FilterStage struct {
	cfg          config.FilterConfig
	rejectedRoot string
}

// NewFilterStage builds the gate. Rejected documents are written under
// rejectedRoot/{category}/.
func NewFilterStage(cfg config.FilterConfig, rejectedRoot string) *FilterStage {
	cfg.SetDefaults()
	return &FilterStage{cfg: cfg, rejectedRoot: rejectedRoot}
}

func (s *FilterStage) Name() string           { return StageFilter }
func (s *FilterStage) Description() string    { return "Reject low-quality and error-page content" }
func (s *FilterStage) OutputFilename() string { return FileFiltered }
func (s *FilterStage) Costly() bool           { return false }
func (s *FilterStage) Idempotent() bool       { return true }

func (s *FilterStage) Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}
	content := string(data)

	verdict := evaluateQuality(content, s.cfg)
	if verdict.Reject {
		if err := s.writeRejection(doc, content, verdict); err != nil {
			slog.Warn("Failed to write rejection artifacts",
				"document_id", doc.ID,
				"error", err)
		}
		return nil, &QualityRejection{
			Reason:    verdict.Reason,
			Score:     verdict.Score,
			WordCount: verdict.WordCount,
		}
	}

	if err := utils.WriteFileAtomic(outputPath, data, 0644); err != nil {
		return nil, err
	}
	return map[string]any{
		"quality_score": verdict.Score,
		"word_count":    verdict.WordCount,
	}, nil
}

func (s *FilterStage) writeRejection(doc *Document, content string, v qualityVerdict) error {
	dir := filepath.Join(s.rejectedRoot, doc.Category)
	if err := utils.WriteFileAtomic(filepath.Join(dir, doc.ID+".md"), []byte(content), 0644); err != nil {
		return err
	}
	verdict, err := json.MarshalIndent(map[string]any{
		"reason":     v.Reason,
		"score":      v.Score,
		"word_count": v.WordCount,
	}, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(filepath.Join(dir, doc.ID+".json"), append(verdict, '\n'), 0644)
}

type qualityVerdict struct {
	Reject    bool
	Reason    string
	Score     float64
	WordCount int
}

// Rejection reasons written into the verdict JSON.
const (
	rejectTooShort   = "too_short"
	rejectErrorPage  = "error_page"
	rejectNavigation = "navigation_page"
	rejectLowQuality = "low_quality"
)

// linkLinePattern matches a line that is nothing but one markdown link,
// optionally behind a bullet. Scraped navigation shells are made of
// these.
var linkLinePattern = regexp.MustCompile(`^\s*(?:[-*+]\s+)?\[[^\]]*\]\([^)]*\)\s*$`)

// evaluateQuality applies the hard rules (length, error markers, link
// ratio) and then the blended soft score.
func evaluateQuality(content string, cfg config.FilterConfig) qualityVerdict {
	words := strings.Fields(content)
	verdict := qualityVerdict{
		WordCount: len(words),
		Score:     qualityScore(content, words),
	}

	switch {
	case len(words) < cfg.MinWords:
		verdict.Reject = true
		verdict.Reason = rejectTooShort
	case containsErrorMarker(content, cfg.ErrorMarkers):
		verdict.Reject = true
		verdict.Reason = rejectErrorPage
	case linkLineRatio(content) > cfg.MaxLinkRatio:
		verdict.Reject = true
		verdict.Reason = rejectNavigation
	case verdict.Score < cfg.MinQualityScore:
		verdict.Reject = true
		verdict.Reason = rejectLowQuality
	}
	return verdict
}

func containsErrorMarker(content string, markers []string) bool {
	folded := strings.ToLower(content)
	for _, marker := range markers {
		if strings.Contains(folded, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

func linkLineRatio(content string) float64 {
	total, links := 0, 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		if linkLinePattern.MatchString(line) {
			links++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(links) / float64(total)
}

// qualityScore blends word volume, paragraph structure, and vocabulary
// density into [0,1]. The reference points (200 words, 3 paragraphs)
// sit well below a real regulation or curriculum page, so genuine
// documents saturate the first two terms.
func qualityScore(content string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	wordScore := min(float64(len(words))/200.0, 1.0)

	paragraphs := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			paragraphs++
		}
	}
	paragraphScore := min(float64(paragraphs)/3.0, 1.0)

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	density := float64(len(unique)) / float64(len(words))

	return 0.4*wordScore + 0.3*paragraphScore + 0.3*density
}
