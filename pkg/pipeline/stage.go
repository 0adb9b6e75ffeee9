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
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

// Stage names in pipeline order. Flatten runs only for categories that
// enable it.
const (
	StageParse      = "parse"
	StageClean      = "clean"
	StageNormalize  = "normalize"
	StageFilter     = "filter"
	StageFix        = "fix"
	StageFlatten    = "flatten"
	StageMetadata   = "metadata"
	StageChunk      = "chunk"
	StageEmbedIndex = "embed_index"
)

// Stage artifact filenames inside the document directory.
const (
	FileParsed     = "01-parsed.md"
	FileCleaned    = "02-cleaned.md"
	FileNormalized = "03-normalized.md"
	FileFiltered   = "04-filtered.md"
	FileFixed      = "05-fixed.md"
	FileFlattened  = "06-flattened.md"
	FileMetadata   = "metadata.json"
	FileChunks     = "chunks.json"
)

// Skip reasons reported on stage results.
const (
	SkipReasonCompleted = "already_completed"
	SkipReasonLocked    = "locked_manual_edit"
)

// Document identifies one unit of pipeline work: a source file, its
// stable slug, and its working directory under the category's processed
// root.
type Document struct {
	Category   string
	ID         string
	Dir        string
	SourceFile string
}

// ArtifactPath resolves a stage artifact inside the document directory.
func (d *Document) ArtifactPath(filename string) string {
	return filepath.Join(d.Dir, filename)
}

// Stage is one pipeline unit. Implementations only do the work in
// Execute; skip checks, input validation, hashing, and state
// transitions are the shared runner's job.
type Stage interface {
	Name() string
	Description() string

	// OutputFilename names the artifact Execute writes into the document
	// directory, empty for stages without one.
	OutputFilename() string

	// Costly marks stages whose execution spends money or a metered
	// request budget. Forcing a rerun of a completed costly stage logs a
	// caution.
	Costly() bool

	// Idempotent marks stages whose rerun on identical input produces an
	// identical outcome.
	Idempotent() bool

	// Execute reads inputPath, does the stage's work, and writes
	// outputPath when the stage has an artifact. The returned metadata
	// lands on the stage record; a "cost" entry is lifted into the
	// record's cost field.
	Execute(ctx context.Context, doc *Document, inputPath, outputPath string) (map[string]any, error)
}

// alwaysRun marks stages that execute on every invocation instead of
// honoring the completed-and-unchanged skip check.
type alwaysRun interface {
	AlwaysRuns() bool
}

// StageResult reports how one stage invocation ended.
type StageResult struct {
	Stage      string
	Executed   bool
	Skipped    bool
	SkipReason string
	Cost       float64
	Metadata   map[string]any
}

// runStage drives one stage through the shared protocol: skip checks,
// input validation, the in_progress/completed/failed/rejected state
// transitions, and cost accounting.
func runStage(ctx context.Context, store *StateStore, stage Stage, doc *Document, inputPath string, force bool) (*StageResult, error) {
	name := stage.Name()

	// A manual edit locks the stage output no matter what, force
	// included.
	if store.IsLocked(name) {
		slog.Info("Skipping locked stage",
			"stage", name,
			"document_id", doc.ID)
		return &StageResult{Stage: name, Skipped: true, SkipReason: SkipReasonLocked}, nil
	}

	if !force && !alwaysRuns(stage) && fileExists(inputPath) && !store.NeedsRerun(name, inputPath) {
		slog.Debug("Skipping completed stage",
			"stage", name,
			"document_id", doc.ID)
		return &StageResult{Stage: name, Skipped: true, SkipReason: SkipReasonCompleted}, nil
	}

	if force && stage.Costly() && store.IsCompleted(name) {
		slog.Warn("Forcing rerun of a completed costly stage",
			"stage", name,
			"document_id", doc.ID)
	}

	if err := validateInput(name, inputPath); err != nil {
		return nil, err
	}

	if err := store.AddOrUpdateStage(name, StatusInProgress, StageUpdate{}); err != nil {
		return nil, err
	}

	hash, err := HashFile(inputPath)
	if err != nil {
		_ = store.AddOrUpdateStage(name, StatusFailed, StageUpdate{
			Metadata: map[string]any{"error": err.Error()},
		})
		return nil, &StageFailure{Stage: name, Err: err}
	}

	outputPath := ""
	if stage.OutputFilename() != "" {
		outputPath = doc.ArtifactPath(stage.OutputFilename())
	}

	meta, execErr := stage.Execute(ctx, doc, inputPath, outputPath)
	if execErr != nil {
		var rejection *QualityRejection
		if errors.As(execErr, &rejection) {
			_ = store.AddOrUpdateStage(name, StatusRejected, StageUpdate{
				InputHash: hash,
				Metadata: map[string]any{
					"reason":     rejection.Reason,
					"score":      rejection.Score,
					"word_count": rejection.WordCount,
				},
			})
			return nil, execErr
		}

		_ = store.AddOrUpdateStage(name, StatusFailed, StageUpdate{
			InputHash: hash,
			Metadata:  map[string]any{"error": execErr.Error()},
		})
		return nil, &StageFailure{Stage: name, Err: execErr}
	}

	cost := popCost(meta)
	if err := store.AddOrUpdateStage(name, StatusCompleted, StageUpdate{
		OutputFile: stage.OutputFilename(),
		InputHash:  hash,
		Cost:       cost,
		Metadata:   meta,
	}); err != nil {
		return nil, err
	}

	slog.Info("Stage completed",
		"stage", name,
		"document_id", doc.ID,
		"cost_usd", cost)
	return &StageResult{Stage: name, Executed: true, Cost: cost, Metadata: meta}, nil
}

func alwaysRuns(stage Stage) bool {
	ar, ok := stage.(alwaysRun)
	return ok && ar.AlwaysRuns()
}

func validateInput(stage, path string) error {
	if path == "" {
		return &InputError{Stage: stage, Path: path, Reason: "no input file resolved"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &InputError{Stage: stage, Path: path, Reason: "file does not exist"}
	}
	if info.Size() == 0 {
		return &InputError{Stage: stage, Path: path, Reason: "file is empty"}
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// popCost lifts the "cost" entry out of stage metadata so it lands on
// the record's cost field instead of being duplicated.
func popCost(meta map[string]any) float64 {
	if meta == nil {
		return 0
	}
	v, ok := meta["cost"]
	if !ok {
		return 0
	}
	delete(meta, "cost")
	cost, ok := v.(float64)
	if !ok {
		return 0
	}
	return cost
}
