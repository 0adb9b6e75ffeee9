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
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// stubStage copies its input to its output and reports configurable
// metadata, cost, and errors.
type stubStage struct {
	name      string
	output    string
	costly    bool
	always    bool
	execErr   error
	cost      float64
	execCalls int
}

func (s *stubStage) Name() string           { return s.name }
func (s *stubStage) Description() string    { return "stub" }
func (s *stubStage) OutputFilename() string { return s.output }
func (s *stubStage) Costly() bool           { return s.costly }
func (s *stubStage) Idempotent() bool       { return true }
func (s *stubStage) AlwaysRuns() bool       { return s.always }

func (s *stubStage) Execute(_ context.Context, _ *Document, inputPath, outputPath string) (map[string]any, error) {
	s.execCalls++
	if s.execErr != nil {
		return nil, s.execErr
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}
	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return nil, err
		}
	}
	meta := map[string]any{"stub": true}
	if s.cost > 0 {
		meta["cost"] = s.cost
	}
	return meta, nil
}

func newStageFixture(t *testing.T) (*Document, *StateStore, string) {
	t.Helper()
	dir := t.TempDir()
	doc := &Document{Category: "regulation", ID: "doc", Dir: dir}
	store := NewStateStore(dir, doc.Category, doc.ID)
	input := writeInput(t, dir, "00-input.md", "# Điều 1. Phạm vi\nNội dung.")
	return doc, store, input
}

func TestRunStage_ExecutesAndRecords(t *testing.T) {
	doc, store, input := newStageFixture(t)
	stage := &stubStage{name: StageClean, output: FileCleaned, cost: 0.004}

	res, err := runStage(context.Background(), store, stage, doc, input, false)
	if err != nil {
		t.Fatalf("runStage: %v", err)
	}
	if !res.Executed || res.Skipped {
		t.Errorf("expected execution, got %+v", res)
	}
	if res.Cost != 0.004 {
		t.Errorf("cost = %v, want 0.004", res.Cost)
	}
	if _, hasCost := res.Metadata["cost"]; hasCost {
		t.Errorf("cost must be lifted out of metadata: %v", res.Metadata)
	}

	rec, ok := store.Stage(StageClean)
	if !ok {
		t.Fatalf("no record written")
	}
	if rec.Status != StatusCompleted {
		t.Errorf("status = %q", rec.Status)
	}
	wantHash, _ := HashFile(input)
	if rec.InputHash != wantHash {
		t.Errorf("input hash = %q, want %q", rec.InputHash, wantHash)
	}
	if rec.OutputFile != FileCleaned {
		t.Errorf("output file = %q", rec.OutputFile)
	}
	if rec.Cost != 0.004 {
		t.Errorf("record cost = %v", rec.Cost)
	}
	if _, err := os.Stat(doc.ArtifactPath(FileCleaned)); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
}

func TestRunStage_SkipsCompletedUnchangedInput(t *testing.T) {
	doc, store, input := newStageFixture(t)
	stage := &stubStage{name: StageClean, output: FileCleaned}

	if _, err := runStage(context.Background(), store, stage, doc, input, false); err != nil {
		t.Fatalf("first run: %v", err)
	}

	res, err := runStage(context.Background(), store, stage, doc, input, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !res.Skipped || res.SkipReason != SkipReasonCompleted {
		t.Errorf("expected completed-skip, got %+v", res)
	}
	if stage.execCalls != 1 {
		t.Errorf("Execute ran %d times, want 1", stage.execCalls)
	}
}

func TestRunStage_RerunsOnChangedInput(t *testing.T) {
	doc, store, input := newStageFixture(t)
	stage := &stubStage{name: StageClean, output: FileCleaned}

	if _, err := runStage(context.Background(), store, stage, doc, input, false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	writeInput(t, doc.Dir, "00-input.md", "# Điều 1. Phạm vi\nNội dung đã đổi.")

	res, err := runStage(context.Background(), store, stage, doc, input, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !res.Executed {
		t.Errorf("changed input must rerun, got %+v", res)
	}
	if stage.execCalls != 2 {
		t.Errorf("Execute ran %d times, want 2", stage.execCalls)
	}
}

func TestRunStage_ForceReruns(t *testing.T) {
	doc, store, input := newStageFixture(t)
	stage := &stubStage{name: StageFix, output: FileFixed, costly: true}

	if _, err := runStage(context.Background(), store, stage, doc, input, false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := runStage(context.Background(), store, stage, doc, input, true)
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if !res.Executed {
		t.Errorf("force must rerun, got %+v", res)
	}
	if stage.execCalls != 2 {
		t.Errorf("Execute ran %d times, want 2", stage.execCalls)
	}
}

func TestRunStage_LockedSkipsEvenWithForce(t *testing.T) {
	doc, store, input := newStageFixture(t)
	stage := &stubStage{name: StageFix, output: FileFixed}

	if _, err := runStage(context.Background(), store, stage, doc, input, false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := store.Lock(StageFix); err != nil {
		t.Fatalf("lock: %v", err)
	}

	for _, force := range []bool{false, true} {
		res, err := runStage(context.Background(), store, stage, doc, input, force)
		if err != nil {
			t.Fatalf("force=%v: %v", force, err)
		}
		if !res.Skipped || res.SkipReason != SkipReasonLocked {
			t.Errorf("force=%v: expected locked-skip, got %+v", force, res)
		}
	}
	if stage.execCalls != 1 {
		t.Errorf("locked stage executed %d times, want 1", stage.execCalls)
	}
}

func TestRunStage_InputValidation(t *testing.T) {
	doc, store, _ := newStageFixture(t)
	stage := &stubStage{name: StageClean, output: FileCleaned}

	var inputErr *InputError
	_, err := runStage(context.Background(), store, stage, doc, "", false)
	if !errors.As(err, &inputErr) {
		t.Fatalf("empty path: expected InputError, got %v", err)
	}

	_, err = runStage(context.Background(), store, stage, doc, filepath.Join(doc.Dir, "missing.md"), false)
	if !errors.As(err, &inputErr) {
		t.Fatalf("missing file: expected InputError, got %v", err)
	}

	empty := writeInput(t, doc.Dir, "empty.md", "")
	_, err = runStage(context.Background(), store, stage, doc, empty, false)
	if !errors.As(err, &inputErr) {
		t.Fatalf("empty file: expected InputError, got %v", err)
	}
	if stage.execCalls != 0 {
		t.Errorf("Execute must not run on invalid input, ran %d times", stage.execCalls)
	}
}

func TestRunStage_FailureRecordsError(t *testing.T) {
	doc, store, input := newStageFixture(t)
	wantErr := fmt.Errorf("model unavailable")
	stage := &stubStage{name: StageFix, output: FileFixed, execErr: wantErr}

	_, err := runStage(context.Background(), store, stage, doc, input, false)
	var failure *StageFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected StageFailure, got %v", err)
	}
	if failure.Stage != StageFix || !errors.Is(failure, wantErr) {
		t.Errorf("failure = %+v", failure)
	}

	rec, _ := store.Stage(StageFix)
	if rec.Status != StatusFailed {
		t.Errorf("status = %q, want failed", rec.Status)
	}
	if rec.Metadata["error"] != wantErr.Error() {
		t.Errorf("error metadata = %v", rec.Metadata)
	}
}

func TestRunStage_RejectionRecordsVerdict(t *testing.T) {
	doc, store, input := newStageFixture(t)
	rejection := &QualityRejection{Reason: "too_short", Score: 0.1, WordCount: 7}
	stage := &stubStage{name: StageFilter, output: FileFiltered, execErr: rejection}

	_, err := runStage(context.Background(), store, stage, doc, input, false)
	var got *QualityRejection
	if !errors.As(err, &got) {
		t.Fatalf("expected QualityRejection to propagate, got %v", err)
	}

	rec, _ := store.Stage(StageFilter)
	if rec.Status != StatusRejected {
		t.Errorf("status = %q, want rejected", rec.Status)
	}
	if rec.Metadata["reason"] != "too_short" || rec.Metadata["word_count"] != 7 {
		t.Errorf("verdict metadata = %v", rec.Metadata)
	}
}

func TestRunStage_AlwaysRunNeverSkips(t *testing.T) {
	doc, store, input := newStageFixture(t)
	stage := &stubStage{name: StageChunk, output: FileChunks, always: true}

	for i := 0; i < 3; i++ {
		res, err := runStage(context.Background(), store, stage, doc, input, false)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !res.Executed {
			t.Errorf("run %d skipped: %+v", i, res)
		}
	}
	if stage.execCalls != 3 {
		t.Errorf("Execute ran %d times, want 3", stage.execCalls)
	}
}
