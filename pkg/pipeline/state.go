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

// Package pipeline turns raw university documents into indexed retrieval
// chunks through a resumable multi-stage pipeline.
//
// Every document owns a working directory under its category's processed
// root. Stage artifacts (01-parsed.md through chunks.json) and a
// .pipeline.json state sidecar live there. The sidecar records, per
// stage, the status, a truncated SHA-256 of the stage input, the output
// artifact, and the monetary cost, which is what makes runs resumable:
// a completed stage whose input hash still matches is skipped on the
// next run. Stage outputs that were hand-corrected can be locked so no
// rerun overwrites them.
//
// Documents within a category process independently and may run
// concurrently; stages of one document are strictly sequential, and the
// caller must not run two pipelines over the same document at once.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mentorvn/mentor/pkg/utils"
)

// StateFilename is the per-document state sidecar.
const StateFilename = ".pipeline.json"

// Status is the lifecycle state of one stage record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	StatusRejected   Status = "rejected"
)

// StageRecord captures one stage's most recent run for a document.
type StageRecord struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`

	// InputHash is the 16-hex-character truncated SHA-256 of the stage
	// input at the time it ran.
	InputHash string `json:"input_hash,omitempty"`

	// OutputFile is the artifact filename inside the document directory,
	// empty for stages without one.
	OutputFile string `json:"output_file,omitempty"`

	// Cost is the monetary cost of the run in USD. Rerunning a stage
	// replaces the prior cost.
	Cost float64 `json:"cost"`

	// ManuallyEdited locks the record: the stage output was corrected by
	// hand and must not be overwritten, force or not.
	ManuallyEdited bool `json:"manually_edited"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// State is the persisted pipeline state of one document.
type State struct {
	DocumentID         string         `json:"document_id"`
	Category           string         `json:"category"`
	SourceFile         string         `json:"source_file,omitempty"`
	Stages             []StageRecord  `json:"stages"`
	CurrentStage       string         `json:"current_stage,omitempty"`
	FinalOutput        string         `json:"final_output,omitempty"`
	MigratedFromLegacy bool           `json:"migrated_from_legacy"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// StateStore gives one document's pipeline state atomic load/save and
// stage-record CRUD. It is not safe for concurrent use; callers fanning
// out across documents must keep one store per document.
type StateStore struct {
	dir   string
	state *State
}

// NewStateStore loads the state sidecar from dir. A missing sidecar
// yields an empty state; a malformed one is logged and treated as empty
// rather than crashing the run.
func NewStateStore(dir, category, documentID string) *StateStore {
	s := &StateStore{
		dir:   dir,
		state: &State{DocumentID: documentID, Category: category},
	}

	path := s.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}

	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Warn("Malformed pipeline state sidecar, starting fresh",
			"path", path,
			"error", err)
		return s
	}

	s.state = &loaded
	if s.state.DocumentID == "" {
		s.state.DocumentID = documentID
	}
	if s.state.Category == "" {
		s.state.Category = category
	}
	return s
}

// Path returns the sidecar location.
func (s *StateStore) Path() string {
	return filepath.Join(s.dir, StateFilename)
}

// State exposes the in-memory state. Mutations through it are not
// persisted until Save.
func (s *StateStore) State() *State {
	return s.state
}

// Save writes the sidecar atomically.
func (s *StateStore) Save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pipeline state: %w", err)
	}
	if err := utils.WriteFileAtomic(s.Path(), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("save pipeline state: %w", err)
	}
	return nil
}

// StageUpdate carries the optional fields of a stage transition.
type StageUpdate struct {
	OutputFile string
	InputHash  string
	Cost       float64
	Metadata   map[string]any
}

// AddOrUpdateStage creates or overwrites the record named name, persists
// the sidecar, and on completed updates the document's current stage and
// final output. Locked records are never overwritten; the update fails
// with a LockViolation.
func (s *StateStore) AddOrUpdateStage(name string, status Status, upd StageUpdate) error {
	if rec := s.stage(name); rec != nil && rec.ManuallyEdited {
		return &LockViolation{Stage: name}
	}

	record := StageRecord{
		Name:       name,
		Status:     status,
		Timestamp:  time.Now().UTC(),
		InputHash:  upd.InputHash,
		OutputFile: upd.OutputFile,
		Cost:       upd.Cost,
		Metadata:   upd.Metadata,
	}

	if rec := s.stage(name); rec != nil {
		*rec = record
	} else {
		s.state.Stages = append(s.state.Stages, record)
	}

	if status == StatusCompleted {
		s.state.CurrentStage = name
		if upd.OutputFile != "" {
			s.state.FinalOutput = upd.OutputFile
		}
	}

	return s.Save()
}

// Stage returns a copy of the named record.
func (s *StateStore) Stage(name string) (StageRecord, bool) {
	if rec := s.stage(name); rec != nil {
		return *rec, true
	}
	return StageRecord{}, false
}

func (s *StateStore) stage(name string) *StageRecord {
	for i := range s.state.Stages {
		if s.state.Stages[i].Name == name {
			return &s.state.Stages[i]
		}
	}
	return nil
}

// IsCompleted reports whether the named stage completed.
func (s *StateStore) IsCompleted(name string) bool {
	rec := s.stage(name)
	return rec != nil && rec.Status == StatusCompleted
}

// IsLocked reports whether the named stage is protected by a manual
// edit.
func (s *StateStore) IsLocked(name string) bool {
	rec := s.stage(name)
	return rec != nil && rec.ManuallyEdited
}

// Lock marks the named stage as manually edited and persists.
func (s *StateStore) Lock(name string) error {
	rec := s.stage(name)
	if rec == nil {
		return fmt.Errorf("cannot lock stage %q: no record for it", name)
	}
	rec.ManuallyEdited = true
	return s.Save()
}

// Unlock clears the manual-edit flag and persists.
func (s *StateStore) Unlock(name string) error {
	rec := s.stage(name)
	if rec == nil {
		return fmt.Errorf("cannot unlock stage %q: no record for it", name)
	}
	rec.ManuallyEdited = false
	return s.Save()
}

// NeedsRerun reports whether the named stage must run for the given
// input: the record is absent, did not complete, or completed against
// different input bytes. Locked stages never need a rerun.
func (s *StateStore) NeedsRerun(name, inputPath string) bool {
	rec := s.stage(name)
	if rec == nil || rec.Status != StatusCompleted {
		return true
	}
	if rec.ManuallyEdited {
		return false
	}
	hash, err := HashFile(inputPath)
	if err != nil {
		return true
	}
	return hash != rec.InputHash
}

// TotalCost sums the cost of all stage records in USD.
func (s *StateStore) TotalCost() float64 {
	var total float64
	for i := range s.state.Stages {
		total += s.state.Stages[i].Cost
	}
	return total
}

// StatusSummary renders the stage sequence as a compact progress line,
// e.g. "[x] parse -> [x] clean -> [FAIL] fix".
func (s *StateStore) StatusSummary() string {
	if len(s.state.Stages) == 0 {
		return "(no stages run)"
	}
	parts := make([]string, 0, len(s.state.Stages))
	for i := range s.state.Stages {
		rec := &s.state.Stages[i]
		parts = append(parts, statusMarker(rec.Status)+" "+rec.Name)
	}
	return strings.Join(parts, " -> ")
}

func statusMarker(status Status) string {
	switch status {
	case StatusCompleted:
		return "[x]"
	case StatusFailed:
		return "[FAIL]"
	case StatusRejected:
		return "[REJ]"
	case StatusInProgress:
		return "[..]"
	case StatusSkipped:
		return "[-]"
	default:
		return "[ ]"
	}
}

// HashFile returns the input fingerprint stored on stage records: the
// SHA-256 of the file bytes, hex encoded and truncated to 16 characters.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hash input %s: %w", path, err)
	}
	return HashBytes(data), nil
}

// HashBytes hashes raw bytes the same way HashFile hashes file contents.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
