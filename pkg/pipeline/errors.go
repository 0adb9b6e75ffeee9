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

import "fmt"

// InputError reports a missing, empty, or otherwise unusable stage
// input. It also covers unrecognized categories and documents that
// cannot be identified from their source path.
type InputError struct {
	Stage  string
	Path   string
	Reason string
}

func (e *InputError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("input %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("stage %s: input %q: %s", e.Stage, e.Path, e.Reason)
}

// StageFailure wraps an error raised while executing a stage. The stage
// record is transitioned to failed before the failure propagates.
type StageFailure struct {
	Stage string
	Err   error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }

// QualityRejection reports content the quality filter refused to pass.
// The document's pipeline aborts; its content and a JSON verdict are
// kept under the rejected root for review.
type QualityRejection struct {
	Reason    string
	Score     float64
	WordCount int
}

func (e *QualityRejection) Error() string {
	return fmt.Sprintf("content rejected: %s (score %.2f, %d words)", e.Reason, e.Score, e.WordCount)
}

// LockViolation reports an attempted overwrite of a stage record whose
// output was manually edited. Locked stages are skipped by the runner;
// this error surfaces only when a caller bypasses it and writes to the
// store directly.
type LockViolation struct {
	Stage string
}

func (e *LockViolation) Error() string {
	return fmt.Sprintf("stage %s is locked by a manual edit; unlock it before rerunning", e.Stage)
}
