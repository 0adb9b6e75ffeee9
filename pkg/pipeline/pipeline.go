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
	"os"
	"path/filepath"
)

// Pipeline runs an ordered list of stages over one document, recording
// progress in the document's state sidecar after every stage.
type Pipeline struct {
	name   string
	doc    *Document
	store  *StateStore
	stages []Stage
}

// NewPipeline assembles a pipeline over the given document and state store.
func NewPipeline(name string, doc *Document, store *StateStore, stages []Stage) *Pipeline {
	return &Pipeline{name: name, doc: doc, store: store, stages: stages}
}

// RunReport summarises one pipeline run.
type RunReport struct {
	Executed  []string
	Skipped   []string
	TotalCost float64
	Results   []*StageResult
}

func (r *RunReport) add(res *StageResult) {
	r.Results = append(r.Results, res)
	r.TotalCost += res.Cost
	if res.Executed {
		r.Executed = append(r.Executed, res.Stage)
	} else {
		r.Skipped = append(r.Skipped, res.Stage)
	}
}

// Run executes every stage in order. Completed stages whose input hash
// is unchanged are skipped unless force is set. The first stage error
// stops the run; the report covers the stages that did run.
func (p *Pipeline) Run(ctx context.Context, force bool) (*RunReport, error) {
	report := &RunReport{}
	for i := range p.stages {
		res, err := p.runOne(ctx, i, force)
		if res != nil {
			report.add(res)
		}
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// RunStage executes a single stage by name, resolving its input from the
// artifacts already on disk.
func (p *Pipeline) RunStage(ctx context.Context, name string, force bool) (*StageResult, error) {
	for i, st := range p.stages {
		if st.Name() == name {
			return p.runOne(ctx, i, force)
		}
	}
	return nil, fmt.Errorf("pipeline %s has no stage %q", p.name, name)
}

func (p *Pipeline) runOne(ctx context.Context, i int, force bool) (*StageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stage := p.stages[i]
	return runStage(ctx, p.store, stage, p.doc, p.inputFor(i), force)
}

// inputFor resolves the input path for the stage at index i. Parse reads
// the source document, chunk reads the most refined markdown available,
// embed_index reads chunks.json, and everything else reads the previous
// stage's artifact.
func (p *Pipeline) inputFor(i int) string {
	switch p.stages[i].Name() {
	case StageParse:
		return p.doc.SourceFile
	case StageChunk:
		return FinalMarkdown(p.doc.Dir)
	case StageEmbedIndex:
		return p.doc.ArtifactPath(FileChunks)
	}
	if i == 0 {
		return ""
	}
	return p.doc.ArtifactPath(p.stages[i-1].OutputFilename())
}

// finalMarkdownOrder lists processed artifacts from most to least
// refined. Flatten is optional and fix can be skipped on locked
// documents, so downstream consumers take the best file present.
var finalMarkdownOrder = []string{
	FileFlattened,
	FileFixed,
	FileFiltered,
	FileNormalized,
	FileCleaned,
	FileParsed,
}

// FinalMarkdown returns the most refined non-empty markdown artifact in
// a document directory, or "" when none exists yet.
func FinalMarkdown(dir string) string {
	for _, name := range finalMarkdownOrder {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.Size() == 0 {
			continue
		}
		return path
	}
	return ""
}
