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
	"sort"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/docparse"
	"github.com/mentorvn/mentor/pkg/embed"
	"github.com/mentorvn/mentor/pkg/llm"
	"github.com/mentorvn/mentor/pkg/markdownfix"
	"github.com/mentorvn/mentor/pkg/metadata"
	"github.com/mentorvn/mentor/pkg/utils"
	"github.com/mentorvn/mentor/pkg/vector"
)

// Options carries the dependencies a Processor needs. Config is
// required; a nil Vectors falls back to the no-op provider so the
// processing stages still work without a vector store.
type Options struct {
	Config      *config.PipelineConfig
	Chunking    config.ChunkingConfig
	FixLLM      llm.Completer
	MetadataLLM llm.Completer
	Embedder    embed.Embedder
	Vectors     vector.Provider
}

// Processor wires parsers, the markdown fixer, metadata generators,
// chunkers and the embed-index stage for every configured category, and
// runs documents through them.
type Processor struct {
	cfg          *config.PipelineConfig
	parsers      map[config.ParserType]docparse.DocumentParser
	fixer        *markdownfix.Fixer
	codes        *metadata.CodeTable
	generators   map[string]metadata.Generator
	chunkStages  map[string]*ChunkStage
	embedStage   *EmbedIndexStage
	rejectedRoot string
}

// NewProcessor builds a processor from the given options. Every
// configured category must have a metadata generator and a chunker, so
// a category the system cannot process fails here rather than mid-run.
func NewProcessor(opts Options) (*Processor, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("pipeline config is required")
	}
	cfg := opts.Config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if opts.FixLLM == nil {
		return nil, fmt.Errorf("fix stage completer is required")
	}
	if opts.MetadataLLM == nil {
		return nil, fmt.Errorf("metadata stage completer is required")
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	vectors := opts.Vectors
	if vectors == nil {
		vectors = vector.NilProvider{}
	}

	parsers, err := buildParsers(cfg)
	if err != nil {
		return nil, err
	}

	codes, err := metadata.LoadCodeTable(cfg.Metadata.CodesFile)
	if err != nil {
		return nil, err
	}

	generators := make(map[string]metadata.Generator, len(cfg.Categories))
	chunkStages := make(map[string]*ChunkStage, len(cfg.Categories))
	for name := range cfg.Categories {
		gen, err := metadata.NewGenerator(name, cfg.Metadata, opts.MetadataLLM, codes)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", name, err)
		}
		generators[name] = gen

		cs, err := NewChunkStage(name, opts.Chunking)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", name, err)
		}
		chunkStages[name] = cs
	}

	return &Processor{
		cfg:          cfg,
		parsers:      parsers,
		fixer:        markdownfix.NewFixer(opts.FixLLM, cfg.Fix),
		codes:        codes,
		generators:   generators,
		chunkStages:  chunkStages,
		embedStage:   NewEmbedIndexStage(opts.Embedder, vectors, cfg.EmbedIndex),
		rejectedRoot: filepath.Join(cfg.DataDir, ".rejected"),
	}, nil
}

// buildParsers constructs one parser per parser type the config refers
// to (the pipeline default plus any category override).
func buildParsers(cfg *config.PipelineConfig) (map[config.ParserType]docparse.DocumentParser, error) {
	needed := map[config.ParserType]bool{cfg.Parser.Type: true}
	for _, cat := range cfg.Categories {
		if cat.Parser != "" {
			needed[config.ParserType(cat.Parser)] = true
		}
	}

	parsers := make(map[config.ParserType]docparse.DocumentParser, len(needed))
	for typ := range needed {
		pc := cfg.Parser
		pc.Type = typ
		parser, err := docparse.NewParser(&pc)
		if err != nil {
			return nil, fmt.Errorf("build %s parser: %w", typ, err)
		}
		parsers[typ] = parser
	}
	return parsers, nil
}

func (p *Processor) parserFor(category string) docparse.DocumentParser {
	typ := p.cfg.Parser.Type
	if cat := p.cfg.Categories[category]; cat != nil && cat.Parser != "" {
		typ = config.ParserType(cat.Parser)
	}
	return p.parsers[typ]
}

// Config returns the processor's pipeline configuration after defaults.
func (p *Processor) Config() *config.PipelineConfig {
	return p.cfg
}

// Document resolves a source file into its pipeline document: the ID is
// the slugified filename and the working directory lives under the
// category's processed dir.
func (p *Processor) Document(category, sourcePath string) (*Document, error) {
	cat, ok := p.cfg.Categories[category]
	if !ok {
		return nil, &InputError{Path: sourcePath, Reason: fmt.Sprintf("unknown category %q", category)}
	}
	id := utils.Slugify(filepath.Base(sourcePath))
	if id == "" {
		return nil, &InputError{Path: sourcePath, Reason: "filename slugifies to an empty document id"}
	}
	return &Document{
		Category:   category,
		ID:         id,
		Dir:        filepath.Join(cat.ProcessedDir, id),
		SourceFile: sourcePath,
	}, nil
}

// DocumentByID resolves an already-processed document from its ID. The
// source path is recovered from the state sidecar when recorded there.
func (p *Processor) DocumentByID(category, documentID string) (*Document, error) {
	cat, ok := p.cfg.Categories[category]
	if !ok {
		return nil, &InputError{Path: documentID, Reason: fmt.Sprintf("unknown category %q", category)}
	}
	doc := &Document{
		Category: category,
		ID:       documentID,
		Dir:      filepath.Join(cat.ProcessedDir, documentID),
	}
	if src := NewStateStore(doc.Dir, category, documentID).State().SourceFile; src != "" {
		doc.SourceFile = filepath.Join(cat.SourceDir, src)
	}
	return doc, nil
}

// ProcessingPipeline builds the markdown stages for a document:
// parse, clean, normalize, filter, fix, optionally flatten, metadata.
func (p *Processor) ProcessingPipeline(doc *Document, store *StateStore) *Pipeline {
	stages := []Stage{
		NewParseStage(p.parserFor(doc.Category)),
		&CleanStage{},
		&NormalizeStage{},
		NewFilterStage(p.cfg.Filter, p.rejectedRoot),
		NewFixStage(p.fixer),
	}
	if cat := p.cfg.Categories[doc.Category]; cat != nil && cat.FlattenEnabled() {
		stages = append(stages, &FlattenStage{})
	}
	stages = append(stages, NewMetadataStage(p.generators[doc.Category]))
	return NewPipeline("processing", doc, store, stages)
}

// IndexingPipeline builds the chunk and embed-index stages.
func (p *Processor) IndexingPipeline(doc *Document, store *StateStore) *Pipeline {
	return NewPipeline("indexing", doc, store, []Stage{
		p.chunkStages[doc.Category],
		p.embedStage,
	})
}

// DocumentReport summarises one document's trip through both pipelines.
type DocumentReport struct {
	Document  *Document
	Results   []*StageResult
	Executed  []string
	Skipped   []string
	TotalCost float64
	Rejected  bool
	Summary   string
}

func (r *DocumentReport) merge(run *RunReport) {
	if run == nil {
		return
	}
	r.Results = append(r.Results, run.Results...)
	r.Executed = append(r.Executed, run.Executed...)
	r.Skipped = append(r.Skipped, run.Skipped...)
	r.TotalCost += run.TotalCost
}

// Process runs one source file end to end: processing stages, then
// chunking and indexing. A quality rejection stops the document but is
// reported, not returned as an error.
func (p *Processor) Process(ctx context.Context, category, sourcePath string, force bool) (*DocumentReport, error) {
	doc, err := p.Document(category, sourcePath)
	if err != nil {
		return nil, err
	}
	return p.ProcessDocument(ctx, doc, force)
}

// ProcessDocument runs both pipelines over a resolved document.
func (p *Processor) ProcessDocument(ctx context.Context, doc *Document, force bool) (*DocumentReport, error) {
	if err := utils.EnsureDir(doc.Dir); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}

	store := NewStateStore(doc.Dir, doc.Category, doc.ID)
	if doc.SourceFile != "" {
		store.State().SourceFile = filepath.Base(doc.SourceFile)
	}

	report := &DocumentReport{Document: doc}

	run, err := p.ProcessingPipeline(doc, store).Run(ctx, force)
	report.merge(run)
	if err != nil {
		report.Summary = store.StatusSummary()
		var rejection *QualityRejection
		if errors.As(err, &rejection) {
			report.Rejected = true
			return report, nil
		}
		return report, err
	}

	run, err = p.IndexingPipeline(doc, store).Run(ctx, force)
	report.merge(run)
	report.Summary = store.StatusSummary()
	if err != nil {
		return report, err
	}
	return report, nil
}

// SourceFiles lists the parseable files in a category's source
// directory, sorted by name.
func (p *Processor) SourceFiles(category string) ([]string, error) {
	cat, ok := p.cfg.Categories[category]
	if !ok {
		return nil, &InputError{Path: category, Reason: fmt.Sprintf("unknown category %q", category)}
	}

	entries, err := os.ReadDir(cat.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source dir %s: %w", cat.SourceDir, err)
	}

	parser := p.parserFor(category)
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(cat.SourceDir, entry.Name())
		if !parser.CanParse(path) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
