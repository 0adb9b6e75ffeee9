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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/mentorvn/mentor/pkg/pipeline"
)

// PipelineCmd groups the document pipeline subcommands.
type PipelineCmd struct {
	Run    PipelineRunCmd    `cmd:"" help:"Process source documents through the pipeline."`
	Status PipelineStatusCmd `cmd:"" help:"Show per-document stage status and cost."`
	Lock   PipelineLockCmd   `cmd:"" help:"Protect a stage artifact from being regenerated."`
	Unlock PipelineUnlockCmd `cmd:"" help:"Remove a stage's manual-edit protection."`
	Watch  PipelineWatchCmd  `cmd:"" help:"Watch the source directory and process new files."`
}

// PipelineRunCmd processes one document or a whole category.
type PipelineRunCmd struct {
	Category     string `required:"" help:"Document category (e.g. regulation, curriculum)."`
	Document     string `help:"Source file path, or the ID of an already-processed document." xor:"target" short:"d"`
	All          bool   `help:"Process every source file in the category." xor:"target"`
	Force        bool   `help:"Re-run completed stages (locked stages still hold)." short:"f"`
	SkipFailures bool   `help:"Keep a batch running past failed documents."`
	Workers      int    `help:"Override the batch worker count."`
}

func (c *PipelineRunCmd) Run(cli *CLI) error {
	if c.Document == "" && !c.All {
		return fmt.Errorf("specify --document or --all")
	}

	ctx, stop := signalContext(context.Background())
	defer stop()

	cfg, _, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if c.Workers > 0 {
		cfg.Pipeline.Workers = c.Workers
	}
	if c.SkipFailures {
		cfg.Pipeline.SkipFailures = true
	}

	comps := newComponents(cfg)
	defer comps.Close()

	proc, err := comps.buildProcessor()
	if err != nil {
		return err
	}

	if c.All {
		return c.runBatch(ctx, comps, proc)
	}
	return c.runOne(ctx, comps, proc)
}

func (c *PipelineRunCmd) runOne(ctx context.Context, comps *components, proc *pipeline.Processor) error {
	report, err := processTarget(ctx, proc, c.Category, c.Document, c.Force)
	if err != nil {
		if report != nil {
			fmt.Println(report.Summary)
		}
		return err
	}

	printDocumentReport(report)
	refreshLexical(ctx, comps)
	return nil
}

func (c *PipelineRunCmd) runBatch(ctx context.Context, comps *components, proc *pipeline.Processor) error {
	report, err := proc.ProcessAll(ctx, c.Category, c.Force)
	if report != nil {
		printBatchReport(report)
	}
	if err != nil {
		return err
	}
	refreshLexical(ctx, comps)
	return nil
}

// processTarget treats the target as a source file path first, then as
// the ID of a document that already has a working directory.
func processTarget(ctx context.Context, proc *pipeline.Processor, category, target string, force bool) (*pipeline.DocumentReport, error) {
	if _, err := os.Stat(target); err == nil {
		return proc.Process(ctx, category, target, force)
	}

	doc, err := proc.DocumentByID(category, target)
	if err != nil {
		return nil, err
	}
	if doc.SourceFile == "" {
		return nil, fmt.Errorf("'%s' is neither a readable file nor a known document ID in category '%s'", target, category)
	}
	return proc.ProcessDocument(ctx, doc, force)
}

// refreshLexical rebuilds the BM25 index after pipeline runs so lexical
// search picks up new chunks. Failures are logged, not fatal: dense
// retrieval still works without it.
func refreshLexical(ctx context.Context, comps *components) {
	if err := comps.refreshLexicalIndex(ctx); err != nil {
		slog.Warn("Failed to refresh lexical index", "error", err)
	}
}

func printDocumentReport(r *pipeline.DocumentReport) {
	fmt.Printf("\nDocument: %s (%s)\n", r.Document.ID, r.Document.Category)
	if r.Rejected {
		fmt.Println("Result:   REJECTED by the quality filter (moved to the rejected directory)")
	}
	if len(r.Executed) > 0 {
		fmt.Printf("Executed: %s\n", strings.Join(r.Executed, ", "))
	}
	if len(r.Skipped) > 0 {
		fmt.Printf("Skipped:  %s (already up to date)\n", strings.Join(r.Skipped, ", "))
	}
	fmt.Printf("Stages:   %s\n", r.Summary)
	fmt.Printf("Cost:     $%.4f\n", r.TotalCost)
}

func printBatchReport(r *pipeline.BatchReport) {
	fmt.Printf("\nCategory: %s\n", r.Category)
	fmt.Printf("Files:    %d total, %d processed, %d rejected, %d failed\n",
		r.Total, r.Processed, r.Rejected, r.Failed)
	fmt.Printf("Elapsed:  %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Printf("Cost:     $%.4f\n", r.TotalCost)
	if len(r.Failures) == 0 {
		return
	}
	fmt.Println("Failures:")
	names := make([]string, 0, len(r.Failures))
	for name := range r.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %s\n", name, r.Failures[name])
	}
}

// PipelineStatusCmd inspects pipeline state sidecars. It reads the
// processed directories directly and needs no providers or API keys.
type PipelineStatusCmd struct {
	Category string `required:"" help:"Document category."`
	Document string `help:"Document ID (omit to list the whole category)." short:"d"`
}

func (c *PipelineStatusCmd) Run(cli *CLI) error {
	cfg, _, err := loadConfig(context.Background(), cli.Config)
	if err != nil {
		return err
	}
	cat, ok := cfg.Pipeline.Categories[c.Category]
	if !ok {
		return fmt.Errorf("unknown category '%s'", c.Category)
	}

	if c.Document != "" {
		return printDocumentStatus(cat.ProcessedDir, c.Category, c.Document)
	}
	return printCategoryStatus(cat.ProcessedDir, c.Category)
}

func printDocumentStatus(processedDir, category, documentID string) error {
	dir := filepath.Join(processedDir, documentID)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("no working directory for document '%s' in category '%s'", documentID, category)
	}

	store := pipeline.NewStateStore(dir, category, documentID)
	state := store.State()

	fmt.Printf("Document: %s (%s)\n", documentID, category)
	if state.SourceFile != "" {
		fmt.Printf("Source:   %s\n", state.SourceFile)
	}
	fmt.Printf("Stages:   %s\n", store.StatusSummary())
	if len(state.Stages) > 0 {
		fmt.Println()
		for _, rec := range state.Stages {
			line := fmt.Sprintf("  %-12s %-11s %s", rec.Name, rec.Status, rec.Timestamp.Local().Format(time.RFC3339))
			if rec.Cost > 0 {
				line += fmt.Sprintf("  $%.4f", rec.Cost)
			}
			if rec.ManuallyEdited {
				line += "  [locked]"
			}
			if rec.OutputFile != "" {
				line += "  -> " + rec.OutputFile
			}
			fmt.Println(line)
		}
	}
	fmt.Printf("\nTotal cost: $%.4f\n", store.TotalCost())
	return nil
}

func printCategoryStatus(processedDir, category string) error {
	entries, err := os.ReadDir(processedDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No processed documents in category '%s'\n", category)
			return nil
		}
		return fmt.Errorf("read processed dir %s: %w", processedDir, err)
	}

	var total float64
	var count int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		store := pipeline.NewStateStore(filepath.Join(processedDir, entry.Name()), category, entry.Name())
		if len(store.State().Stages) == 0 {
			continue
		}
		cost := store.TotalCost()
		total += cost
		count++
		fmt.Printf("%-40s %s  $%.4f\n", entry.Name(), store.StatusSummary(), cost)
	}
	if count == 0 {
		fmt.Printf("No processed documents in category '%s'\n", category)
		return nil
	}
	fmt.Printf("\n%d document(s), total cost $%.4f\n", count, total)
	return nil
}

// PipelineLockCmd marks a stage artifact as hand-edited so reruns keep
// it verbatim.
type PipelineLockCmd struct {
	Category string `required:"" help:"Document category."`
	Document string `required:"" help:"Document ID." short:"d"`
	Stage    string `required:"" help:"Stage name (e.g. fix, metadata)."`
}

func (c *PipelineLockCmd) Run(cli *CLI) error {
	store, err := openStateStore(cli, c.Category, c.Document)
	if err != nil {
		return err
	}
	if err := store.Lock(c.Stage); err != nil {
		return err
	}
	fmt.Printf("Locked stage '%s' of document '%s': reruns will keep its output verbatim.\n", c.Stage, c.Document)
	return nil
}

// PipelineUnlockCmd clears a stage's manual-edit protection.
type PipelineUnlockCmd struct {
	Category string `required:"" help:"Document category."`
	Document string `required:"" help:"Document ID." short:"d"`
	Stage    string `required:"" help:"Stage name."`
}

func (c *PipelineUnlockCmd) Run(cli *CLI) error {
	store, err := openStateStore(cli, c.Category, c.Document)
	if err != nil {
		return err
	}
	if err := store.Unlock(c.Stage); err != nil {
		return err
	}
	fmt.Printf("Unlocked stage '%s' of document '%s': the pipeline may regenerate it.\n", c.Stage, c.Document)
	return nil
}

func openStateStore(cli *CLI, category, documentID string) (*pipeline.StateStore, error) {
	cfg, _, err := loadConfig(context.Background(), cli.Config)
	if err != nil {
		return nil, err
	}
	cat, ok := cfg.Pipeline.Categories[category]
	if !ok {
		return nil, fmt.Errorf("unknown category '%s'", category)
	}
	dir := filepath.Join(cat.ProcessedDir, documentID)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("no working directory for document '%s' in category '%s'", documentID, category)
	}
	return pipeline.NewStateStore(dir, category, documentID), nil
}

// PipelineWatchCmd keeps processing files dropped into the source
// directory until interrupted.
type PipelineWatchCmd struct {
	Category string        `required:"" help:"Document category to watch."`
	Debounce time.Duration `help:"Quiet period before a changed file is processed." default:"2s"`
}

func (c *PipelineWatchCmd) Run(cli *CLI) error {
	ctx, stop := signalContext(context.Background())
	defer stop()

	cfg, _, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}

	comps := newComponents(cfg)
	defer comps.Close()

	proc, err := comps.buildProcessor()
	if err != nil {
		return err
	}

	watcher, err := pipeline.NewWatcher(proc, c.Category, c.Debounce)
	if err != nil {
		return err
	}

	cat := cfg.Pipeline.Categories[c.Category]
	fmt.Printf("Watching %s for new %s documents (Ctrl+C to stop)\n", cat.SourceDir, c.Category)
	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	// Pick up anything the watcher indexed before shutdown.
	refreshLexical(context.Background(), comps)
	return nil
}

// signalContext derives a context cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
