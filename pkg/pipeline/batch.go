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
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// BatchReport summarises one batch run over a category's source dir.
type BatchReport struct {
	Category  string
	Total     int
	Processed int
	Failed    int
	Rejected  int
	TotalCost float64
	Elapsed   time.Duration

	// Failures maps source filename to the error that stopped it.
	Failures map[string]string
}

// ProcessAll runs every parseable file in the category's source dir
// through the full pipeline, bounded by the configured worker count.
// Quality rejections count separately and never stop the batch. A
// document failure cancels the remaining work unless skip_failures is
// set, in which case the batch runs to the end and reports the failures.
func (p *Processor) ProcessAll(ctx context.Context, category string, force bool) (*BatchReport, error) {
	files, err := p.SourceFiles(category)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{Category: category, Total: len(files), Failures: make(map[string]string)}
	if len(files) == 0 {
		slog.Info("No source files to process", "category", category)
		return report, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	slog.Info("Batch processing started",
		"category", category,
		"files", len(files),
		"workers", p.cfg.Workers,
		"force", force)

	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, p.cfg.Workers)
		processed atomic.Int64
		failed    atomic.Int64
		rejected  atomic.Int64

		mu       sync.Mutex
		cost     float64
		firstErr error
	)

	for _, path := range files {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			rep, err := p.Process(ctx, category, path, force)
			if rep != nil {
				mu.Lock()
				cost += rep.TotalCost
				mu.Unlock()
			}
			switch {
			case err != nil:
				if errors.Is(err, context.Canceled) {
					return
				}
				failed.Add(1)
				slog.Error("Document failed",
					"category", category,
					"file", filepath.Base(path),
					"error", err)
				mu.Lock()
				report.Failures[filepath.Base(path)] = err.Error()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				if !p.cfg.SkipFailures {
					cancel()
				}
			case rep.Rejected:
				rejected.Add(1)
				slog.Warn("Document rejected by quality filter",
					"category", category,
					"file", filepath.Base(path))
			default:
				processed.Add(1)
			}
		}(path)
	}
	wg.Wait()

	report.Processed = int(processed.Load())
	report.Failed = int(failed.Load())
	report.Rejected = int(rejected.Load())
	report.TotalCost = cost
	report.Elapsed = time.Since(start)

	slog.Info("Batch processing finished",
		"category", category,
		"processed", report.Processed,
		"rejected", report.Rejected,
		"failed", report.Failed,
		"cost_usd", report.TotalCost,
		"elapsed", report.Elapsed.Round(time.Millisecond))

	if !p.cfg.SkipFailures && firstErr != nil {
		return report, firstErr
	}
	return report, nil
}
