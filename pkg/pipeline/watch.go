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
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mentorvn/mentor/pkg/utils"
)

const defaultDebounce = 2 * time.Second

// Watcher watches a category's source directory and runs the pipeline
// on files as they appear or change. Events for one file are debounced
// so a file still being copied in is processed once, after it settles.
// A file changed while its pipeline is running is queued and reprocessed
// when the current run finishes.
type Watcher struct {
	proc     *Processor
	category string
	debounce time.Duration

	mu       sync.Mutex
	timers   map[string]*time.Timer
	inFlight map[string]bool
	pending  map[string]string
}

// NewWatcher creates a watcher for one category. A non-positive debounce
// falls back to the 2s default.
func NewWatcher(proc *Processor, category string, debounce time.Duration) (*Watcher, error) {
	if _, ok := proc.cfg.Categories[category]; !ok {
		return nil, &InputError{Path: category, Reason: fmt.Sprintf("unknown category %q", category)}
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		proc:     proc,
		category: category,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
		inFlight: make(map[string]bool),
		pending:  make(map[string]string),
	}, nil
}

// Run watches until the context is cancelled. The source directory is
// created if missing.
func (w *Watcher) Run(ctx context.Context) error {
	cat := w.proc.cfg.Categories[w.category]
	if err := utils.EnsureDir(cat.SourceDir); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(cat.SourceDir); err != nil {
		return fmt.Errorf("watch %s: %w", cat.SourceDir, err)
	}

	slog.Info("Started file watcher",
		"category", w.category,
		"dir", cat.SourceDir,
		"debounce", w.debounce)

	parser := w.proc.parserFor(w.category)
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 && event.Op&fsnotify.Write == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			if strings.HasPrefix(base, ".") || !parser.CanParse(event.Name) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			w.debounceFile(ctx, event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", "dir", cat.SourceDir, "error", err)
		}
	}
}

// debounceFile schedules processing after the debounce window, resetting
// the window on every further event for the same path.
func (w *Watcher) debounceFile(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.enqueue(ctx, path)
	})
}

func (w *Watcher) enqueue(ctx context.Context, path string) {
	slug := utils.Slugify(filepath.Base(path))
	if slug == "" {
		return
	}

	w.mu.Lock()
	if w.inFlight[slug] {
		// Already processing this document. Remember the path and run
		// again once the current pass finishes.
		w.pending[slug] = path
		w.mu.Unlock()
		return
	}
	w.inFlight[slug] = true
	w.mu.Unlock()

	go w.run(ctx, slug, path)
}

func (w *Watcher) run(ctx context.Context, slug, path string) {
	defer w.finish(ctx, slug)

	if ctx.Err() != nil {
		return
	}

	rep, err := w.proc.Process(ctx, w.category, path, false)
	switch {
	case err != nil:
		slog.Error("Watched document failed",
			"category", w.category,
			"file", filepath.Base(path),
			"error", err)
	case rep.Rejected:
		slog.Warn("Watched document rejected by quality filter",
			"category", w.category,
			"file", filepath.Base(path))
	default:
		slog.Info("Watched document processed",
			"category", w.category,
			"file", filepath.Base(path),
			"stages_executed", len(rep.Executed),
			"cost_usd", rep.TotalCost)
	}
}

func (w *Watcher) finish(ctx context.Context, slug string) {
	w.mu.Lock()
	delete(w.inFlight, slug)
	next, ok := w.pending[slug]
	if ok {
		delete(w.pending, slug)
	}
	w.mu.Unlock()

	if ok && ctx.Err() == nil {
		w.debounceFile(ctx, next)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
