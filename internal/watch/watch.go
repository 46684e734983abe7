// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch hands documents dropped into a directory to a callback.
// A file is handed over once, after it has stopped changing for the
// debounce interval.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// tickInterval is how often pending files are checked against the debounce
// interval.
var tickInterval = 100 * time.Millisecond

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Watcher watches one directory.
type Watcher struct {
	// Dir is the directory watched. Subdirectories are not watched.
	Dir string

	// Debounce is the quiet period before a file is handled (default 2s).
	Debounce time.Duration

	// Accept filters file names; nil accepts everything.
	Accept func(path string) bool

	// Existing hands over files already in Dir when Run starts.
	Existing bool

	Logger *zap.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	handled map[string]bool
	stats   Stats
}

// Stats counts what a Watcher did.
type Stats struct {
	Handled int
	Failed  int
	Errors  int
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run watches Dir until ctx is done, calling h for each settled file in
// the order files settle. Handler errors are logged and counted; they do
// not stop the watcher. Run returns after the current handler call, if
// any, has returned.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if w.Debounce <= 0 {
		w.Debounce = 2 * time.Second
	}
	w.mu.Lock()
	w.pending = map[string]time.Time{}
	w.handled = map[string]bool{}
	w.mu.Unlock()

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("creating watch directory: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.Dir, err)
	}
	log.Info("watching directory", zap.String("dir", w.Dir), zap.Duration("debounce", w.Debounce))

	if w.Existing {
		entries, err := os.ReadDir(w.Dir)
		if err != nil {
			return fmt.Errorf("listing %s: %w", w.Dir, err)
		}
		now := time.Now()
		for _, e := range entries {
			if !e.IsDir() {
				w.touch(filepath.Join(w.Dir, e.Name()), now)
			}
		}
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("watcher stopped", zap.String("dir", w.Dir))
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				w.touch(ev.Name, time.Now())
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				w.mu.Lock()
				delete(w.pending, ev.Name)
				w.mu.Unlock()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				if ctx.Err() != nil {
					return nil
				}
				w.handle(ctx, h, path, log)
			}
		}
	}
}

// touch records activity on path if it is a candidate.
func (w *Watcher) touch(path string, at time.Time) {
	if w.Accept != nil && !w.Accept(path) {
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.handled[path] {
		w.pending[path] = at
	}
}

// settled removes and returns the files quiet for at least Debounce,
// oldest activity first.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.Debounce {
			ready = append(ready, path)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		ai, aj := w.pending[ready[i]], w.pending[ready[j]]
		if ai.Equal(aj) {
			return ready[i] < ready[j]
		}
		return ai.Before(aj)
	})
	for _, path := range ready {
		delete(w.pending, path)
		w.handled[path] = true
	}
	return ready
}

func (w *Watcher) handle(ctx context.Context, h Handler, path string, log *zap.Logger) {
	log.Info("file settled", zap.String("file", path))
	err := h(ctx, path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		log.Warn("handling file failed", zap.String("file", path), zap.Error(err))
		w.stats.Failed++
		return
	}
	w.stats.Handled++
}
