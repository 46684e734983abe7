// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	tickInterval = 10 * time.Millisecond
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]bool
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	if r.fail[filepath.Base(path)] {
		return errors.New("pipeline failed")
	}
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// start runs w in the background and returns a stop function that waits
// for Run to return.
func start(t *testing.T, w *Watcher, h Handler) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, h) }()

	// Wait for the directory to be watched.
	require.Eventually(t, func() bool {
		_, err := os.Stat(w.Dir)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			require.NoError(t, <-done)
		})
	}
	t.Cleanup(stop)
	return stop
}

func TestWatcherHandlesNewFilesOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	rec := &recorder{}
	w := &Watcher{Dir: dir, Debounce: 50 * time.Millisecond}
	stop := start(t, w, rec.handle)

	path := filepath.Join(dir, "case.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	// Further writes during the debounce window do not trigger extra calls.
	for range 3 {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		require.NoError(t, err)
		_, err = f.WriteString(" more")
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	require.Eventually(t, func() bool { return len(rec.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// A later write to a handled file is ignored.
	require.NoError(t, os.WriteFile(path, []byte("%PDF again"), 0o644))
	time.Sleep(200 * time.Millisecond)
	stop()

	assert.Equal(t, []string{"case.pdf"}, rec.seen())
	assert.Equal(t, Stats{Handled: 1}, w.Stats())
}

func TestWatcherAcceptFilter(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := &Watcher{
		Dir:      dir,
		Debounce: 20 * time.Millisecond,
		Accept:   func(p string) bool { return strings.HasSuffix(p, ".png") },
	}
	stop := start(t, w, rec.handle)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.docx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.png"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	require.Eventually(t, func() bool { return len(rec.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	stop()
	assert.Equal(t, []string{"page.png"}, rec.seen())
}

func TestWatcherExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	rec := &recorder{fail: map[string]bool{"b.txt": true}}
	w := &Watcher{Dir: dir, Debounce: 10 * time.Millisecond, Existing: true}
	stop := start(t, w, rec.handle)

	require.Eventually(t, func() bool { return len(rec.seen()) == 2 }, 2*time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, []string{"a.txt", "b.txt"}, rec.seen())
	assert.Equal(t, Stats{Handled: 1, Failed: 1}, w.Stats())
}

func TestWatcherRemovedBeforeSettling(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := &Watcher{Dir: dir, Debounce: 300 * time.Millisecond}
	stop := start(t, w, rec.handle)

	path := filepath.Join(dir, "tmp.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.Remove(path))

	time.Sleep(500 * time.Millisecond)
	stop()
	assert.Empty(t, rec.seen())
}

func TestSettledOrder(t *testing.T) {
	base := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	w := &Watcher{
		Debounce: time.Second,
		pending: map[string]time.Time{
			"late":  base.Add(2 * time.Second),
			"b":     base,
			"a":     base,
			"first": base.Add(-time.Second),
		},
		handled: map[string]bool{},
	}
	got := w.settled(base.Add(1500 * time.Millisecond))
	assert.Equal(t, []string{"first", "a", "b"}, got)
	assert.Len(t, w.pending, 1)
	assert.True(t, w.handled["a"])
}
