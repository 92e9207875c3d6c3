package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before it is imported
const DefaultSettle = 200 * time.Millisecond

// minTick bounds how often pending files are checked
const minTick = time.Millisecond

// ErrWatcherClosed is returned by Wait when the event stream ended before
// the context was cancelled
var ErrWatcherClosed = errors.New("file watcher closed")

// Watcher imports files created or rewritten below an indexer's root
type Watcher struct {
	ix     *Indexer
	runID  string
	fsw    *fsnotify.Watcher
	settle time.Duration
	done   chan struct{}
	err    error
}

// Watch starts watching Root and every directory below it. Files are
// imported under runID once no event has touched them for settle
// (DefaultSettle when zero). The watcher stops when ctx is cancelled.
func (ix *Indexer) Watch(ctx context.Context, runID string, settle time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := addTree(fsw, ix.Root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	w := &Watcher{ix: ix, runID: runID, fsw: fsw, settle: settle, done: make(chan struct{})}
	go w.run(ctx)
	return w, nil
}

// Wait blocks until the watcher has stopped. It returns nil after ctx is
// cancelled, ErrWatcherClosed if the event stream ended on its own, or the
// first error fsnotify reported.
func (w *Watcher) Wait() error {
	<-w.done
	return w.err
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.fsw.Close()

	pending := map[string]time.Time{}
	tick := time.NewTicker(max(w.settle/2, minTick))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				w.fail(ErrWatcherClosed)
				return
			}
			w.handle(ev, pending)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.fail(ErrWatcherClosed)
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				slog.Warn("watch events dropped, rescan the directory", slog.String("root", w.ix.Root))
				continue
			}
			slog.Error("fsnotify error", slog.Any("err", err))
			w.fail(err)
		case now := <-tick.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				if _, err := w.ix.ImportFile(ctx, w.runID, path); err != nil && !errors.Is(err, ErrSkipped) {
					slog.Warn("import failed", slog.String("path", path), slog.Any("err", err))
				}
			}
		}
	}
}

// fail keeps the first error for Wait
func (w *Watcher) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Watcher) handle(ev fsnotify.Event, pending map[string]time.Time) {
	slog.Debug("event received", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(pending, ev.Name)
		return
	case !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write):
		return
	}
	fi, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if fi.IsDir() {
		if ev.Has(fsnotify.Create) {
			if err := addTree(w.fsw, ev.Name); err != nil {
				slog.Warn("watch new directory", slog.String("path", ev.Name), slog.Any("err", err))
			}
			// files may have landed before the watch was added
			_ = filepath.WalkDir(ev.Name, func(path string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() && w.ix.Matches(path) {
					pending[path] = time.Now()
				}
				return nil
			})
		}
		return
	}
	if w.ix.Matches(ev.Name) {
		pending[ev.Name] = time.Now()
	}
}
