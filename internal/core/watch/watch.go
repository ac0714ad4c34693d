// Package watch re-runs a build whenever one of its source files is saved.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the files must stay quiet before a rebuild
const DefaultDebounce = 300 * time.Millisecond

// Stats tracks watcher activity
type Stats struct {
	StartTime time.Time
	Rebuilds  int
	LastBuild time.Time
	Errors    int
}

// ChangeFunc is called once per burst of saves with the files that changed
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher watches a fixed set of files
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	onChange ChangeFunc
	debounce time.Duration
	logger   *slog.Logger
	stats    Stats
}

// New creates a watcher for paths. Directories are watched rather than
// the files themselves so editors that save by renaming are still seen.
func New(paths []string, onChange ChangeFunc, debounce time.Duration) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("nothing to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]bool, len(paths)),
		onChange: onChange,
		debounce: debounce,
		logger:   slog.Default(),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fw.Close()
			return nil, err
		}
		if _, err := os.Stat(abs); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch path does not exist: %s", p)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run blocks until ctx is done, calling the change function after each
// quiet period that follows a save
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()
	w.stats.StartTime = time.Now()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if !w.shouldProcessEvent(event) {
				continue
			}
			w.logger.Debug("file event", "op", event.Op.String(), "file", event.Name)
			pending[filepath.Clean(event.Name)] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for f := range pending {
				changed = append(changed, f)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			if err := w.onChange(ctx, changed); err != nil {
				w.logger.Warn("rebuild failed", "error", err)
				w.stats.Errors++
				continue
			}
			w.stats.Rebuilds++
			w.stats.LastBuild = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			w.logger.Warn("watcher error", "error", err)
			w.stats.Errors++
		}
	}
}

// shouldProcessEvent keeps writes and creates of the watched files
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if !w.files[filepath.Clean(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Stats returns a snapshot of the watcher's activity. It is only
// meaningful from the goroutine running Run or after Run returned.
func (w *Watcher) Stats() Stats {
	return w.stats
}
