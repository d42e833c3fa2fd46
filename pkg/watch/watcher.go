// Package watch reruns a callback when watched configuration files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when no positive debounce is configured.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors files for content changes. Parent directories are watched
// so that editors replacing a file by rename are still noticed.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	files     map[string]bool
	callback  func(path string)
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	digests map[string]uint64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for watch errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher for the given files.
func NewWatcher(files []string, debounce time.Duration, opts ...Option) (*Watcher, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to watch")
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		debounce: debounce,
		files:    make(map[string]bool, len(files)),
		logger:   slog.Default(),
		pending:  make(map[string]time.Time),
		digests:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("watch %s: %w", f, err)
		}
		w.files[abs] = true
		if d, ok := digest(abs); ok {
			w.digests[abs] = d
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsWatcher = fsWatcher

	return w, nil
}

// SetCallback sets the function to call when a file's content changes.
func (w *Watcher) SetCallback(cb func(path string)) {
	w.callback = cb
}

// Files returns the watched files as sorted absolute paths.
func (w *Watcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Start begins watching for file changes and blocks until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	path, err := filepath.Abs(event.Name)
	if err != nil || !w.files[path] {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounce / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, path := range w.ready() {
				w.logger.Debug("config changed", "path", path)
				if w.callback != nil {
					w.callback(path)
				}
			}
		}
	}
}

// ready returns files that have been stable for the debounce period and
// whose content differs from the last seen version.
func (w *Watcher) ready() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var out []string
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) < w.debounce {
			continue
		}
		delete(w.pending, path)

		d, ok := digest(path)
		if !ok {
			continue
		}
		if prev, seen := w.digests[path]; seen && prev == d {
			continue
		}
		w.digests[path] = d
		out = append(out, path)
	}
	return out
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	if w.fsWatcher == nil {
		return nil
	}
	return w.fsWatcher.Close()
}

func digest(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(data), true
}
