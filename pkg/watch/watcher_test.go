package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "edge.cfg")
	writeFile(t, path, "hostname edge\n")

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{"default debounce", 0, DefaultDebounce},
		{"custom debounce", time.Second, time.Second},
		{"negative debounce defaults", -time.Second, DefaultDebounce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWatcher([]string{path}, tt.debounce)
			if err != nil {
				t.Fatalf("NewWatcher() error = %v", err)
			}
			defer w.Stop()

			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
			if len(w.Files()) != 1 {
				t.Errorf("Files() = %v, want one file", w.Files())
			}
			if _, ok := w.digests[w.Files()[0]]; !ok {
				t.Error("initial digest should be recorded")
			}
		})
	}
}

func TestNewWatcher_Errors(t *testing.T) {
	if _, err := NewWatcher(nil, 0); err == nil {
		t.Error("NewWatcher() should fail without files")
	}
	if _, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing.cfg")}, 0); err == nil {
		t.Error("NewWatcher() should fail for a missing file")
	}
}

func TestWatcher_HandleEventFilters(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "edge.cfg")
	other := filepath.Join(tmpDir, "notes.txt")
	writeFile(t, path, "a\n")
	writeFile(t, other, "b\n")

	w, err := NewWatcher([]string{path}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.handleEvent(fsnotify.Event{Name: other, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	if len(w.pending) != 0 {
		t.Errorf("pending = %v, want none", w.pending)
	}

	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	if len(w.pending) != 1 {
		t.Errorf("pending = %v, want edge.cfg", w.pending)
	}
}

func TestWatcher_ReadySkipsUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.cfg")
	writeFile(t, path, "object network A\n")

	w, err := NewWatcher([]string{path}, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	abs := w.Files()[0]

	// Touch without a content change.
	w.pending[abs] = time.Now().Add(-time.Second)
	if got := w.ready(); len(got) != 0 {
		t.Errorf("ready() = %v, want nothing for unchanged content", got)
	}

	writeFile(t, path, "object network B\n")
	w.pending[abs] = time.Now().Add(-time.Second)
	if got := w.ready(); len(got) != 1 {
		t.Errorf("ready() = %v, want the changed file", got)
	}

	// Still within the debounce window.
	writeFile(t, path, "object network C\n")
	w.pending[abs] = time.Now().Add(time.Hour)
	if got := w.ready(); len(got) != 0 {
		t.Errorf("ready() = %v, want nothing before debounce elapses", got)
	}
}

func TestWatcher_StartDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.cfg")
	writeFile(t, path, "object network A\n")

	w, err := NewWatcher([]string{path}, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	var mu sync.Mutex
	var changed []string
	done := make(chan struct{}, 1)
	w.SetCallback(func(p string) {
		mu.Lock()
		changed = append(changed, p)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go w.Start(ctx)

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "object network B\n")

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("callback was not called")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changed) != 1 || filepath.Base(changed[0]) != "edge.cfg" {
		t.Errorf("changed = %v", changed)
	}
}
