package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type eventCollector struct {
	mu      sync.Mutex
	batches [][]Event
}

func (c *eventCollector) handle(events []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, events)
}

func (c *eventCollector) batchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *eventCollector) allEvents() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var all []Event
	for _, b := range c.batches {
		all = append(all, b...)
	}
	return all
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestWatcher(t *testing.T, cfg Config) (*Watcher, *eventCollector, string) {
	t.Helper()

	root := t.TempDir()
	w, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	collector := &eventCollector{}
	w.SetHandler(collector.handle)
	if err := w.Watch(root); err != nil {
		t.Fatal(err)
	}
	w.Start()
	t.Cleanup(func() { w.Stop() })

	return w, collector, root
}

func TestMediaEventsAreBatched(t *testing.T) {
	cfg := Config{DebounceDelay: 50 * time.Millisecond, MaxBatchSize: 100}
	_, collector, root := newTestWatcher(t, cfg)

	for _, name := range []string{"a.jpg", "b.jpg", "c.mp4"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, 2*time.Second, func() bool { return len(collector.allEvents()) >= 3 })

	// All three changes landed well inside one debounce window.
	if got := collector.batchCount(); got != 1 {
		t.Errorf("batches = %d, want 1", got)
	}
}

func TestNonMediaFilesIgnored(t *testing.T) {
	cfg := Config{DebounceDelay: 30 * time.Millisecond, MaxBatchSize: 100}
	_, collector, root := newTestWatcher(t, cfg)

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "photo.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool { return len(collector.allEvents()) >= 1 })

	for _, event := range collector.allEvents() {
		if filepath.Base(event.Path) == "notes.txt" {
			t.Error("non-media file should not produce events")
		}
	}
}

func TestStopDeliversPendingBatch(t *testing.T) {
	cfg := Config{DebounceDelay: time.Hour, MaxBatchSize: 100}
	w, collector, root := newTestWatcher(t, cfg)

	if err := os.WriteFile(filepath.Join(root, "late.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Give fsnotify time to surface the event, then stop before the
	// debounce window would ever fire.
	waitFor(t, 2*time.Second, func() bool {
		w.eventsMu.Lock()
		defer w.eventsMu.Unlock()
		return len(w.pending) > 0
	})
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool { return len(collector.allEvents()) >= 1 })
}
