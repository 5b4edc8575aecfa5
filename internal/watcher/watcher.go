// Package watcher monitors the media root for changes made outside the
// app and coalesces them into reload signals.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/swipeclean/swipeclean/internal/library/localfs"
)

// Event represents one observed media-file change.
type Event struct {
	Path      string    `json:"path"`
	Op        string    `json:"op"` // "create", "write", "remove", "rename"
	Timestamp time.Time `json:"timestamp"`
}

// Handler is called with a debounced batch of media-file events.
type Handler func(events []Event)

// Config holds watcher configuration.
type Config struct {
	// DebounceDelay is how long to wait after the last event before
	// invoking the handler.
	DebounceDelay time.Duration

	// MaxBatchSize forces the handler once this many events pile up.
	MaxBatchSize int
}

// DefaultConfig returns the default debounce policy.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 500 * time.Millisecond,
		MaxBatchSize:  100,
	}
}

// Watcher monitors a media root, including album subdirectories, for
// media-file changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    Config
	logger    zerolog.Logger
	handler   Handler

	pending       map[string]Event
	eventsMu      sync.Mutex
	debounceTimer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher for the given media root.
func New(config Config, logger zerolog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    config,
		logger:    logger.With().Str("component", "watcher").Logger(),
		pending:   make(map[string]Event),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// SetHandler sets the batch handler.
func (w *Watcher) SetHandler(handler Handler) {
	w.handler = handler
}

// Watch registers the media root and its first-level album directories.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if err := w.fsWatcher.Add(absRoot); err != nil {
		return err
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		sub := filepath.Join(absRoot, entry.Name())
		if err := w.fsWatcher.Add(sub); err != nil {
			w.logger.Warn().Err(err).Str("path", sub).Msg("Failed to watch album directory")
		}
	}

	w.logger.Info().Str("path", absRoot).Msg("Watching media root")
	return nil
}

// Start begins processing file events.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.eventLoop()
}

// Stop stops the watcher, delivering any pending batch first.
func (w *Watcher) Stop() error {
	w.cancel()
	w.wg.Wait()
	return w.fsWatcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.flushPending()
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)

	if !localfs.IsMediaFile(name) {
		// A new album directory still needs a watch.
		if event.Has(fsnotify.Create) && !strings.HasPrefix(name, ".") {
			info, err := os.Stat(event.Name)
			if err == nil && info.IsDir() {
				if err := w.fsWatcher.Add(event.Name); err == nil {
					w.logger.Debug().Str("path", event.Name).Msg("Watching new album directory")
				}
			}
		}
		return
	}

	var op string
	switch {
	case event.Has(fsnotify.Create):
		op = "create"
	case event.Has(fsnotify.Write):
		op = "write"
	case event.Has(fsnotify.Remove):
		op = "remove"
	case event.Has(fsnotify.Rename):
		op = "rename"
	default:
		return
	}

	w.addPending(Event{Path: event.Name, Op: op, Timestamp: time.Now()})
}

// addPending records an event, deduplicated by path, and re-arms the
// debounce timer. A full batch flushes immediately.
func (w *Watcher) addPending(event Event) {
	w.eventsMu.Lock()
	defer w.eventsMu.Unlock()

	w.pending[event.Path] = event

	if len(w.pending) >= w.config.MaxBatchSize {
		w.flushPendingLocked()
		return
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.DebounceDelay, func() {
		w.eventsMu.Lock()
		defer w.eventsMu.Unlock()
		w.flushPendingLocked()
	})
}

func (w *Watcher) flushPending() {
	w.eventsMu.Lock()
	defer w.eventsMu.Unlock()
	w.flushPendingLocked()
}

func (w *Watcher) flushPendingLocked() {
	if len(w.pending) == 0 {
		return
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}

	events := make([]Event, 0, len(w.pending))
	for _, event := range w.pending {
		events = append(events, event)
	}
	w.pending = make(map[string]Event)

	if w.handler != nil {
		go w.handler(events)
	}

	w.logger.Debug().Int("count", len(events)).Msg("Flushed media events")
}
