// Package deckwatch is the file watcher actor named in spec.md §5: a
// dedicated goroutine receiving filesystem events that, on a content
// change, synchronously parses and upserts into the local store.
// Grounded on the mutex-guarded state and slog.With-scoped-logger idiom
// of justinlyon12-AnCLI's podman driver.
package deckwatch

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
)

// OnChange is called once per debounced content change, with the file's
// path relative to Root and its current content.
type OnChange func(relPath, content string)

// debounceWindow absorbs editors that emit several Write events per save.
const debounceWindow = 300 * time.Millisecond

// Watcher watches a directory tree for markdown file changes.
type Watcher struct {
	Root     string
	OnChange OnChange
	logger   *slog.Logger

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer

	done chan struct{}
}

// New creates a Watcher rooted at root. Call Start to begin watching.
func New(root string, onChange OnChange, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("deckwatch: create watcher: %w", err)
	}
	return &Watcher{
		Root:     root,
		OnChange: onChange,
		logger:   logger.With("component", "deckwatch"),
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}, nil
}

// Start adds every directory under Root to the watch set and begins the
// event loop. It returns once the initial directory walk completes; the
// event loop itself runs in a background goroutine until ctx is done or
// Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deckwatch: watch %s: %w", w.Root, err)
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !strings.HasSuffix(event.Name, ".md") {
		if event.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.fsw.Add(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
			}
		}
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, exists := w.timers[event.Name]; exists {
		t.Stop()
	}
	w.timers[event.Name] = time.AfterFunc(debounceWindow, func() { w.fire(event.Name) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	w.mu.Unlock()

	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("failed to read changed file", "path", path, "error", err)
		return
	}

	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		rel = path
	}

	if w.OnChange != nil {
		w.OnChange(filepath.ToSlash(rel), string(content))
	}
}

// Close stops the event loop and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
