package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pendingSweepInterval is how often accumulated filesystem events are
// checked against the debounce window.
const pendingSweepInterval = 100 * time.Millisecond

// ArchiveWatcher watches the input tree and coalesces filesystem events
// into re-run triggers. Any create, write, remove, or rename under the
// archive warrants a re-run; events are debounced so editor save bursts
// and bulk copies trigger once.
type ArchiveWatcher struct {
	logger     *slog.Logger
	root       string
	outputPath string
	watcher    *fsnotify.Watcher
	debounce   time.Duration

	mu      sync.Mutex
	pending map[string]time.Time // path -> last change time

	trigger chan struct{}
	done    chan struct{}
	closed  sync.Once
}

// NewArchiveWatcher creates a watcher for the archive rooted at root.
// Events under outputPath are ignored so the tool's own writes never
// retrigger a run.
func NewArchiveWatcher(loggerHandler slog.Handler, root, outputPath string, debounce time.Duration) (*ArchiveWatcher, error) {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ArchiveWatcher{
		logger:     slog.New(loggerHandler).With(slog.String("component", "watcher")),
		root:       root,
		outputPath: outputPath,
		watcher:    watcher,
		debounce:   debounce,
		pending:    make(map[string]time.Time),
		trigger:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}, nil
}

// Watch registers the input tree and starts the event and debounce
// goroutines.
func (w *ArchiveWatcher) Watch() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents()
	go w.processPending()

	return nil
}

// Runs returns the channel that receives one signal per debounced batch
// of changes.
func (w *ArchiveWatcher) Runs() <-chan struct{} {
	return w.trigger
}

// Close stops watching and releases resources.
func (w *ArchiveWatcher) Close() error {
	var err error
	w.closed.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

// addRecursive adds a directory and all its subdirectories to the watch
// list. Hidden directories and the output tree are skipped, matching the
// discovery walk.
func (w *ArchiveWatcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if w.skipDir(path) {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			w.logger.Warn("Failed to watch directory", slog.String("path", path), slog.Any("error", addErr))
		}
		return nil
	})
}

// skipDir reports whether a directory is outside the watch scope.
func (w *ArchiveWatcher) skipDir(path string) bool {
	base := filepath.Base(path)
	if path != w.root && strings.HasPrefix(base, ".") {
		return true
	}
	return path == w.outputPath
}

// processEvents drains the fsnotify event stream into the pending map.
func (w *ArchiveWatcher) processEvents() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignoreEvent(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending[event.Name] = time.Now()
				w.mu.Unlock()
			}

			// New directories need their own watches.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.skipDir(event.Name) {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", slog.String("path", event.Name), slog.Any("error", err))
					}
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", slog.Any("error", err))
		}
	}
}

// ignoreEvent filters events from the output tree and hidden files.
func (w *ArchiveWatcher) ignoreEvent(path string) bool {
	if w.outputPath != "" {
		if rel, err := filepath.Rel(w.outputPath, path); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return strings.HasPrefix(filepath.Base(path), ".")
}

// processPending sweeps the pending map and emits one trigger once the
// newest change is older than the debounce window.
func (w *ArchiveWatcher) processPending() {
	ticker := time.NewTicker(pendingSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			settled := len(w.pending) > 0
			for _, changeTime := range w.pending {
				if now.Sub(changeTime) < w.debounce {
					settled = false
					break
				}
			}
			changed := len(w.pending)
			if settled {
				w.pending = make(map[string]time.Time)
			}
			w.mu.Unlock()

			if settled {
				w.logger.Debug("Change batch settled", slog.Int("paths", changed))
				select {
				case w.trigger <- struct{}{}:
				default:
					// A trigger is already queued; the next run picks
					// this batch up.
				}
			}
		}
	}
}
