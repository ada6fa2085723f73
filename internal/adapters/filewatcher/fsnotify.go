// Package filewatcher monitors the corpus directory for changes and feeds
// ingestion. Adapter implementing ports.FileWatcher on fsnotify.
package filewatcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/documind-ai/documind-go/internal/domain/ports"
)

// DefaultDebounce is the quiet window a path must hold before its event is
// emitted. A single file copy produces several Write events; without the
// window each one would trigger a full embed-and-ingest run.
const DefaultDebounce = 500 * time.Millisecond

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	debounce   time.Duration
	logger     *logrus.Logger
}

// NewFSNotifyWatcher creates a file watcher for the given extensions. Events
// for one path are coalesced: only the latest operation is emitted, once the
// path has been quiet for the debounce window. A non-positive debounce falls
// back to the default.
func NewFSNotifyWatcher(extensions []string, debounce time.Duration, logger *logrus.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		extensions = []string{".txt", ".md", ".markdown"}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &FSNotifyWatcher{watcher: w, extensions: extensions, debounce: debounce, logger: logger}, nil
}

// Watch starts monitoring the directory and emits debounced events until the
// context is cancelled.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)

		// pending and timers are touched only from this goroutine; the
		// timers signal readiness through ripe.
		pending := make(map[string]ports.FileEvent)
		timers := make(map[string]*time.Timer)
		ripe := make(chan string, 100)

		for {
			select {
			case <-ctx.Done():
				return
			case path := <-ripe:
				ev, ok := pending[path]
				if !ok {
					continue
				}
				delete(pending, path)
				delete(timers, path)
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Op&fsnotify.Create == fsnotify.Create:
					op = ports.FileCreated
				case event.Op&fsnotify.Write == fsnotify.Write:
					op = ports.FileModified
				case event.Op&fsnotify.Remove == fsnotify.Remove:
					op = ports.FileDeleted
				default:
					continue
				}

				path := event.Name
				pending[path] = ports.FileEvent{Path: path, Operation: op}
				if t, ok := timers[path]; ok {
					t.Stop()
				}
				timers[path] = time.AfterFunc(w.debounce, func() {
					select {
					case ripe <- path:
					case <-ctx.Done():
					}
				})
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.WithError(err).Warn("file watcher error")
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
