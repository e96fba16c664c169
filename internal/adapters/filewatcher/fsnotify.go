// Package filewatcher provides file system monitoring adapters.
// Clean Architecture: Adapter implementing ports.FileWatcher.
package filewatcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/clinrag/clinrag-go/internal/domain/ports"
	"github.com/fsnotify/fsnotify"
)

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
// Write bursts for the same file are debounced so a document being
// copied into the watch folder triggers a single ingestion.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	debounce   time.Duration
}

// NewFSNotifyWatcher creates a new file watcher for the given
// extensions (defaults: .pdf, .txt, .md).
func NewFSNotifyWatcher(extensions []string, debounce time.Duration) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".pdf", ".txt", ".md"}
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: extensions,
		debounce:   debounce,
	}, nil
}

// Watch starts monitoring the directory and emits debounced events.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)

		// pending holds the latest event per path until its debounce
		// timer fires.
		pending := make(map[string]ports.FileEvent)
		timer := time.NewTimer(w.debounce)
		if !timer.Stop() {
			<-timer.C
		}

		flush := func() {
			for _, ev := range pending {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
			pending = make(map[string]ports.FileEvent)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				flush()
			case event, ok := <-w.watcher.Events:
				if !ok {
					flush()
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

				pending[event.Name] = ports.FileEvent{Path: event.Name, Operation: op}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

// isWatchedExtension checks if the file has a watched extension.
func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
