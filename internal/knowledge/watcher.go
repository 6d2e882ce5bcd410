package knowledge

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/yildizm/diagd/internal/logger"
)

// Watcher keeps the in-memory store in sync with a reference-document
// directory, re-indexing files as they change.
type Watcher struct {
	store   *MemoryStore
	dir     string
	watcher *fsnotify.Watcher
	log     *logger.Logger
}

// NewWatcher creates a watcher over dir. Call Run to start processing.
func NewWatcher(store *MemoryStore, dir string, log *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{store: store, dir: dir, watcher: fw, log: log}, nil
}

// Run processes filesystem events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("knowledge watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !isMarkdown(event.Name) {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		doc, err := ScanFile(event.Name)
		if err != nil {
			w.log.Warn("failed to re-index %s: %v", event.Name, err)
			return
		}
		w.store.Add(doc)
		w.log.Debug("re-indexed knowledge document %s", filepath.Base(event.Name))
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.store.Remove(filepath.Base(event.Name))
		w.log.Debug("removed knowledge document %s", filepath.Base(event.Name))
	}
}
