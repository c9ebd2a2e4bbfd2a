package fsys

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// configOps are the event kinds that invalidate an alias table.
const configOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher delivers config change notifications per project root.
type Watcher struct {
	watcher *fsnotify.Watcher
	names   []string
	logger  *slog.Logger

	mu        sync.RWMutex
	callbacks map[string]func(root string)
}

// NewWatcher creates a watcher for the given config file names.
func NewWatcher(names []string, logger *slog.Logger) (*Watcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Watcher{
		watcher:   inner,
		names:     names,
		logger:    logger,
		callbacks: make(map[string]func(string)),
	}, nil
}

// WatchConfig registers onChange for config changes, creations and
// deletions directly under root. A second call for the same root replaces
// the callback.
func (w *Watcher) WatchConfig(root string, onChange func(root string)) error {
	root = filepath.Clean(root)

	w.mu.Lock()
	_, known := w.callbacks[root]
	w.callbacks[root] = onChange
	w.mu.Unlock()

	if known {
		return nil
	}

	err := w.watcher.Add(root)
	if err != nil {
		w.mu.Lock()
		delete(w.callbacks, root)
		w.mu.Unlock()

		return fmt.Errorf("watch %s: %w", root, err)
	}

	return nil
}

// Run dispatches events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			w.dispatch(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.WarnContext(ctx, "config watcher error", "error", err)
		}
	}
}

func (w *Watcher) dispatch(event fsnotify.Event) {
	if event.Op&configOps == 0 {
		return
	}

	if !slices.Contains(w.names, filepath.Base(event.Name)) {
		return
	}

	root := filepath.Dir(filepath.Clean(event.Name))

	w.mu.RLock()
	onChange := w.callbacks[root]
	w.mu.RUnlock()

	if onChange == nil {
		return
	}

	w.logger.Debug("alias config changed", "path", event.Name, "op", event.Op.String())
	onChange(root)
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if err != nil {
		return fmt.Errorf("close config watcher: %w", err)
	}

	return nil
}
