package watcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/atikulmunna/lognorm/internal/source"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Event is a change to a followed file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher forwards write, create, remove and rename notifications for a
// fixed set of files resolved at startup.
type Watcher struct {
	fsw    *fsnotify.Watcher
	log    *zap.Logger
	Events chan Event

	mu    sync.RWMutex
	paths []string
}

// New expands patterns and starts watching every matched file.
// Files that cannot be watched are logged and skipped.
func New(patterns []string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	paths, err := source.Expand(patterns)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		log:    log.Named("watcher"),
		Events: make(chan Event, 256),
	}
	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			w.log.Warn("cannot watch file", zap.String("path", p), zap.Error(err))
			continue
		}
		w.paths = append(w.paths, p)
	}
	return w, nil
}

// Start forwards events until ctx is done. It closes Events on return.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&relevant == 0 {
				continue
			}
			select {
			case w.Events <- Event{Path: ev.Name, Op: ev.Op}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("fsnotify error", zap.Error(err))
		}
	}
}

// Paths returns the files currently being watched.
func (w *Watcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.paths))
	copy(out, w.paths)
	return out
}

// Count returns the number of watched files.
func (w *Watcher) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.paths)
}

// ReWatch adds path back after the file was rotated.
func (w *Watcher) ReWatch(path string) error {
	return w.fsw.Add(path)
}
