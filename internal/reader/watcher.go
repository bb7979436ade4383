package reader

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a log directory for combat_*.txt creation, the same
// event the game client's own directory-switch logic reacts to when it
// rotates to a new session file.
type Watcher struct {
	fsw *fsnotify.Watcher
	dir string
}

// NewWatcher opens a non-recursive filesystem watch on dir.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("reader: creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("reader: watching %s: %w", dir, err)
	}
	return &Watcher{fsw: fsw, dir: dir}, nil
}

// Run blocks, calling onNewFile with the full path of every
// combat_*.txt created in the watched directory, until stop is closed.
// Watch errors are forwarded to onError; they don't stop the loop.
func (w *Watcher) Run(onNewFile func(path string), onError func(error), stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if IsCombatLog(event.Name) {
				onNewFile(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Close releases the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
