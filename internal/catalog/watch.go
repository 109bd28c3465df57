package catalog

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a catalog file when it changes on disk and publishes the
// new snapshot. Consumers always read a consistent snapshot; an in-progress
// playback session keeps whatever snapshot it started with.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	current *Catalog

	updates chan *Catalog
	done    chan struct{}
	once    sync.Once
}

// Watch loads the catalog at path and starts watching it for changes.
func Watch(path string) (*Watcher, error) {
	cat, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}

	// Watch the directory rather than the file: editors replace files on
	// save, which drops a file-level watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("unable to watch catalog dir: %w", err)
	}

	w := &Watcher{
		path:    path,
		watcher: fw,
		current: cat,
		updates: make(chan *Catalog, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Current returns the latest catalog snapshot.
func (w *Watcher) Current() *Catalog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Updates delivers new snapshots as the file changes. The channel holds only
// the most recent snapshot; slow consumers never block the watcher.
func (w *Watcher) Updates() <-chan *Catalog {
	return w.updates
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("Catalog watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload() {
	cat, err := Load(w.path)
	if err != nil {
		// Keep serving the previous snapshot on a bad edit.
		log.Warn("Catalog reload failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	w.current = cat
	w.mu.Unlock()

	// Drop a stale pending snapshot so the channel always carries the newest.
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- cat:
	default:
	}

	log.Info("Catalog reloaded", "path", w.path, "tracks", cat.Len())
}
