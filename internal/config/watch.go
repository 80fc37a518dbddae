package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to a set of data files (movesets, arena layouts).
// Editors often write a file in several steps, so events for the same path
// inside the debounce interval are collapsed into one.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration

	Events chan string // cleaned path of the changed file
	Errors chan error

	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher watches the given files. The containing directories are
// watched so atomic-rename saves are seen.
func NewWatcher(debounce time.Duration, files ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]struct{}, len(files)),
		debounce: debounce,
		Events:   make(chan string, 16),
		Errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		clean := filepath.Clean(f)
		w.files[clean] = struct{}{}
		dirs[filepath.Dir(clean)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("config: watch %s: %w", dir, err)
		}
	}

	go w.run()
	return w, nil
}

// Close stops the watcher. Events and Errors are closed once it has exited.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer func() {
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			if _, tracked := w.files[name]; !tracked {
				continue
			}
			now := time.Now()
			if t, ok := last[name]; ok && now.Sub(t) < w.debounce {
				continue
			}
			last[name] = now
			select {
			case w.Events <- name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default: // consumer is behind, keep the first error
			}
		case <-w.closeCh:
			return
		}
	}
}
