// Package watch implements the optional live-export mode: a directory
// watcher over a memtrace log directory that invokes a callback whenever a
// .bin or .freq file changes, adapted from the teacher's
// vfs.FSNotifyWatcher (internal/runtime/vfs/watch_fsnotify.go) — generalized
// here from a general-purpose filesystem event stream into a
// memtrace-specific "log directory changed" trigger, filtered to the two
// extensions the tracer writes and debounced so a burst of per-thread
// flushes collapses into one re-export.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Trigger is called at most once per debounce window after one or more
// .bin/.freq files change in the watched directory.
type Trigger func(dir string)

// Watcher watches one directory and calls its Trigger on relevant changes.
type Watcher struct {
	w        *fsnotify.Watcher
	dir      string
	debounce time.Duration
	trigger  Trigger

	mu      sync.Mutex
	timer   *time.Timer
	closing chan struct{}
}

// New starts watching dir, calling trigger no more than once per debounce
// window. debounce <= 0 uses 200ms.
func New(dir string, debounce time.Duration, trigger Trigger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{w: fw, dir: dir, debounce: debounce, trigger: trigger, closing: make(chan struct{})}

	go w.loop()

	return w, nil
}

func relevant(name string) bool {
	ext := filepath.Ext(name)

	return ext == ".bin" || ext == ".freq"
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}

			if !relevant(ev.Name) {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.scheduleTrigger()
		case _, ok := <-w.w.Errors:
			if !ok {
				return
			}
		case <-w.closing:
			return
		}
	}
}

func (w *Watcher) scheduleTrigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.trigger(w.dir)
	})
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.closing)

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.w.Close()
}
