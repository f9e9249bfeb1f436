// Package watcher observes source trees and drives the rebuild loop.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned when adding paths to a closed watcher.
var ErrClosed = errors.New("watcher is closed")

// Event is one filesystem change.
type Event struct {
	Path string // absolute path
	Op   fsnotify.Op
}

// FSWatcher watches directory trees recursively with fsnotify. Directories
// created after a tree was added are watched as they appear.
type FSWatcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	ignore  []string // absolute directories whose contents are never reported
	paths   map[string]bool
	closed  bool

	events  chan Event
	errors  chan error
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewFS creates a watcher that never reports changes below the ignore
// directories or in hidden files and directories.
func NewFS(ignore ...string) (*FSWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &FSWatcher{
		watcher: fsw,
		paths:   make(map[string]bool),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		closeCh: make(chan struct{}),
	}
	for _, dir := range ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// AddRecursive watches dir and every directory below it.
func (w *FSWatcher) AddRecursive(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}
	return filepath.WalkDir(abs, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != abs && w.ignored(p) {
			return filepath.SkipDir
		}
		return w.add(p)
	})
}

func (w *FSWatcher) add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.paths[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.paths[dir] = true
	return nil
}

// Events returns the change channel. It is closed by Close.
func (w *FSWatcher) Events() <-chan Event { return w.events }

// Errors returns the error channel. It is closed by Close.
func (w *FSWatcher) Errors() <-chan error { return w.errors }

// WatchedPaths returns the number of directories being watched.
func (w *FSWatcher) WatchedPaths() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// Close stops the watcher and closes its channels.
func (w *FSWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.watcher.Close()
}

func (w *FSWatcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *FSWatcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) {
		return
	}

	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.AddRecursive(ev.Name)
		}
	}

	select {
	case w.events <- Event{Path: ev.Name, Op: ev.Op}:
	case <-w.closeCh:
	}
}

func (w *FSWatcher) ignored(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	for _, dir := range w.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
