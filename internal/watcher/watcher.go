// Package watcher follows fix-log and registry changes on disk, feeding a
// live view of repair activity without polling.
package watcher

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/forgeloop-io/forgeloop/internal/config"
)

// EventType represents the type of file system event.
type EventType int

// Event types for file system changes.
const (
	EventWorkspaceIndexChanged EventType = iota
	EventFixLogChanged
	EventFixLogCleared
)

// Event represents a file system change event.
type Event struct {
	Type        EventType
	WorkspaceID string
	Path        string
}

// Watcher watches for file system changes relevant to forgeloop.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	eventsChan chan Event
	done       chan struct{}
	mu         sync.RWMutex
	workspaces map[string]string // workspace id -> root
	debounce   map[string]*time.Timer
	debounceMu sync.Mutex
}

const debounceDelay = 100 * time.Millisecond

// New creates a new file system watcher.
func New() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher:  fsWatcher,
		eventsChan: make(chan Event, 100),
		done:       make(chan struct{}),
		workspaces: make(map[string]string),
		debounce:   make(map[string]*time.Timer),
	}, nil
}

// Events returns the channel for receiving events.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start watches the global directory and begins processing events.
func (w *Watcher) Start() error {
	globalDir, err := config.GlobalDir()
	if err != nil {
		return err
	}
	if err := w.fsWatcher.Add(globalDir); err != nil {
		log.Printf("[watcher] warning: failed to watch global dir: %v", err)
	}

	go w.processEvents()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsWatcher.Close()
}

// WatchWorkspace follows a workspace's .forgeloop/ directory so fix-log
// appends surface as events.
func (w *Watcher) WatchWorkspace(id, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := config.EnsureWorkspaceDir(root); err != nil {
		return err
	}
	w.workspaces[id] = root

	dir := config.WorkspaceDir(root)
	if err := w.fsWatcher.Add(dir); err != nil {
		return err
	}
	log.Printf("[watcher] watching workspace %s: %s", id, dir)
	return nil
}

// UnwatchWorkspace stops following a workspace.
func (w *Watcher) UnwatchWorkspace(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	root, ok := w.workspaces[id]
	if !ok {
		return
	}
	delete(w.workspaces, id)
	_ = w.fsWatcher.Remove(config.WorkspaceDir(root))
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Rename matters: atomic writes (write tmp, rename over target)
	// surface as Rename on the target file.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	w.debounceEvent(event.Name, func() {
		w.classify(event)
	})
}

// debounceEvent collapses event bursts for the same path.
func (w *Watcher) debounceEvent(path string, fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(debounceDelay, fn)
}

func (w *Watcher) classify(event fsnotify.Event) {
	name := filepath.Base(event.Name)

	if name == config.WorkspacesFileName {
		w.emit(Event{Type: EventWorkspaceIndexChanged, Path: event.Name})
		return
	}

	if name == config.FixLogFileName {
		id := w.workspaceForPath(event.Name)
		if id == "" {
			return
		}
		if event.Op&fsnotify.Remove != 0 {
			w.emit(Event{Type: EventFixLogCleared, WorkspaceID: id, Path: event.Name})
			return
		}
		w.emit(Event{Type: EventFixLogChanged, WorkspaceID: id, Path: event.Name})
	}
}

func (w *Watcher) workspaceForPath(path string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for id, root := range w.workspaces {
		if filepath.Dir(path) == config.WorkspaceDir(root) {
			return id
		}
	}
	return ""
}

// emit sends an event without ever blocking the fsnotify loop.
func (w *Watcher) emit(ev Event) {
	select {
	case w.eventsChan <- ev:
	default:
		log.Printf("[watcher] dropped event for %s", ev.Path)
	}
}
