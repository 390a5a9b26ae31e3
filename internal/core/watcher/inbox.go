// Package watcher reports event files dropped into an inbox directory.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-logviewer/internal/util"
)

// EventFileExt is the extension of event files picked up from the inbox.
const EventFileExt = ".json"

// DefaultSettle is how long a file must stay untouched before it is reported.
const DefaultSettle = 200 * time.Millisecond

// InboxWatcher watches a single directory, not its subdirectories. A file is
// reported once writes to it have settled; further writes report it again.
type InboxWatcher struct {
	watcher *fsnotify.Watcher
	dir     string
	settle  time.Duration
	events  chan string
	done    chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewInboxWatcher(dir string, settle time.Duration) (*InboxWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}

	w := &InboxWatcher{
		watcher: watcher,
		dir:     dir,
		settle:  settle,
		events:  make(chan string, 100),
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}
	go w.processEvents()

	util.LogDebugf("Watching inbox %s", dir)
	return w, nil
}

func (w *InboxWatcher) Dir() string {
	return w.dir
}

func (w *InboxWatcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != EventFileExt {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("Inbox monitoring error: " + err.Error())
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *InboxWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.settle, func() { w.emit(path) })
}

func (w *InboxWatcher) emit(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	w.mu.Unlock()

	select {
	case w.events <- path:
	case <-w.done:
	}
}

// Events delivers settled event file paths. It is never closed; stop
// reading after Close.
func (w *InboxWatcher) Events() <-chan string {
	return w.events
}

func (w *InboxWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = nil
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
