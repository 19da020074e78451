package loader

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/fsnotify/fsnotify"
)

// reloadDebounce drops repeated events for the same file; editors often write a file in several steps.
const reloadDebounce = 100 * time.Millisecond

// Reload is the outcome of re-importing one changed rig file.
type Reload struct {
	Path string

	// Previous is the model cached for Path before the reload, nil if the file was new.
	Previous model.Model

	// Model is the re-imported model, nil when Err is set.
	Model model.Model
	Err   error
}

// Watcher re-imports rig files through a Loader whenever they change on disk.
// Results are queued rather than applied, so that the frame thread can swap models in between
// updates by calling Drain.
type Watcher struct {
	loader  Loader
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending []Reload

	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher starts watching dirs for changes to rig files.
//
// Parameters:
//   - l: the loader used to re-import changed files
//   - dirs: the directories to watch
//
// Returns:
//   - *Watcher: the running watcher
//   - error: error if a directory cannot be watched
func NewWatcher(l Loader, dirs ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	w := newWatcher(l)
	w.watcher = fw
	go w.run()
	return w, nil
}

func newWatcher(l Loader) *Watcher {
	return &Watcher{
		loader:  l,
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Drain returns every reload queued since the last call.
//
// Returns:
//   - []Reload: the queued reloads in the order they completed
func (w *Watcher) Drain() []Reload {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := w.pending
	w.pending = nil
	return out
}

// Close stops the watcher. It is safe to call more than once.
//
// Returns:
//   - error: error from closing the underlying watcher
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		if w.watcher != nil {
			err = w.watcher.Close()
			<-w.done
		}
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if _, ok := BackendTypeForPath(event.Name); !ok {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < reloadDebounce {
				continue
			}
			last[event.Name] = now
			w.handle(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			common.LogError("rig watcher error", "err", err)
		case <-w.closeCh:
			return
		}
	}
}

// handle re-imports path and queues the outcome. A failed import keeps the previous model cached.
func (w *Watcher) handle(path string) {
	prev := w.loader.Get(path)
	m, err := w.loader.Reload(path)
	if err != nil {
		common.LogWarn("rig reload failed", "path", path, "err", err)
	}

	w.mu.Lock()
	w.pending = append(w.pending, Reload{Path: path, Previous: prev, Model: m, Err: err})
	w.mu.Unlock()
}
