package scene

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrUnknownAnimator is returned when an id does not name an animator of the scene.
var ErrUnknownAnimator = errors.New("unknown animator")

// Scene owns a set of Animators and advances them once per frame.
// Each Update fans the animators out over a worker pool and waits for all of them, so that
// every skinning buffer is consistent when Update returns. An Animator is never updated by two
// workers at once. Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Add registers an animator. Adding the same animator twice is a no-op.
	//
	// Parameters:
	//   - a: the animator to register
	//
	// Returns:
	//   - uuid.UUID: the animator id used as the scene key
	Add(a animator.Animator) uuid.UUID

	// Remove unregisters an animator.
	//
	// Parameters:
	//   - id: the animator id
	//
	// Returns:
	//   - bool: false if no animator had that id
	Remove(id uuid.UUID) bool

	// Replace swaps the animator registered under id, e.g. after its model was reloaded.
	// The replacement keeps the old key.
	//
	// Parameters:
	//   - id: the id of the animator to replace
	//   - a: the replacement
	//
	// Returns:
	//   - error: ErrUnknownAnimator if id is not registered
	Replace(id uuid.UUID, a animator.Animator) error

	// Get returns the animator registered under id, or nil.
	//
	// Parameters:
	//   - id: the animator id
	//
	// Returns:
	//   - animator.Animator: the animator or nil
	Get(id uuid.UUID) animator.Animator

	// Animators returns the registered animators in registration order.
	//
	// Returns:
	//   - []animator.Animator: a snapshot of the animators
	Animators() []animator.Animator

	// AnimatorsFor returns the ids of every animator bound to m.
	//
	// Parameters:
	//   - m: the model to look for
	//
	// Returns:
	//   - []uuid.UUID: the matching ids in registration order
	AnimatorsFor(m model.Model) []uuid.UUID

	// Count returns the number of registered animators.
	Count() int

	// Update advances every playing animator by deltaTime and returns once all of them are done.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	Update(deltaTime float32)

	// Close unregisters every animator and stops the update workers. Later calls to Update do nothing.
	Close()
}

type entry struct {
	id uuid.UUID
	a  animator.Animator
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu   *sync.RWMutex
	name string

	entries []entry
	index   map[uuid.UUID]int

	// updatePool manages a bounded set of reusable goroutines for the parallel update phase.
	// Workers persist across frames.
	updatePool    worker.DynamicWorkerPool
	updateWorkers int
	queueSize     int

	prof   *profiler.Profiler
	closed bool
}

var _ Scene = &scene{}

// NewScene creates a new, empty Scene.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:            &sync.RWMutex{},
		name:          "scene",
		index:         make(map[uuid.UUID]int),
		updateWorkers: max(runtime.NumCPU()-1, 1),
		queueSize:     256,
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the pool after options so WithWorkers can override the default.
	s.updatePool = worker.NewDynamicWorkerPool(s.updateWorkers, s.queueSize, 1*time.Second)
	common.LogDebug("scene created", "scene", s.name, "workers", s.updateWorkers, "queue", s.queueSize)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Add(a animator.Animator) uuid.UUID {
	if a == nil {
		return uuid.Nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(a)
	return a.ID()
}

// add must be called with the lock held.
func (s *scene) add(a animator.Animator) {
	if s.closed {
		common.LogWarn("animator added to a closed scene", "scene", s.name, "animator", a.ID())
		return
	}
	if _, ok := s.index[a.ID()]; ok {
		return
	}
	s.index[a.ID()] = len(s.entries)
	s.entries = append(s.entries, entry{id: a.ID(), a: a})
}

func (s *scene) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].id] = j
	}
	return true
}

func (s *scene) Replace(id uuid.UUID, a animator.Animator) error {
	if a == nil {
		return errors.New("Replace requires an animator")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return errors.Wrapf(ErrUnknownAnimator, "%s", id)
	}
	s.entries[i].a = a
	return nil
}

func (s *scene) Get(id uuid.UUID) animator.Animator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[id]; ok {
		return s.entries[i].a
	}
	return nil
}

func (s *scene) Animators() []animator.Animator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]animator.Animator, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.a
	}
	return out
}

func (s *scene) AnimatorsFor(m model.Model) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []uuid.UUID
	for _, e := range s.entries {
		if e.a.Model() == m {
			ids = append(ids, e.id)
		}
	}
	return ids
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *scene) Update(deltaTime float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	start := time.Now()

	// A WaitGroup provides the per-frame barrier; the pool's own Wait blocks until workers
	// idle-exit which is unsuitable for frame-rate workloads.
	var wg sync.WaitGroup
	for i, e := range s.entries {
		if !e.a.IsPlaying() {
			continue
		}
		wg.Add(1)
		aCap := e.a
		s.updatePool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				aCap.Update(deltaTime)
				return nil, nil
			},
		})
	}
	wg.Wait()

	if s.prof != nil {
		s.prof.Tick(time.Since(start))
	}
}

func (s *scene) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.entries = nil
	s.index = make(map[uuid.UUID]int)
	s.updatePool.Stop()
	common.LogDebug("scene closed", "scene", s.name)
}
