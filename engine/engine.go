package engine

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/pkg/errors"
)

// ErrRigNotFound is returned by LoadRig when neither the pack nor the asset directory holds the rig.
var ErrRigNotFound = errors.New("rig not found")

// engine implements the Engine interface.
// Drives a fixed-rate tick loop that applies rig reloads and updates every scene.
type engine struct {
	mu sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	cfg     config.Config
	loader  loader.Loader
	watcher *loader.Watcher

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	reloadCallback func(r loader.Reload)

	scenes map[int]scene.Scene
}

// Engine is the main entry point for the runtime.
// It owns the rig loader, optional hot reload, and the scenes whose animators it updates on a
// fixed-rate tick.
type Engine interface {
	// Config returns the configuration the engine was built with.
	//
	// Returns:
	//   - config.Config: the engine configuration
	Config() config.Config

	// Loader returns the rig loader shared by the engine.
	//
	// Returns:
	//   - loader.Loader: the loader
	Loader() loader.Loader

	// LoadRig loads a rig by name, from the configured pack first and then from the asset directory
	// (name.yaml, name.yml, name.gltf, name.glb in that order).
	//
	// Parameters:
	//   - name: the rig name
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: ErrRigNotFound, or the loader error
	LoadRig(name string) (model.Model, error)

	// NewAnimator creates an animator on m that starts at the configured default playback speed.
	// Options are applied after the default, so WithPlaybackSpeed still wins.
	//
	// Parameters:
	//   - m: the model to animate
	//   - options: animator options
	//
	// Returns:
	//   - animator.Animator: the animator
	//   - error: error from animator construction
	NewAnimator(m model.Model, options ...animator.AnimatorBuilderOption) (animator.Animator, error)

	// EnableProfiler enables tick statistics output to the log.
	EnableProfiler()

	// DisableProfiler disables tick statistics output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each tick before the scenes update.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetReloadCallback registers the function called for every drained rig reload, after the
	// engine rebound the affected animators.
	//
	// Parameters:
	//   - callback: function receiving the reload
	SetReloadCallback(callback func(r loader.Reload))

	// AddScene registers a scene at the given key. Scenes update in ascending key order.
	//
	// Parameters:
	//   - key: the update order key
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key.
	//
	// Parameters:
	//   - key: the key of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given key, or nil.
	//
	// Parameters:
	//   - key: the key of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Step runs one tick synchronously: drained reloads are applied, the tick callback runs, then
	// every scene updates.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Step(deltaTime float32)

	// Run starts the tick loop and blocks until Quit is called.
	Run()

	// Quit stops the tick loop, the watcher and every scene.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// When the configuration enables hot reload, a watcher on the asset directory is started; a
// failure to start it is logged and the engine runs without hot reload.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		cfg:             config.Default(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if err := common.SetLogLevel(e.cfg.Log.Level); err != nil {
		common.LogWarn("invalid log level", "level", e.cfg.Log.Level, "err", err)
	}
	if e.loader == nil {
		e.loader = loader.NewLoader()
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(time.Second)
	}
	if e.watcher == nil && e.cfg.Assets.Watch {
		w, err := loader.NewWatcher(e.loader, e.cfg.Assets.Dir)
		if err != nil {
			common.LogError("hot reload disabled", "dir", e.cfg.Assets.Dir, "err", err)
		} else {
			e.watcher = w
		}
	}

	return e
}

func (e *engine) Config() config.Config {
	return e.cfg
}

func (e *engine) Loader() loader.Loader {
	return e.loader
}

func (e *engine) LoadRig(name string) (model.Model, error) {
	if e.cfg.Assets.Pack != "" {
		m, err := e.loader.LoadPack(e.cfg.Assets.Pack, name)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, loader.ErrRigNotPacked) {
			return nil, err
		}
	}

	for _, ext := range []string{".yaml", ".yml", ".gltf", ".glb"} {
		path := filepath.Join(e.cfg.Assets.Dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return e.loader.Load(path)
		}
	}
	return nil, errors.Wrapf(ErrRigNotFound, "%q", name)
}

func (e *engine) NewAnimator(m model.Model, options ...animator.AnimatorBuilderOption) (animator.Animator, error) {
	opts := make([]animator.AnimatorBuilderOption, 0, len(options)+1)
	opts = append(opts, animator.WithPlaybackSpeed(float32(e.cfg.Animation.DefaultSpeed)))
	opts = append(opts, options...)
	return animator.NewAnimator(m, opts...)
}

// EnableProfiler enables tick statistics output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	e.profilingEnabled = true
	e.mu.Unlock()
}

// DisableProfiler disables tick statistics output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	e.profilingEnabled = false
	e.mu.Unlock()
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		e.engineTickRate = newRate
		return
	}

	// Non-blocking send - if a change is pending, replace it
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	e.tickCallback = callback
	e.mu.Unlock()
}

func (e *engine) SetReloadCallback(callback func(r loader.Reload)) {
	e.mu.Lock()
	e.reloadCallback = callback
	e.mu.Unlock()
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	e.scenes[key] = s
	e.mu.Unlock()
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	delete(e.scenes, key)
	e.mu.Unlock()
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func (e *engine) Step(deltaTime float32) {
	start := time.Now()

	e.mu.Lock()
	tick := e.tickCallback
	profiling := e.profilingEnabled
	e.mu.Unlock()

	if e.watcher != nil {
		e.applyReloads(e.watcher.Drain())
	}
	if tick != nil {
		tick(deltaTime)
	}
	for _, s := range e.orderedScenes() {
		s.Update(deltaTime)
	}

	if profiling {
		e.profiler.Tick(time.Since(start))
	}
}

// applyReloads swaps every animator bound to a replaced model for one rebound to the new model.
// Animators whose clips are missing from the new model keep running on the old one.
func (e *engine) applyReloads(reloads []loader.Reload) {
	if len(reloads) == 0 {
		return
	}
	e.mu.Lock()
	callback := e.reloadCallback
	e.mu.Unlock()

	scenes := e.orderedScenes()
	for _, r := range reloads {
		if r.Err != nil {
			common.LogWarn("keeping previous rig", "path", r.Path, "err", r.Err)
		} else if r.Previous != nil {
			rebound := 0
			for _, s := range scenes {
				for _, id := range s.AnimatorsFor(r.Previous) {
					a := s.Get(id)
					if a == nil {
						continue
					}
					next, err := a.Rebind(r.Model)
					if err != nil {
						common.LogWarn("animator kept on the previous rig", "animator", id, "path", r.Path, "err", err)
						continue
					}
					if err := s.Replace(id, next); err == nil {
						rebound++
					}
				}
			}
			common.LogInfo("rig reloaded", "path", r.Path, "animators", rebound)
		}

		if callback != nil {
			callback(r)
		}
	}
}

// orderedScenes returns the registered scenes in ascending key order.
func (e *engine) orderedScenes() []scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]scene.Scene, len(keys))
	for i, k := range keys {
		out[i] = e.scenes[k]
	}
	return out
}

func (e *engine) Run() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	rate := e.engineTickRate
	e.mu.Unlock()

	e.wg.Add(1)
	go e.handleEngine(rate)
	e.wg.Wait()
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Listens for dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine(rate time.Duration) {
	defer e.wg.Done()
	// Recover from panics inside the tick goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			common.LogError("tick goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		case now := <-ticker.C:
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.Step(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel, stops hot reload and closes every scene.
// Uses sync.Once so that it runs once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)

		if e.watcher != nil {
			if err := e.watcher.Close(); err != nil {
				common.LogWarn("failed to close rig watcher", "err", err)
			}
		}
		for _, s := range e.orderedScenes() {
			s.Close()
		}
	})
}
