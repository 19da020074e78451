package scene

import (
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithAnimators registers initial animators.
//
// Parameters:
//   - animators: the animators to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAnimators(animators ...animator.Animator) SceneBuilderOption {
	return func(s *scene) {
		for _, a := range animators {
			if a != nil {
				s.add(a)
			}
		}
	}
}

// WithWorkers sets the number of worker goroutines used during the parallel update phase.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.updateWorkers = max(n, 1)
	}
}

// WithQueueSize sets the task queue capacity of the worker pool. Defaults to 256.
//
// Parameters:
//   - n: the queue capacity (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithQueueSize(n int) SceneBuilderOption {
	return func(s *scene) {
		s.queueSize = max(n, 1)
	}
}

// WithProfiler attaches a profiler that is ticked with the duration of every Update.
//
// Parameters:
//   - p: the profiler, or nil to disable profiling
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) SceneBuilderOption {
	return func(s *scene) {
		s.prof = p
	}
}

// WithConfig applies the scene section of an engine configuration.
// A parseable ProfileInterval attaches a profiler.
//
// Parameters:
//   - cfg: the scene configuration
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithConfig(cfg config.SceneConfig) SceneBuilderOption {
	return func(s *scene) {
		WithWorkers(cfg.Workers)(s)
		WithQueueSize(cfg.QueueSize)(s)
		if cfg.ProfileInterval == "" {
			return
		}
		interval, err := time.ParseDuration(cfg.ProfileInterval)
		if err != nil {
			common.LogWarn("ignoring profile interval", "value", cfg.ProfileInterval, "err", err)
			return
		}
		s.prof = profiler.NewProfiler(interval)
	}
}
