package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// Stats is one logged sample of frame and memory statistics.
type Stats struct {
	// FPS is the number of ticks per second since the previous sample.
	FPS float64

	// FrameTime is the mean duration of the measured work per tick.
	FrameTime time.Duration

	// HeapMB is the live heap size.
	HeapMB float64

	// AllocRateMB is the heap allocation rate in MB per second.
	AllocRateMB float64

	// GCCount is the total number of completed GC cycles.
	GCCount uint32

	// MaxPause is the longest GC pause since the previous sample.
	MaxPause time.Duration
}

// Profiler tracks update rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	busy           time.Duration
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - interval: how often stats are logged; non-positive values mean one second
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
	}
}

// Tick should be called once per update with the time the update took.
// Logs performance statistics when the update interval has elapsed.
//
// Parameters:
//   - work: the duration of the measured work this tick
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(work time.Duration) bool {
	p.frameCount++
	p.busy += work
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		FrameTime:   p.busy / time.Duration(p.frameCount),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}

	// PauseNs is a circular buffer of the last 256 pauses.
	start := p.lastGCCount
	if s.GCCount-start > 256 {
		start = s.GCCount - 256
	}
	for i := start; i < s.GCCount; i++ {
		if pause := time.Duration(p.memStats.PauseNs[i%256]); pause > s.MaxPause {
			s.MaxPause = pause
		}
	}

	common.LogInfo("profiler",
		"fps", s.FPS,
		"frame", s.FrameTime,
		"heap_mb", s.HeapMB,
		"alloc_mb_s", s.AllocRateMB,
		"gc", s.GCCount,
		"max_pause", s.MaxPause,
	)

	p.last = s
	p.frameCount = 0
	p.busy = 0
	p.lastTime = now
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently logged sample.
//
// Returns:
//   - Stats: the last sample, zero before the first one
func (p *Profiler) Last() Stats {
	return p.last
}
