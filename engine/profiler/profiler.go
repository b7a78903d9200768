package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"go.uber.org/zap"
)

const (
	mib = 1 << 20

	// pauseRing is the length of runtime.MemStats.PauseNs.
	pauseRing = uint32(len(runtime.MemStats{}.PauseNs))
)

// Profiler measures the frame rate once per interval and, with logging on, writes one line of
// frame and memory statistics each time the interval closes.
type Profiler struct {
	mu *sync.Mutex

	interval time.Duration
	now      func() time.Time

	frames      int
	windowStart time.Time
	fps         float64
	logging     bool

	mem  runtime.MemStats
	prev memMark
}

// memMark is where the previous stats line left the cumulative counters.
type memMark struct {
	gcCount    uint32
	totalAlloc uint64
}

// NewProfiler creates a profiler with a one second interval.
func NewProfiler() *Profiler {
	return &Profiler{
		mu:          &sync.Mutex{},
		interval:    time.Second,
		now:         time.Now,
		windowStart: time.Now(),
	}
}

// SetLogging turns the stats line on or off.
func (p *Profiler) SetLogging(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logging = enabled
}

// FPS returns the frame rate of the last closed interval.
func (p *Profiler) FPS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fps
}

// Tick counts one frame.
//
// Returns:
//   - bool: true when this frame closed an interval and FPS was updated
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frames++
	now := p.now()
	elapsed := now.Sub(p.windowStart)
	if elapsed < p.interval {
		return false
	}

	p.fps = float64(p.frames) / elapsed.Seconds()
	p.frames = 0
	p.windowStart = now
	if p.logging {
		p.logStats(elapsed)
	}
	return true
}

// logStats writes the stats line for an interval of the given length. Caller must hold the mutex.
func (p *Profiler) logStats(elapsed time.Duration) {
	runtime.ReadMemStats(&p.mem)
	lastPause, maxPause := p.pausesSince(p.prev.gcCount)

	logger.Info("profiler",
		zap.Float64("fps", p.fps),
		zap.Float64("heap_mb", float64(p.mem.Alloc)/mib),
		zap.Float64("alloc_rate_mb_s", float64(p.mem.TotalAlloc-p.prev.totalAlloc)/mib/elapsed.Seconds()),
		zap.Float64("sys_mb", float64(p.mem.Sys)/mib),
		zap.Uint32("gc", p.mem.NumGC),
		zap.Duration("gc_last", lastPause),
		zap.Duration("gc_max", maxPause),
	)
	p.prev = memMark{gcCount: p.mem.NumGC, totalAlloc: p.mem.TotalAlloc}
}

// pausesSince returns the latest GC pause and the longest pause of the collections after the
// since-th one that the pause ring still holds.
func (p *Profiler) pausesSince(since uint32) (last, longest time.Duration) {
	n := p.mem.NumGC
	if n == 0 {
		return 0, 0
	}
	last = time.Duration(p.mem.PauseNs[(n-1)%pauseRing])
	if n-since > pauseRing {
		since = n - pauseRing
	}
	for i := since; i < n; i++ {
		longest = max(longest, time.Duration(p.mem.PauseNs[i%pauseRing]))
	}
	return last, longest
}
