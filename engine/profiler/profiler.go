package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/spinquad/engine/controller"
	"github.com/sirupsen/logrus"
)

// Profiler tracks frame rate, frame outcomes and memory statistics.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastStats      controller.FrameStats
	logger         logrus.FieldLogger
	now            func() time.Time
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(p *Profiler)

// WithInterval sets how often statistics are logged. Values <= 0 are ignored.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerOption: option function to apply
func WithInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithLogger sets the logger the statistics are written to.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProfilerOption: option function to apply
func WithLogger(logger logrus.FieldLogger) ProfilerOption {
	return func(p *Profiler) {
		p.logger = logger
	}
}

// withClock replaces time.Now.
func withClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		logger:         logrus.StandardLogger(),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	p.logger = p.logger.WithField("component", "profiler")
	return p
}

// Tick should be called once per loop iteration with the controller's running totals.
// Logs FPS, presented/dropped/reconfigured frames since the last report, heap usage,
// allocation rate and GC pauses once the update interval has elapsed.
//
// Parameters:
//   - stats: the controller's cumulative frame statistics
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats controller.FrameStats) bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(stats.Presented-p.lastStats.Presented) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.logger.WithFields(logrus.Fields{
		"fps":             fps,
		"iterations":      p.frameCount,
		"dropped":         stats.Dropped - p.lastStats.Dropped,
		"reconfigured":    stats.Reconfigured - p.lastStats.Reconfigured,
		"heap_mb":         allocMB,
		"alloc_rate_mb_s": allocRateMB,
		"gc":              gcCount,
		"gc_last_us":      lastPauseUs,
		"gc_max_us":       maxPauseUs,
		"sys_mb":          sysMB,
	}).Info("frame statistics")

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastStats = stats
	return true
}
