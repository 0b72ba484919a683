// Package profiler reports frame rate, memory and per-stage dispatch statistics for the
// effect's pipeline at a fixed interval.
package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
)

// StageStats accumulates the submissions of one pipeline stage over an interval.
type StageStats struct {
	// Runs is the number of times the stage was submitted.
	Runs int
	// Groups is the total number of thread groups dispatched.
	Groups uint64
}

// Report is the statistics of one elapsed interval.
type Report struct {
	Frames   int
	FPS      float64
	HeapMB   float64
	SysMB    float64
	AllocMBs float64
	GCCount  uint32
	MaxGCUs  uint64
	Stages   map[ssgi.StageName]StageStats
}

// Profiler tracks frame rate, memory and stage statistics. Observe may be called from the
// render thread while Tick runs on the same or another goroutine.
type Profiler struct {
	mu             sync.Mutex
	now            func() time.Time
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	stages         map[ssgi.StageName]StageStats
	onReport       func(Report)
}

// NewProfiler creates a Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options applied to the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		updateInterval: time.Second,
		stages:         make(map[ssgi.StageName]StageStats),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Observe records a stage submission. Its signature matches ssgi.StageObserver.
//
// Parameters:
//   - stage: the stage that was submitted
//   - groups: its thread group counts, zero for copies and mip generation
func (p *Profiler) Observe(stage ssgi.StageName, groups [3]uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stages[stage]
	s.Runs++
	s.Groups += uint64(groups[0]) * uint64(groups[1]) * uint64(groups[2])
	p.stages[stage] = s
}

// Tick should be called once per frame. It logs and reports the statistics once the update
// interval has elapsed.
//
// Returns:
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		p.mu.Unlock()
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		Frames:   p.frameCount,
		FPS:      float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:   float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:    float64(p.memStats.Sys) / 1024 / 1024,
		AllocMBs: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:  p.memStats.NumGC,
		MaxGCUs:  p.maxPauseUs(),
		Stages:   p.stages,
	}
	onReport := p.onReport

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.stages = make(map[ssgi.StageName]StageStats)
	p.mu.Unlock()

	// r.Stages is no longer reachable from p, so the callback may call back into the profiler.
	p.log(r)
	if onReport != nil {
		onReport(r)
	}
	return true
}

// maxPauseUs is the longest GC pause since the last report. PauseNs is a ring of 256 entries.
func (p *Profiler) maxPauseUs() uint64 {
	gcCount := p.memStats.NumGC
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	var maxPause uint64
	for i := startIdx; i < gcCount; i++ {
		maxPause = max(maxPause, p.memStats.PauseNs[i%256]/1000)
	}
	return maxPause
}

func (p *Profiler) log(r Report) {
	logger := common.Logger()
	logger.Info("[Profiler] frame stats",
		"fps", r.FPS, "heapMB", r.HeapMB, "allocMBs", r.AllocMBs, "gc", r.GCCount, "maxPauseUs", r.MaxGCUs, "sysMB", r.SysMB)

	names := make([]string, 0, len(r.Stages))
	for name := range r.Stages {
		names = append(names, string(name))
	}
	sort.Strings(names)
	for _, name := range names {
		s := r.Stages[ssgi.StageName(name)]
		logger.Debug("[Profiler] stage", "stage", name, "runs", s.Runs, "groups", s.Groups)
	}
}
