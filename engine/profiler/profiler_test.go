package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func TestTickReportsAfterInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	var reports []Report
	p := NewProfiler(
		withClock(clock.now),
		WithInterval(time.Second),
		WithReportCallback(func(r Report) { reports = append(reports, r) }),
	)

	p.Observe(ssgi.StageEstimate, [3]uint32{4, 3, 1})
	p.Observe(ssgi.StageEstimate, [3]uint32{4, 3, 1})
	p.Observe(ssgi.StageColorCopy, [3]uint32{})

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.False(t, p.Tick())
	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.True(t, p.Tick())

	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, 2, r.Frames)
	assert.InDelta(t, 2.0, r.FPS, 1e-9)
	assert.Equal(t, StageStats{Runs: 2, Groups: 24}, r.Stages[ssgi.StageEstimate])
	assert.Equal(t, StageStats{Runs: 1}, r.Stages[ssgi.StageColorCopy])

	clock.t = clock.t.Add(time.Second)
	assert.True(t, p.Tick())
	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[1].Frames)
	assert.Empty(t, reports[1].Stages)
}

func TestObserveMatchesStageObserver(t *testing.T) {
	p := NewProfiler()
	var o ssgi.StageObserver = p.Observe
	o(ssgi.StageMix, [3]uint32{1, 1, 1})
	assert.Equal(t, 1, p.stages[ssgi.StageMix].Runs)
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0))
	assert.Equal(t, time.Second, p.updateInterval)
}

func TestReportCallbackMayUseProfiler(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	var reports []Report
	var p *Profiler
	p = NewProfiler(
		withClock(clock.now),
		WithInterval(time.Second),
		WithReportCallback(func(r Report) {
			reports = append(reports, r)
			if len(reports) == 1 {
				p.Observe(ssgi.StageMix, [3]uint32{2, 2, 1})
				assert.False(t, p.Tick())
			}
		}),
	)

	clock.t = clock.t.Add(time.Second)
	require.True(t, p.Tick())

	clock.t = clock.t.Add(time.Second)
	require.True(t, p.Tick())
	require.Len(t, reports, 2)
	assert.Empty(t, reports[0].Stages)
	assert.Equal(t, 2, reports[1].Frames)
	assert.Equal(t, StageStats{Runs: 1, Groups: 4}, reports[1].Stages[ssgi.StageMix])
}
