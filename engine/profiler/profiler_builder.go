package profiler

import "time"

// ProfilerBuilderOption is a functional option used to configure a Profiler during construction.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are reported. Values <= 0 keep the 1 second default.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithReportCallback registers a function that receives every report after it is logged.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithReportCallback(fn func(Report)) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.onReport = fn
	}
}

// withClock replaces the time source.
func withClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
