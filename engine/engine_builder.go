package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/settings"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithDevice sets the device the effect runs on. Required.
//
// Parameters:
//   - d: the host device
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(d host.Device) EngineBuilderOption {
	return func(e *engine) {
		e.device = d
	}
}

// WithSettingsStore sets the store the effect reads its settings from.
func WithSettingsStore(store settings.Store) EngineBuilderOption {
	return func(e *engine) {
		e.store = store
	}
}

// WithSettingsFile loads settings from a .json or .toml file at construction and, when watch is
// set, reloads them whenever the file changes.
//
// Parameters:
//   - path: the settings file
//   - watch: if true, hot reload the file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSettingsFile(path string, watch bool) EngineBuilderOption {
	return func(e *engine) {
		e.settingsPath = path
		e.watchSettings = watch
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler, for example to change its interval.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
	}
}

// WithFrameContext sets the function that supplies the camera and resolution scale of each frame.
//
// Parameters:
//   - fn: returns the frame context for a frame ID
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameContext(fn func(frameID uint32) ssgi.FrameContext) EngineBuilderOption {
	return func(e *engine) {
		e.frameContext = fn
	}
}

// WithCamera takes every frame's projection and resolution scale from a camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(cam camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		if cam != nil {
			e.frameContext = cam.FrameContext
		}
	}
}

// WithRenderCallback registers the function called after every frame.
func WithRenderCallback(callback func(frameID uint32)) EngineBuilderOption {
	return func(e *engine) {
		e.renderCallback = callback
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
