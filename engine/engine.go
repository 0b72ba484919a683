// Package engine hosts the SSGI effect outside a game: it owns a device, the settings store and
// its file watcher, the effect and a profiler, and drives frames the way a host renderer would.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/settings"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrNoDevice is returned by NewEngine when no device was configured.
var ErrNoDevice = errors.New("engine: no device")

// flusher is implemented by devices that record work and submit it in batches.
type flusher interface {
	Flush() error
}

// engine implements the Engine interface.
type engine struct {
	device host.Device
	store  settings.Store
	effect ssgi.Effect

	settingsPath  string
	watchSettings bool
	watcher       *settings.Watcher

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameContext     func(frameID uint32) ssgi.FrameContext
	renderCallback   func(frameID uint32)
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	wg          sync.WaitGroup
	quitChannel chan struct{}
	quitOnce    sync.Once
	closeOnce   sync.Once
}

// Engine drives the effect frame by frame on a device it does not own the lifetime of.
type Engine interface {
	// Device returns the device the effect runs on.
	Device() host.Device

	// Effect returns the effect.
	Effect() ssgi.Effect

	// Settings returns the settings store the effect reads.
	Settings() settings.Store

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderCallback registers the function called after every frame.
	//
	// Parameters:
	//   - callback: receives the frame ID that just ran
	SetRenderCallback(callback func(frameID uint32))

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// RunFrame runs one host frame: a lighting draw, the deferred pass and a flush.
	//
	// Parameters:
	//   - frameID: the host frame counter
	//
	// Returns:
	//   - error: the effect's or the device's error
	RunFrame(frameID uint32) error

	// Run runs frames until frames have completed, ctx is done, Quit is called or a frame
	// fails. frames 0 runs until stopped.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//   - frames: the number of frames to run, 0 for no limit
	//
	// Returns:
	//   - uint32: the number of frames that ran
	//   - error: the first frame error, or ctx.Err() on cancellation
	Run(ctx context.Context, frames uint32) (uint32, error)

	// Quit stops a running loop. Safe to call multiple times.
	Quit()

	// Close stops the settings watcher and releases the effect's GPU resources.
	//
	// Returns:
	//   - error: an error if the watcher cannot be closed
	Close() error
}

var _ Engine = &engine{}

// NewEngine creates an Engine with the provided options. A settings file configured with
// WithSettingsFile is loaded before the effect is created; a missing file keeps the defaults.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: ErrNoDevice without WithDevice, or an error if the settings watcher cannot start
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		quitChannel: make(chan struct{}),
		profiler:    profiler.NewProfiler(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.device == nil {
		return nil, ErrNoDevice
	}
	if e.store == nil {
		e.store = settings.NewStore()
	}
	if e.frameContext == nil {
		e.frameContext = DefaultFrameContext
	}

	if e.settingsPath != "" {
		if err := e.store.LoadFile(e.settingsPath); err != nil {
			common.Logger().Warn("[Engine] settings file not loaded, using current settings", "path", e.settingsPath, "err", err)
		}
		if e.watchSettings {
			w, err := settings.Watch(e.store, e.settingsPath)
			if err != nil {
				return nil, fmt.Errorf("engine: %w", err)
			}
			e.watcher = w
		}
	}

	e.effect = ssgi.NewEffect(e.device,
		ssgi.WithSettingsStore(e.store),
		ssgi.WithStageObserver(e.profiler.Observe),
		ssgi.WithLoaded(),
	)
	return e, nil
}

// defaultCamera is the camera frames use without WithCamera or WithFrameContext: a 60 degree,
// 16:9 perspective at full resolution.
var defaultCamera = camera.NewCamera(
	camera.WithFov(mgl32.DegToRad(60)),
	camera.WithAspect(16.0/9.0),
	camera.WithNear(0.1),
	camera.WithFar(1000),
)

// DefaultFrameContext is the frame context of the default camera.
//
// Parameters:
//   - frameID: the host frame counter
//
// Returns:
//   - ssgi.FrameContext: the frame context
func DefaultFrameContext(frameID uint32) ssgi.FrameContext {
	return defaultCamera.FrameContext(frameID)
}

func (e *engine) Device() host.Device {
	return e.device
}

func (e *engine) Effect() ssgi.Effect {
	return e.effect
}

func (e *engine) Settings() settings.Store {
	return e.store
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetRenderCallback(callback func(frameID uint32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) RunFrame(frameID uint32) error {
	e.effect.Draw(host.ShaderTypeLighting, frameID)
	if err := e.effect.DrawDeferred(e.frameContext(frameID)); err != nil {
		return err
	}
	if f, ok := e.device.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("engine: flush frame %d: %w", frameID, err)
		}
	}

	if e.renderCallback != nil {
		e.renderCallback(frameID)
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return nil
}

func (e *engine) Run(ctx context.Context, frames uint32) (uint32, error) {
	type result struct {
		ran uint32
		err error
	}
	done := make(chan result, 1)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ran, err := e.handleRender(ctx, frames)
		done <- result{ran, err}
	}()
	r := <-done
	e.wg.Wait()
	return r.ran, r.err
}

// handleRender runs the frame loop. A panic inside a frame is logged and ends the loop.
func (e *engine) handleRender(ctx context.Context, frames uint32) (ran uint32, err error) {
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("[Engine] render loop recovered from panic", "panic", r)
			err = fmt.Errorf("engine: frame %d panicked: %v", ran, r)
			e.signalQuit()
		}
	}()

	for frames == 0 || ran < frames {
		select {
		case <-ctx.Done():
			return ran, ctx.Err()
		case <-e.quitChannel:
			return ran, nil
		default:
		}

		start := time.Now()
		if err := e.RunFrame(ran); err != nil {
			return ran, err
		}
		ran++

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				timer := time.NewTimer(remaining)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ran, ctx.Err()
				case <-e.quitChannel:
					timer.Stop()
					return ran, nil
				case <-timer.C:
				}
			}
		}
	}
	return ran, nil
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.signalQuit()
		e.wg.Wait()
		if e.watcher != nil {
			err = e.watcher.Close()
		}
		e.effect.Reset()
	})
	return err
}
