// Package ssgi implements the screen-space global illumination and ambient occlusion effect:
// a fixed sequence of compute dispatches over the host's depth, normal and lit color buffers
// that composites indirect lighting back into the shared color target.
package ssgi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/frame"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/settings"
)

// ErrUnavailable is returned when the effect failed to activate. The effect stays inactive
// until Reset.
var ErrUnavailable = errors.New("ssgi: effect unavailable")

// normalTargetSlot is the output slot the host binds its normal buffer to during lighting draws.
const normalTargetSlot = 2

// FrameContext carries the per-frame facts the host supplies to DrawDeferred.
type FrameContext struct {
	// FrameID is the host frame counter.
	FrameID uint32
	// Projection is the camera projection in row-vector convention.
	Projection common.Projection
	// DynamicResScale is the current dynamic-resolution scale per axis, each in [0, 1].
	DynamicResScale common.Float2
}

// StageObserver is notified after every command the effect submits for a frame.
type StageObserver func(stage StageName, groups [3]uint32)

// DebugTexture is an intermediate texture exposed for buffer viewers.
type DebugTexture struct {
	Name    string
	Texture Texture
}

// hostInputs are the host render targets one frame reads and writes.
type hostInputs struct {
	color   host.Target
	depth   host.Target
	normal  host.Target
	ambient host.Target
	albedo  host.Target
	motion  host.Target
}

// effect is the implementation of the Effect interface.
type effect struct {
	device    host.Device
	store     settings.Store
	resources ResourceManager
	state     *frame.State
	observers []StageObserver

	loaded      bool
	unavailable bool
}

// Effect is the screen-space GI/AO effect. It is driven from the host's render thread and is
// not safe for concurrent use; only its settings store may be touched from other goroutines.
type Effect interface {
	// Name returns the key the effect's settings are stored under.
	Name() string

	// Settings returns the effect's settings store.
	Settings() settings.Store

	// Load applies the effect's settings from a host settings document and marks the effect
	// loaded. Missing settings keep their current values.
	//
	// Parameters:
	//   - doc: the host document keyed by effect name
	Load(doc map[string]json.RawMessage)

	// Save writes the effect's settings into a host settings document.
	//
	// Parameters:
	//   - doc: the host document to write into
	//
	// Returns:
	//   - error: an error if encoding fails
	Save(doc map[string]json.RawMessage) error

	// Loaded reports whether Load has been called.
	Loaded() bool

	// Available reports whether the effect can run. It is false after an activation failure
	// until Reset.
	Available() bool

	// Draw is called for every host draw. Lighting draws are used to detect which normal
	// buffer the host is writing this frame; every other shader type is ignored.
	//
	// Parameters:
	//   - shaderType: the host shader type of the draw
	//   - frameID: the host frame counter
	Draw(shaderType host.ShaderType, frameID uint32)

	// DrawDeferred runs the pipeline once, after opaque geometry and before transparent
	// passes. It does nothing when the effect is not loaded, disabled, unavailable or a
	// required host target is missing.
	//
	// Parameters:
	//   - fc: the per-frame context
	//
	// Returns:
	//   - error: ErrUnavailable when activation fails, or the failing stage's error
	DrawDeferred(fc FrameContext) error

	// SetupResources creates any missing GPU resources ahead of the first frame.
	//
	// Returns:
	//   - error: ErrUnavailable wrapping the creation error
	SetupResources() error

	// ClearKernels releases the kernels, for example before the host recompiles shaders.
	// They are acquired again on the next frame and the dither table is regenerated.
	ClearKernels()

	// Reset releases every GPU resource and clears the unavailable state, for a device reset.
	Reset()

	// DebugTextures lists the intermediate textures, or nil before resources exist.
	DebugTextures() []DebugTexture

	// Resources returns the effect's resource manager.
	Resources() ResourceManager
}

var _ Effect = &effect{}

// NewEffect creates the effect on a host device.
//
// Parameters:
//   - d: the host device
//   - options: functional options applied to the effect
//
// Returns:
//   - Effect: the new effect, not yet loaded
func NewEffect(d host.Device, options ...EffectBuilderOption) Effect {
	e := &effect{
		device: d,
		state:  frame.NewState(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.store == nil {
		e.store = settings.NewStore()
	}
	if e.resources == nil {
		e.resources = NewResourceManager(d)
	}
	return e
}

func (e *effect) Name() string {
	return e.store.Name()
}

func (e *effect) Settings() settings.Store {
	return e.store
}

func (e *effect) Load(doc map[string]json.RawMessage) {
	if !e.store.LoadDocument(doc) {
		common.Logger().Debug("[SSGI] no saved settings, keeping current", "key", e.store.Name())
	}
	e.loaded = true
}

func (e *effect) Save(doc map[string]json.RawMessage) error {
	return e.store.SaveDocument(doc)
}

func (e *effect) Loaded() bool {
	return e.loaded
}

func (e *effect) Available() bool {
	return !e.unavailable
}

func (e *effect) Resources() ResourceManager {
	return e.resources
}

func (e *effect) Draw(shaderType host.ShaderType, frameID uint32) {
	if shaderType != host.ShaderTypeLighting {
		return
	}

	e.state.Observe(frameID)
	if _, known := e.state.NormalSelection(); known {
		return
	}

	rt, ok := e.device.BoundRenderTarget(normalTargetSlot)
	if !ok {
		return
	}
	switch rt {
	case host.RenderTargetNormalSwap:
		e.state.SetNormalSelection(true)
	case host.RenderTargetNormal:
		e.state.SetNormalSelection(false)
	}
}

func (e *effect) SetupResources() error {
	if err := e.resources.SetupResources(); err != nil {
		e.unavailable = true
		e.state.ResetDither()
		common.Logger().Error("[SSGI] activation failed", "err", err)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (e *effect) ClearKernels() {
	e.resources.ClearKernels()
	e.state.ResetDither()
}

func (e *effect) Reset() {
	e.resources.ClearKernels()
	e.resources.ReleaseTextures()
	e.state.ResetDither()
	e.unavailable = false
}

func (e *effect) DebugTextures() []DebugTexture {
	set := e.resources.Resources()
	if set.GI0.ID == host.InvalidID {
		return nil
	}
	return []DebugTexture{
		{Name: "Color 0", Texture: set.Color0},
		{Name: "Color 1", Texture: set.Color1},
		{Name: "Radiance", Texture: set.Radiance},
		{Name: "GI 0", Texture: set.GI0},
		{Name: "GI 1", Texture: set.GI1},
		{Name: "Edge", Texture: set.Edge},
	}
}

// lookupInputs resolves every host target the frame needs, honoring the normal buffer
// selection made during lighting draws.
func (e *effect) lookupInputs() (hostInputs, bool) {
	normalRT := host.RenderTargetNormal
	if swap, _ := e.state.NormalSelection(); swap {
		normalRT = host.RenderTargetNormalSwap
	}

	var in hostInputs
	for _, want := range []struct {
		rt  host.RenderTarget
		dst *host.Target
	}{
		{host.RenderTargetColor, &in.color},
		{host.RenderTargetDepth, &in.depth},
		{normalRT, &in.normal},
		{host.RenderTargetAmbient, &in.ambient},
		{host.RenderTargetAlbedo, &in.albedo},
		{host.RenderTargetMotionVectors, &in.motion},
	} {
		t, ok := e.device.Target(want.rt)
		if !ok {
			common.Logger().Debug("[SSGI] host target missing, skipping frame", "target", want.rt)
			return hostInputs{}, false
		}
		*want.dst = t
	}
	return in, true
}

func (e *effect) DrawDeferred(fc FrameContext) error {
	if !e.loaded || e.unavailable {
		return nil
	}
	s := e.store.Snapshot()
	if !s.Enabled {
		return nil
	}
	in, ok := e.lookupInputs()
	if !ok {
		return nil
	}
	if err := e.SetupResources(); err != nil {
		return err
	}

	set := e.resources.Resources()
	base := common.Extent2D{Width: set.GI0.Desc.Width, Height: set.GI0.Desc.Height}
	c := BuildConstants(FrameInputs{
		Projection: fc.Projection,
		Base:       base,
		Scale:      fc.DynamicResScale,
		Settings:   s,
		Frame:      fc.FrameID,
	})
	if err := e.resources.UploadConstants(c); err != nil {
		return fmt.Errorf("ssgi: upload constants: %w", err)
	}

	err := e.run(in, set, s, base.Scaled(fc.DynamicResScale))
	host.UnbindAll(e.device)
	if err != nil {
		return fmt.Errorf("ssgi: frame %d: %w", fc.FrameID, err)
	}

	if err := e.device.CopyResource(in.color.Texture, set.Color1.ID); err != nil {
		return fmt.Errorf("ssgi: write back color: %w", err)
	}
	e.notify(StageColorWriteout, [3]uint32{})
	return nil
}

// run records every stage of one frame between the color copy and the write back.
func (e *effect) run(in hostInputs, set ResourceSet, s settings.EffectSettings, size common.Float2) error {
	d := e.device

	if err := d.CopySubresourceRegion(set.Color0.ID, 0, in.color.Texture, 0); err != nil {
		return fmt.Errorf("copy color: %w", err)
	}
	e.notify(StageColorCopy, [3]uint32{})

	d.SetConstantBuffers(0, []host.BufferID{set.Constants})
	d.SetSamplers(0, []host.SamplerID{set.PointClamp, set.LinearClamp})

	if e.state.DitherPending() {
		lut := PipelineStage{
			Name:    StageHilbertLUT,
			Kernel:  e.resources.Kernel(KernelHilbertLUT),
			Outputs: []host.ViewID{set.HilbertLUT.View},
			Groups:  HilbertLUTGroups,
		}
		if err := e.runStage(lut); err != nil {
			return err
		}
		e.state.MarkDitherGenerated()
	}

	prefilter := NewStage(StagePrefilter, e.resources.Kernel(KernelPrefilterDepths), size, GroupSizePrefilter).
		Read(in.depth.View).
		Write(set.WorkingDepthMipViews[:]...)
	if err := e.runStage(prefilter); err != nil {
		return err
	}

	if s.EnableGI {
		radiance := NewStage(StageRadiance, e.resources.Kernel(KernelFetchRadiance), size, GroupSizeRadiance).
			Read(set.Color0.View, in.ambient.View, set.GI0.View, in.motion.View).
			Write(set.Radiance.View)
		if err := e.runStage(radiance); err != nil {
			return err
		}
		if err := d.GenerateMips(set.Radiance.ID); err != nil {
			return fmt.Errorf("radiance mips: %w", err)
		}
		e.notify(StageRadianceMips, [3]uint32{})
	}

	estimate := NewStage(StageEstimate, e.resources.Kernel(VariantFor(s).Kernel()), size, GroupSizeGTAO).
		Read(set.WorkingDepth.View, in.normal.View, set.HilbertLUT.View, in.albedo.View, set.Radiance.View).
		Write(set.GI0.View, set.Edge.View)
	if err := e.runStage(estimate); err != nil {
		return err
	}

	gi := [2]Texture{SlotA: set.GI0, SlotB: set.GI1}
	for _, pass := range Passes(s.DenoisePasses) {
		name, kernel := StageDenoise, KernelDenoisePass
		if pass.Last {
			name, kernel = StageDenoiseLast, KernelDenoiseLastPass
		}
		denoise := NewStage(name, e.resources.Kernel(kernel), size, GroupSizeDenoise).
			Read(gi[pass.Read].View, set.Edge.View).
			Write(gi[pass.Write].View)
		if err := e.runStage(denoise); err != nil {
			return err
		}
	}

	mix := NewStage(StageMix, e.resources.Kernel(KernelMix), size, GroupSizeMix).
		Read(set.Color0.View, gi[FinalSlot(s.DenoisePasses)].View, in.ambient.View).
		Write(set.Color1.View)
	return e.runStage(mix)
}

func (e *effect) runStage(stage PipelineStage) error {
	if err := stage.Run(e.device); err != nil {
		return err
	}
	e.notify(stage.Name, stage.Groups)
	return nil
}

func (e *effect) notify(stage StageName, groups [3]uint32) {
	for _, o := range e.observers {
		o(stage, groups)
	}
}
