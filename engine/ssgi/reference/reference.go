// Package reference provides CPU implementations of the effect's compute kernels for the
// software device. They follow the kernels' binding contracts and produce plausible output,
// but make no attempt to match the GPU shading math.
package reference

import (
	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host/software"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
	"github.com/go-gl/mathgl/mgl32"
)

// Kernels maps every kernel the effect acquires to its CPU implementation.
//
// Returns:
//   - map[string]software.KernelDef: kernel definitions keyed by host.KernelDesc.Key()
func Kernels() map[string]software.KernelDef {
	return map[string]software.KernelDef{
		ssgi.KernelHilbertLUT.Key():      hilbertLUT,
		ssgi.KernelPrefilterDepths.Key(): prefilterDepths,
		ssgi.KernelFetchRadiance.Key():   fetchRadiance,
		ssgi.KernelGTAO.Key():            estimate(ssgi.VariantFalloff),
		ssgi.KernelGTAOBitmask.Key():     estimate(ssgi.VariantBitmask),
		ssgi.KernelDenoisePass.Key():     denoise(false),
		ssgi.KernelDenoiseLastPass.Key(): denoise(true),
		ssgi.KernelMix.Key():             mix,
	}
}

// Register adds every reference kernel to a software device.
//
// Parameters:
//   - d: the device to register on
func Register(d software.Device) {
	for _, desc := range ssgi.Kernels() {
		d.RegisterKernel(desc, Kernels()[desc.Key()])
	}
}

// DeviceOptions returns builder options that register every reference kernel, for use with
// software.NewDevice.
//
// Returns:
//   - []software.DeviceBuilderOption: one WithKernel option per kernel
func DeviceOptions() []software.DeviceBuilderOption {
	defs := Kernels()
	opts := make([]software.DeviceBuilderOption, 0, len(defs))
	for _, desc := range ssgi.Kernels() {
		opts = append(opts, software.WithKernel(desc, defs[desc.Key()]))
	}
	return opts
}

// prepareConstants decodes the constant buffer once per dispatch. A missing or short buffer
// yields zero constants.
func prepareConstants(buf []byte) any {
	c, err := ssgi.UnmarshalConstants(buf)
	if err != nil {
		common.Logger().Warn("[SSGI] reference kernel without constants", "err", err)
		return ssgi.Constants{}
	}
	return c
}

func constantsOf(inv *software.Invocation) ssgi.Constants {
	c, _ := inv.Uniform().(ssgi.Constants)
	return c
}

// inViewport reports whether the thread maps to a pixel of the scaled viewport.
func inViewport(inv *software.Invocation, c ssgi.Constants) bool {
	return int32(inv.X) < c.ViewportSize[0] && int32(inv.Y) < c.ViewportSize[1]
}

func load(inv *software.Invocation, slot int, mip uint32, x, y int) mgl32.Vec4 {
	return mgl32.Vec4(inv.Load(slot, mip, x, y))
}

func store(inv *software.Invocation, slot int, x, y uint32, v mgl32.Vec4) {
	inv.Store(slot, x, y, [4]float32(v))
}

func saturate(v float32) float32 {
	return mgl32.Clamp(v, 0, 1)
}

// viewDepth converts a hardware depth value to positive view-space distance.
func viewDepth(c ssgi.Constants, d float32) float32 {
	den := c.DepthUnpackConsts[1] - d
	if den == 0 {
		return maxViewDepth
	}
	return min(mgl32.Abs(c.DepthUnpackConsts[0]/den), maxViewDepth)
}

const maxViewDepth float32 = 1e6
