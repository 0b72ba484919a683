package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

// formatInfo describes how a host texture format maps onto wgpu.
type formatInfo struct {
	format     wgpu.TextureFormat
	sampleType wgpu.TextureSampleType
	bytes      uint32
}

// formatMap lists the texture formats the device can allocate. 32-bit float formats are not
// filterable without an optional feature, so they bind as unfilterable.
var formatMap = map[gputypes.TextureFormat]formatInfo{
	gputypes.TextureFormatR8Unorm:        {wgpu.TextureFormatR8Unorm, wgpu.TextureSampleTypeFloat, 1},
	gputypes.TextureFormatR16Float:       {wgpu.TextureFormatR16Float, wgpu.TextureSampleTypeFloat, 2},
	gputypes.TextureFormatR32Float:       {wgpu.TextureFormatR32Float, wgpu.TextureSampleTypeUnfilterableFloat, 4},
	gputypes.TextureFormatR32Uint:        {wgpu.TextureFormatR32Uint, wgpu.TextureSampleTypeUint, 4},
	gputypes.TextureFormatR32Sint:        {wgpu.TextureFormatR32Sint, wgpu.TextureSampleTypeSint, 4},
	gputypes.TextureFormatRG16Float:      {wgpu.TextureFormatRG16Float, wgpu.TextureSampleTypeFloat, 4},
	gputypes.TextureFormatRG32Float:      {wgpu.TextureFormatRG32Float, wgpu.TextureSampleTypeUnfilterableFloat, 8},
	gputypes.TextureFormatRGBA8Unorm:     {wgpu.TextureFormatRGBA8Unorm, wgpu.TextureSampleTypeFloat, 4},
	gputypes.TextureFormatRGBA8UnormSrgb: {wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureSampleTypeFloat, 4},
	gputypes.TextureFormatBGRA8Unorm:     {wgpu.TextureFormatBGRA8Unorm, wgpu.TextureSampleTypeFloat, 4},
	gputypes.TextureFormatRGB10A2Unorm:   {wgpu.TextureFormatRGB10A2Unorm, wgpu.TextureSampleTypeFloat, 4},
	gputypes.TextureFormatRG11B10Ufloat:  {wgpu.TextureFormatRG11B10Ufloat, wgpu.TextureSampleTypeFloat, 4},
	gputypes.TextureFormatRGBA16Float:    {wgpu.TextureFormatRGBA16Float, wgpu.TextureSampleTypeFloat, 8},
	gputypes.TextureFormatRGBA32Float:    {wgpu.TextureFormatRGBA32Float, wgpu.TextureSampleTypeUnfilterableFloat, 16},
}

// lookupFormat maps a host texture format to wgpu.
//
// Parameters:
//   - f: the host format
//
// Returns:
//   - formatInfo: the wgpu format and the sample type views of it bind as
//   - error: host.ErrUnsupported if the format is not in formatMap
func lookupFormat(f gputypes.TextureFormat) (formatInfo, error) {
	info, ok := formatMap[f]
	if !ok {
		return formatInfo{}, fmt.Errorf("renderer: texture format %d: %w", f, host.ErrUnsupported)
	}
	return info, nil
}

// textureUsage maps host usage flags to wgpu usage flags.
func textureUsage(u gputypes.TextureUsage) wgpu.TextureUsage {
	var usage wgpu.TextureUsage
	if u.Contains(gputypes.TextureUsageCopySrc) {
		usage |= wgpu.TextureUsageCopySrc
	}
	if u.Contains(gputypes.TextureUsageCopyDst) {
		usage |= wgpu.TextureUsageCopyDst
	}
	if u.Contains(gputypes.TextureUsageTextureBinding) {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if u.Contains(gputypes.TextureUsageStorageBinding) {
		usage |= wgpu.TextureUsageStorageBinding
	}
	if u.Contains(gputypes.TextureUsageRenderAttachment) {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	return usage
}

// filterMode maps a host filter to wgpu. Anything but linear filters to nearest.
func filterMode(f gputypes.FilterMode) wgpu.FilterMode {
	if f == gputypes.FilterModeLinear {
		return wgpu.FilterModeLinear
	}
	return wgpu.FilterModeNearest
}

// addressMode maps a host address mode to wgpu, defaulting to clamp.
func addressMode(m gputypes.AddressMode) wgpu.AddressMode {
	switch m {
	case gputypes.AddressModeRepeat:
		return wgpu.AddressModeRepeat
	case gputypes.AddressModeMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

// samplerBindingType is the layout type a sampler with the given filter must be bound as.
func samplerBindingType(f gputypes.FilterMode) wgpu.SamplerBindingType {
	if f == gputypes.FilterModeLinear {
		return wgpu.SamplerBindingTypeFiltering
	}
	return wgpu.SamplerBindingTypeNonFiltering
}

// mipExtent returns the size of a mip level, never smaller than 1x1.
func mipExtent(desc host.TextureDesc, mip uint32) (uint32, uint32) {
	return max(desc.Width>>mip, 1), max(desc.Height>>mip, 1)
}

// storageTexelFormats lists the WGSL texel format of every format that can be bound for writing.
var storageTexelFormats = map[gputypes.TextureFormat]string{
	gputypes.TextureFormatR32Float:    "r32float",
	gputypes.TextureFormatR32Uint:     "r32uint",
	gputypes.TextureFormatR32Sint:     "r32sint",
	gputypes.TextureFormatRG32Float:   "rg32float",
	gputypes.TextureFormatRGBA8Unorm:  "rgba8unorm",
	gputypes.TextureFormatBGRA8Unorm:  "bgra8unorm",
	gputypes.TextureFormatRGBA16Float: "rgba16float",
	gputypes.TextureFormatRGBA32Float: "rgba32float",
}

// StorageTexelFormat returns the WGSL texel format kernels declare to write textures of f.
//
// Parameters:
//   - f: the host format
//
// Returns:
//   - string: the texel format, e.g. "rgba16float"
//   - error: host.ErrUnsupported if textures of f cannot be bound for writing
func StorageTexelFormat(f gputypes.TextureFormat) (string, error) {
	texel, ok := storageTexelFormats[f]
	if !ok {
		return "", fmt.Errorf("renderer: texture format %d cannot be written by kernels: %w", f, host.ErrUnsupported)
	}
	return texel, nil
}
