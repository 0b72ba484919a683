package ssgi

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/settings"
)

// ConstantsSource is the WGSL definition of the SSGIConstants struct.
// Matches Constants exactly (176 bytes, WGSL uniform aligned).
//
//go:embed assets/ssgi_constants.wgsl
var ConstantsSource string

// Fixed kernel parameters that are not exposed as settings.
const (
	RadiusMultiplier float32 = 1
	DenoiseBlurBeta  float32 = 1.2

	// NoisePeriod is the number of frames after which the dither pattern repeats.
	NoisePeriod = 64
)

// Constants is the per-frame constant buffer payload. Field order and offsets match the
// SSGIConstants struct in ConstantsSource.
// Size: 176 bytes.
type Constants struct {
	ViewportSize           common.Int2   // offset   0
	ViewportPixelSize      common.Float2 // offset   8
	DepthUnpackConsts      common.Float2 // offset  16
	CameraTanHalfFOV       common.Float2 // offset  24
	NDCToViewMul           common.Float2 // offset  32
	NDCToViewAdd           common.Float2 // offset  40
	NDCToViewMulXPixelSize common.Float2 // offset  48

	SliceCount    uint32 // offset  56
	StepsPerSlice uint32 // offset  60

	EffectRadius             float32 // offset  64
	EffectFalloffRange       float32 // offset  68
	RadiusMultiplier         float32 // offset  72
	DenoiseBlurBeta          float32 // offset  76
	SampleDistributionPower  float32 // offset  80
	ThinOccluderCompensation float32 // offset  84
	DepthMIPSamplingOffset   float32 // offset  88
	NoiseIndex               int32   // offset  92

	Thickness float32 // offset  96

	EnableGI               uint32  // offset 100
	CheckBackface          uint32  // offset 104
	BackfaceStrength       float32 // offset 108
	GIBounceFade           float32 // offset 112
	GIDistanceCompensation float32 // offset 116

	AOClamp    common.Float2 // offset 120
	AOPower    float32       // offset 128
	_          float32       // offset 132: vec2 alignment
	AORemap    common.Float2 // offset 136
	GIStrength float32       // offset 144

	DebugView uint32 // offset 148

	GICompensationMaxDist float32 // offset 152
	AmbientSource         float32 // offset 156
	DirectLightAO         float32 // offset 160
	_                     [3]float32
}

// Size returns the size of the Constants struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (176)
func (c *Constants) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the constants into a little-endian byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (c *Constants) Marshal() []byte {
	buf, err := binary.Append(make([]byte, 0, c.Size()), binary.LittleEndian, c)
	if err != nil {
		// Constants holds only fixed-size fields.
		panic(err)
	}
	return buf
}

// UnmarshalConstants decodes a constant buffer produced by Marshal.
//
// Parameters:
//   - buf: the serialized constants
//
// Returns:
//   - Constants: the decoded payload
//   - error: an error if buf is shorter than the payload
func UnmarshalConstants(buf []byte) (Constants, error) {
	var c Constants
	if len(buf) < c.Size() {
		return Constants{}, fmt.Errorf("ssgi: constant buffer is %d bytes, want %d", len(buf), c.Size())
	}
	if _, err := binary.Decode(buf, binary.LittleEndian, &c); err != nil {
		return Constants{}, fmt.Errorf("ssgi: decode constants: %w", err)
	}
	return c, nil
}

// FrameInputs is everything BuildConstants derives a payload from.
type FrameInputs struct {
	// Projection is the camera projection in row-vector convention.
	Projection common.Projection
	// Base is the full working resolution.
	Base common.Extent2D
	// Scale is the dynamic-resolution scale per axis.
	Scale common.Float2
	// Settings is the settings snapshot for this frame.
	Settings settings.EffectSettings
	// Frame is the host frame counter.
	Frame uint32
}

// BuildConstants derives the constant buffer payload for one frame. It has no side effects.
//
// Parameters:
//   - in: the projection, resolution, scale, settings and frame counter
//
// Returns:
//   - Constants: the payload
func BuildConstants(in FrameInputs) Constants {
	p := in.Projection
	s := in.Settings
	size := in.Base.Scaled(in.Scale)

	c := Constants{
		ViewportSize:      common.Int2{int32(size[0]), int32(size[1])},
		DepthUnpackConsts: common.Float2{-p[3][2], p[2][2]},
		CameraTanHalfFOV:  common.Float2{1 / p[0][0], -1 / p[1][1]},
		NDCToViewMul:      common.Float2{2 / p[0][0], -2 / p[1][1]},
		NDCToViewAdd:      common.Float2{-1 / p[0][0], 1 / p[1][1]},

		SliceCount:    s.SliceCount,
		StepsPerSlice: s.StepsPerSlice,

		EffectRadius:             s.EffectRadius,
		EffectFalloffRange:       s.EffectFalloffRange,
		RadiusMultiplier:         RadiusMultiplier,
		DenoiseBlurBeta:          DenoiseBlurBeta,
		SampleDistributionPower:  s.SampleDistributionPower,
		ThinOccluderCompensation: s.ThinOccluderCompensation,
		DepthMIPSamplingOffset:   s.DepthMIPSamplingOffset,
		NoiseIndex:               int32(in.Frame % NoisePeriod),

		Thickness: s.Thickness,

		EnableGI:               boolToU32(s.EnableGI),
		CheckBackface:          boolToU32(s.CheckBackface),
		BackfaceStrength:       s.BackfaceStrength,
		GIBounceFade:           s.GIBounceFade,
		GIDistanceCompensation: s.GIDistanceCompensation,

		AOClamp:    s.AOClamp,
		AOPower:    s.AOPower,
		AORemap:    s.AORemap,
		GIStrength: s.GIStrength,

		DebugView: uint32(s.DebugView),

		GICompensationMaxDist: s.GICompensationMaxDist,
		AmbientSource:         s.AmbientSource,
		DirectLightAO:         s.DirectLightAO,
	}

	if c.ViewportSize[0] > 0 {
		c.ViewportPixelSize[0] = 1 / float32(c.ViewportSize[0])
	}
	if c.ViewportSize[1] > 0 {
		c.ViewportPixelSize[1] = 1 / float32(c.ViewportSize[1])
	}
	c.NDCToViewMulXPixelSize = common.Float2{
		c.NDCToViewMul[0] * c.ViewportPixelSize[0],
		c.NDCToViewMul[1] * c.ViewportPixelSize[1],
	}
	return c
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
