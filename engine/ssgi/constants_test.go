package ssgi

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProjection has P00=1, P11=1.73, P22=1.0001, P32=-0.1.
var testProjection = common.Projection{
	{1, 0, 0, 0},
	{0, 1.73, 0, 0},
	{0, 0, 1.0001, 1},
	{0, 0, -0.1, 0},
}

func TestConstantsSize(t *testing.T) {
	var c Constants
	assert.Equal(t, 176, c.Size())
	assert.Len(t, c.Marshal(), 176)
}

func TestBuildConstantsDerivation(t *testing.T) {
	c := BuildConstants(FrameInputs{
		Projection: testProjection,
		Base:       common.Extent2D{Width: 1920, Height: 1080},
		Scale:      common.Float2{1, 1},
		Settings:   settings.Defaults(),
		Frame:      130,
	})

	assert.InDelta(t, 0.1, c.DepthUnpackConsts[0], 1e-6)
	assert.InDelta(t, 1.0001, c.DepthUnpackConsts[1], 1e-6)
	assert.InDelta(t, 1, c.CameraTanHalfFOV[0], 1e-6)
	assert.InDelta(t, -0.578, c.CameraTanHalfFOV[1], 1e-3)
	assert.InDelta(t, 2, c.NDCToViewMul[0], 1e-6)
	assert.InDelta(t, -1.156, c.NDCToViewMul[1], 1e-3)
	assert.InDelta(t, -1, c.NDCToViewAdd[0], 1e-6)
	assert.InDelta(t, 0.578, c.NDCToViewAdd[1], 1e-3)

	assert.Equal(t, common.Int2{1920, 1080}, c.ViewportSize)
	assert.InDelta(t, 1.0/1920, c.ViewportPixelSize[0], 1e-9)
	assert.InDelta(t, 2.0/1920, c.NDCToViewMulXPixelSize[0], 1e-9)
	assert.Equal(t, int32(2), c.NoiseIndex)
	assert.Equal(t, RadiusMultiplier, c.RadiusMultiplier)
	assert.Equal(t, DenoiseBlurBeta, c.DenoiseBlurBeta)
	assert.Equal(t, uint32(1), c.EnableGI)
	assert.Equal(t, uint32(2), c.SliceCount)
}

func TestBuildConstantsDynamicResolution(t *testing.T) {
	c := BuildConstants(FrameInputs{
		Projection: testProjection,
		Base:       common.Extent2D{Width: 1921, Height: 1080},
		Scale:      common.Float2{0.5, 0.75},
		Settings:   settings.Defaults(),
	})
	assert.Equal(t, common.Int2{960, 810}, c.ViewportSize)
	assert.InDelta(t, 1.0/960, c.ViewportPixelSize[0], 1e-9)
	assert.InDelta(t, 1.0/810, c.ViewportPixelSize[1], 1e-9)

	zero := BuildConstants(FrameInputs{Projection: testProjection, Base: common.Extent2D{Width: 64, Height: 64}})
	assert.Equal(t, common.Float2{0, 0}, zero.ViewportPixelSize)
}

func TestConstantsMarshalLayout(t *testing.T) {
	s := settings.Defaults()
	s.DebugView = settings.DebugViewGI
	s.AORemap = common.Float2{0.25, 0.75}
	c := BuildConstants(FrameInputs{
		Projection: testProjection,
		Base:       common.Extent2D{Width: 64, Height: 32},
		Scale:      common.Float2{1, 1},
		Settings:   s,
		Frame:      7,
	})
	buf := c.Marshal()

	assert.Equal(t, []byte{64, 0, 0, 0, 32, 0, 0, 0}, buf[0:8])
	assert.Equal(t, []byte{2, 0, 0, 0}, buf[56:60])
	assert.Equal(t, []byte{7, 0, 0, 0}, buf[92:96])
	assert.Equal(t, []byte{2, 0, 0, 0}, buf[148:152])
	assert.Equal(t, make([]byte, 4), buf[132:136])

	got, err := UnmarshalConstants(buf)
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Equal(t, common.Float2{0.25, 0.75}, got.AORemap)

	_, err = UnmarshalConstants(buf[:100])
	assert.Error(t, err)
}

func TestConstantsSourceDeclaresEveryField(t *testing.T) {
	for _, name := range []string{"ViewportSize", "NDCToViewMul_x_PixelSize", "NoiseIndex", "AORemap", "DirectLightAO"} {
		assert.Contains(t, ConstantsSource, name)
	}
}
