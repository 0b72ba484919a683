package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/stretchr/testify/assert"
)

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera()

	assert.InDelta(t, math.Pi/4, c.Fov(), 1e-6)
	assert.Equal(t, float32(1), c.Aspect())
	assert.Equal(t, common.Float2{1, 1}, c.ResolutionScale())
	assert.Equal(t, common.PerspectiveProjection(c.Fov(), 1, 0.1, 100), c.Projection())
}

func TestSettersRecomputeProjection(t *testing.T) {
	c := NewCamera(WithFov(1), WithAspect(2), WithNear(0.5), WithFar(50))
	before := c.Projection()

	c.SetAspect(1.5)
	assert.NotEqual(t, before, c.Projection())
	assert.Equal(t, common.PerspectiveProjection(1, 1.5, 0.5, 50), c.Projection())

	c.SetFov(0.5)
	assert.Equal(t, common.PerspectiveProjection(0.5, 1.5, 0.5, 50), c.Projection())
}

func TestSetClipIgnoresInvalidPlanes(t *testing.T) {
	c := NewCamera(WithNear(1), WithFar(10))

	c.SetClip(0, 5)
	c.SetClip(5, 5)
	assert.Equal(t, float32(1), c.Near())
	assert.Equal(t, float32(10), c.Far())

	c.SetClip(2, 20)
	assert.Equal(t, float32(2), c.Near())
	assert.Equal(t, float32(20), c.Far())
}

func TestFrameContext(t *testing.T) {
	c := NewCamera(WithResolutionScale(0.5, 2))

	fc := c.FrameContext(9)
	assert.Equal(t, uint32(9), fc.FrameID)
	assert.Equal(t, c.Projection(), fc.Projection)
	assert.Equal(t, common.Float2{0.5, 1}, fc.DynamicResScale)

	c.SetResolutionScale(-1, 0.75)
	assert.Equal(t, common.Float2{1, 0.75}, c.FrameContext(10).DynamicResScale)
}
