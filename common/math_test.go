package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCeilDiv(t *testing.T) {
	cases := []struct {
		value float32
		group uint32
		want  uint32
	}{
		{1920, 32, 60},
		{1921, 32, 61},
		{1080, 16, 68},
		{1079.5, 16, 68},
		{64, 32, 2},
		{0, 32, 0},
		{16, 0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CeilDiv(c.value, c.group), "CeilDiv(%v, %d)", c.value, c.group)
	}
}

func TestDispatchGroupsScaled(t *testing.T) {
	size := Extent2D{Width: 1920, Height: 1080}.Scaled(Float2{0.5, 0.5})
	assert.Equal(t, [3]uint32{30, 17, 1}, DispatchGroups(size, 32))
}

func TestMipSize(t *testing.T) {
	assert.Equal(t, uint32(960), MipSize(1920, 1))
	assert.Equal(t, uint32(1), MipSize(3, 4))
	assert.Equal(t, Extent2D{Width: 120, Height: 67}, Extent2D{Width: 1920, Height: 1080}.Mip(4))
}

func TestProjectionFromMat4Transposes(t *testing.T) {
	m := mgl32.Ident4()
	m.Set(2, 3, -0.5) // column-vector translation of z
	p := ProjectionFromMat4(m)
	assert.Equal(t, float32(-0.5), p[3][2])
	assert.Equal(t, float32(0), p[2][3])
}

func TestPerspectiveProjectionDepthRange(t *testing.T) {
	near, far := float32(1), float32(100)
	p := PerspectiveProjection(mgl32.DegToRad(60), 16.0/9.0, near, far)

	// Row-vector convention: clip = v * P. A point on the near plane maps to depth 0,
	// one on the far plane to depth 1.
	depthAt := func(z float32) float32 {
		cz := z*p[2][2] + p[3][2]
		cw := z*p[2][3] + p[3][3]
		return cz / cw
	}
	assert.InDelta(t, 0, depthAt(-near), 1e-5)
	assert.InDelta(t, 1, depthAt(-far), 1e-5)
	assert.InDelta(t, 1/math.Tan(math.Pi/6), p[1][1], 1e-5)
}
