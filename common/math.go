package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Projection is a 4x4 projection matrix indexed as P[row][col] in the row-vector (Direct3D)
// convention, which is the convention the screen-space kernels expect their constants in.
type Projection [4][4]float32

// clipCorrection remaps OpenGL clip-space depth [-1, 1] to the WebGPU/Direct3D [0, 1] range.
var clipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// ProjectionFromMat4 converts a column-vector mathgl matrix into a row-major Projection.
// The row-vector form is the transpose, so P[r][c] is taken from m.At(c, r).
//
// Parameters:
//   - m: the column-major, column-vector projection matrix
//
// Returns:
//   - Projection: the same transform in row-vector convention
func ProjectionFromMat4(m mgl32.Mat4) Projection {
	var p Projection
	for r := range 4 {
		for c := range 4 {
			p[r][c] = m.At(c, r)
		}
	}
	return p
}

// PerspectiveProjection builds a right-handed perspective projection with [0, 1] depth
// and returns it in row-vector convention.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport width divided by height
//   - near: distance to the near clip plane (must be > 0)
//   - far: distance to the far clip plane (must be > near)
//
// Returns:
//   - Projection: the projection matrix
func PerspectiveProjection(fovY, aspect, near, far float32) Projection {
	return ProjectionFromMat4(clipCorrection.Mul4(mgl32.Perspective(fovY, aspect, near, far)))
}

// CeilDiv divides a (possibly fractional) working dimension by a thread group size and rounds
// up, giving the number of groups needed to cover every pixel.
//
// Parameters:
//   - value: the working dimension in pixels
//   - groupSize: the number of threads per group along this axis (must be > 0)
//
// Returns:
//   - uint32: ceil(value / groupSize), or 0 for non-positive values
func CeilDiv(value float32, groupSize uint32) uint32 {
	if value <= 0 || groupSize == 0 {
		return 0
	}
	return uint32(math.Ceil(float64(value) / float64(groupSize)))
}

// DispatchGroups computes the group counts for a 2D dispatch over a working resolution
// with square thread groups. The Z dimension is always 1.
//
// Parameters:
//   - size: the working resolution, width then height
//   - groupSize: the thread group edge length
//
// Returns:
//   - [3]uint32: the group counts as [x, y, 1]
func DispatchGroups(size Float2, groupSize uint32) [3]uint32 {
	return [3]uint32{CeilDiv(size[0], groupSize), CeilDiv(size[1], groupSize), 1}
}

// MipSize returns the size of one axis at the given mip level, clamped to 1.
//
// Parameters:
//   - size: the size of the axis at mip 0
//   - level: the mip level
//
// Returns:
//   - uint32: max(1, size >> level)
func MipSize(size, level uint32) uint32 {
	s := size >> level
	if s == 0 {
		return 1
	}
	return s
}
