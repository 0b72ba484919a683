// package common contains plain value types and helpers shared by the engine packages.
// They are not interface-wrapped structs, just small data types used throughout.
package common

// Float2 is a pair of 32-bit floats, laid out like a WGSL vec2<f32>.
type Float2 [2]float32

// Int2 is a pair of signed 32-bit integers, laid out like a WGSL vec2<i32>.
type Int2 [2]int32

// Extent2D is the pixel size of a 2D texture or viewport.
type Extent2D struct {
	// Width is the horizontal size in pixels.
	Width uint32
	// Height is the vertical size in pixels.
	Height uint32
}

// Scaled applies a per-axis dynamic-resolution scale to the extent. The result is left
// fractional; rounding is the consumer's responsibility.
//
// Parameters:
//   - scale: the per-axis scale factors, each expected in [0, 1]
//
// Returns:
//   - Float2: the scaled width and height
func (e Extent2D) Scaled(scale Float2) Float2 {
	return Float2{float32(e.Width) * scale[0], float32(e.Height) * scale[1]}
}

// Mip returns the extent of the given mip level, never smaller than 1x1.
//
// Parameters:
//   - level: the mip level, 0 being the full-size image
//
// Returns:
//   - Extent2D: the extent of that mip level
func (e Extent2D) Mip(level uint32) Extent2D {
	return Extent2D{Width: MipSize(e.Width, level), Height: MipSize(e.Height, level)}
}
