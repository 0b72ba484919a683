package software

import (
	"github.com/Carmen-Shannon/oxy-ssgi/common"
)

// resolvedView is a view with its texture looked up, captured for the length of a dispatch.
type resolvedView struct {
	tex  *texture
	base uint32
}

// Invocation is the context of one kernel thread: its global thread id and the resources
// bound when the dispatch started.
type Invocation struct {
	X, Y uint32

	constants []byte
	uniform   any
	srvs      []resolvedView
	uavs      []resolvedView
}

// Constants returns the contents of constant buffer slot 0, or nil if unbound.
func (inv *Invocation) Constants() []byte {
	return inv.constants
}

// Uniform returns the value the kernel's Prepare function derived from the constant buffer.
func (inv *Invocation) Uniform() any {
	return inv.uniform
}

// InputSize returns the size of a mip of the view in SRV slot, relative to the view's base mip.
//
// Parameters:
//   - slot: the SRV slot
//   - mip: the mip level within the view
//
// Returns:
//   - common.Extent2D: the mip size, or zero if the slot is empty
func (inv *Invocation) InputSize(slot int, mip uint32) common.Extent2D {
	v := inv.srvs[slot]
	if v.tex == nil {
		return common.Extent2D{}
	}
	return v.tex.extent(v.base + mip)
}

// Load reads a texel from the view in SRV slot with coordinates clamped to the edge.
//
// Parameters:
//   - slot: the SRV slot
//   - mip: the mip level within the view
//   - x, y: the texel coordinates, clamped into range
//
// Returns:
//   - [4]float32: the texel, or zeros if the slot is empty
func (inv *Invocation) Load(slot int, mip uint32, x, y int) [4]float32 {
	v := inv.srvs[slot]
	if v.tex == nil {
		return [4]float32{}
	}
	level := v.base + mip
	if int(level) >= len(v.tex.mips) {
		level = uint32(len(v.tex.mips) - 1)
	}
	ext := v.tex.extent(level)
	x = min(max(x, 0), int(ext.Width)-1)
	y = min(max(y, 0), int(ext.Height)-1)

	i := (y*int(ext.Width) + x) * 4
	px := v.tex.mips[level][i : i+4]
	return [4]float32{px[0], px[1], px[2], px[3]}
}

// OutputSize returns the size of the writable mip of the view in UAV slot.
//
// Parameters:
//   - slot: the UAV slot
//
// Returns:
//   - common.Extent2D: the writable mip's size, or zero if the slot is empty
func (inv *Invocation) OutputSize(slot int) common.Extent2D {
	v := inv.uavs[slot]
	if v.tex == nil {
		return common.Extent2D{}
	}
	return v.tex.extent(v.base)
}

// Store writes a texel to the view in UAV slot. Out-of-range writes are dropped, matching
// GPU storage texture semantics.
//
// Parameters:
//   - slot: the UAV slot
//   - x, y: the texel coordinates
//   - value: the RGBA value to write
func (inv *Invocation) Store(slot int, x, y uint32, value [4]float32) {
	v := inv.uavs[slot]
	if v.tex == nil {
		return
	}
	ext := v.tex.extent(v.base)
	if x >= ext.Width || y >= ext.Height {
		return
	}
	i := (y*ext.Width + x) * 4
	copy(v.tex.mips[v.base][i:i+4], value[:])
}
