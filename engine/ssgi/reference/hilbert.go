package reference

import (
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host/software"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
)

// HilbertIndex returns the position of (x, y) along a Hilbert curve filling a size x size
// square. size must be a power of two.
//
// Parameters:
//   - x, y: the cell coordinates, each below size
//   - size: the square's side length
//
// Returns:
//   - uint32: the curve index in [0, size*size)
func HilbertIndex(x, y, size uint32) uint32 {
	var index uint32
	for level := size / 2; level > 0; level /= 2 {
		var rx, ry uint32
		if x&level > 0 {
			rx = 1
		}
		if y&level > 0 {
			ry = 1
		}
		index += level * level * ((3 * rx) ^ ry)
		if ry == 0 {
			if rx == 1 {
				x = size - 1 - x
				y = size - 1 - y
			}
			x, y = y, x
		}
	}
	return index
}

// hilbertLUT writes the curve index of every cell of the dither table.
var hilbertLUT = software.KernelDef{
	GroupSize: [2]uint32{32, 32},
	UAVs:      1,
	Run: func(inv *software.Invocation) {
		if inv.X >= ssgi.HilbertLUTSize || inv.Y >= ssgi.HilbertLUTSize {
			return
		}
		index := HilbertIndex(inv.X, inv.Y, ssgi.HilbertLUTSize)
		inv.Store(0, inv.X, inv.Y, [4]float32{float32(index), 0, 0, 0})
	},
}
