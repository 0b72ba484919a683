package reference

import (
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host/software"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
	"github.com/go-gl/mathgl/mgl32"
)

// prefilterDepths linearizes the host depth into the working depth chain. Each thread owns a
// 2x2 block of mip 0 and one texel of mip 1; every deeper mip texel is written by the thread at
// the top-left of its footprint, averaging the source block directly so no thread reads
// another thread's output.
var prefilterDepths = software.KernelDef{
	GroupSize: [2]uint32{8, 8},
	SRVs:      1,
	UAVs:      ssgi.WorkingDepthMips,
	Prepare:   prepareConstants,
	Run: func(inv *software.Invocation) {
		c := constantsOf(inv)
		x0, y0 := int(inv.X)*2, int(inv.Y)*2
		if int32(x0) >= c.ViewportSize[0] || int32(y0) >= c.ViewportSize[1] {
			return
		}

		for j := range 2 {
			for i := range 2 {
				z := viewDepth(c, inv.Load(0, 0, x0+i, y0+j)[0])
				inv.Store(0, uint32(x0+i), uint32(y0+j), [4]float32{z, 0, 0, 0})
			}
		}

		for level := uint32(1); level < ssgi.WorkingDepthMips; level++ {
			span := uint32(1) << (level - 1)
			if inv.X%span != 0 || inv.Y%span != 0 {
				break
			}
			block := 1 << level
			var sum float32
			for j := range block {
				for i := range block {
					sum += viewDepth(c, inv.Load(0, 0, x0+i, y0+j)[0])
				}
			}
			avg := sum / float32(block*block)
			inv.Store(int(level), inv.X/span, inv.Y/span, mgl32.Vec4{avg, 0, 0, 0})
		}
	},
}
