package reference

import (
	"math"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/host/software"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/settings"
	"github.com/go-gl/mathgl/mgl32"
)

// denoise is a 3x3 blur whose neighbor weights fall off across depth edges. The last pass
// also clamps visibility into [0, 1].
func denoise(last bool) software.KernelDef {
	return software.KernelDef{
		GroupSize: [2]uint32{16, 16},
		SRVs:      2,
		UAVs:      1,
		Prepare:   prepareConstants,
		Run: func(inv *software.Invocation) {
			c := constantsOf(inv)
			if !inViewport(inv, c) {
				return
			}
			x, y := int(inv.X), int(inv.Y)
			edge := load(inv, 1, 0, x, y)[0]

			var sum mgl32.Vec4
			var total float32
			for j := -1; j <= 1; j++ {
				for i := -1; i <= 1; i++ {
					w := float32(1)
					if i != 0 || j != 0 {
						ne := load(inv, 1, 0, x+i, y+j)[0]
						w = float32(math.Pow(float64(min(edge, ne)), float64(c.DenoiseBlurBeta)))
					}
					sum = sum.Add(load(inv, 0, 0, x+i, y+j).Mul(w))
					total += w
				}
			}
			out := sum.Mul(1 / total)
			if last {
				out[3] = saturate(out[3])
			}
			store(inv, 0, inv.X, inv.Y, out)
		},
	}
}

// Slots of the mix.
const (
	mixColor = iota
	mixGI
	mixAmbient
)

// mix shapes visibility through remap, power and clamp, removes the occluded share of the
// ambient light, adds the indirect bounce and darkens direct light by DirectLightAO. Debug
// views replace the result with an intermediate term.
var mix = software.KernelDef{
	GroupSize: [2]uint32{32, 32},
	SRVs:      3,
	UAVs:      1,
	Prepare:   prepareConstants,
	Run: func(inv *software.Invocation) {
		c := constantsOf(inv)
		if !inViewport(inv, c) {
			return
		}
		x, y := int(inv.X), int(inv.Y)

		color := load(inv, mixColor, 0, x, y)
		gi := load(inv, mixGI, 0, x, y)
		ambient := load(inv, mixAmbient, 0, x, y).Vec3()

		ao := ShapeVisibility(gi[3], c.AORemap, c.AOPower, c.AOClamp)
		bounce := gi.Vec3().Mul(c.GIStrength)

		var out mgl32.Vec3
		switch settings.DebugView(c.DebugView) {
		case settings.DebugViewAO:
			out = mgl32.Vec3{ao, ao, ao}
		case settings.DebugViewGI:
			out = bounce
		case settings.DebugViewAOGI:
			out = bounce.Add(mgl32.Vec3{ao, ao, ao})
		default:
			lit := color.Vec3().Sub(ambient.Mul(1 - ao))
			if c.EnableGI != 0 {
				lit = lit.Add(bounce)
			}
			out = lit.Mul(1 - c.DirectLightAO*(1-ao))
		}
		for i := range out {
			out[i] = max(out[i], 0)
		}
		store(inv, 0, inv.X, inv.Y, out.Vec4(color[3]))
	},
}

// ShapeVisibility applies the mix stage's visibility curve: remap into [remap.x, remap.y],
// raise to power, then clamp into [clamp.x, clamp.y].
//
// Parameters:
//   - v: raw visibility, saturated before shaping
//   - remap: the output range of the remap
//   - power: the exponent
//   - clamp: the final bounds
//
// Returns:
//   - float32: the shaped visibility
func ShapeVisibility(v float32, remap [2]float32, power float32, clamp [2]float32) float32 {
	v = saturate(v)
	v = remap[0] + (remap[1]-remap[0])*v
	v = float32(math.Pow(float64(max(v, 0)), float64(power)))
	return mgl32.Clamp(v, clamp[0], clamp[1])
}
