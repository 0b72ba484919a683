package reference

import (
	"math"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/host/software"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
	"github.com/go-gl/mathgl/mgl32"
)

// Slots of the radiance fetch.
const (
	radianceColor = iota
	radianceAmbient
	radiancePrevGI
	radianceMotion
)

// fetchRadiance builds the light each pixel can bounce: the lit color plus a share of the
// ambient term, plus the previous frame's bounce reprojected through the motion vectors.
var fetchRadiance = software.KernelDef{
	GroupSize: [2]uint32{32, 32},
	SRVs:      4,
	UAVs:      1,
	Prepare:   prepareConstants,
	Run: func(inv *software.Invocation) {
		c := constantsOf(inv)
		if !inViewport(inv, c) {
			return
		}
		x, y := int(inv.X), int(inv.Y)

		color := load(inv, radianceColor, 0, x, y).Vec3()
		ambient := load(inv, radianceAmbient, 0, x, y).Vec3()
		radiance := color.Add(ambient.Mul(c.AmbientSource))

		if c.EnableGI != 0 {
			motion := load(inv, radianceMotion, 0, x, y)
			px := x - int(motion[0]*float32(c.ViewportSize[0]))
			py := y - int(motion[1]*float32(c.ViewportSize[1]))
			prev := load(inv, radiancePrevGI, 0, px, py).Vec3()
			radiance = radiance.Add(prev.Mul(c.GIBounceFade))
		}
		store(inv, 0, inv.X, inv.Y, radiance.Vec4(1))
	},
}

// Slots of the main estimation.
const (
	estimateDepth = iota
	estimateNormal
	estimateLUT
	estimateAlbedo
	estimateRadiance
)

const (
	estimateOutGI = iota
	estimateOutEdge
)

// estimate marches SliceCount screen-space directions from each pixel and counts the samples
// that sit in front of it as occluders. Falloff weighs occluders by distance against
// EffectRadius; bitmask treats anything closer than Thickness as a solid occluder. Occluders
// that face the pixel contribute their radiance as indirect light. The alpha channel holds
// visibility and the edge output holds depth continuity to the four neighbors.
func estimate(variant ssgi.Variant) software.KernelDef {
	return software.KernelDef{
		GroupSize: [2]uint32{32, 32},
		SRVs:      5,
		UAVs:      2,
		Prepare:   prepareConstants,
		Run: func(inv *software.Invocation) {
			c := constantsOf(inv)
			if !inViewport(inv, c) {
				return
			}
			x, y := int(inv.X), int(inv.Y)
			z := load(inv, estimateDepth, 0, x, y)[0]

			store(inv, estimateOutEdge, inv.X, inv.Y, mgl32.Vec4{edges(inv, x, y, z), 0, 0, 0})

			slices := max(c.SliceCount, 1)
			steps := max(c.StepsPerSlice, 1)
			radius := projectedRadius(c, z)

			lut := load(inv, estimateLUT, 0, x%int(ssgi.HilbertLUTSize), y%int(ssgi.HilbertLUTSize))[0]
			noise := fract(lut*0.6180339887 + float32(c.NoiseIndex)*0.7548776662)
			normal := load(inv, estimateNormal, 0, x, y).Vec3()

			var occlusion, samples float32
			var bounce mgl32.Vec3
			for s := range slices {
				angle := math.Pi * (float64(s) + float64(noise)) / float64(slices)
				dir := mgl32.Vec2{float32(math.Cos(angle)), float32(math.Sin(angle))}
				for _, side := range [2]float32{1, -1} {
					for step := range steps {
						t := float32(math.Pow(float64(step+1)/float64(steps), float64(c.SampleDistributionPower))) * radius
						sx := x + int(dir[0]*side*t)
						sy := y + int(dir[1]*side*t)
						mip := uint32(mgl32.Clamp(float32(math.Log2(float64(max(t, 1))))-c.DepthMIPSamplingOffset, 0, ssgi.WorkingDepthMips-1))
						sz := load(inv, estimateDepth, mip, sx>>mip, sy>>mip)[0]

						w := occluderWeight(variant, c, z, sz)
						samples++
						if w == 0 {
							continue
						}
						occlusion += w

						if c.EnableGI == 0 {
							continue
						}
						facing := normal[0]*dir[0]*side + normal[1]*dir[1]*side
						if c.CheckBackface != 0 && facing < 0 {
							w *= c.BackfaceStrength
						}
						if c.GICompensationMaxDist > 0 {
							w *= 1 + c.GIDistanceCompensation*saturate((z-sz)/c.GICompensationMaxDist)
						}
						radiance := load(inv, estimateRadiance, mip, sx>>mip, sy>>mip).Vec3()
						bounce = bounce.Add(radiance.Mul(w))
					}
				}
			}

			visibility := float32(1)
			if samples > 0 {
				visibility = saturate(1 - occlusion/samples)
				bounce = bounce.Mul(1 / samples)
			}
			albedo := load(inv, estimateAlbedo, 0, x, y).Vec3()
			gi := mgl32.Vec3{bounce[0] * albedo[0], bounce[1] * albedo[1], bounce[2] * albedo[2]}
			store(inv, estimateOutGI, inv.X, inv.Y, gi.Vec4(visibility))
		},
	}
}

// occluderWeight scores a sample at depth sz against the pixel at depth z. Samples within a
// relative epsilon of the pixel's depth lie on the same surface.
func occluderWeight(variant ssgi.Variant, c ssgi.Constants, z, sz float32) float32 {
	delta := z - sz
	if delta <= z*1e-4 {
		return 0
	}
	if variant == ssgi.VariantBitmask {
		if delta <= c.Thickness {
			return 1
		}
		return 0
	}
	falloff := c.EffectRadius * c.EffectFalloffRange
	if falloff <= 0 {
		if delta <= c.EffectRadius {
			return 1
		}
		return 0
	}
	return saturate((c.EffectRadius - delta) / falloff)
}

// projectedRadius converts EffectRadius at view depth z into pixels.
func projectedRadius(c ssgi.Constants, z float32) float32 {
	tan := mgl32.Abs(c.CameraTanHalfFOV[1])
	if z <= 0 || tan == 0 {
		return 1
	}
	px := c.EffectRadius * c.RadiusMultiplier * 0.5 * float32(c.ViewportSize[1]) / (z * tan)
	return mgl32.Clamp(px, 1, 64)
}

// edges returns 1 where the depth is continuous with all four neighbors, falling to 0 across
// depth discontinuities.
func edges(inv *software.Invocation, x, y int, z float32) float32 {
	if z <= 0 {
		return 1
	}
	var worst float32
	for _, o := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		n := load(inv, estimateDepth, 0, x+o[0], y+o[1])[0]
		worst = max(worst, mgl32.Abs(n-z))
	}
	return saturate(1 - worst/(0.1*z))
}

func fract(v float32) float32 {
	return v - float32(math.Floor(float64(v)))
}
