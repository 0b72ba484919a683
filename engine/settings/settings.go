// Package settings holds the tunable parameters of the screen-space GI effect, their
// defaults and documented ranges, and the store that persists and hot-reloads them.
package settings

import "github.com/Carmen-Shannon/oxy-ssgi/common"

// SchemaVersion identifies the extended, GI-capable settings schema.
// Version 1 documents are the reduced AO-only schema.
const SchemaVersion = 2

// DebugView selects which intermediate term the mix kernel outputs instead of the composited color.
type DebugView uint32

const (
	// DebugViewNone outputs the composited color.
	DebugViewNone DebugView = iota

	// DebugViewAO outputs the ambient occlusion term.
	DebugViewAO

	// DebugViewGI outputs the indirect lighting term.
	DebugViewGI

	// DebugViewAOGI outputs occlusion and indirect lighting combined.
	DebugViewAOGI
)

// String returns the label used by settings editors.
func (d DebugView) String() string {
	switch d {
	case DebugViewNone:
		return "None"
	case DebugViewAO:
		return "AO"
	case DebugViewGI:
		return "GI"
	case DebugViewAOGI:
		return "AO + GI"
	default:
		return "Unknown"
	}
}

// EffectSettings is the flat record of effect tunables. Field names are the persisted names.
type EffectSettings struct {
	Enabled       bool
	EnableGI      bool
	UseBitmask    bool
	CheckBackface bool

	SliceCount    uint32
	StepsPerSlice uint32

	// visual
	EffectRadius             float32
	EffectFalloffRange       float32
	SampleDistributionPower  float32
	ThinOccluderCompensation float32
	DepthMIPSamplingOffset   float32

	// bitmask
	Thickness float32

	// gi
	AmbientSource          float32
	BackfaceStrength       float32
	GIBounceFade           float32
	GIDistanceCompensation float32
	GICompensationMaxDist  float32

	// mix
	AOClamp       common.Float2
	AOPower       float32
	AORemap       common.Float2
	DirectLightAO float32
	GIStrength    float32

	DenoisePasses uint32
	DebugView     DebugView
}

// Defaults returns the documented default settings.
//
// Returns:
//   - EffectSettings: a settings record with every field at its default
func Defaults() EffectSettings {
	return EffectSettings{
		Enabled:       true,
		EnableGI:      true,
		UseBitmask:    true,
		CheckBackface: true,

		SliceCount:    2,
		StepsPerSlice: 6,

		EffectRadius:             400,
		EffectFalloffRange:       .615,
		SampleDistributionPower:  2,
		ThinOccluderCompensation: 0,
		DepthMIPSamplingOffset:   3.3,

		Thickness: 50,

		AmbientSource:          0.2,
		BackfaceStrength:       0.1,
		GIBounceFade:           0.5,
		GIDistanceCompensation: 2,
		GICompensationMaxDist:  300,

		AOClamp:       common.Float2{0.03, 1},
		AOPower:       2.2,
		AORemap:       common.Float2{0.03, 1},
		DirectLightAO: 0.1,
		GIStrength:    1,

		DenoisePasses: 0,
		DebugView:     DebugViewNone,
	}
}

// Range is the inclusive valid interval of a numeric setting.
type Range struct {
	Min, Max float32
}

// Ranges lists the valid interval of every numeric setting, keyed by persisted field name.
// The settings editor enforces these; the pipeline tolerates any value inside them.
var Ranges = map[string]Range{
	"SliceCount":               {1, 20},
	"StepsPerSlice":            {1, 10},
	"EffectRadius":             {10, 500},
	"EffectFalloffRange":       {0, 1},
	"SampleDistributionPower":  {1, 3},
	"ThinOccluderCompensation": {0, 0.7},
	"DepthMIPSamplingOffset":   {2, 6},
	"Thickness":                {0, 100},
	"AmbientSource":            {0, 1},
	"BackfaceStrength":         {0, 1},
	"GIBounceFade":             {0, 1},
	"GIDistanceCompensation":   {0, 9},
	"GICompensationMaxDist":    {10, 1000},
	"AOClamp":                  {0, 1},
	"AOPower":                  {0.5, 5},
	"AORemap":                  {0, 1},
	"DirectLightAO":            {0, 1},
	"GIStrength":               {0, 5},
	"DenoisePasses":            {0, 3},
	"DebugView":                {0, 3},
}

// Clamp returns a copy of the settings with every numeric field forced into its range.
// Collaborators that accept settings from outside the editor use it before storing them.
//
// Returns:
//   - EffectSettings: the clamped copy
func (s EffectSettings) Clamp() EffectSettings {
	f := func(name string, v float32) float32 {
		r := Ranges[name]
		return min(max(v, r.Min), r.Max)
	}
	u := func(name string, v uint32) uint32 {
		return uint32(f(name, float32(v)))
	}

	s.SliceCount = u("SliceCount", s.SliceCount)
	s.StepsPerSlice = u("StepsPerSlice", s.StepsPerSlice)
	s.EffectRadius = f("EffectRadius", s.EffectRadius)
	s.EffectFalloffRange = f("EffectFalloffRange", s.EffectFalloffRange)
	s.SampleDistributionPower = f("SampleDistributionPower", s.SampleDistributionPower)
	s.ThinOccluderCompensation = f("ThinOccluderCompensation", s.ThinOccluderCompensation)
	s.DepthMIPSamplingOffset = f("DepthMIPSamplingOffset", s.DepthMIPSamplingOffset)
	s.Thickness = f("Thickness", s.Thickness)
	s.AmbientSource = f("AmbientSource", s.AmbientSource)
	s.BackfaceStrength = f("BackfaceStrength", s.BackfaceStrength)
	s.GIBounceFade = f("GIBounceFade", s.GIBounceFade)
	s.GIDistanceCompensation = f("GIDistanceCompensation", s.GIDistanceCompensation)
	s.GICompensationMaxDist = f("GICompensationMaxDist", s.GICompensationMaxDist)
	for i := range 2 {
		s.AOClamp[i] = f("AOClamp", s.AOClamp[i])
		s.AORemap[i] = f("AORemap", s.AORemap[i])
	}
	s.AOPower = f("AOPower", s.AOPower)
	s.DirectLightAO = f("DirectLightAO", s.DirectLightAO)
	s.GIStrength = f("GIStrength", s.GIStrength)
	s.DenoisePasses = u("DenoisePasses", s.DenoisePasses)
	s.DebugView = DebugView(u("DebugView", uint32(s.DebugView)))
	return s
}
