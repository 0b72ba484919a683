package ssgi

import (
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/settings"
)

// Kernel entry points. The LUT entry keeps the spelling the kernel sources export.
const (
	EntryHilbertLUT      = "CSGenerateHibertLUT"
	EntryPrefilterDepths = "CSPrefilterDepths16x16"
	EntryFetchRadiance   = "CSFetchRadiance"
	EntryGTAO            = "CSGTAO"
	EntryDenoisePass     = "CSDenoisePass"
	EntryDenoiseLastPass = "CSDenoiseLastPass"
	EntryMix             = "CSMix"
	DefineBitmask        = "SSGI_USE_BITMASK"
)

// HilbertLUTSize is the width and height of the dither table.
const HilbertLUTSize uint32 = 64

// Dispatch group sizes in pixels per axis.
const (
	GroupSizePrefilter uint32 = 16
	GroupSizeRadiance  uint32 = 32
	GroupSizeGTAO      uint32 = 32
	GroupSizeDenoise   uint32 = 16
	GroupSizeMix       uint32 = 32
)

// HilbertLUTGroups is the fixed dispatch that covers the 64x64 dither table.
var HilbertLUTGroups = [3]uint32{2, 2, 1}

// Kernel descriptors for every compute kernel the effect acquires.
var (
	KernelHilbertLUT      = host.KernelDesc{Entry: EntryHilbertLUT}
	KernelPrefilterDepths = host.KernelDesc{Entry: EntryPrefilterDepths}
	KernelFetchRadiance   = host.KernelDesc{Entry: EntryFetchRadiance}
	KernelGTAO            = host.KernelDesc{Entry: EntryGTAO}
	KernelGTAOBitmask     = host.KernelDesc{Entry: EntryGTAO, Defines: []string{DefineBitmask}}
	KernelDenoisePass     = host.KernelDesc{Entry: EntryDenoisePass}
	KernelDenoiseLastPass = host.KernelDesc{Entry: EntryDenoiseLastPass}
	KernelMix             = host.KernelDesc{Entry: EntryMix}
)

// Kernels lists every kernel in acquisition order.
//
// Returns:
//   - []host.KernelDesc: the kernel descriptors
func Kernels() []host.KernelDesc {
	return []host.KernelDesc{
		KernelHilbertLUT,
		KernelPrefilterDepths,
		KernelFetchRadiance,
		KernelGTAO,
		KernelGTAOBitmask,
		KernelDenoisePass,
		KernelDenoiseLastPass,
		KernelMix,
	}
}

// Variant is the main estimation algorithm, chosen once per frame from the settings.
type Variant int

const (
	// VariantFalloff is horizon-based occlusion with a distance falloff.
	VariantFalloff Variant = iota

	// VariantBitmask is visibility-bitmask occlusion with a thickness heuristic.
	VariantBitmask
)

// VariantFor picks the estimation variant for a settings snapshot.
//
// Parameters:
//   - s: the settings snapshot
//
// Returns:
//   - Variant: VariantBitmask if UseBitmask is set, VariantFalloff otherwise
func VariantFor(s settings.EffectSettings) Variant {
	if s.UseBitmask {
		return VariantBitmask
	}
	return VariantFalloff
}

// Kernel returns the estimation kernel for the variant.
func (v Variant) Kernel() host.KernelDesc {
	if v == VariantBitmask {
		return KernelGTAOBitmask
	}
	return KernelGTAO
}

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantFalloff:
		return "Falloff"
	case VariantBitmask:
		return "Bitmask"
	default:
		return "Unknown"
	}
}
