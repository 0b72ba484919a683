package ssgi

import "embed"

// Names kernels use to inject ConstantsSource with @oxy:include.
const (
	ConstantsInclude  = "ssgi_constants"
	ConstantsTypeName = "SSGIConstants"
)

// ColorFormatSubstitution names the ${COLOR_FORMAT} placeholder kernels use for the storage
// texel format of textures that share the host color target's format.
const ColorFormatSubstitution = "COLOR_FORMAT"

// KernelSources holds one WGSL source per kernel entry point under KernelDir, named
// <Entry>.wgsl.
//
//go:embed assets/kernels/*.wgsl
var KernelSources embed.FS

// KernelDir is the directory of KernelSources that holds the kernel files.
const KernelDir = "assets/kernels"
