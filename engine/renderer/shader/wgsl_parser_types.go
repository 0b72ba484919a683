package shader

import "github.com/cogentcore/webgpu/wgpu"

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
// Used to compute MinBindingSize for buffer bindings.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// Binding describes one resource a kernel declares.
type Binding struct {
	// Group is the @group index.
	Group int

	// Binding is the @binding index.
	Binding uint32

	// Name is the WGSL variable name.
	Name string

	// Type is the declared WGSL type, e.g. "texture_2d<f32>".
	Type string

	// Layout is the bind group layout entry derived from the declaration.
	Layout wgpu.BindGroupLayoutEntry
}
