package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKernelSource = `
struct Params {
    Size: vec2<i32>,
    Scale: f32,
    Offset: vec2<f32>,
    Count: u32,
};

/* block /* nested */ comment @group(1) @binding(9) var ignored: sampler; */
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(2) var linearClamp: sampler;
@group(0) @binding(3) var depth: texture_2d<f32>; // trailing comment
@group(0) @binding(4) var lut: texture_2d<u32>;
@group(0) @binding(8) var output: texture_storage_2d<rgba16float, write>;

@compute @workgroup_size(16, 8)
fn CSMain(@builtin(global_invocation_id) id: vec3<u32>) {
}
`

func TestParseBindings(t *testing.T) {
	bindings := parseBindings(testKernelSource)
	require.Len(t, bindings, 5)

	cb := bindings[0]
	assert.Equal(t, uint32(0), cb.Binding)
	assert.Equal(t, "params", cb.Name)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, cb.Layout.Buffer.Type)
	assert.Equal(t, uint64(32), cb.Layout.Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageCompute, cb.Layout.Visibility)

	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, bindings[1].Layout.Sampler.Type)

	assert.Equal(t, wgpu.TextureSampleTypeFloat, bindings[2].Layout.Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, bindings[2].Layout.Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeUint, bindings[3].Layout.Texture.SampleType)

	out := bindings[4].Layout.StorageTexture
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, out.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, out.Access)
	assert.Equal(t, wgpu.TextureViewDimension2D, out.ViewDimension)
}

func TestBindGroupLayoutsGroupByIndex(t *testing.T) {
	layouts := bindGroupLayouts(parseBindings(testKernelSource))
	require.Len(t, layouts, 1)
	assert.Len(t, layouts[0].Entries, 5)
}

func TestParseWorkgroupSizeAndEntry(t *testing.T) {
	assert.Equal(t, [3]uint32{16, 8, 1}, parseWorkgroupSize(testKernelSource))
	assert.Equal(t, [3]uint32{1, 1, 1}, parseWorkgroupSize("fn f() {}"))
	assert.Equal(t, []string{"CSMain"}, parseComputeEntryPoints(testKernelSource))
}

func TestComputeStructSizesNested(t *testing.T) {
	structs := parseStructBlocks(stripComments(`
struct Inner { A: vec3<f32>, };
struct Outer { B: f32, C: Inner, D: array<f32, 3>, };
`))
	sizes := computeStructSizes(structs)
	assert.Equal(t, wgslTypeLayout{16, 16}, sizes["Inner"])
	assert.Equal(t, wgslTypeLayout{48, 16}, sizes["Outer"])
}

func TestStripComments(t *testing.T) {
	assert.Equal(t, "a \nb", stripComments("a // x\nb"))
	assert.Equal(t, "ab", stripComments("a/* x /* y */ z */b"))
}
