package renderer

import (
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blurKernelSource = `struct Params {
    texel: vec4<f32>,
}
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var blurSampler: sampler;
@group(0) @binding(3) var srcTexture: texture_2d<f32>;
@group(0) @binding(8) var dstTexture: texture_storage_2d<rgba16float, write>;

@compute @workgroup_size(8, 8)
fn CSBlur(@builtin(global_invocation_id) id: vec3<u32>) {
}
`

type fakeObject struct {
	label    string
	base     uint32
	count    uint32
	released bool
}

func (o *fakeObject) Release() {
	o.released = true
}

type fakeDispatch struct {
	pipeline  gpuObject
	resources []boundResource
	groups    [3]uint32
}

type fakeCopy struct {
	dst, src       gpuObject
	dstMip, srcMip uint32
	width, height  uint32
}

type fakeBackend struct {
	objects   []*fakeObject
	pipelines [][]wgpu.BindGroupLayoutEntry
	dispatch  []fakeDispatch
	copies    []fakeCopy
	writes    [][]byte
	mips      int
	flushes   int
	released  bool
}

func (b *fakeBackend) object(label string) *fakeObject {
	o := &fakeObject{label: label}
	b.objects = append(b.objects, o)
	return o
}

func (b *fakeBackend) CreateTexture(desc host.TextureDesc, _ formatInfo) (gpuObject, error) {
	return b.object(desc.Label), nil
}

func (b *fakeBackend) CreateView(_ gpuObject, _ formatInfo, base, count uint32, label string) (gpuObject, error) {
	o := b.object(label)
	o.base, o.count = base, count
	return o, nil
}

func (b *fakeBackend) CreateSampler(desc host.SamplerDesc) (gpuObject, error) {
	return b.object(desc.Label), nil
}

func (b *fakeBackend) CreateBuffer(desc host.BufferDesc) (gpuObject, error) {
	return b.object(desc.Label), nil
}

func (b *fakeBackend) CreatePipeline(k shader.Kernel, entries []wgpu.BindGroupLayoutEntry) (gpuObject, error) {
	b.pipelines = append(b.pipelines, entries)
	return b.object(k.Key()), nil
}

func (b *fakeBackend) WriteBuffer(_ gpuObject, data []byte) error {
	b.writes = append(b.writes, data)
	return nil
}

func (b *fakeBackend) Dispatch(pipeline gpuObject, resources []boundResource, groups [3]uint32) error {
	b.dispatch = append(b.dispatch, fakeDispatch{pipeline, resources, groups})
	return nil
}

func (b *fakeBackend) CopyTexture(dst gpuObject, dstMip uint32, src gpuObject, srcMip uint32, width, height uint32) error {
	b.copies = append(b.copies, fakeCopy{dst, src, dstMip, srcMip, width, height})
	return nil
}

func (b *fakeBackend) GenerateMips(gpuObject, host.TextureDesc, formatInfo) error {
	b.mips++
	return nil
}

func (b *fakeBackend) Flush() error {
	b.flushes++
	return nil
}

func (b *fakeBackend) Release() {
	b.released = true
}

type fixture struct {
	backend *fakeBackend
	device  *device
	kernel  host.KernelID
	buffer  host.BufferID
	src     host.TextureID
	srcView host.ViewID
	dst     host.TextureID
	dstView host.ViewID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lib := shader.NewKernelLibrary(fstest.MapFS{
		"CSBlur.wgsl": {Data: []byte(blurKernelSource)},
	})
	f := &fixture{backend: &fakeBackend{}}
	f.device = NewDevice(withBackend(f.backend), WithKernelLibrary(lib), WithLabel("Test")).(*device)

	var err error
	f.kernel, err = f.device.AcquireKernel(host.KernelDesc{Entry: "CSBlur"})
	require.NoError(t, err)
	f.buffer, err = f.device.CreateBuffer(host.BufferDesc{Label: "Params", Size: 16})
	require.NoError(t, err)
	f.src, f.srcView = f.texture(t, "Source", gputypes.TextureFormatRGBA16Float, 1)
	f.dst, f.dstView = f.texture(t, "Destination", gputypes.TextureFormatRGBA16Float, 1)
	return f
}

func (f *fixture) texture(t *testing.T, label string, format gputypes.TextureFormat, mips uint32) (host.TextureID, host.ViewID) {
	t.Helper()
	tex, err := f.device.CreateTexture(host.TextureDesc{Label: label, Width: 8, Height: 4, MipLevels: mips, Format: format})
	require.NoError(t, err)
	view, err := f.device.CreateView(tex, host.ViewDesc{Label: label + " View"})
	require.NoError(t, err)
	return tex, view
}

func (f *fixture) sampler(t *testing.T, filter gputypes.FilterMode) host.SamplerID {
	t.Helper()
	s, err := f.device.CreateSampler(host.SamplerDesc{Label: "Sampler", Filter: filter})
	require.NoError(t, err)
	return s
}

func (f *fixture) bind(srv, uav host.ViewID, smp host.SamplerID) {
	f.device.SetKernel(f.kernel)
	f.device.SetConstantBuffers(0, []host.BufferID{f.buffer})
	f.device.SetSamplers(0, []host.SamplerID{smp})
	f.device.SetShaderResources(0, []host.ViewID{srv})
	f.device.SetUnorderedAccessViews(0, []host.ViewID{uav})
}

func TestDispatchCachesPipelinePerSignature(t *testing.T) {
	f := newFixture(t)
	linear := f.sampler(t, gputypes.FilterModeLinear)

	f.bind(f.srcView, f.dstView, linear)
	require.NoError(t, f.device.Dispatch(1, 2, 1))
	require.NoError(t, f.device.Dispatch(3, 4, 1))
	require.Len(t, f.backend.pipelines, 1)
	require.Len(t, f.backend.dispatch, 2)
	assert.Equal(t, [3]uint32{3, 4, 1}, f.backend.dispatch[1].groups)

	entries := f.backend.pipelines[0]
	require.Len(t, entries, 4)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[1].Sampler.Type)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, entries[2].Texture.SampleType)

	resources := f.backend.dispatch[0].resources
	require.Len(t, resources, 4)
	assert.Equal(t, []uint32{0, 1, 3, 8}, []uint32{resources[0].Binding, resources[1].Binding, resources[2].Binding, resources[3].Binding})

	point := f.sampler(t, gputypes.FilterModeNearest)
	_, depthView := f.texture(t, "Depth", gputypes.TextureFormatR32Float, 1)
	f.bind(depthView, f.dstView, point)
	require.NoError(t, f.device.Dispatch(1, 1, 1))
	require.Len(t, f.backend.pipelines, 2)
	entries = f.backend.pipelines[1]
	assert.Equal(t, wgpu.SamplerBindingTypeNonFiltering, entries[1].Sampler.Type)
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, entries[2].Texture.SampleType)
}

func TestDispatchValidation(t *testing.T) {
	f := newFixture(t)
	linear := f.sampler(t, gputypes.FilterModeLinear)

	assert.ErrorIs(t, f.device.Dispatch(1, 1, 1), host.ErrNoKernel)

	f.bind(f.srcView, f.dstView, linear)
	f.device.SetShaderResources(0, []host.ViewID{host.InvalidID})
	assert.ErrorContains(t, f.device.Dispatch(1, 1, 1), "SRV slot 0 unbound")

	f.bind(f.dstView, f.dstView, linear)
	assert.ErrorContains(t, f.device.Dispatch(1, 1, 1), "bound for read and write")

	_, wrongFormat := f.texture(t, "Edge", gputypes.TextureFormatR32Float, 1)
	f.bind(f.srcView, wrongFormat, linear)
	assert.ErrorContains(t, f.device.Dispatch(1, 1, 1), "different format")

	f.bind(f.srcView, f.dstView, linear)
	f.device.SetSamplers(0, []host.SamplerID{host.SamplerID(9999)})
	assert.ErrorIs(t, f.device.Dispatch(1, 1, 1), host.ErrUnknownHandle)

	assert.Empty(t, f.backend.dispatch)
}

func TestDispatchWritesFirstMipOfMultiMipView(t *testing.T) {
	f := newFixture(t)
	linear := f.sampler(t, gputypes.FilterModeLinear)
	_, radiance := f.texture(t, "Radiance", gputypes.TextureFormatRGBA16Float, 3)

	f.bind(f.srcView, radiance, linear)
	require.NoError(t, f.device.Dispatch(1, 1, 1))
	require.NoError(t, f.device.Dispatch(1, 1, 1))

	first := f.backend.dispatch[0].resources[3].Object.(*fakeObject)
	second := f.backend.dispatch[1].resources[3].Object.(*fakeObject)
	assert.Same(t, first, second)
	assert.Equal(t, uint32(0), first.base)
	assert.Equal(t, uint32(1), first.count)

	f.device.ReleaseView(radiance)
	assert.True(t, first.released)
}

func TestAcquireKernelErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.device.AcquireKernel(host.KernelDesc{Entry: "CSMissing"})
	assert.ErrorIs(t, err, shader.ErrKernelNotFound)

	bare := NewDevice(withBackend(&fakeBackend{}))
	_, err = bare.AcquireKernel(host.KernelDesc{Entry: "CSBlur"})
	assert.ErrorIs(t, err, ErrNoKernelLibrary)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.device.CreateTexture(host.TextureDesc{Label: "Empty", Format: gputypes.TextureFormatR32Float})
	assert.Error(t, err)
	_, err = f.device.CreateTexture(host.TextureDesc{Label: "Depth24", Width: 4, Height: 4, Format: gputypes.TextureFormatDepth24PlusStencil8})
	assert.ErrorIs(t, err, host.ErrUnsupported)

	_, err = f.device.CreateView(host.TextureID(9999), host.ViewDesc{})
	assert.ErrorIs(t, err, host.ErrUnknownHandle)
	_, err = f.device.CreateView(f.src, host.ViewDesc{BaseMip: 1})
	assert.Error(t, err)

	_, err = f.device.CreateBuffer(host.BufferDesc{Label: "Zero"})
	assert.Error(t, err)

	assert.Error(t, f.device.WriteBuffer(f.buffer, make([]byte, 32)))
	require.NoError(t, f.device.WriteBuffer(f.buffer, make([]byte, 16)))
	assert.Len(t, f.backend.writes, 1)
}

func TestCopies(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.device.CopyResource(f.dst, f.src))
	require.Len(t, f.backend.copies, 1)
	assert.Equal(t, uint32(8), f.backend.copies[0].width)
	assert.Equal(t, uint32(4), f.backend.copies[0].height)

	mipped, _ := f.texture(t, "Mipped", gputypes.TextureFormatRGBA16Float, 2)
	assert.Error(t, f.device.CopyResource(mipped, f.src))
	require.NoError(t, f.device.CopySubresourceRegion(mipped, 0, f.src, 0))
	assert.Error(t, f.device.CopySubresourceRegion(mipped, 1, f.src, 0))
	assert.Error(t, f.device.CopySubresourceRegion(mipped, 2, f.src, 0))
	assert.ErrorIs(t, f.device.CopyResource(host.TextureID(9999), f.src), host.ErrUnknownHandle)
}

func TestGenerateMips(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.device.GenerateMips(f.src))
	assert.Zero(t, f.backend.mips)

	mipped, _ := f.texture(t, "Radiance", gputypes.TextureFormatRGBA16Float, 3)
	require.NoError(t, f.device.GenerateMips(mipped))
	assert.Equal(t, 1, f.backend.mips)

	lut, _ := f.texture(t, "LUT", gputypes.TextureFormatR32Uint, 2)
	assert.ErrorIs(t, f.device.GenerateMips(lut), host.ErrUnsupported)
}

func TestRegisteredTargetsSurviveRelease(t *testing.T) {
	f := newFixture(t)
	external := &fakeObject{label: "Host Color"}

	target, err := f.device.registerTarget(host.RenderTargetColor, external, host.TextureDesc{
		Label: "Host Color", Width: 8, Height: 4, Format: gputypes.TextureFormatRGBA16Float,
	})
	require.NoError(t, err)

	got, ok := f.device.Target(host.RenderTargetColor)
	require.True(t, ok)
	assert.Equal(t, target, got)

	f.device.SetBoundRenderTarget(0, host.RenderTargetColor)
	rt, ok := f.device.BoundRenderTarget(0)
	require.True(t, ok)
	assert.Equal(t, host.RenderTargetColor, rt)
	f.device.ClearBoundRenderTargets()
	_, ok = f.device.BoundRenderTarget(0)
	assert.False(t, ok)

	f.device.ReleaseTexture(target.Texture)
	f.device.ReleaseView(target.View)
	assert.False(t, external.released)

	require.NoError(t, f.device.Flush())
	assert.Equal(t, 1, f.backend.flushes)

	f.device.Release()
	f.device.Release()
	assert.False(t, external.released)
	assert.True(t, f.backend.released)
	for _, o := range f.backend.objects {
		assert.True(t, o.released, o.label)
	}
}

func TestStorageTexelFormat(t *testing.T) {
	texel, err := StorageTexelFormat(gputypes.TextureFormatRGBA16Float)
	require.NoError(t, err)
	assert.Equal(t, "rgba16float", texel)

	_, err = StorageTexelFormat(gputypes.TextureFormatRGBA8UnormSrgb)
	assert.ErrorIs(t, err, host.ErrUnsupported)
}
