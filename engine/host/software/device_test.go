package software

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var doubleDesc = host.KernelDesc{Entry: "CSDouble"}

// double reads SRV0 and writes twice its value to UAV0.
var double = KernelDef{
	GroupSize: [2]uint32{8, 8},
	SRVs:      1,
	UAVs:      1,
	Run: func(inv *Invocation) {
		v := inv.Load(0, 0, int(inv.X), int(inv.Y))
		inv.Store(0, inv.X, inv.Y, [4]float32{v[0] * 2, v[1] * 2, v[2] * 2, v[3] * 2})
	},
}

func newTestDevice(t *testing.T, options ...DeviceBuilderOption) Device {
	t.Helper()
	d := NewDevice(append([]DeviceBuilderOption{WithSize(20, 12), WithKernel(doubleDesc, double)}, options...)...)
	t.Cleanup(d.Close)
	return d
}

func newTarget(t *testing.T, d Device, label string, mips uint32) (host.TextureID, host.ViewID) {
	t.Helper()
	tex, err := d.CreateTexture(host.TextureDesc{Label: label, Width: 20, Height: 12, MipLevels: mips, Format: gputypes.TextureFormatRGBA16Float})
	require.NoError(t, err)
	v, err := d.CreateView(tex, host.ViewDesc{Label: label})
	require.NoError(t, err)
	return tex, v
}

func TestHostTargets(t *testing.T) {
	d := newTestDevice(t, WithoutTarget(host.RenderTargetAmbient))

	color, ok := d.Target(host.RenderTargetColor)
	require.True(t, ok)
	assert.Equal(t, uint32(20), color.Desc.Width)
	assert.Equal(t, gputypes.TextureFormatRGBA8Unorm, color.Desc.Format)

	depth, ok := d.Target(host.RenderTargetDepth)
	require.True(t, ok)
	assert.Equal(t, gputypes.TextureFormatR32Float, depth.Desc.Format)

	_, ok = d.Target(host.RenderTargetAmbient)
	assert.False(t, ok)
	assert.Equal(t, 0, d.LiveResources())
}

func TestBoundRenderTarget(t *testing.T) {
	d := newTestDevice(t)

	_, ok := d.BoundRenderTarget(2)
	assert.False(t, ok)

	d.SetBoundRenderTarget(2, host.RenderTargetNormalSwap)
	rt, ok := d.BoundRenderTarget(2)
	require.True(t, ok)
	assert.Equal(t, host.RenderTargetNormalSwap, rt)

	d.ClearBoundRenderTargets()
	_, ok = d.BoundRenderTarget(2)
	assert.False(t, ok)
}

func TestDispatchRunsEveryThread(t *testing.T) {
	d := newTestDevice(t, WithWorkers(3))
	src, srcView := newTarget(t, d, "src", 1)
	dst, dstView := newTarget(t, d, "dst", 1)
	require.NoError(t, d.Fill(src, 0, func(x, y uint32) [4]float32 {
		return [4]float32{float32(x), float32(y), 1, 0.5}
	}))

	k, err := d.AcquireKernel(doubleDesc)
	require.NoError(t, err)
	d.SetKernel(k)
	d.SetShaderResources(0, []host.ViewID{srcView})
	d.SetUnorderedAccessViews(0, []host.ViewID{dstView})
	require.NoError(t, d.Dispatch(3, 2, 1))

	texels := d.Texels(dst, 0)
	require.Len(t, texels, 20*12*4)
	for y := range uint32(12) {
		for x := range uint32(20) {
			i := (y*20 + x) * 4
			assert.Equal(t, []float32{float32(x) * 2, float32(y) * 2, 2, 1}, texels[i:i+4], "texel %d,%d", x, y)
		}
	}

	cmds := d.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, OpDispatch, cmds[0].Op)
	assert.Equal(t, "CSDouble", cmds[0].Kernel)
	assert.Equal(t, [3]uint32{3, 2, 1}, cmds[0].Groups)
	assert.Equal(t, srcView, cmds[0].SRVs[0])
}

func TestDispatchValidation(t *testing.T) {
	d := newTestDevice(t)
	_, aView := newTarget(t, d, "a", 1)
	_, bView := newTarget(t, d, "b", 1)

	assert.ErrorIs(t, d.Dispatch(1, 1, 1), host.ErrNoKernel)

	k, err := d.AcquireKernel(doubleDesc)
	require.NoError(t, err)
	d.SetKernel(k)
	assert.ErrorContains(t, d.Dispatch(1, 1, 1), "SRV slot 0 unbound")

	d.SetShaderResources(0, []host.ViewID{aView})
	assert.ErrorContains(t, d.Dispatch(1, 1, 1), "UAV slot 0 unbound")

	d.SetUnorderedAccessViews(0, []host.ViewID{aView})
	assert.ErrorContains(t, d.Dispatch(1, 1, 1), "bound for read and write")

	d.SetUnorderedAccessViews(0, []host.ViewID{bView})
	assert.NoError(t, d.Dispatch(1, 1, 1))

	host.UnbindAll(d)
	assert.ErrorIs(t, d.Dispatch(1, 1, 1), host.ErrNoKernel)
}

func TestAcquireKernel(t *testing.T) {
	d := newTestDevice(t, WithFailingKernel(host.KernelDesc{Entry: "CSDouble", Defines: []string{"WIDE"}}))
	d.RegisterKernel(host.KernelDesc{Entry: "CSDouble", Defines: []string{"WIDE"}}, double)

	_, err := d.AcquireKernel(host.KernelDesc{Entry: "CSMissing"})
	assert.ErrorIs(t, err, host.ErrUnsupported)

	_, err = d.AcquireKernel(host.KernelDesc{Entry: "CSDouble", Defines: []string{"WIDE"}})
	assert.ErrorIs(t, err, host.ErrUnsupported)

	k, err := d.AcquireKernel(doubleDesc)
	require.NoError(t, err)
	assert.Equal(t, "CSDouble", d.KernelKey(k))
	assert.Equal(t, 1, d.LiveResources())
	d.ReleaseKernel(k)
	assert.Equal(t, 0, d.LiveResources())
}

func TestCreateTextureFailure(t *testing.T) {
	d := newTestDevice(t, WithFailingTexture("broken"))

	_, err := d.CreateTexture(host.TextureDesc{Label: "broken", Width: 4, Height: 4, MipLevels: 1})
	assert.Error(t, err)
	_, err = d.CreateTexture(host.TextureDesc{Label: "empty", Width: 0, Height: 4, MipLevels: 1})
	assert.Error(t, err)
}

func TestCreateViewRange(t *testing.T) {
	d := newTestDevice(t)
	tex, _ := newTarget(t, d, "mipped", 5)

	v, err := d.CreateView(tex, host.ViewDesc{BaseMip: 3, MipCount: 1})
	require.NoError(t, err)
	got, base, ok := d.ViewTexture(v)
	require.True(t, ok)
	assert.Equal(t, tex, got)
	assert.Equal(t, uint32(3), base)

	_, err = d.CreateView(tex, host.ViewDesc{BaseMip: 4, MipCount: 2})
	assert.Error(t, err)
	_, err = d.CreateView(host.TextureID(9999), host.ViewDesc{})
	assert.ErrorIs(t, err, host.ErrUnknownHandle)
}

func TestCopies(t *testing.T) {
	d := newTestDevice(t)
	a, _ := newTarget(t, d, "a", 1)
	b, _ := newTarget(t, d, "b", 1)
	require.NoError(t, d.Fill(a, 0, func(x, y uint32) [4]float32 { return [4]float32{float32(x + y), 0, 0, 1} }))

	require.NoError(t, d.CopySubresourceRegion(b, 0, a, 0))
	assert.Equal(t, d.Bytes(a), d.Bytes(b))

	mipped, _ := newTarget(t, d, "mipped", 2)
	assert.Error(t, d.CopyResource(mipped, a))
	assert.Error(t, d.CopySubresourceRegion(a, 0, mipped, 1))
	assert.ErrorIs(t, d.CopyResource(a, host.TextureID(9999)), host.ErrUnknownHandle)

	cmds := d.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, OpCopyRegion, cmds[0].Op)
	d.ResetCommands()
	assert.Empty(t, d.Commands())
}

func TestGenerateMips(t *testing.T) {
	d := newTestDevice(t)
	tex, err := d.CreateTexture(host.TextureDesc{Label: "mipped", Width: 4, Height: 4, MipLevels: 3, Format: gputypes.TextureFormatRGBA16Float})
	require.NoError(t, err)
	require.NoError(t, d.Fill(tex, 0, func(x, y uint32) [4]float32 { return [4]float32{float32(x), float32(y), 4, 0} }))

	require.NoError(t, d.GenerateMips(tex))
	assert.Equal(t, []float32{0.5, 0.5, 4, 0}, d.Texels(tex, 1)[0:4])
	assert.Equal(t, []float32{1.5, 1.5, 4, 0}, d.Texels(tex, 2))

	lut, err := d.CreateTexture(host.TextureDesc{Label: "lut", Width: 4, Height: 4, MipLevels: 2, Format: gputypes.TextureFormatR32Uint})
	require.NoError(t, err)
	assert.ErrorIs(t, d.GenerateMips(lut), host.ErrUnsupported)
}

func TestBuffers(t *testing.T) {
	d := newTestDevice(t)
	buf, err := d.CreateBuffer(host.BufferDesc{Label: "cb", Size: 8})
	require.NoError(t, err)

	require.NoError(t, d.WriteBuffer(buf, []byte{1, 2, 3}))
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0}, d.BufferContents(buf))
	assert.Error(t, d.WriteBuffer(buf, make([]byte, 9)))
	assert.ErrorIs(t, d.WriteBuffer(host.BufferID(9999), nil), host.ErrUnknownHandle)

	_, err = d.CreateBuffer(host.BufferDesc{Label: "empty"})
	assert.Error(t, err)
}
