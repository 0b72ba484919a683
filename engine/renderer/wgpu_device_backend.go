package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/downsample.wgsl
var downsampleSource string

const downsampleEntry = "CSDownsample"

// errWrongObject is returned when a backend call receives an object another backend created.
var errWrongObject = errors.New("renderer: object was not created by this backend")

// computePipeline bundles a compute pipeline with the layouts its bind groups are created against.
type computePipeline struct {
	module         *wgpu.ShaderModule
	groupLayout    *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipeline       *wgpu.ComputePipeline
	label          string
}

func (p *computePipeline) Release() {
	p.pipeline.Release()
	p.pipelineLayout.Release()
	p.groupLayout.Release()
	p.module.Release()
}

type wgpuDeviceBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	owned    bool

	// encoder records every command until the next Flush.
	encoder *wgpu.CommandEncoder

	// bindGroups created while recording live until the commands using them are submitted.
	bindGroups []*wgpu.BindGroup

	downsample map[string]*computePipeline
}

var _ deviceBackend = &wgpuDeviceBackendImpl{}

// newWGPUDeviceBackend records onto the given device and queue. When device is nil a headless
// instance, adapter and device are created and owned by the backend; creation panics if no
// adapter is available.
func newWGPUDeviceBackend(device *wgpu.Device, queue *wgpu.Queue) deviceBackend {
	b := &wgpuDeviceBackendImpl{
		mu:         &sync.Mutex{},
		device:     device,
		queue:      queue,
		downsample: make(map[string]*computePipeline),
	}
	if device != nil {
		if b.queue == nil {
			b.queue = device.GetQueue()
		}
		return b
	}

	runtime.LockOSThread()
	b.owned = true
	b.instance = wgpu.CreateInstance(nil)
	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "SSGI Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()
	return b
}

func (b *wgpuDeviceBackendImpl) CreateTexture(desc host.TextureDesc, info formatInfo) (gpuObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     textureUsage(desc.Usage),
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        info.format,
		MipLevelCount: desc.MipLevels,
		SampleCount:   1,
	})
}

func (b *wgpuDeviceBackendImpl) CreateView(tex gpuObject, info formatInfo, base, count uint32, label string) (gpuObject, error) {
	t, ok := tex.(*wgpu.Texture)
	if !ok {
		return nil, errWrongObject
	}
	return b.textureView(t, info, base, count, label)
}

func (b *wgpuDeviceBackendImpl) textureView(t *wgpu.Texture, info formatInfo, base, count uint32, label string) (*wgpu.TextureView, error) {
	return t.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label,
		Format:          info.format,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    base,
		MipLevelCount:   count,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	})
}

func (b *wgpuDeviceBackendImpl) CreateSampler(desc host.SamplerDesc) (gpuObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mode := addressMode(desc.AddressMode)
	filter := filterMode(desc.Filter)
	mipFilter := wgpu.MipmapFilterModeNearest
	if filter == wgpu.FilterModeLinear {
		mipFilter = wgpu.MipmapFilterModeLinear
	}
	return b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  mode,
		AddressModeV:  mode,
		AddressModeW:  mode,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  mipFilter,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
}

func (b *wgpuDeviceBackendImpl) CreateBuffer(desc host.BufferDesc) (gpuObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
}

func (b *wgpuDeviceBackendImpl) CreatePipeline(k shader.Kernel, entries []wgpu.BindGroupLayoutEntry) (gpuObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createPipeline(k, entries)
}

func (b *wgpuDeviceBackendImpl) createPipeline(k shader.Kernel, entries []wgpu.BindGroupLayoutEntry) (*computePipeline, error) {
	module, err := b.device.CreateShaderModule(k.Module())
	if err != nil {
		return nil, err
	}

	groupLayout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   k.Key() + " Bind Group Layout",
		Entries: entries,
	})
	if err != nil {
		module.Release()
		return nil, fmt.Errorf("failed to create bind group layout: %w", err)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            k.Key(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{groupLayout},
	})
	if err != nil {
		groupLayout.Release()
		module.Release()
		return nil, err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  k.Key() + " Compute Pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: k.EntryPoint(),
		},
	})
	if err != nil {
		pipelineLayout.Release()
		groupLayout.Release()
		module.Release()
		return nil, err
	}

	return &computePipeline{
		module:         module,
		groupLayout:    groupLayout,
		pipelineLayout: pipelineLayout,
		pipeline:       created,
		label:          k.Key(),
	}, nil
}

func (b *wgpuDeviceBackendImpl) WriteBuffer(buf gpuObject, data []byte) error {
	wb, ok := buf.(*wgpu.Buffer)
	if !ok {
		return errWrongObject
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue.WriteBuffer(wb, 0, data)
	return nil
}

func (b *wgpuDeviceBackendImpl) Dispatch(pipeline gpuObject, resources []boundResource, groups [3]uint32) error {
	p, ok := pipeline.(*computePipeline)
	if !ok {
		return errWrongObject
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dispatch(p, resources, groups)
}

func (b *wgpuDeviceBackendImpl) dispatch(p *computePipeline, resources []boundResource, groups [3]uint32) error {
	entries := make([]wgpu.BindGroupEntry, len(resources))
	for i, r := range resources {
		entries[i] = wgpu.BindGroupEntry{Binding: r.Binding}
		switch obj := r.Object.(type) {
		case *wgpu.Buffer:
			entries[i].Buffer = obj
			entries[i].Offset = 0
			entries[i].Size = wgpu.WholeSize
		case *wgpu.Sampler:
			entries[i].Sampler = obj
		case *wgpu.TextureView:
			entries[i].TextureView = obj
		default:
			return fmt.Errorf("binding %d: %w", r.Binding, errWrongObject)
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.label + " Bind Group",
		Layout:  p.groupLayout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	b.bindGroups = append(b.bindGroups, bindGroup)

	encoder, err := b.frameEncoder()
	if err != nil {
		return err
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(groups[0], groups[1], groups[2])
	pass.End()
	pass.Release()
	return nil
}

// frameEncoder returns the encoder recording the current batch, creating it on first use.
func (b *wgpuDeviceBackendImpl) frameEncoder() (*wgpu.CommandEncoder, error) {
	if b.encoder != nil {
		return b.encoder, nil
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	b.encoder = encoder
	return encoder, nil
}

func (b *wgpuDeviceBackendImpl) CopyTexture(dst gpuObject, dstMip uint32, src gpuObject, srcMip uint32, width, height uint32) error {
	dt, ok := dst.(*wgpu.Texture)
	if !ok {
		return errWrongObject
	}
	st, ok := src.(*wgpu.Texture)
	if !ok {
		return errWrongObject
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.frameEncoder()
	if err != nil {
		return err
	}
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{
			Texture:  st,
			MipLevel: srcMip,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyTexture{
			Texture:  dt,
			MipLevel: dstMip,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// GenerateMips downsamples each level from the one above with a 2x2 box filter kernel built
// for the texture's storage format.
func (b *wgpuDeviceBackendImpl) GenerateMips(tex gpuObject, desc host.TextureDesc, info formatInfo) error {
	t, ok := tex.(*wgpu.Texture)
	if !ok {
		return errWrongObject
	}
	texel, err := StorageTexelFormat(desc.Format)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.downsamplePipeline(texel, info)
	if err != nil {
		return err
	}

	views := make([]*wgpu.TextureView, 0, desc.MipLevels)
	defer func() {
		// Views stay referenced by the recorded bind groups until submission.
		for _, v := range views {
			v.Release()
		}
	}()
	for mip := range desc.MipLevels {
		v, err := b.textureView(t, info, mip, 1, fmt.Sprintf("%s Mip %d", desc.Label, mip))
		if err != nil {
			return err
		}
		views = append(views, v)
	}

	for mip := uint32(1); mip < desc.MipLevels; mip++ {
		w, h := mipExtent(desc, mip)
		resources := []boundResource{
			{Binding: 0, Object: views[mip-1]},
			{Binding: 1, Object: views[mip]},
		}
		if err := b.dispatch(p, resources, [3]uint32{groupsOf8(w), groupsOf8(h), 1}); err != nil {
			return fmt.Errorf("mip %d: %w", mip, err)
		}
	}
	return nil
}

// groupsOf8 is the number of 8-wide workgroups covering n texels.
func groupsOf8(n uint32) uint32 {
	return (n + 7) / 8
}

func (b *wgpuDeviceBackendImpl) downsamplePipeline(texel string, info formatInfo) (*computePipeline, error) {
	if p, ok := b.downsample[texel]; ok {
		return p, nil
	}
	pp := shader.NewPreProcessor(shader.WithSubstitution("TEXEL_FORMAT", texel))
	k, err := shader.NewKernel(downsampleEntry+"+"+texel, downsampleEntry, downsampleSource, pp, nil)
	if err != nil {
		return nil, err
	}

	decls := k.Bindings()
	entries := make([]wgpu.BindGroupLayoutEntry, len(decls))
	for i, decl := range decls {
		entries[i] = decl.Layout
		if entries[i].Texture.SampleType != wgpu.TextureSampleTypeUndefined {
			entries[i].Texture.SampleType = info.sampleType
		}
	}
	p, err := b.createPipeline(k, entries)
	if err != nil {
		return nil, err
	}
	b.downsample[texel] = p
	return p, nil
}

func (b *wgpuDeviceBackendImpl) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.encoder == nil {
		return nil
	}
	defer b.releaseFrame()

	commandBuffer, err := b.encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

// releaseFrame drops the encoder and the bind groups of the submitted batch.
func (b *wgpuDeviceBackendImpl) releaseFrame() {
	if b.encoder != nil {
		b.encoder.Release()
		b.encoder = nil
	}
	for _, bg := range b.bindGroups {
		bg.Release()
	}
	b.bindGroups = b.bindGroups[:0]
}

func (b *wgpuDeviceBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	for _, p := range b.downsample {
		p.Release()
	}
	clear(b.downsample)

	if !b.owned {
		return
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
}
