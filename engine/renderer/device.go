// Package renderer implements host.Device on WebGPU. Resources are tracked by opaque handles,
// kernels are loaded from a shader.KernelLibrary and compiled into one compute pipeline per
// combination of bound resource types, and all work is recorded onto a single command stream
// that Flush submits.
package renderer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/renderer/binding_table"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoKernelLibrary is returned by AcquireKernel when the device was built without a library.
var ErrNoKernelLibrary = errors.New("renderer: no kernel library")

type textureEntry struct {
	obj      gpuObject
	desc     host.TextureDesc
	info     formatInfo
	external bool
}

type viewEntry struct {
	obj     gpuObject
	storage gpuObject
	tex     host.TextureID
	base    uint32
	count   uint32
}

func (v *viewEntry) release() {
	v.obj.Release()
	if v.storage != nil {
		v.storage.Release()
	}
}

type samplerEntry struct {
	obj  gpuObject
	desc host.SamplerDesc
}

type bufferEntry struct {
	obj  gpuObject
	desc host.BufferDesc
}

type kernelEntry struct {
	kernel    shader.Kernel
	pipelines map[string]gpuObject
}

// device is the implementation of the Device interface.
type device struct {
	mu      *sync.Mutex
	label   string
	backend deviceBackend
	library shader.KernelLibrary

	nextID uint64

	textures map[host.TextureID]*textureEntry
	views    map[host.ViewID]*viewEntry
	samplers map[host.SamplerID]*samplerEntry
	buffers  map[host.BufferID]*bufferEntry
	kernels  map[host.KernelID]*kernelEntry

	targets      map[host.RenderTarget]host.Target
	boundTargets map[int]host.RenderTarget

	table  binding_table.Table
	kernel host.KernelID

	releaseOnce sync.Once
}

// Device is a WebGPU host.Device. The host registers its render targets with RegisterTarget
// and reports which one is bound to each output slot; Flush submits the recorded work.
type Device interface {
	host.Device

	// RegisterTarget adopts a host-owned texture as a render target. The device creates a view
	// over all of its mips but never releases the texture itself.
	//
	// Parameters:
	//   - rt: the render target the texture serves as
	//   - tex: the wgpu texture
	//   - desc: its description
	//
	// Returns:
	//   - host.Target: the handles the effect sees
	//   - error: an error if the format is unsupported or the view cannot be created
	RegisterTarget(rt host.RenderTarget, tex *wgpu.Texture, desc host.TextureDesc) (host.Target, error)

	// SetBoundRenderTarget records that rt is bound to an output slot.
	SetBoundRenderTarget(slot int, rt host.RenderTarget)

	// ClearBoundRenderTargets forgets every output slot binding.
	ClearBoundRenderTargets()

	// Flush submits all recorded commands.
	//
	// Returns:
	//   - error: an error if submission fails
	Flush() error

	// Release frees every resource the device created and the backend itself.
	Release()
}

var _ Device = &device{}

// NewDevice creates a Device. Without WithBackend a headless wgpu backend is created, which
// panics if no adapter is available, mirroring how the window renderer treats a missing GPU.
//
// Parameters:
//   - options: functional options applied to the device
//
// Returns:
//   - Device: the device
func NewDevice(options ...DeviceBuilderOption) Device {
	d := &device{
		mu:           &sync.Mutex{},
		label:        "SSGI Device",
		textures:     make(map[host.TextureID]*textureEntry),
		views:        make(map[host.ViewID]*viewEntry),
		samplers:     make(map[host.SamplerID]*samplerEntry),
		buffers:      make(map[host.BufferID]*bufferEntry),
		kernels:      make(map[host.KernelID]*kernelEntry),
		targets:      make(map[host.RenderTarget]host.Target),
		boundTargets: make(map[int]host.RenderTarget),
	}
	for _, opt := range options {
		opt(d)
	}
	if d.backend == nil {
		d.backend = newWGPUDeviceBackend(nil, nil)
	}
	d.table = binding_table.NewTable(d.label + " Bindings")
	return d
}

func (d *device) newID() uint64 {
	d.nextID++
	return d.nextID
}

func (d *device) RegisterTarget(rt host.RenderTarget, tex *wgpu.Texture, desc host.TextureDesc) (host.Target, error) {
	return d.registerTarget(rt, tex, desc)
}

// registerTarget adopts any backend texture object. RegisterTarget narrows it to wgpu textures.
func (d *device) registerTarget(rt host.RenderTarget, tex gpuObject, desc host.TextureDesc) (host.Target, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	info, err := lookupFormat(desc.Format)
	if err != nil {
		return host.Target{}, err
	}
	desc.MipLevels = max(desc.MipLevels, 1)
	view, err := d.backend.CreateView(tex, info, 0, desc.MipLevels, desc.Label+" View")
	if err != nil {
		return host.Target{}, fmt.Errorf("renderer: register target %s: %w", rt, err)
	}

	if old, ok := d.targets[rt]; ok {
		d.dropView(old.View)
		delete(d.textures, old.Texture)
	}

	tid := host.TextureID(d.newID())
	d.textures[tid] = &textureEntry{obj: tex, desc: desc, info: info, external: true}
	vid := host.ViewID(d.newID())
	d.views[vid] = &viewEntry{obj: view, tex: tid, base: 0, count: desc.MipLevels}

	target := host.Target{Texture: tid, View: vid, Desc: desc}
	d.targets[rt] = target
	return target, nil
}

func (d *device) Target(rt host.RenderTarget) (host.Target, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.targets[rt]
	return t, ok
}

func (d *device) BoundRenderTarget(slot int) (host.RenderTarget, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rt, ok := d.boundTargets[slot]
	return rt, ok
}

func (d *device) SetBoundRenderTarget(slot int, rt host.RenderTarget) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.boundTargets[slot] = rt
}

func (d *device) ClearBoundRenderTargets() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.boundTargets)
}

func (d *device) CreateTexture(desc host.TextureDesc) (host.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Width == 0 || desc.Height == 0 {
		return host.InvalidID, fmt.Errorf("renderer: create texture %q: zero size", desc.Label)
	}
	info, err := lookupFormat(desc.Format)
	if err != nil {
		return host.InvalidID, fmt.Errorf("renderer: create texture %q: %w", desc.Label, err)
	}
	desc.MipLevels = max(desc.MipLevels, 1)

	obj, err := d.backend.CreateTexture(desc, info)
	if err != nil {
		return host.InvalidID, fmt.Errorf("renderer: create texture %q: %w", desc.Label, err)
	}
	id := host.TextureID(d.newID())
	d.textures[id] = &textureEntry{obj: obj, desc: desc, info: info}
	return id, nil
}

func (d *device) CreateView(tex host.TextureID, desc host.ViewDesc) (host.ViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[tex]
	if !ok {
		return host.InvalidID, fmt.Errorf("renderer: create view %q: %w", desc.Label, host.ErrUnknownHandle)
	}
	count := desc.MipCount
	if count == 0 {
		count = t.desc.MipLevels - min(desc.BaseMip, t.desc.MipLevels)
	}
	if desc.BaseMip+count > t.desc.MipLevels || count == 0 {
		return host.InvalidID, fmt.Errorf("renderer: create view %q: mip range %d+%d outside %d levels", desc.Label, desc.BaseMip, count, t.desc.MipLevels)
	}

	obj, err := d.backend.CreateView(t.obj, t.info, desc.BaseMip, count, desc.Label)
	if err != nil {
		return host.InvalidID, fmt.Errorf("renderer: create view %q: %w", desc.Label, err)
	}
	id := host.ViewID(d.newID())
	d.views[id] = &viewEntry{obj: obj, tex: tex, base: desc.BaseMip, count: count}
	return id, nil
}

func (d *device) CreateSampler(desc host.SamplerDesc) (host.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, err := d.backend.CreateSampler(desc)
	if err != nil {
		return host.InvalidID, fmt.Errorf("renderer: create sampler %q: %w", desc.Label, err)
	}
	id := host.SamplerID(d.newID())
	d.samplers[id] = &samplerEntry{obj: obj, desc: desc}
	return id, nil
}

func (d *device) CreateBuffer(desc host.BufferDesc) (host.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Size == 0 {
		return host.InvalidID, fmt.Errorf("renderer: create buffer %q: zero size", desc.Label)
	}
	obj, err := d.backend.CreateBuffer(desc)
	if err != nil {
		return host.InvalidID, fmt.Errorf("renderer: create buffer %q: %w", desc.Label, err)
	}
	id := host.BufferID(d.newID())
	d.buffers[id] = &bufferEntry{obj: obj, desc: desc}
	return id, nil
}

func (d *device) AcquireKernel(desc host.KernelDesc) (host.KernelID, error) {
	if d.library == nil {
		return host.InvalidID, fmt.Errorf("renderer: kernel %q: %w", desc.Key(), ErrNoKernelLibrary)
	}
	k, err := d.library.Load(desc)
	if err != nil {
		return host.InvalidID, fmt.Errorf("renderer: kernel %q: %w", desc.Key(), err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.KernelID(d.newID())
	d.kernels[id] = &kernelEntry{kernel: k, pipelines: make(map[string]gpuObject)}
	return id, nil
}

func (d *device) WriteBuffer(buf host.BufferID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("renderer: write buffer: %w", host.ErrUnknownHandle)
	}
	if uint64(len(data)) > b.desc.Size {
		return fmt.Errorf("renderer: write buffer %q: %d bytes into %d", b.desc.Label, len(data), b.desc.Size)
	}
	return d.backend.WriteBuffer(b.obj, data)
}

func (d *device) ReleaseTexture(tex host.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[tex]
	if !ok || t.external {
		return
	}
	t.obj.Release()
	delete(d.textures, tex)
}

func (d *device) ReleaseView(v host.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, target := range d.targets {
		if target.View == v {
			return
		}
	}
	d.dropView(v)
}

func (d *device) dropView(v host.ViewID) {
	if view, ok := d.views[v]; ok {
		view.release()
		delete(d.views, v)
	}
}

func (d *device) ReleaseSampler(s host.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if smp, ok := d.samplers[s]; ok {
		smp.obj.Release()
		delete(d.samplers, s)
	}
}

func (d *device) ReleaseBuffer(buf host.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[buf]; ok {
		b.obj.Release()
		delete(d.buffers, buf)
	}
}

func (d *device) ReleaseKernel(k host.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.kernels[k]; ok {
		for _, p := range entry.pipelines {
			p.Release()
		}
		delete(d.kernels, k)
	}
}

func (d *device) SetConstantBuffers(start int, bufs []host.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table.SetConstantBuffers(start, bufs)
}

func (d *device) SetSamplers(start int, samplers []host.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table.SetSamplers(start, samplers)
}

func (d *device) SetShaderResources(start int, views []host.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table.SetShaderResources(start, views)
}

func (d *device) SetUnorderedAccessViews(start int, views []host.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table.SetUnorderedAccessViews(start, views)
}

func (d *device) SetKernel(k host.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kernel = k
}

func (d *device) Dispatch(x, y, z uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	k, ok := d.kernels[d.kernel]
	if !ok {
		return host.ErrNoKernel
	}
	entries, resources, err := d.resolveBindings(k.kernel)
	if err != nil {
		return err
	}

	signature := layoutSignature(entries)
	pipeline, ok := k.pipelines[signature]
	if !ok {
		pipeline, err = d.backend.CreatePipeline(k.kernel, entries)
		if err != nil {
			return fmt.Errorf("renderer: dispatch %q: %w", k.kernel.Key(), err)
		}
		k.pipelines[signature] = pipeline
		common.Logger().Debug("[Renderer] compute pipeline created", "kernel", k.kernel.Key(), "signature", signature)
	}

	if err := d.backend.Dispatch(pipeline, resources, [3]uint32{x, y, z}); err != nil {
		return fmt.Errorf("renderer: dispatch %q: %w", k.kernel.Key(), err)
	}
	return nil
}

// resolveBindings matches every resource the kernel declares against the binding table. It
// returns the group 0 layout with texture sample types and sampler types adjusted to the bound
// resources, plus the objects to bind. A texture bound for reading and writing at once is an error.
func (d *device) resolveBindings(k shader.Kernel) ([]wgpu.BindGroupLayoutEntry, []boundResource, error) {
	decls := k.Bindings()
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(decls))
	resources := make([]boundResource, 0, len(decls))
	read := make(map[host.TextureID]bool)
	var writes []host.TextureID

	for _, decl := range decls {
		if decl.Group != 0 {
			return nil, nil, fmt.Errorf("renderer: dispatch %q: %s declared in group %d", k.Key(), decl.Name, decl.Group)
		}
		bound, err := d.table.Lookup(decl.Binding)
		if err != nil {
			return nil, nil, fmt.Errorf("renderer: dispatch %q: %w", k.Key(), err)
		}

		layout := decl.Layout
		var obj gpuObject
		switch bound.Kind {
		case binding_table.KindConstantBuffer:
			b, ok := d.buffers[host.BufferID(bound.ID)]
			if !ok || layout.Buffer.Type == wgpu.BufferBindingTypeUndefined {
				return nil, nil, d.bindingError(k, decl, bound)
			}
			obj = b.obj
		case binding_table.KindSampler:
			s, ok := d.samplers[host.SamplerID(bound.ID)]
			if !ok || layout.Sampler.Type == wgpu.SamplerBindingTypeUndefined {
				return nil, nil, d.bindingError(k, decl, bound)
			}
			layout.Sampler.Type = samplerBindingType(s.desc.Filter)
			obj = s.obj
		case binding_table.KindShaderResource:
			v, t, ok := d.resolveView(host.ViewID(bound.ID))
			if !ok || layout.Texture.SampleType == wgpu.TextureSampleTypeUndefined {
				return nil, nil, d.bindingError(k, decl, bound)
			}
			layout.Texture.SampleType = t.info.sampleType
			read[v.tex] = true
			obj = v.obj
		case binding_table.KindUnorderedAccess:
			v, t, ok := d.resolveView(host.ViewID(bound.ID))
			if !ok || layout.StorageTexture.Format == wgpu.TextureFormatUndefined {
				return nil, nil, d.bindingError(k, decl, bound)
			}
			if layout.StorageTexture.Format != t.info.format {
				return nil, nil, fmt.Errorf("renderer: dispatch %q: %s expects a different format than %q", k.Key(), decl.Name, t.desc.Label)
			}
			writes = append(writes, v.tex)
			if obj, err = d.storageView(v, t); err != nil {
				return nil, nil, fmt.Errorf("renderer: dispatch %q: %w", k.Key(), err)
			}
		}

		entries = append(entries, layout)
		resources = append(resources, boundResource{Binding: decl.Binding, Object: obj})
	}

	for _, tex := range writes {
		if read[tex] {
			return nil, nil, fmt.Errorf("renderer: dispatch %q: texture %q bound for read and write", k.Key(), d.textures[tex].desc.Label)
		}
	}
	return entries, resources, nil
}

// storageView returns a view that can be bound for writing. Storage bindings expose a single
// mip, so views spanning several levels get a cached view of their first level.
func (d *device) storageView(v *viewEntry, t *textureEntry) (gpuObject, error) {
	if v.count == 1 {
		return v.obj, nil
	}
	if v.storage == nil {
		obj, err := d.backend.CreateView(t.obj, t.info, v.base, 1, t.desc.Label+" Storage View")
		if err != nil {
			return nil, err
		}
		v.storage = obj
	}
	return v.storage, nil
}

func (d *device) resolveView(id host.ViewID) (*viewEntry, *textureEntry, bool) {
	v, ok := d.views[id]
	if !ok {
		return nil, nil, false
	}
	t, ok := d.textures[v.tex]
	return v, t, ok
}

func (d *device) bindingError(k shader.Kernel, decl shader.Binding, bound binding_table.Entry) error {
	return fmt.Errorf("renderer: dispatch %q: %s (binding %d) cannot take the %s bound in slot %d: %w",
		k.Key(), decl.Name, decl.Binding, bound.Kind, bound.Slot, host.ErrUnknownHandle)
}

// layoutSignature identifies a group 0 layout by the parts that vary with the bound resources.
func layoutSignature(entries []wgpu.BindGroupLayoutEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d:%d/%d;", e.Binding, e.Texture.SampleType, e.Sampler.Type)
	}
	return sb.String()
}

func (d *device) CopyResource(dst, src host.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dt, st, err := d.copyPair(dst, src)
	if err != nil {
		return err
	}
	if dt.desc.Width != st.desc.Width || dt.desc.Height != st.desc.Height || dt.desc.MipLevels != st.desc.MipLevels || dt.desc.Format != st.desc.Format {
		return fmt.Errorf("renderer: copy resource: %q and %q differ in size or format", dt.desc.Label, st.desc.Label)
	}
	for mip := range st.desc.MipLevels {
		w, h := mipExtent(st.desc, mip)
		if err := d.backend.CopyTexture(dt.obj, mip, st.obj, mip, w, h); err != nil {
			return fmt.Errorf("renderer: copy resource %q: %w", st.desc.Label, err)
		}
	}
	return nil
}

func (d *device) CopySubresourceRegion(dst host.TextureID, dstMip uint32, src host.TextureID, srcMip uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dt, st, err := d.copyPair(dst, src)
	if err != nil {
		return err
	}
	if dstMip >= dt.desc.MipLevels || srcMip >= st.desc.MipLevels {
		return fmt.Errorf("renderer: copy region: mip out of range")
	}
	w, h := mipExtent(st.desc, srcMip)
	dw, dh := mipExtent(dt.desc, dstMip)
	if w != dw || h != dh || dt.desc.Format != st.desc.Format {
		return fmt.Errorf("renderer: copy region: %q mip %d and %q mip %d differ in size or format", dt.desc.Label, dstMip, st.desc.Label, srcMip)
	}
	if err := d.backend.CopyTexture(dt.obj, dstMip, st.obj, srcMip, w, h); err != nil {
		return fmt.Errorf("renderer: copy region %q: %w", st.desc.Label, err)
	}
	return nil
}

func (d *device) copyPair(dst, src host.TextureID) (*textureEntry, *textureEntry, error) {
	dt, ok := d.textures[dst]
	if !ok {
		return nil, nil, fmt.Errorf("renderer: copy destination: %w", host.ErrUnknownHandle)
	}
	st, ok := d.textures[src]
	if !ok {
		return nil, nil, fmt.Errorf("renderer: copy source: %w", host.ErrUnknownHandle)
	}
	return dt, st, nil
}

func (d *device) GenerateMips(tex host.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[tex]
	if !ok {
		return fmt.Errorf("renderer: generate mips: %w", host.ErrUnknownHandle)
	}
	if t.info.sampleType != wgpu.TextureSampleTypeFloat {
		return fmt.Errorf("renderer: generate mips %q: format cannot be filtered: %w", t.desc.Label, host.ErrUnsupported)
	}
	if t.desc.MipLevels < 2 {
		return nil
	}
	if err := d.backend.GenerateMips(t.obj, t.desc, t.info); err != nil {
		return fmt.Errorf("renderer: generate mips %q: %w", t.desc.Label, err)
	}
	return nil
}

func (d *device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.Flush()
}

func (d *device) Release() {
	d.releaseOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		for _, k := range d.kernels {
			for _, p := range k.pipelines {
				p.Release()
			}
		}
		for _, v := range d.views {
			v.release()
		}
		for _, t := range d.textures {
			if !t.external {
				t.obj.Release()
			}
		}
		for _, s := range d.samplers {
			s.obj.Release()
		}
		for _, b := range d.buffers {
			b.obj.Release()
		}
		clear(d.kernels)
		clear(d.views)
		clear(d.textures)
		clear(d.samplers)
		clear(d.buffers)
		clear(d.targets)
		d.backend.Release()
	})
}
