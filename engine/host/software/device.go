// Package software implements host.Device in memory. Kernels are Go functions registered by
// entry point and run on the CPU across a worker pool, one task per row of thread groups.
// Every command is appended to a log so callers can inspect exactly what was submitted.
package software

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/gogpu/gputypes"
)

// device is the implementation of the Device interface.
type device struct {
	mu *sync.Mutex

	nextID uint64

	textures map[host.TextureID]*texture
	views    map[host.ViewID]view
	samplers map[host.SamplerID]host.SamplerDesc
	buffers  map[host.BufferID][]byte
	kernels  map[host.KernelID]kernel

	registry map[string]KernelDef

	targets      map[host.RenderTarget]host.Target
	boundTargets map[int]host.RenderTarget

	state    bindings
	commands []Command

	size          common.Extent2D
	colorFormat   gputypes.TextureFormat
	omitTargets   map[host.RenderTarget]bool
	failTextures  map[string]bool
	workers       int
	pool          worker.DynamicWorkerPool
	poolOnce      sync.Once
	closeOnce     sync.Once
	acquireFailed map[string]bool
}

// Device is an in-memory host.Device with hooks for seeding render targets, inspecting
// texture contents and reading back the command log.
type Device interface {
	host.Device

	// RegisterKernel makes a CPU kernel available to AcquireKernel.
	//
	// Parameters:
	//   - desc: the entry point and defines the kernel answers to
	//   - def: the kernel definition
	RegisterKernel(desc host.KernelDesc, def KernelDef)

	// SetBoundRenderTarget simulates the host binding a render target to an output slot.
	//
	// Parameters:
	//   - slot: the output slot
	//   - rt: the render target bound there
	SetBoundRenderTarget(slot int, rt host.RenderTarget)

	// ClearBoundRenderTargets empties every output slot.
	ClearBoundRenderTargets()

	// Fill writes every texel of a texture mip from a function of its coordinates.
	//
	// Parameters:
	//   - tex: the texture to fill
	//   - mip: the mip level
	//   - fn: returns the RGBA value for a texel
	//
	// Returns:
	//   - error: an error if tex or mip is unknown
	Fill(tex host.TextureID, mip uint32, fn func(x, y uint32) [4]float32) error

	// Texels returns a copy of a texture mip as RGBA floats, row-major.
	//
	// Parameters:
	//   - tex: the texture to read
	//   - mip: the mip level
	//
	// Returns:
	//   - []float32: the texels, or nil if tex or mip is unknown
	Texels(tex host.TextureID, mip uint32) []float32

	// Bytes returns every mip of a texture as little-endian float32 bits, for byte-exact
	// comparisons.
	//
	// Parameters:
	//   - tex: the texture to read
	//
	// Returns:
	//   - []byte: the raw contents, or nil if tex is unknown
	Bytes(tex host.TextureID) []byte

	// BufferContents returns a copy of a buffer's contents.
	BufferContents(buf host.BufferID) []byte

	// TextureDesc returns the description a texture was created with.
	TextureDesc(tex host.TextureID) (host.TextureDesc, bool)

	// ViewTexture resolves a view to its texture and base mip.
	ViewTexture(v host.ViewID) (host.TextureID, uint32, bool)

	// KernelKey returns the entry-and-defines key of an acquired kernel.
	KernelKey(k host.KernelID) string

	// Commands returns a copy of the command log.
	Commands() []Command

	// ResetCommands empties the command log.
	ResetCommands()

	// LiveResources returns the number of live textures, views, samplers, buffers and kernels
	// created through the device, excluding host render targets.
	LiveResources() int

	// Close releases every resource the device holds, host render targets included, and stops
	// the worker pool.
	Close()
}

var _ Device = &device{}

// NewDevice creates a software device with the host render targets allocated at the
// configured size and every option applied.
//
// Parameters:
//   - options: functional options applied to the device
//
// Returns:
//   - Device: the new device
func NewDevice(options ...DeviceBuilderOption) Device {
	d := &device{
		mu:            &sync.Mutex{},
		textures:      make(map[host.TextureID]*texture),
		views:         make(map[host.ViewID]view),
		samplers:      make(map[host.SamplerID]host.SamplerDesc),
		buffers:       make(map[host.BufferID][]byte),
		kernels:       make(map[host.KernelID]kernel),
		registry:      make(map[string]KernelDef),
		targets:       make(map[host.RenderTarget]host.Target),
		boundTargets:  make(map[int]host.RenderTarget),
		size:          common.Extent2D{Width: 64, Height: 64},
		colorFormat:   gputypes.TextureFormatRGBA8Unorm,
		omitTargets:   make(map[host.RenderTarget]bool),
		failTextures:  make(map[string]bool),
		acquireFailed: make(map[string]bool),
		workers:       4,
	}
	for _, opt := range options {
		opt(d)
	}
	d.createTargets()
	return d
}

func (d *device) createTargets() {
	formats := map[host.RenderTarget]gputypes.TextureFormat{
		host.RenderTargetColor:         d.colorFormat,
		host.RenderTargetNormal:        gputypes.TextureFormatRGBA16Float,
		host.RenderTargetNormalSwap:    gputypes.TextureFormatRGBA16Float,
		host.RenderTargetDepth:         gputypes.TextureFormatR32Float,
		host.RenderTargetMotionVectors: gputypes.TextureFormatRGBA16Float,
		host.RenderTargetAmbient:       gputypes.TextureFormatRGBA16Float,
		host.RenderTargetAlbedo:        gputypes.TextureFormatRGBA8Unorm,
	}
	for rt, format := range formats {
		if d.omitTargets[rt] {
			continue
		}
		desc := host.TextureDesc{
			Label:     "Host " + rt.String(),
			Width:     d.size.Width,
			Height:    d.size.Height,
			MipLevels: 1,
			Format:    format,
			Usage:     gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
		}
		tex := host.TextureID(d.newID())
		d.textures[tex] = newTexture(desc)
		v := host.ViewID(d.newID())
		d.views[v] = view{tex: tex, base: 0, count: 1}
		d.targets[rt] = host.Target{Texture: tex, View: v, Desc: desc}
	}
}

func newTexture(desc host.TextureDesc) *texture {
	t := &texture{desc: desc, mips: make([][]float32, desc.MipLevels)}
	for level := range desc.MipLevels {
		ext := t.extent(level)
		t.mips[level] = make([]float32, ext.Width*ext.Height*4)
	}
	return t
}

func (d *device) newID() uint64 {
	d.nextID++
	return d.nextID
}

func (d *device) workerPool() worker.DynamicWorkerPool {
	d.poolOnce.Do(func() {
		d.pool = worker.NewDynamicWorkerPool(d.workers, 256, 1*time.Second)
	})
	return d.pool
}

func (d *device) RegisterKernel(desc host.KernelDesc, def KernelDef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registry[desc.Key()] = def
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

	if d.failTextures[desc.Label] {
		return host.InvalidID, fmt.Errorf("software: create texture %q: out of memory", desc.Label)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return host.InvalidID, fmt.Errorf("software: create texture %q: zero size", desc.Label)
	}
	desc.MipLevels = max(desc.MipLevels, 1)

	id := host.TextureID(d.newID())
	d.textures[id] = newTexture(desc)
	return id, nil
}

func (d *device) CreateView(tex host.TextureID, desc host.ViewDesc) (host.ViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[tex]
	if !ok {
		return host.InvalidID, fmt.Errorf("software: create view %q: %w", desc.Label, host.ErrUnknownHandle)
	}
	count := desc.MipCount
	if count == 0 {
		count = t.desc.MipLevels - min(desc.BaseMip, t.desc.MipLevels)
	}
	if desc.BaseMip+count > t.desc.MipLevels || count == 0 {
		return host.InvalidID, fmt.Errorf("software: create view %q: mip range %d+%d outside %d levels", desc.Label, desc.BaseMip, count, t.desc.MipLevels)
	}

	id := host.ViewID(d.newID())
	d.views[id] = view{tex: tex, base: desc.BaseMip, count: count}
	return id, nil
}

func (d *device) CreateSampler(desc host.SamplerDesc) (host.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := host.SamplerID(d.newID())
	d.samplers[id] = desc
	return id, nil
}

func (d *device) CreateBuffer(desc host.BufferDesc) (host.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Size == 0 {
		return host.InvalidID, fmt.Errorf("software: create buffer %q: zero size", desc.Label)
	}
	id := host.BufferID(d.newID())
	d.buffers[id] = make([]byte, desc.Size)
	return id, nil
}

func (d *device) AcquireKernel(desc host.KernelDesc) (host.KernelID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := desc.Key()
	def, ok := d.registry[key]
	if !ok || d.acquireFailed[key] {
		return host.InvalidID, fmt.Errorf("software: kernel %q: %w", key, host.ErrUnsupported)
	}
	id := host.KernelID(d.newID())
	d.kernels[id] = kernel{key: key, def: def}
	return id, nil
}

func (d *device) WriteBuffer(buf host.BufferID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("software: write buffer: %w", host.ErrUnknownHandle)
	}
	if len(data) > len(b) {
		return fmt.Errorf("software: write buffer: %d bytes into %d", len(data), len(b))
	}
	copy(b, data)
	d.commands = append(d.commands, Command{Op: OpWriteBuffer})
	return nil
}

func (d *device) ReleaseTexture(tex host.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, tex)
}

func (d *device) ReleaseView(v host.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.views, v)
}

func (d *device) ReleaseSampler(s host.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.samplers, s)
}

func (d *device) ReleaseBuffer(buf host.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, buf)
}

func (d *device) ReleaseKernel(k host.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.kernels, k)
}

func (d *device) SetConstantBuffers(start int, bufs []host.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.state.cbs[start:], bufs)
}

func (d *device) SetSamplers(start int, samplers []host.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.state.samplers[start:], samplers)
}

func (d *device) SetShaderResources(start int, views []host.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.state.srvs[start:], views)
}

func (d *device) SetUnorderedAccessViews(start int, views []host.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.state.uavs[start:], views)
}

func (d *device) SetKernel(k host.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.kernel = k
}

func (d *device) Dispatch(x, y, z uint32) error {
	d.mu.Lock()
	b := d.state
	k, ok := d.kernels[b.kernel]
	if !ok {
		d.mu.Unlock()
		return host.ErrNoKernel
	}
	srvs, uavs, err := d.resolveBindings(k, b)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	var constants []byte
	if buf, ok := d.buffers[b.cbs[0]]; ok {
		constants = slices.Clone(buf)
	}
	d.commands = append(d.commands, Command{
		Op:       OpDispatch,
		Kernel:   k.key,
		Groups:   [3]uint32{x, y, z},
		CBs:      b.cbs,
		Samplers: b.samplers,
		SRVs:     b.srvs,
		UAVs:     b.uavs,
	})
	d.mu.Unlock()

	d.run(k.def, [3]uint32{x, y, z}, constants, srvs, uavs)
	return nil
}

// resolveBindings checks that every slot the kernel needs is bound and that no texture is
// bound for reading and writing at the same time.
func (d *device) resolveBindings(k kernel, b bindings) ([]resolvedView, []resolvedView, error) {
	srvs := make([]resolvedView, host.MaxShaderResources)
	uavs := make([]resolvedView, host.MaxUnorderedAccessViews)
	read := make(map[host.TextureID]bool)

	for i, id := range b.srvs {
		if id == host.InvalidID {
			if i < k.def.SRVs {
				return nil, nil, fmt.Errorf("software: dispatch %q: SRV slot %d unbound", k.key, i)
			}
			continue
		}
		v, ok := d.views[id]
		if !ok {
			return nil, nil, fmt.Errorf("software: dispatch %q: SRV slot %d: %w", k.key, i, host.ErrUnknownHandle)
		}
		t, ok := d.textures[v.tex]
		if !ok {
			return nil, nil, fmt.Errorf("software: dispatch %q: SRV slot %d texture: %w", k.key, i, host.ErrUnknownHandle)
		}
		srvs[i] = resolvedView{tex: t, base: v.base}
		read[v.tex] = true
	}
	for i, id := range b.uavs {
		if id == host.InvalidID {
			if i < k.def.UAVs {
				return nil, nil, fmt.Errorf("software: dispatch %q: UAV slot %d unbound", k.key, i)
			}
			continue
		}
		v, ok := d.views[id]
		if !ok {
			return nil, nil, fmt.Errorf("software: dispatch %q: UAV slot %d: %w", k.key, i, host.ErrUnknownHandle)
		}
		if read[v.tex] {
			return nil, nil, fmt.Errorf("software: dispatch %q: texture %d bound for read and write", k.key, v.tex)
		}
		t, ok := d.textures[v.tex]
		if !ok {
			return nil, nil, fmt.Errorf("software: dispatch %q: UAV slot %d texture: %w", k.key, i, host.ErrUnknownHandle)
		}
		uavs[i] = resolvedView{tex: t, base: v.base}
	}
	return srvs, uavs, nil
}

// run executes the kernel over the group grid. Each row of groups is one pool task and the
// call returns once every row has finished, so commands complete in submission order.
func (d *device) run(def KernelDef, groups [3]uint32, constants []byte, srvs, uavs []resolvedView) {
	if def.Run == nil {
		return
	}
	var uniform any
	if def.Prepare != nil {
		uniform = def.Prepare(constants)
	}
	gs := [2]uint32{max(def.GroupSize[0], 1), max(def.GroupSize[1], 1)}
	width := groups[0] * gs[0]

	var wg sync.WaitGroup
	pool := d.workerPool()
	taskID := 0
	for gz := uint32(0); gz < groups[2]; gz++ {
		for gy := uint32(0); gy < groups[1]; gy++ {
			wg.Add(1)
			row := gy
			id := taskID
			taskID++
			pool.SubmitTask(worker.Task{
				ID: id,
				Do: func() (any, error) {
					defer wg.Done()
					inv := &Invocation{constants: constants, uniform: uniform, srvs: srvs, uavs: uavs}
					for ly := uint32(0); ly < gs[1]; ly++ {
						inv.Y = row*gs[1] + ly
						for x := uint32(0); x < width; x++ {
							inv.X = x
							def.Run(inv)
						}
					}
					return nil, nil
				},
			})
		}
	}
	wg.Wait()
}

func (d *device) CopyResource(dst, src host.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dt, st, err := d.copyPair(dst, src)
	if err != nil {
		return err
	}
	if dt.desc.Width != st.desc.Width || dt.desc.Height != st.desc.Height || dt.desc.MipLevels != st.desc.MipLevels || dt.desc.Format != st.desc.Format {
		return fmt.Errorf("software: copy resource: %q and %q differ in size or format", dt.desc.Label, st.desc.Label)
	}
	for level := range st.mips {
		copy(dt.mips[level], st.mips[level])
	}
	d.commands = append(d.commands, Command{Op: OpCopyResource, Dst: dst, Src: src})
	return nil
}

func (d *device) CopySubresourceRegion(dst host.TextureID, dstMip uint32, src host.TextureID, srcMip uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dt, st, err := d.copyPair(dst, src)
	if err != nil {
		return err
	}
	if int(dstMip) >= len(dt.mips) || int(srcMip) >= len(st.mips) {
		return fmt.Errorf("software: copy region: mip out of range")
	}
	if dt.extent(dstMip) != st.extent(srcMip) || dt.desc.Format != st.desc.Format {
		return fmt.Errorf("software: copy region: %q mip %d and %q mip %d differ in size or format", dt.desc.Label, dstMip, st.desc.Label, srcMip)
	}
	copy(dt.mips[dstMip], st.mips[srcMip])
	d.commands = append(d.commands, Command{Op: OpCopyRegion, Dst: dst, Src: src})
	return nil
}

func (d *device) copyPair(dst, src host.TextureID) (*texture, *texture, error) {
	dt, ok := d.textures[dst]
	if !ok {
		return nil, nil, fmt.Errorf("software: copy destination: %w", host.ErrUnknownHandle)
	}
	st, ok := d.textures[src]
	if !ok {
		return nil, nil, fmt.Errorf("software: copy source: %w", host.ErrUnknownHandle)
	}
	return dt, st, nil
}

func (d *device) GenerateMips(tex host.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[tex]
	if !ok {
		return fmt.Errorf("software: generate mips: %w", host.ErrUnknownHandle)
	}
	if t.desc.Format == gputypes.TextureFormatR32Uint {
		return fmt.Errorf("software: generate mips %q: integer format: %w", t.desc.Label, host.ErrUnsupported)
	}
	for level := uint32(1); level < t.desc.MipLevels; level++ {
		downsample(t, level)
	}
	d.commands = append(d.commands, Command{Op: OpGenerateMips, Dst: tex})
	return nil
}

// downsample box-filters mip level-1 into level.
func downsample(t *texture, level uint32) {
	src, dst := t.extent(level-1), t.extent(level)
	for y := range dst.Height {
		for x := range dst.Width {
			var sum [4]float32
			for _, o := range [4][2]uint32{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
				sx := min(x*2+o[0], src.Width-1)
				sy := min(y*2+o[1], src.Height-1)
				i := (sy*src.Width + sx) * 4
				for c := range 4 {
					sum[c] += t.mips[level-1][i+uint32(c)]
				}
			}
			i := (y*dst.Width + x) * 4
			for c := range 4 {
				t.mips[level][i+uint32(c)] = sum[c] / 4
			}
		}
	}
}

func (d *device) Fill(tex host.TextureID, mip uint32, fn func(x, y uint32) [4]float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[tex]
	if !ok || int(mip) >= len(t.mips) {
		return fmt.Errorf("software: fill: %w", host.ErrUnknownHandle)
	}
	ext := t.extent(mip)
	for y := range ext.Height {
		for x := range ext.Width {
			v := fn(x, y)
			copy(t.mips[mip][(y*ext.Width+x)*4:], v[:])
		}
	}
	return nil
}

func (d *device) Texels(tex host.TextureID, mip uint32) []float32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[tex]
	if !ok || int(mip) >= len(t.mips) {
		return nil
	}
	return slices.Clone(t.mips[mip])
}

func (d *device) Bytes(tex host.TextureID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[tex]
	if !ok {
		return nil
	}
	var out []byte
	for _, level := range t.mips {
		for _, v := range level {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}
	return out
}

func (d *device) BufferContents(buf host.BufferID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.buffers[buf])
}

func (d *device) TextureDesc(tex host.TextureID) (host.TextureDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[tex]
	if !ok {
		return host.TextureDesc{}, false
	}
	return t.desc, true
}

func (d *device) ViewTexture(v host.ViewID) (host.TextureID, uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	vw, ok := d.views[v]
	return vw.tex, vw.base, ok
}

func (d *device) KernelKey(k host.KernelID) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kernels[k].key
}

func (d *device) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.commands)
}

func (d *device) ResetCommands() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = d.commands[:0]
}

func (d *device) LiveResources() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	targets := 2 * len(d.targets)
	return len(d.textures) + len(d.views) + len(d.samplers) + len(d.buffers) + len(d.kernels) - targets
}

func (d *device) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		clear(d.textures)
		clear(d.views)
		clear(d.samplers)
		clear(d.buffers)
		clear(d.kernels)
		clear(d.targets)
		if d.pool != nil {
			d.pool.Stop()
		}
	})
}
