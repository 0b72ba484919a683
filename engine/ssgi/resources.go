package ssgi

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/gogpu/gputypes"
)

// WorkingDepthMips is the number of mip levels of the prefiltered depth and radiance textures.
const WorkingDepthMips = 5

// Texture is a texture owned by the effect with its full-range view.
type Texture struct {
	ID   host.TextureID
	View host.ViewID
	Desc host.TextureDesc
}

// ResourceSet holds every GPU handle the effect creates. A zero handle means not created.
type ResourceSet struct {
	HilbertLUT   Texture
	Color0       Texture
	Color1       Texture
	Radiance     Texture
	GI0          Texture
	GI1          Texture
	Edge         Texture
	WorkingDepth Texture

	// WorkingDepthMipViews has one single-mip view per working depth level, bound as the
	// prefilter's outputs.
	WorkingDepthMipViews [WorkingDepthMips]host.ViewID

	PointClamp  host.SamplerID
	LinearClamp host.SamplerID

	Constants host.BufferID
}

// ResourceManager owns the effect's GPU resources. Resources are created lazily by
// SetupResources and live until released.
type ResourceManager interface {
	// SetupResources creates whatever is missing: the constant buffer, each kernel that is not
	// held, and the texture set and samplers if the primary working texture does not exist.
	// When everything exists it makes no device calls. On failure every resource created so far
	// is released.
	//
	// Returns:
	//   - error: an error if any resource could not be created
	SetupResources() error

	// Ready reports whether every resource and kernel is held.
	Ready() bool

	// ClearKernels releases every kernel handle.
	ClearKernels()

	// ReleaseTextures releases textures, views, samplers and the constant buffer.
	ReleaseTextures()

	// UploadConstants writes the payload into the constant buffer.
	//
	// Parameters:
	//   - c: the payload to upload
	//
	// Returns:
	//   - error: an error if the constant buffer does not exist or the write fails
	UploadConstants(c Constants) error

	// Resources returns the current handles.
	Resources() ResourceSet

	// Kernel returns the handle of an acquired kernel, or host.InvalidID.
	Kernel(desc host.KernelDesc) host.KernelID
}

// resourceManager is the implementation of the ResourceManager interface.
type resourceManager struct {
	device  host.Device
	set     ResourceSet
	kernels map[string]host.KernelID
}

var _ ResourceManager = &resourceManager{}

// NewResourceManager creates a resource manager that allocates on d. Nothing is created until
// SetupResources.
//
// Parameters:
//   - d: the host device
//
// Returns:
//   - ResourceManager: the new manager
func NewResourceManager(d host.Device) ResourceManager {
	return &resourceManager{
		device:  d,
		kernels: make(map[string]host.KernelID),
	}
}

func (m *resourceManager) SetupResources() error {
	err := m.setup()
	if err != nil {
		m.ClearKernels()
		m.ReleaseTextures()
	}
	return err
}

func (m *resourceManager) setup() error {
	if m.set.Constants == host.InvalidID {
		var c Constants
		buf, err := m.device.CreateBuffer(host.BufferDesc{Label: "SSGI Constants", Size: uint64(c.Size())})
		if err != nil {
			return fmt.Errorf("create constant buffer: %w", err)
		}
		m.set.Constants = buf
	}

	for _, desc := range Kernels() {
		if _, ok := m.kernels[desc.Key()]; ok {
			continue
		}
		k, err := m.device.AcquireKernel(desc)
		if err != nil {
			return fmt.Errorf("acquire kernel %s: %w", desc.Key(), err)
		}
		m.kernels[desc.Key()] = k
	}

	if m.set.GI0.ID != host.InvalidID {
		return nil
	}
	return m.createTextures()
}

func (m *resourceManager) createTextures() error {
	color, ok := m.device.Target(host.RenderTargetColor)
	if !ok {
		return fmt.Errorf("color target: %w", host.ErrUnknownHandle)
	}
	w, h := color.Desc.Width, color.Desc.Height
	storage := gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding
	copyable := gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst

	textures := []struct {
		dst  *Texture
		desc host.TextureDesc
	}{
		{&m.set.HilbertLUT, host.TextureDesc{Label: "SSGI Hilbert LUT", Width: HilbertLUTSize, Height: HilbertLUTSize, MipLevels: 1, Format: gputypes.TextureFormatR32Uint, Usage: storage}},
		{&m.set.Color0, host.TextureDesc{Label: "SSGI Color 0", Width: w, Height: h, MipLevels: 1, Format: color.Desc.Format, Usage: gputypes.TextureUsageTextureBinding | copyable}},
		{&m.set.Color1, host.TextureDesc{Label: "SSGI Color 1", Width: w, Height: h, MipLevels: 1, Format: color.Desc.Format, Usage: storage | copyable}},
		{&m.set.Radiance, host.TextureDesc{Label: "SSGI Radiance", Width: w, Height: h, MipLevels: WorkingDepthMips, Format: color.Desc.Format, Usage: storage | gputypes.TextureUsageRenderAttachment}},
		{&m.set.GI0, host.TextureDesc{Label: "SSGI GI 0", Width: w, Height: h, MipLevels: 1, Format: gputypes.TextureFormatRGBA16Float, Usage: storage}},
		{&m.set.GI1, host.TextureDesc{Label: "SSGI GI 1", Width: w, Height: h, MipLevels: 1, Format: gputypes.TextureFormatRGBA16Float, Usage: storage}},
		{&m.set.Edge, host.TextureDesc{Label: "SSGI Edge", Width: w, Height: h, MipLevels: 1, Format: gputypes.TextureFormatR32Float, Usage: storage}},
		{&m.set.WorkingDepth, host.TextureDesc{Label: "SSGI Working Depth", Width: w, Height: h, MipLevels: WorkingDepthMips, Format: gputypes.TextureFormatR32Float, Usage: storage}},
	}
	for _, tex := range textures {
		if err := m.createTexture(tex.dst, tex.desc); err != nil {
			return err
		}
	}

	for level := range uint32(WorkingDepthMips) {
		v, err := m.device.CreateView(m.set.WorkingDepth.ID, host.ViewDesc{
			Label:    fmt.Sprintf("SSGI Working Depth Mip %d", level),
			BaseMip:  level,
			MipCount: 1,
		})
		if err != nil {
			return fmt.Errorf("create working depth mip %d view: %w", level, err)
		}
		m.set.WorkingDepthMipViews[level] = v
	}

	linear, err := m.device.CreateSampler(host.SamplerDesc{Label: "SSGI Linear Clamp", Filter: gputypes.FilterModeLinear, AddressMode: gputypes.AddressModeClampToEdge})
	if err != nil {
		return fmt.Errorf("create linear sampler: %w", err)
	}
	m.set.LinearClamp = linear

	point, err := m.device.CreateSampler(host.SamplerDesc{Label: "SSGI Point Clamp", Filter: gputypes.FilterModeNearest, AddressMode: gputypes.AddressModeClampToEdge})
	if err != nil {
		return fmt.Errorf("create point sampler: %w", err)
	}
	m.set.PointClamp = point

	common.Logger().Debug("[SSGI] resources created", "width", w, "height", h, "colorFormat", color.Desc.Format)
	return nil
}

func (m *resourceManager) createTexture(dst *Texture, desc host.TextureDesc) error {
	id, err := m.device.CreateTexture(desc)
	if err != nil {
		return fmt.Errorf("create %s: %w", desc.Label, err)
	}
	dst.ID = id
	dst.Desc = desc

	v, err := m.device.CreateView(id, host.ViewDesc{Label: desc.Label})
	if err != nil {
		return fmt.Errorf("create %s view: %w", desc.Label, err)
	}
	dst.View = v
	return nil
}

func (m *resourceManager) Ready() bool {
	return m.set.GI0.ID != host.InvalidID && m.set.Constants != host.InvalidID && len(m.kernels) == len(Kernels())
}

func (m *resourceManager) ClearKernels() {
	for key, k := range m.kernels {
		m.device.ReleaseKernel(k)
		delete(m.kernels, key)
	}
}

func (m *resourceManager) ReleaseTextures() {
	for _, t := range m.textures() {
		if t.View != host.InvalidID {
			m.device.ReleaseView(t.View)
		}
	}
	for _, v := range m.set.WorkingDepthMipViews {
		if v != host.InvalidID {
			m.device.ReleaseView(v)
		}
	}
	for _, t := range m.textures() {
		if t.ID != host.InvalidID {
			m.device.ReleaseTexture(t.ID)
		}
	}
	for _, s := range []host.SamplerID{m.set.PointClamp, m.set.LinearClamp} {
		if s != host.InvalidID {
			m.device.ReleaseSampler(s)
		}
	}
	if m.set.Constants != host.InvalidID {
		m.device.ReleaseBuffer(m.set.Constants)
	}
	m.set = ResourceSet{}
}

func (m *resourceManager) textures() []*Texture {
	return []*Texture{
		&m.set.HilbertLUT,
		&m.set.Color0,
		&m.set.Color1,
		&m.set.Radiance,
		&m.set.GI0,
		&m.set.GI1,
		&m.set.Edge,
		&m.set.WorkingDepth,
	}
}

func (m *resourceManager) UploadConstants(c Constants) error {
	if m.set.Constants == host.InvalidID {
		return errors.New("ssgi: constant buffer not created")
	}
	return m.device.WriteBuffer(m.set.Constants, c.Marshal())
}

func (m *resourceManager) Resources() ResourceSet {
	return m.set
}

func (m *resourceManager) Kernel(desc host.KernelDesc) host.KernelID {
	return m.kernels[desc.Key()]
}
