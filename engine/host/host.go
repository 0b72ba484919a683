// Package host describes the narrow surface the screen-space effect needs from the renderer
// that hosts it: querying its render targets, creating and binding GPU resources, dispatching
// compute work and copying between resources. Resources are referred to by opaque handles so
// the effect never depends on a particular GPU API.
package host

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// TextureID, ViewID, SamplerID, BufferID and KernelID are opaque handles issued by a Device.
// The zero value never names a live resource and is used to unbind a slot.
type (
	TextureID uint64
	ViewID    uint64
	SamplerID uint64
	BufferID  uint64
	KernelID  uint64
)

// InvalidID is the handle value that never refers to a live resource.
const InvalidID = 0

// Slot limits of the compute binding model.
const (
	// MaxShaderResources is the number of read-only texture slots.
	MaxShaderResources = 5

	// MaxUnorderedAccessViews is the number of writable texture slots.
	MaxUnorderedAccessViews = 5

	// MaxSamplers is the number of sampler slots.
	MaxSamplers = 2

	// MaxConstantBuffers is the number of constant buffer slots.
	MaxConstantBuffers = 1
)

var (
	// ErrUnknownHandle is returned when a handle does not name a live resource.
	ErrUnknownHandle = errors.New("host: unknown handle")

	// ErrUnsupported is returned for requests the device cannot satisfy.
	ErrUnsupported = errors.New("host: unsupported")

	// ErrNoKernel is returned by Dispatch when no kernel is bound.
	ErrNoKernel = errors.New("host: no kernel bound")
)

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label     string
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    gputypes.TextureFormat
	Usage     gputypes.TextureUsage
}

// ViewDesc selects the mip range a view exposes. MipCount 0 means every level from BaseMip.
type ViewDesc struct {
	Label    string
	BaseMip  uint32
	MipCount uint32
}

// SamplerDesc describes a sampler with a single filter and address mode on every axis.
type SamplerDesc struct {
	Label       string
	Filter      gputypes.FilterMode
	AddressMode gputypes.AddressMode
}

// BufferDesc describes a constant buffer.
type BufferDesc struct {
	Label string
	Size  uint64
}

// KernelDesc names a compute kernel by entry point and preprocessor defines.
type KernelDesc struct {
	Entry   string
	Defines []string
}

// Key returns a stable identity for the entry point and define set.
//
// Returns:
//   - string: the entry point followed by "+DEFINE" for each define in order
func (k KernelDesc) Key() string {
	key := k.Entry
	for _, d := range k.Defines {
		key += "+" + d
	}
	return key
}

// RenderTarget names a render target owned by the host.
type RenderTarget int

const (
	// RenderTargetColor is the shared lit color target the effect reads and writes back into.
	RenderTargetColor RenderTarget = iota

	// RenderTargetNormal is the primary normal buffer.
	RenderTargetNormal

	// RenderTargetNormalSwap is the alternate normal buffer the host ping-pongs with.
	RenderTargetNormalSwap

	// RenderTargetDepth is the linearizable scene depth after the depth pre-pass.
	RenderTargetDepth

	// RenderTargetMotionVectors holds per-pixel screen-space motion.
	RenderTargetMotionVectors

	// RenderTargetAmbient holds the ambient lighting term.
	RenderTargetAmbient

	// RenderTargetAlbedo holds surface albedo.
	RenderTargetAlbedo
)

// String returns the target's name for logs.
func (r RenderTarget) String() string {
	switch r {
	case RenderTargetColor:
		return "Color"
	case RenderTargetNormal:
		return "Normal"
	case RenderTargetNormalSwap:
		return "NormalSwap"
	case RenderTargetDepth:
		return "Depth"
	case RenderTargetMotionVectors:
		return "MotionVectors"
	case RenderTargetAmbient:
		return "Ambient"
	case RenderTargetAlbedo:
		return "Albedo"
	default:
		return "Unknown"
	}
}

// Target is a host render target: its texture, a view of all its mips, and its description.
type Target struct {
	Texture TextureID
	View    ViewID
	Desc    TextureDesc
}

// ShaderType tags a host draw call with the kind of shader it uses.
type ShaderType int

const (
	ShaderTypeUnknown ShaderType = iota
	ShaderTypeLighting
	ShaderTypeEffect
	ShaderTypeWater
	ShaderTypeSky
	ShaderTypeGrass
	ShaderTypeParticle
	ShaderTypeImageSpace
)

// Device is the host renderer as seen by the effect. Commands execute in submission order on a
// single ordered stream; binding state persists until changed. Implementations are not required
// to be safe for concurrent use.
type Device interface {
	// Target looks up one of the host's render targets.
	//
	// Parameters:
	//   - rt: the render target to look up
	//
	// Returns:
	//   - Target: the target's handles and description
	//   - bool: false if the host does not provide this target
	Target(rt RenderTarget) (Target, bool)

	// BoundRenderTarget reports which host render target is bound to an output slot right now.
	//
	// Parameters:
	//   - slot: the render target output slot
	//
	// Returns:
	//   - RenderTarget: the bound target
	//   - bool: false if the slot is empty or holds something other than a known target
	BoundRenderTarget(slot int) (RenderTarget, bool)

	// CreateTexture allocates a texture.
	//
	// Parameters:
	//   - desc: the texture description
	//
	// Returns:
	//   - TextureID: the new texture
	//   - error: an error if allocation fails
	CreateTexture(desc TextureDesc) (TextureID, error)

	// CreateView creates a view over a mip range of a texture.
	//
	// Parameters:
	//   - tex: the texture to view
	//   - desc: the mip range
	//
	// Returns:
	//   - ViewID: the new view
	//   - error: an error if tex is unknown or the range is invalid
	CreateView(tex TextureID, desc ViewDesc) (ViewID, error)

	// CreateSampler creates a sampler.
	//
	// Parameters:
	//   - desc: the sampler description
	//
	// Returns:
	//   - SamplerID: the new sampler
	//   - error: an error if creation fails
	CreateSampler(desc SamplerDesc) (SamplerID, error)

	// CreateBuffer allocates a constant buffer.
	//
	// Parameters:
	//   - desc: the buffer description
	//
	// Returns:
	//   - BufferID: the new buffer
	//   - error: an error if allocation fails
	CreateBuffer(desc BufferDesc) (BufferID, error)

	// AcquireKernel loads and compiles a compute kernel.
	//
	// Parameters:
	//   - desc: the entry point and defines
	//
	// Returns:
	//   - KernelID: the kernel handle
	//   - error: an error if the kernel cannot be found or fails to compile
	AcquireKernel(desc KernelDesc) (KernelID, error)

	// WriteBuffer replaces a buffer's contents.
	//
	// Parameters:
	//   - buf: the buffer to write
	//   - data: the bytes to upload, at most the buffer size
	//
	// Returns:
	//   - error: an error if buf is unknown or data is too large
	WriteBuffer(buf BufferID, data []byte) error

	// ReleaseTexture frees a texture. Views of it become invalid.
	ReleaseTexture(tex TextureID)

	// ReleaseView frees a view.
	ReleaseView(view ViewID)

	// ReleaseSampler frees a sampler.
	ReleaseSampler(s SamplerID)

	// ReleaseBuffer frees a buffer.
	ReleaseBuffer(buf BufferID)

	// ReleaseKernel frees a kernel.
	ReleaseKernel(k KernelID)

	// SetConstantBuffers binds buffers starting at slot start. InvalidID unbinds a slot.
	SetConstantBuffers(start int, bufs []BufferID)

	// SetSamplers binds samplers starting at slot start. InvalidID unbinds a slot.
	SetSamplers(start int, samplers []SamplerID)

	// SetShaderResources binds read-only views starting at slot start. InvalidID unbinds a slot.
	SetShaderResources(start int, views []ViewID)

	// SetUnorderedAccessViews binds writable views starting at slot start. InvalidID unbinds a slot.
	// Only the first mip of each view is written.
	SetUnorderedAccessViews(start int, views []ViewID)

	// SetKernel binds the kernel used by Dispatch. InvalidID unbinds it.
	SetKernel(k KernelID)

	// Dispatch runs the bound kernel over a grid of thread groups.
	//
	// Parameters:
	//   - x, y, z: the number of thread groups along each axis
	//
	// Returns:
	//   - error: an error if no kernel is bound or a kernel binding is missing
	Dispatch(x, y, z uint32) error

	// CopyResource copies every mip of src into dst. Both must share format and size.
	//
	// Returns:
	//   - error: an error if either handle is unknown or the textures are incompatible
	CopyResource(dst, src TextureID) error

	// CopySubresourceRegion copies one whole mip of src into one mip of dst.
	//
	// Returns:
	//   - error: an error if either handle is unknown or the mips differ in size
	CopySubresourceRegion(dst TextureID, dstMip uint32, src TextureID, srcMip uint32) error

	// GenerateMips fills mips 1..n-1 of a texture by successive box downsampling of mip 0.
	//
	// Returns:
	//   - error: an error if tex is unknown or its format cannot be downsampled
	GenerateMips(tex TextureID) error
}

// UnbindShaderResources clears every read-only slot.
//
// Parameters:
//   - d: the device to unbind on
func UnbindShaderResources(d Device) {
	d.SetShaderResources(0, make([]ViewID, MaxShaderResources))
}

// UnbindUnorderedAccessViews clears every writable slot.
//
// Parameters:
//   - d: the device to unbind on
func UnbindUnorderedAccessViews(d Device) {
	d.SetUnorderedAccessViews(0, make([]ViewID, MaxUnorderedAccessViews))
}

// UnbindAll clears every slot and the bound kernel.
//
// Parameters:
//   - d: the device to unbind on
func UnbindAll(d Device) {
	d.SetConstantBuffers(0, make([]BufferID, MaxConstantBuffers))
	d.SetSamplers(0, make([]SamplerID, MaxSamplers))
	UnbindShaderResources(d)
	UnbindUnorderedAccessViews(d)
	d.SetKernel(InvalidID)
}
