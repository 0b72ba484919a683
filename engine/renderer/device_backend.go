package renderer

import (
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// gpuObject is a backend resource. Every wgpu handle the backend hands out satisfies it.
type gpuObject interface {
	Release()
}

// boundResource is one entry of the bind group a dispatch uses.
type boundResource struct {
	Binding uint32
	Object  gpuObject
}

// deviceBackend performs the GPU work behind a Device. The device owns handle bookkeeping,
// binding validation and pipeline caching; the backend only creates objects and records
// commands. Commands are recorded in call order onto one stream and submitted by Flush.
type deviceBackend interface {
	// CreateTexture allocates a texture with every usage the description asks for.
	//
	// Parameters:
	//   - desc: the texture description
	//   - info: the resolved wgpu format
	//
	// Returns:
	//   - gpuObject: the texture
	//   - error: an error if allocation fails
	CreateTexture(desc host.TextureDesc, info formatInfo) (gpuObject, error)

	// CreateView creates a view over a mip range of a texture.
	//
	// Parameters:
	//   - tex: the texture returned by CreateTexture or wrapped by the host
	//   - info: the texture's wgpu format
	//   - base: the first mip level
	//   - count: the number of mip levels
	//   - label: a debug label
	//
	// Returns:
	//   - gpuObject: the view
	//   - error: an error if creation fails
	CreateView(tex gpuObject, info formatInfo, base, count uint32, label string) (gpuObject, error)

	// CreateSampler creates a clamped sampler.
	CreateSampler(desc host.SamplerDesc) (gpuObject, error)

	// CreateBuffer allocates a uniform buffer that can be written from the host.
	CreateBuffer(desc host.BufferDesc) (gpuObject, error)

	// CreatePipeline compiles a kernel into a compute pipeline whose group 0 layout is entries.
	//
	// Parameters:
	//   - k: the kernel
	//   - entries: the group 0 layout with sample and sampler types matched to the bound resources
	//
	// Returns:
	//   - gpuObject: the pipeline
	//   - error: an error if the module, layout or pipeline cannot be created
	CreatePipeline(k shader.Kernel, entries []wgpu.BindGroupLayoutEntry) (gpuObject, error)

	// WriteBuffer queues a buffer upload.
	WriteBuffer(buf gpuObject, data []byte) error

	// Dispatch records a compute pass binding resources at group 0.
	//
	// Parameters:
	//   - pipeline: the pipeline returned by CreatePipeline
	//   - resources: the bind group entries in binding order
	//   - groups: the workgroup counts
	//
	// Returns:
	//   - error: an error if the bind group cannot be created
	Dispatch(pipeline gpuObject, resources []boundResource, groups [3]uint32) error

	// CopyTexture records a copy of one whole mip level.
	CopyTexture(dst gpuObject, dstMip uint32, src gpuObject, srcMip uint32, width, height uint32) error

	// GenerateMips records a box downsample of every mip level from the one above it.
	GenerateMips(tex gpuObject, desc host.TextureDesc, info formatInfo) error

	// Flush submits everything recorded since the previous Flush.
	Flush() error

	// Release frees the backend's own objects. Resources handed out earlier are released by the device.
	Release()
}
