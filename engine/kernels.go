package engine

import (
	"io/fs"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
	"github.com/gogpu/gputypes"
)

// NewKernelLibrary loads the effect's embedded kernels for a host color format. Kernels get the
// constant struct through @oxy:include and the color format's storage texel format through
// ${COLOR_FORMAT}.
//
// Parameters:
//   - colorFormat: the format of the host color target
//   - validate: if true, every kernel is validated with naga when loaded
//
// Returns:
//   - shader.KernelLibrary: the library
//   - error: host.ErrUnsupported if kernels cannot write textures of colorFormat
func NewKernelLibrary(colorFormat gputypes.TextureFormat, validate bool) (shader.KernelLibrary, error) {
	return newKernelLibrary(ssgi.KernelSources, ssgi.KernelDir, colorFormat, validate)
}

func newKernelLibrary(fsys fs.FS, dir string, colorFormat gputypes.TextureFormat, validate bool) (shader.KernelLibrary, error) {
	texel, err := renderer.StorageTexelFormat(colorFormat)
	if err != nil {
		return nil, err
	}
	pp := shader.NewPreProcessor(
		shader.WithInclude(ssgi.ConstantsInclude, ssgi.ConstantsSource, ssgi.ConstantsTypeName),
		shader.WithSubstitution(ssgi.ColorFormatSubstitution, texel),
	)
	opts := []shader.KernelLibraryOption{shader.WithDirectory(dir), shader.WithPreProcessor(pp)}
	if validate {
		opts = append(opts, shader.WithValidation())
	}
	return shader.NewKernelLibrary(fsys, opts...), nil
}

// NewWGPUDevice creates a headless WebGPU device that runs the effect's embedded kernels. The
// host registers its render targets on it with RegisterTarget.
//
// Parameters:
//   - colorFormat: the format of the host color target
//   - validate: if true, kernels are validated with naga when loaded
//   - options: additional device options, e.g. renderer.WithWGPUDevice to share the host's device
//
// Returns:
//   - renderer.Device: the device
//   - error: host.ErrUnsupported if kernels cannot write textures of colorFormat
func NewWGPUDevice(colorFormat gputypes.TextureFormat, validate bool, options ...renderer.DeviceBuilderOption) (renderer.Device, error) {
	lib, err := NewKernelLibrary(colorFormat, validate)
	if err != nil {
		return nil, err
	}
	opts := append([]renderer.DeviceBuilderOption{renderer.WithKernelLibrary(lib)}, options...)
	return renderer.NewDevice(opts...), nil
}
