package software

import (
	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/gogpu/gputypes"
)

// DeviceBuilderOption is a functional option for configuring a software Device.
type DeviceBuilderOption func(*device)

// WithSize sets the size of the host render targets.
//
// Parameters:
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - DeviceBuilderOption: the option
func WithSize(width, height uint32) DeviceBuilderOption {
	return func(d *device) {
		d.size = common.Extent2D{Width: width, Height: height}
	}
}

// WithColorFormat sets the format of the host Color target.
func WithColorFormat(format gputypes.TextureFormat) DeviceBuilderOption {
	return func(d *device) {
		d.colorFormat = format
	}
}

// WithWorkers sets how many goroutines run kernel rows in parallel.
//
// Parameters:
//   - n: the worker count, values below 1 are treated as 1
//
// Returns:
//   - DeviceBuilderOption: the option
func WithWorkers(n int) DeviceBuilderOption {
	return func(d *device) {
		d.workers = max(n, 1)
	}
}

// WithoutTarget leaves a host render target unallocated, as a host without that buffer would.
func WithoutTarget(rt host.RenderTarget) DeviceBuilderOption {
	return func(d *device) {
		d.omitTargets[rt] = true
	}
}

// WithFailingTexture makes CreateTexture fail for the given label.
//
// Parameters:
//   - label: the texture label that fails to allocate
//
// Returns:
//   - DeviceBuilderOption: the option
func WithFailingTexture(label string) DeviceBuilderOption {
	return func(d *device) {
		d.failTextures[label] = true
	}
}

// WithFailingKernel makes AcquireKernel fail for the given kernel even when registered.
func WithFailingKernel(desc host.KernelDesc) DeviceBuilderOption {
	return func(d *device) {
		d.acquireFailed[desc.Key()] = true
	}
}

// WithKernel registers a CPU kernel at construction.
//
// Parameters:
//   - desc: the entry point and defines the kernel answers to
//   - def: the kernel definition
//
// Returns:
//   - DeviceBuilderOption: the option
func WithKernel(desc host.KernelDesc, def KernelDef) DeviceBuilderOption {
	return func(d *device) {
		d.registry[desc.Key()] = def
	}
}
