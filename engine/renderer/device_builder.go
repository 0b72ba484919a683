package renderer

import (
	"github.com/Carmen-Shannon/oxy-ssgi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// DeviceBuilderOption is a functional option used to configure a Device during construction.
type DeviceBuilderOption func(*device)

// WithLabel sets the debug label used for the device's objects.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - DeviceBuilderOption: a function that sets the label
func WithLabel(label string) DeviceBuilderOption {
	return func(d *device) {
		d.label = label
	}
}

// WithKernelLibrary sets the library AcquireKernel loads kernels from.
//
// Parameters:
//   - lib: the kernel library
//
// Returns:
//   - DeviceBuilderOption: a function that sets the library
func WithKernelLibrary(lib shader.KernelLibrary) DeviceBuilderOption {
	return func(d *device) {
		d.library = lib
	}
}

// WithWGPUDevice records work on a wgpu device the host already owns. The device and queue are
// not released by Release.
//
// Parameters:
//   - wd: the host's wgpu device
//   - queue: the queue work is submitted to
//
// Returns:
//   - DeviceBuilderOption: a function that sets the backend
func WithWGPUDevice(wd *wgpu.Device, queue *wgpu.Queue) DeviceBuilderOption {
	return func(d *device) {
		d.backend = newWGPUDeviceBackend(wd, queue)
	}
}

// withBackend replaces the GPU backend.
func withBackend(b deviceBackend) DeviceBuilderOption {
	return func(d *device) {
		d.backend = b
	}
}
