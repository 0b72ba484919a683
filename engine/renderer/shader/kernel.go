package shader

import (
	"fmt"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// kernel is the implementation of the Kernel interface.
// It holds the processed source and the layout metadata required for pipeline creation.
type kernel struct {
	key           string
	entry         string
	source        string
	bindings      []Binding
	layouts       map[int]wgpu.BindGroupLayoutDescriptor
	workGroupSize [3]uint32
	module        *wgpu.ShaderModuleDescriptor
}

// Kernel is a pre-processed compute kernel: one entry point of a WGSL source compiled with one
// define set, along with the bind group layouts and workgroup size parsed from it.
type Kernel interface {
	// Key retrieves the unique identifier for this kernel, the entry point plus its defines.
	//
	// Returns:
	//   - string: the kernel's unique key
	Key() string

	// EntryPoint returns the @compute function this kernel runs.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// Source retrieves the processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the kernel
	Source() string

	// Bindings returns every resource the kernel declares, ordered by group and binding.
	//
	// Returns:
	//   - []Binding: the declared resources
	Bindings() []Binding

	// BindGroupLayoutDescriptor retrieves the layout descriptor parsed for a bind group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, empty if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// WorkgroupSize returns the @workgroup_size of the kernel. Omitted dimensions are 1.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor for this kernel.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Kernel = &kernel{}

// NewKernel pre-processes a WGSL source for one define set and parses its layout metadata.
//
// Parameters:
//   - key: a unique identifier for the kernel, used for caching and labels
//   - entry: the @compute function the kernel runs
//   - source: the raw annotated WGSL source
//   - pp: the pre-processor that resolves includes and defines
//   - defines: the defines set for this variant
//
// Returns:
//   - Kernel: the parsed kernel
//   - error: an error if pre-processing fails or the source lacks the entry point
func NewKernel(key, entry, source string, pp PreProcessor, defines []string) (Kernel, error) {
	processed, err := pp.Process(source, defines)
	if err != nil {
		return nil, fmt.Errorf("shader: pre-process %s: %w", key, err)
	}
	if !slices.Contains(parseComputeEntryPoints(processed), entry) {
		return nil, fmt.Errorf("shader: %s has no @compute entry point %q", key, entry)
	}

	bindings := parseBindings(processed)
	return &kernel{
		key:           key,
		entry:         entry,
		source:        processed,
		bindings:      bindings,
		layouts:       bindGroupLayouts(bindings),
		workGroupSize: parseWorkgroupSize(processed),
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: processed,
			},
		},
	}, nil
}

func (k *kernel) Key() string {
	return k.key
}

func (k *kernel) EntryPoint() string {
	return k.entry
}

func (k *kernel) Source() string {
	return k.source
}

func (k *kernel) Bindings() []Binding {
	return k.bindings
}

func (k *kernel) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return k.layouts[group]
}

func (k *kernel) WorkgroupSize() [3]uint32 {
	return k.workGroupSize
}

func (k *kernel) Module() *wgpu.ShaderModuleDescriptor {
	return k.module
}
