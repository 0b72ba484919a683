package software

import (
	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
)

// Op identifies the kind of a recorded command.
type Op int

const (
	OpDispatch Op = iota
	OpCopyResource
	OpCopyRegion
	OpGenerateMips
	OpWriteBuffer
)

// String returns the op name.
func (o Op) String() string {
	switch o {
	case OpDispatch:
		return "Dispatch"
	case OpCopyResource:
		return "CopyResource"
	case OpCopyRegion:
		return "CopySubresourceRegion"
	case OpGenerateMips:
		return "GenerateMips"
	case OpWriteBuffer:
		return "WriteBuffer"
	default:
		return "Unknown"
	}
}

// Command is one entry of the device's command log. Dispatches record the kernel key, the
// group counts and the bindings in effect; copies record their textures.
type Command struct {
	Op       Op
	Kernel   string
	Groups   [3]uint32
	CBs      [host.MaxConstantBuffers]host.BufferID
	Samplers [host.MaxSamplers]host.SamplerID
	SRVs     [host.MaxShaderResources]host.ViewID
	UAVs     [host.MaxUnorderedAccessViews]host.ViewID
	Dst      host.TextureID
	Src      host.TextureID
}

// KernelFunc runs one thread of a dispatch.
type KernelFunc func(inv *Invocation)

// KernelDef is a CPU kernel: its thread group size, the slots it requires to be bound, and
// the per-thread function. Prepare, when set, runs once per dispatch on the bound constant
// buffer and its result is available to every thread through Invocation.Uniform.
type KernelDef struct {
	GroupSize [2]uint32
	SRVs      int
	UAVs      int
	Prepare   func(constants []byte) any
	Run       KernelFunc
}

type texture struct {
	desc host.TextureDesc
	// mips holds RGBA float texels per level regardless of format.
	mips [][]float32
}

func (t *texture) extent(mip uint32) common.Extent2D {
	return common.Extent2D{Width: t.desc.Width, Height: t.desc.Height}.Mip(mip)
}

type view struct {
	tex   host.TextureID
	base  uint32
	count uint32
}

type kernel struct {
	key string
	def KernelDef
}

// bindings is the slot state captured when a dispatch starts.
type bindings struct {
	cbs      [host.MaxConstantBuffers]host.BufferID
	samplers [host.MaxSamplers]host.SamplerID
	srvs     [host.MaxShaderResources]host.ViewID
	uavs     [host.MaxUnorderedAccessViews]host.ViewID
	kernel   host.KernelID
}
