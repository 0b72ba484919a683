package ssgi

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageHilbertLUT    StageName = "HilbertLUT"
	StagePrefilter     StageName = "PrefilterDepths"
	StageRadiance      StageName = "FetchRadiance"
	StageEstimate      StageName = "GTAO"
	StageDenoise       StageName = "Denoise"
	StageDenoiseLast   StageName = "DenoiseLast"
	StageMix           StageName = "Mix"
	StageRadianceMips  StageName = "RadianceMips"
	StageColorCopy     StageName = "ColorCopy"
	StageColorWriteout StageName = "ColorWriteout"
)

// PipelineStage is one compute dispatch: a kernel, its ordered inputs and outputs, and its
// thread group counts.
type PipelineStage struct {
	Name    StageName
	Kernel  host.KernelID
	Inputs  []host.ViewID
	Outputs []host.ViewID
	Groups  [3]uint32
}

// NewStage builds a stage whose group counts cover size at groupSize pixels per group.
//
// Parameters:
//   - name: the stage name
//   - kernel: the kernel to dispatch
//   - size: the effective (dynamically scaled) resolution
//   - groupSize: pixels per group on each axis
//
// Returns:
//   - PipelineStage: the stage with no bindings yet
func NewStage(name StageName, kernel host.KernelID, size common.Float2, groupSize uint32) PipelineStage {
	return PipelineStage{
		Name:   name,
		Kernel: kernel,
		Groups: common.DispatchGroups(size, groupSize),
	}
}

// Read appends views to the stage's inputs in slot order.
func (s PipelineStage) Read(views ...host.ViewID) PipelineStage {
	s.Inputs = append(s.Inputs, views...)
	return s
}

// Write appends views to the stage's outputs in slot order.
func (s PipelineStage) Write(views ...host.ViewID) PipelineStage {
	s.Outputs = append(s.Outputs, views...)
	return s
}

// Run binds the stage, dispatches it and unbinds every read and write slot so the next stage
// starts from a clean binding state.
//
// Parameters:
//   - d: the device to run on
//
// Returns:
//   - error: the dispatch error, if any
func (s PipelineStage) Run(d host.Device) error {
	if len(s.Inputs) > 0 {
		d.SetShaderResources(0, s.Inputs)
	}
	if len(s.Outputs) > 0 {
		d.SetUnorderedAccessViews(0, s.Outputs)
	}
	d.SetKernel(s.Kernel)
	err := d.Dispatch(s.Groups[0], s.Groups[1], s.Groups[2])

	host.UnbindShaderResources(d)
	host.UnbindUnorderedAccessViews(d)
	if err != nil {
		return fmt.Errorf("stage %s: %w", s.Name, err)
	}
	return nil
}
