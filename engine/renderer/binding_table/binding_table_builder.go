package binding_table

import "github.com/Carmen-Shannon/oxy-ssgi/engine/host"

// TableOption is a functional option used to configure a Table during construction.
type TableOption func(*bindingTable)

// WithConstantBuffer binds a buffer to a constant buffer slot.
//
// Parameters:
//   - slot: the constant buffer slot
//   - id: the buffer to bind
//
// Returns:
//   - TableOption: a function that binds the buffer
func WithConstantBuffer(slot int, id host.BufferID) TableOption {
	return func(t *bindingTable) {
		t.SetConstantBuffers(slot, []host.BufferID{id})
	}
}

// WithSamplers binds samplers starting at slot 0.
//
// Parameters:
//   - ids: the samplers to bind
//
// Returns:
//   - TableOption: a function that binds the samplers
func WithSamplers(ids ...host.SamplerID) TableOption {
	return func(t *bindingTable) {
		t.SetSamplers(0, ids)
	}
}
