package binding_table

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
)

// Binding indices of the compute bind group. Every kernel declares its resources in group 0 and
// the slots of each kind follow one another: constant buffers, samplers, read-only views, then
// writable views.
const (
	ConstantBufferBinding  uint32 = 0
	SamplerBinding         uint32 = ConstantBufferBinding + host.MaxConstantBuffers
	ShaderResourceBinding  uint32 = SamplerBinding + host.MaxSamplers
	UnorderedAccessBinding uint32 = ShaderResourceBinding + host.MaxShaderResources

	// BindingCount is one past the last binding index a kernel may declare.
	BindingCount uint32 = UnorderedAccessBinding + host.MaxUnorderedAccessViews
)

// Kind is the category of resource a binding index holds.
type Kind int

const (
	KindConstantBuffer Kind = iota
	KindSampler
	KindShaderResource
	KindUnorderedAccess
)

// String returns the kind's name for logs and errors.
func (k Kind) String() string {
	switch k {
	case KindConstantBuffer:
		return "constant buffer"
	case KindSampler:
		return "sampler"
	case KindShaderResource:
		return "SRV"
	case KindUnorderedAccess:
		return "UAV"
	default:
		return "unknown"
	}
}

// Classify maps a binding index to its kind and slot within that kind.
//
// Parameters:
//   - binding: the @binding index declared by a kernel
//
// Returns:
//   - Kind: the resource kind
//   - int: the slot within the kind
//   - bool: false if binding lies outside the convention
func Classify(binding uint32) (Kind, int, bool) {
	switch {
	case binding < SamplerBinding:
		return KindConstantBuffer, int(binding - ConstantBufferBinding), true
	case binding < ShaderResourceBinding:
		return KindSampler, int(binding - SamplerBinding), true
	case binding < UnorderedAccessBinding:
		return KindShaderResource, int(binding - ShaderResourceBinding), true
	case binding < BindingCount:
		return KindUnorderedAccess, int(binding - UnorderedAccessBinding), true
	default:
		return 0, 0, false
	}
}

// BindingIndex is the inverse of Classify.
//
// Parameters:
//   - kind: the resource kind
//   - slot: the slot within the kind
//
// Returns:
//   - uint32: the binding index
func BindingIndex(kind Kind, slot int) uint32 {
	switch kind {
	case KindSampler:
		return SamplerBinding + uint32(slot)
	case KindShaderResource:
		return ShaderResourceBinding + uint32(slot)
	case KindUnorderedAccess:
		return UnorderedAccessBinding + uint32(slot)
	default:
		return ConstantBufferBinding + uint32(slot)
	}
}

// Entry is one occupied binding.
type Entry struct {
	Binding uint32
	Kind    Kind
	Slot    int
	ID      uint64
}

// bindingTable is the implementation of Table.
type bindingTable struct {
	label    string
	buffers  [host.MaxConstantBuffers]host.BufferID
	samplers [host.MaxSamplers]host.SamplerID
	srvs     [host.MaxShaderResources]host.ViewID
	uavs     [host.MaxUnorderedAccessViews]host.ViewID
	version  uint64
}

// Table holds the resources currently bound to each compute slot. Devices keep one table as
// their binding state and turn its entries into a bind group when a kernel is dispatched.
// Slots outside the valid range are ignored on Set.
type Table interface {
	// Label returns the debug label for this table.
	Label() string

	// SetConstantBuffers binds buffers starting at slot start.
	SetConstantBuffers(start int, ids []host.BufferID)

	// SetSamplers binds samplers starting at slot start.
	SetSamplers(start int, ids []host.SamplerID)

	// SetShaderResources binds read-only views starting at slot start.
	SetShaderResources(start int, ids []host.ViewID)

	// SetUnorderedAccessViews binds writable views starting at slot start.
	SetUnorderedAccessViews(start int, ids []host.ViewID)

	// Lookup returns the handle bound at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - Entry: the binding's kind, slot and handle
	//   - error: an error if the index is outside the convention or the slot is empty
	Lookup(binding uint32) (Entry, error)

	// Entries returns every occupied binding ordered by binding index.
	//
	// Returns:
	//   - []Entry: the occupied bindings
	Entries() []Entry

	// Version increases every time a slot changes. Equal versions mean equal contents.
	//
	// Returns:
	//   - uint64: the change counter
	Version() uint64

	// Reset empties every slot.
	Reset()
}

var _ Table = &bindingTable{}

// NewTable creates an empty binding table.
//
// Parameters:
//   - label: a debug label
//   - options: functional options applied after the table is created
//
// Returns:
//   - Table: the new table
func NewTable(label string, options ...TableOption) Table {
	t := &bindingTable{label: label}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *bindingTable) Label() string {
	return t.label
}

func (t *bindingTable) SetConstantBuffers(start int, ids []host.BufferID) {
	t.version += setSlots(t.buffers[:], start, ids)
}

func (t *bindingTable) SetSamplers(start int, ids []host.SamplerID) {
	t.version += setSlots(t.samplers[:], start, ids)
}

func (t *bindingTable) SetShaderResources(start int, ids []host.ViewID) {
	t.version += setSlots(t.srvs[:], start, ids)
}

func (t *bindingTable) SetUnorderedAccessViews(start int, ids []host.ViewID) {
	t.version += setSlots(t.uavs[:], start, ids)
}

func (t *bindingTable) Lookup(binding uint32) (Entry, error) {
	kind, slot, ok := Classify(binding)
	if !ok {
		return Entry{}, fmt.Errorf("%s: binding %d is outside the compute binding range", t.label, binding)
	}
	id := t.id(kind, slot)
	if id == host.InvalidID {
		return Entry{}, fmt.Errorf("%s: %s slot %d unbound", t.label, kind, slot)
	}
	return Entry{Binding: binding, Kind: kind, Slot: slot, ID: id}, nil
}

func (t *bindingTable) Entries() []Entry {
	var entries []Entry
	for b := ConstantBufferBinding; b < BindingCount; b++ {
		if e, err := t.Lookup(b); err == nil {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Binding < entries[j].Binding
	})
	return entries
}

func (t *bindingTable) Version() uint64 {
	return t.version
}

func (t *bindingTable) Reset() {
	t.buffers = [host.MaxConstantBuffers]host.BufferID{}
	t.samplers = [host.MaxSamplers]host.SamplerID{}
	t.srvs = [host.MaxShaderResources]host.ViewID{}
	t.uavs = [host.MaxUnorderedAccessViews]host.ViewID{}
	t.version++
}

func (t *bindingTable) id(kind Kind, slot int) uint64 {
	switch kind {
	case KindConstantBuffer:
		return uint64(t.buffers[slot])
	case KindSampler:
		return uint64(t.samplers[slot])
	case KindShaderResource:
		return uint64(t.srvs[slot])
	default:
		return uint64(t.uavs[slot])
	}
}

// setSlots copies ids into slots from start, dropping anything out of range, and reports
// how many slots changed.
func setSlots[T comparable](slots []T, start int, ids []T) uint64 {
	var changed uint64
	for i, id := range ids {
		s := start + i
		if s < 0 || s >= len(slots) {
			continue
		}
		if slots[s] != id {
			slots[s] = id
			changed++
		}
	}
	return changed
}
