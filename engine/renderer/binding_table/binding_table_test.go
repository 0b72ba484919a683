package binding_table

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingLayoutConvention(t *testing.T) {
	assert.Equal(t, uint32(0), ConstantBufferBinding)
	assert.Equal(t, uint32(1), SamplerBinding)
	assert.Equal(t, uint32(3), ShaderResourceBinding)
	assert.Equal(t, uint32(8), UnorderedAccessBinding)
	assert.Equal(t, uint32(13), BindingCount)
}

func TestClassifyRoundTrips(t *testing.T) {
	for b := uint32(0); b < BindingCount; b++ {
		kind, slot, ok := Classify(b)
		require.True(t, ok, "binding %d", b)
		assert.Equal(t, b, BindingIndex(kind, slot))
	}
	_, _, ok := Classify(BindingCount)
	assert.False(t, ok)
}

func TestLookupReportsUnboundSlot(t *testing.T) {
	table := NewTable("Test Bindings")
	table.SetShaderResources(1, []host.ViewID{7})

	e, err := table.Lookup(ShaderResourceBinding + 1)
	require.NoError(t, err)
	assert.Equal(t, KindShaderResource, e.Kind)
	assert.Equal(t, 1, e.Slot)
	assert.Equal(t, uint64(7), e.ID)

	_, err = table.Lookup(ShaderResourceBinding)
	assert.ErrorContains(t, err, "SRV slot 0 unbound")

	_, err = table.Lookup(BindingCount + 2)
	assert.Error(t, err)
}

func TestEntriesAreOrdered(t *testing.T) {
	table := NewTable("Test Bindings", WithConstantBuffer(0, 3), WithSamplers(4, 5))
	table.SetUnorderedAccessViews(0, []host.ViewID{9})
	table.SetShaderResources(0, []host.ViewID{8})

	entries := table.Entries()
	require.Len(t, entries, 5)
	want := []uint32{0, 1, 2, 3, 8}
	for i, e := range entries {
		assert.Equal(t, want[i], e.Binding)
	}
	assert.Equal(t, KindUnorderedAccess, entries[4].Kind)
}

func TestOutOfRangeSlotsAreIgnored(t *testing.T) {
	table := NewTable("Test Bindings")
	table.SetShaderResources(host.MaxShaderResources-1, []host.ViewID{1, 2, 3})
	table.SetSamplers(-1, []host.SamplerID{4, 5})

	entries := table.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, SamplerBinding, entries[0].Binding)
	assert.Equal(t, uint64(5), entries[0].ID)
	assert.Equal(t, ShaderResourceBinding+host.MaxShaderResources-1, entries[1].Binding)
}

func TestVersionTracksChanges(t *testing.T) {
	table := NewTable("Test Bindings")
	v0 := table.Version()

	table.SetShaderResources(0, []host.ViewID{1})
	v1 := table.Version()
	assert.Greater(t, v1, v0)

	table.SetShaderResources(0, []host.ViewID{1})
	assert.Equal(t, v1, table.Version())

	table.Reset()
	assert.Greater(t, table.Version(), v1)
	assert.Empty(t, table.Entries())
}
