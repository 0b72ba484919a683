package ssgi

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ssgi/engine/settings"
	"github.com/stretchr/testify/assert"
)

func TestFinalSlot(t *testing.T) {
	want := []Slot{SlotA, SlotB, SlotA, SlotB}
	for passes, slot := range want {
		assert.Equal(t, slot, FinalSlot(uint32(passes)), "passes=%d", passes)
	}
}

func TestPasses(t *testing.T) {
	assert.Empty(t, Passes(0))
	assert.Equal(t, []DenoisePass{
		{Read: SlotA, Write: SlotB},
		{Read: SlotB, Write: SlotA},
		{Read: SlotA, Write: SlotB, Last: true},
	}, Passes(3))

	for n := range uint32(4) {
		plan := Passes(n)
		if n > 0 {
			assert.Equal(t, FinalSlot(n), plan[len(plan)-1].Write)
		}
	}
}

func TestVariantFor(t *testing.T) {
	s := settings.Defaults()
	assert.Equal(t, VariantBitmask, VariantFor(s))
	s.UseBitmask = false
	assert.Equal(t, VariantFalloff, VariantFor(s))

	assert.Equal(t, KernelGTAOBitmask, VariantBitmask.Kernel())
	assert.Equal(t, KernelGTAO, VariantFalloff.Kernel())
	assert.Equal(t, "CSGTAO+SSGI_USE_BITMASK", KernelGTAOBitmask.Key())
}
