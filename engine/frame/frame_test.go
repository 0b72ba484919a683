package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewFrame(t *testing.T) {
	cases := []struct {
		name string
		ids  []uint32
		want []bool
	}{
		{"repeat", []uint32{5, 5}, []bool{true, false}},
		{"advance", []uint32{5, 6}, []bool{true, true}},
		{"back and forth", []uint32{1, 2, 1, 1}, []bool{true, true, true, false}},
		{"zero first", []uint32{0}, []bool{true}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tr := NewTracker()
			for i, id := range c.ids {
				assert.Equal(t, c.want[i], tr.IsNewFrame(id), "call %d with id %d", i, id)
			}
		})
	}
}

func TestTrackerInitialLast(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, uint32(math.MaxUint32), tr.Last())
	assert.False(t, tr.IsNewFrame(math.MaxUint32))
}

func TestStateNormalSelectionResetsPerFrame(t *testing.T) {
	s := NewState()
	assert.True(t, s.Observe(10))

	swap, known := s.NormalSelection()
	assert.False(t, swap)
	assert.False(t, known)

	s.SetNormalSelection(true)
	assert.False(t, s.Observe(10))
	swap, known = s.NormalSelection()
	assert.True(t, swap)
	assert.True(t, known)

	assert.True(t, s.Observe(11))
	swap, known = s.NormalSelection()
	assert.True(t, swap, "last known value is kept")
	assert.False(t, known)
}

func TestStateDitherFlag(t *testing.T) {
	s := NewState()
	assert.True(t, s.DitherPending())

	s.MarkDitherGenerated()
	s.Observe(1)
	s.Observe(2)
	assert.False(t, s.DitherPending())

	s.ResetDither()
	assert.True(t, s.DitherPending())
}
