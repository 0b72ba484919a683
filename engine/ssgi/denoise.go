package ssgi

// Slot names one of the two ping-pong GI buffers.
type Slot int

const (
	// SlotA is gi0, written by the main estimation stage.
	SlotA Slot = iota
	// SlotB is gi1.
	SlotB
)

// Other returns the opposite slot.
func (s Slot) Other() Slot {
	return 1 - s
}

// String returns the slot name.
func (s Slot) String() string {
	if s == SlotB {
		return "B"
	}
	return "A"
}

// FinalSlot reports which GI buffer holds the result after a number of denoise passes:
// A for an even count (including zero), B for an odd count.
//
// Parameters:
//   - passes: the number of denoise passes
//
// Returns:
//   - Slot: the slot holding the final GI
func FinalSlot(passes uint32) Slot {
	if passes%2 == 0 {
		return SlotA
	}
	return SlotB
}

// DenoisePass is one iteration of the denoise loop.
type DenoisePass struct {
	Read  Slot
	Write Slot
	// Last selects the final-pass kernel.
	Last bool
}

// Passes plans the denoise loop. Each pass reads the buffer the previous one wrote, starting
// from slot A.
//
// Parameters:
//   - n: the number of passes
//
// Returns:
//   - []DenoisePass: n passes in execution order
func Passes(n uint32) []DenoisePass {
	plan := make([]DenoisePass, 0, n)
	read := SlotA
	for i := range n {
		plan = append(plan, DenoisePass{Read: read, Write: read.Other(), Last: i == n-1})
		read = read.Other()
	}
	return plan
}
