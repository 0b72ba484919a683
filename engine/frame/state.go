package frame

// State is the per-instance frame cache owned by the effect. Per-frame fields are cleared
// whenever a new frame id is observed; the dither flag survives until an explicit reset.
type State struct {
	tracker *Tracker

	normalKnown bool
	normalSwap  bool

	ditherGenerated bool
}

// NewState creates a State with no frame observed and the dither table pending.
//
// Returns:
//   - *State: the new state
func NewState() *State {
	return &State{tracker: NewTracker()}
}

// Observe records the current frame id and clears per-frame decisions on a new frame.
//
// Parameters:
//   - id: the host's frame counter
//
// Returns:
//   - bool: true if this was the first observation of id
func (s *State) Observe(id uint32) bool {
	if !s.tracker.IsNewFrame(id) {
		return false
	}
	s.normalKnown = false
	return true
}

// NormalSelection reports which normal buffer the host is writing this frame.
// When the selection is not yet known, swap holds the last known value (false initially).
//
// Returns:
//   - swap: true if the swap normal buffer is live
//   - known: true if the selection was determined during the current frame
func (s *State) NormalSelection() (swap bool, known bool) {
	return s.normalSwap, s.normalKnown
}

// SetNormalSelection records the live normal buffer for the current frame.
//
// Parameters:
//   - swap: true if the swap normal buffer is live
func (s *State) SetNormalSelection(swap bool) {
	s.normalSwap = swap
	s.normalKnown = true
}

// DitherPending reports whether the dither table still has to be generated.
func (s *State) DitherPending() bool {
	return !s.ditherGenerated
}

// MarkDitherGenerated records that the dither table exists for the current resource lifetime.
func (s *State) MarkDitherGenerated() {
	s.ditherGenerated = true
}

// ResetDither schedules the dither table for regeneration, e.g. after kernels were released.
func (s *State) ResetDither() {
	s.ditherGenerated = false
}
