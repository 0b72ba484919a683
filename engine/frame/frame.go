// Package frame tracks frame boundaries for the render path and caches decisions that only
// need to be made once per frame. Nothing in this package is safe for concurrent use; it is
// meant to be touched from the single render-submission thread.
package frame

import "math"

// Tracker detects when the host has moved on to a new frame.
type Tracker struct {
	last uint32
}

// NewTracker creates a Tracker that has not seen any frame yet.
//
// Returns:
//   - *Tracker: the new tracker
func NewTracker() *Tracker {
	return &Tracker{last: math.MaxUint32}
}

// IsNewFrame reports whether id differs from the last recorded frame and records it.
// It returns true exactly once per distinct consecutive frame id. A fresh tracker starts at
// math.MaxUint32, so a first call with math.MaxUint32 reports false.
//
// Parameters:
//   - id: the host's frame counter
//
// Returns:
//   - bool: true if id was not the last frame seen
func (t *Tracker) IsNewFrame(id uint32) bool {
	isNew := t.last != id
	t.last = id
	return isNew
}

// Last returns the most recently recorded frame id, or math.MaxUint32 before any frame.
func (t *Tracker) Last() uint32 {
	return t.last
}
