package boost

import (
	"sync/atomic"
)

// State is the boost option word plus the max boost expiry. Every mutation
// is a single atomic operation, no lock is held by any producer.
type State struct {
	options atomic.Uint64
	// maxBoostExpires is a monotonic offset in nanoseconds from the owning
	// coordinator's epoch. It never decreases.
	maxBoostExpires atomic.Int64
}

// NewState returns a state with the screen assumed on and no boost active.
func NewState() *State {
	s := &State{}
	s.options.Store(ScreenOn.bit())
	return s
}

func (s *State) Snapshot() Modes {
	return Modes(s.options.Load())
}

func (s *State) ScreenOn() bool {
	return s.Snapshot().Has(ScreenOn)
}

// SetScreenOn returns true if the screen was previously off.
func (s *State) SetScreenOn() bool {
	old := s.options.Or(ScreenOn.bit())
	return old&ScreenOn.bit() == 0
}

// ScreenOff clears the screen bit together with every boost bit so no
// snapshot can ever show a boost while the screen is off.
func (s *State) ScreenOff() bool {
	old := s.options.And(^(ScreenOn.bit() | boostMask))
	return old&ScreenOn.bit() != 0
}

// SetBoost sets a boost mode if the screen is on. It returns true only when
// the bit actually changed.
func (s *State) SetBoost(mode Mode) bool {
	if mode.bit()&boostMask == 0 {
		return false
	}

	for {
		old := s.options.Load()
		if old&ScreenOn.bit() == 0 || old&mode.bit() != 0 {
			return false
		}
		if s.options.CompareAndSwap(old, old|mode.bit()) {
			return true
		}
	}
}

// ClearBoosts drops every boost mode and returns the ones that were set.
func (s *State) ClearBoosts() Modes {
	old := s.options.And(^boostMask)
	return Modes(old & boostMask)
}

// ExtendMaxBoost installs candidate as the new expiry unless a later one is
// already stored. It returns false when the request lost to a longer boost.
func (s *State) ExtendMaxBoost(candidate int64) bool {
	for {
		curr := s.maxBoostExpires.Load()
		if curr > candidate {
			return false
		}
		if s.maxBoostExpires.CompareAndSwap(curr, candidate) {
			return true
		}
	}
}

func (s *State) MaxBoostExpires() int64 {
	return s.maxBoostExpires.Load()
}
