package boost

import (
	"fmt"
	"strings"
	"time"
)

// Mode is a single bit of the shared boost option word.
type Mode uint

const (
	ScreenOn Mode = iota
	MidCompensate
	CritCompensate
	MaxBoost
)

var modeNames = map[Mode]string{
	ScreenOn:       "screen_on",
	MidCompensate:  "mid_compensate",
	CritCompensate: "crit_compensate",
	MaxBoost:       "max_boost",
}

// AllModes lists every mode in bit order.
var AllModes = []Mode{ScreenOn, MidCompensate, CritCompensate, MaxBoost}

func (m Mode) bit() uint64 {
	return 1 << uint64(m)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", uint(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for mode, name := range modeNames {
		if name == s {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown boost mode %q", s)
}

const boostMask = uint64(1)<<uint64(MidCompensate) | uint64(1)<<uint64(CritCompensate) | uint64(1)<<uint64(MaxBoost)

// Modes is a snapshot of the option word taken with a single atomic load.
type Modes uint64

// invalidModes never matches a real snapshot and forces the first worker
// iteration to apply.
const invalidModes = ^Modes(0)

func NewModes(modes ...Mode) Modes {
	var m Modes
	for _, mode := range modes {
		m |= Modes(mode.bit())
	}
	return m
}

func (m Modes) Has(mode Mode) bool {
	return uint64(m)&mode.bit() != 0
}

// BoostActive reports whether any boost mode is set.
func (m Modes) BoostActive() bool {
	return uint64(m)&boostMask != 0
}

func (m Modes) String() string {
	names := []string{}
	for _, mode := range AllModes {
		if m.Has(mode) {
			names = append(names, mode.String())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Thresholds are the two ascending delay limits compared against observed
// scheduling delay. Medium must be lower than Critical.
type Thresholds struct {
	Medium   time.Duration
	Critical time.Duration
}

type WorkerOptions struct {
	// Realtime moves the worker thread to SCHED_RR at Priority.
	Realtime bool
	Priority int
	// RequireRealtime turns a failure to set the scheduling policy into a
	// start failure instead of a warning.
	RequireRealtime bool
}

// EventSource names the entry point an event arrived through.
type EventSource string

const (
	SourceDisplay  EventSource = "display"
	SourceDelay    EventSource = "delay"
	SourceMaxBoost EventSource = "max_boost"
)

// Outcome is the result of feeding one event into the coordinator.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	// OutcomeIgnored means the screen was off.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDropped means a longer max boost is already in effect.
	OutcomeDropped Outcome = "dropped"
)
