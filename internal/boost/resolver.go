package boost

import (
	"github.com/uditkarode/cpu-event-boost/internal/cpufreq"
	"github.com/uditkarode/cpu-event-boost/internal/topology"
)

// ClusterFrequencies are the configured floors of one cluster, in kHz.
type ClusterFrequencies struct {
	Floor          uint
	MidCompensate  uint
	CritCompensate uint
	MaxBoost       uint
}

type FrequencyTable struct {
	LowPower    ClusterFrequencies
	Performance ClusterFrequencies
}

func (t FrequencyTable) For(cluster topology.Cluster) ClusterFrequencies {
	if cluster == topology.LowPower {
		return t.LowPower
	}
	return t.Performance
}

// ResolveMinFrequency returns the minimum frequency a policy should run at
// for the given snapshot. Priority, first match wins: screen off, max boost,
// mid compensate, crit compensate, steady floor. The result never exceeds
// policy.Max.
func ResolveMinFrequency(modes Modes, freqs ClusterFrequencies, policy cpufreq.Policy) uint {
	if !modes.Has(ScreenOn) {
		return min(policy.HWMin, policy.Max)
	}

	switch {
	case modes.Has(MaxBoost):
		return min(freqs.MaxBoost, policy.Max)
	case modes.Has(MidCompensate):
		return min(max(freqs.MidCompensate, freqs.Floor), policy.Max)
	case modes.Has(CritCompensate):
		return min(max(freqs.CritCompensate, freqs.Floor), policy.Max)
	default:
		return min(freqs.Floor, policy.Max)
	}
}

// EffectiveMode returns the mode that decides the floor for a snapshot, or
// false when the steady floor or the hardware minimum applies.
func EffectiveMode(modes Modes) (Mode, bool) {
	if !modes.Has(ScreenOn) {
		return 0, false
	}
	for _, mode := range []Mode{MaxBoost, MidCompensate, CritCompensate} {
		if modes.Has(mode) {
			return mode, true
		}
	}
	return 0, false
}
