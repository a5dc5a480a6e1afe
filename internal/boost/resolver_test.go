package boost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uditkarode/cpu-event-boost/internal/cpufreq"
	"github.com/uditkarode/cpu-event-boost/internal/topology"
)

var resolverFrequencies = FrequencyTable{
	LowPower: ClusterFrequencies{
		Floor:          300,
		MidCompensate:  1100,
		CritCompensate: 900,
		MaxBoost:       1500,
	},
	Performance: ClusterFrequencies{
		Floor:          300,
		MidCompensate:  1800,
		CritCompensate: 1400,
		MaxBoost:       2400,
	},
}

func TestResolveMinFrequency(t *testing.T) {
	perfPolicy := cpufreq.Policy{CPU: 4, Min: 300, Max: 2000, HWMin: 200, HWMax: 2800}
	lpPolicy := cpufreq.Policy{CPU: 0, Min: 300, Max: 1700, HWMin: 100, HWMax: 1700}

	for _, tc := range []struct {
		testCase string
		modes    Modes
		cluster  topology.Cluster
		policy   cpufreq.Policy
		result   uint
	}{
		{
			testCase: "steady floor on performance cluster",
			modes:    NewModes(ScreenOn),
			cluster:  topology.Performance,
			policy:   perfPolicy,
			result:   300,
		},
		{
			testCase: "max boost clamped to policy max",
			modes:    NewModes(ScreenOn, MaxBoost),
			cluster:  topology.Performance,
			policy:   perfPolicy,
			result:   2000,
		},
		{
			testCase: "max boost below policy max",
			modes:    NewModes(ScreenOn, MaxBoost),
			cluster:  topology.LowPower,
			policy:   lpPolicy,
			result:   1500,
		},
		{
			testCase: "mid compensate",
			modes:    NewModes(ScreenOn, MidCompensate),
			cluster:  topology.Performance,
			policy:   perfPolicy,
			result:   1800,
		},
		{
			testCase: "crit compensate",
			modes:    NewModes(ScreenOn, CritCompensate),
			cluster:  topology.LowPower,
			policy:   lpPolicy,
			result:   900,
		},
		{
			testCase: "mid wins over crit",
			modes:    NewModes(ScreenOn, MidCompensate, CritCompensate),
			cluster:  topology.LowPower,
			policy:   lpPolicy,
			result:   1100,
		},
		{
			testCase: "screen off returns hardware minimum",
			modes:    NewModes(MaxBoost),
			cluster:  topology.Performance,
			policy:   perfPolicy,
			result:   200,
		},
	} {
		t.Log(tc.testCase)
		freq := ResolveMinFrequency(tc.modes, resolverFrequencies.For(tc.cluster), tc.policy)
		assert.Equal(t, tc.result, freq)
	}
}

func TestResolveMinFrequency_CompensateNeverBelowFloor(t *testing.T) {
	freqs := ClusterFrequencies{Floor: 800, MidCompensate: 500, CritCompensate: 400, MaxBoost: 2000}
	policy := cpufreq.Policy{Max: 2000, HWMin: 100}

	assert.Equal(t, uint(800), ResolveMinFrequency(NewModes(ScreenOn, MidCompensate), freqs, policy))
	assert.Equal(t, uint(800), ResolveMinFrequency(NewModes(ScreenOn, CritCompensate), freqs, policy))
}

func TestResolveMinFrequency_FloorClampedToPolicyMax(t *testing.T) {
	freqs := ClusterFrequencies{Floor: 1200}
	policy := cpufreq.Policy{Max: 1000, HWMin: 100}

	assert.Equal(t, uint(1000), ResolveMinFrequency(NewModes(ScreenOn), freqs, policy))
}

func TestResolveMinFrequency_ScreenOffDominates(t *testing.T) {
	policy := cpufreq.Policy{Max: 2000, HWMin: 250}

	for bits := Modes(0); bits < Modes(1)<<len(AllModes); bits++ {
		if bits.Has(ScreenOn) {
			continue
		}
		for _, cluster := range topology.Clusters {
			assert.Equal(t, uint(250), ResolveMinFrequency(bits, resolverFrequencies.For(cluster), policy), bits.String())
		}
	}
}

func TestResolveMinFrequency_LowerPriorityModesIgnored(t *testing.T) {
	policy := cpufreq.Policy{Max: 3000, HWMin: 100}
	freqs := resolverFrequencies.Performance

	withMax := ResolveMinFrequency(NewModes(ScreenOn, MaxBoost), freqs, policy)
	for _, extra := range []Modes{
		NewModes(MidCompensate),
		NewModes(CritCompensate),
		NewModes(MidCompensate, CritCompensate),
	} {
		assert.Equal(t, withMax, ResolveMinFrequency(NewModes(ScreenOn, MaxBoost)|extra, freqs, policy))
	}

	withMid := ResolveMinFrequency(NewModes(ScreenOn, MidCompensate), freqs, policy)
	assert.Equal(t, withMid, ResolveMinFrequency(NewModes(ScreenOn, MidCompensate, CritCompensate), freqs, policy))
}

func TestEffectiveMode(t *testing.T) {
	_, ok := EffectiveMode(NewModes(ScreenOn))
	assert.False(t, ok)

	_, ok = EffectiveMode(NewModes(MaxBoost))
	assert.False(t, ok)

	mode, ok := EffectiveMode(NewModes(ScreenOn, CritCompensate, MidCompensate))
	assert.True(t, ok)
	assert.Equal(t, MidCompensate, mode)
}
