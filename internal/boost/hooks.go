package boost

import "github.com/uditkarode/cpu-event-boost/internal/topology"

// MetricsHook observes coordinator activity. Implementations must be safe for
// concurrent use and must not block.
type MetricsHook interface {
	OnEvent(source EventSource, outcome Outcome)
	OnExpiry(cleared Modes)
	OnPolicyUpdate(cluster topology.Cluster, err error)
	OnPolicyAdjust(cluster topology.Cluster, minFreq uint)
}

type noopHook struct{}

func (noopHook) OnEvent(EventSource, Outcome)           {}
func (noopHook) OnExpiry(Modes)                         {}
func (noopHook) OnPolicyUpdate(topology.Cluster, error) {}
func (noopHook) OnPolicyAdjust(topology.Cluster, uint)  {}
