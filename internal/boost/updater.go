package boost

import (
	"github.com/go-logr/logr"

	"github.com/uditkarode/cpu-event-boost/internal/cpufreq"
	"github.com/uditkarode/cpu-event-boost/internal/topology"
)

// PolicyUpdater asks the platform to re-evaluate frequency policies after the
// boost state changed.
type PolicyUpdater interface {
	Update(snapshot Modes)
}

type policyUpdaterImpl struct {
	subsystem cpufreq.Subsystem
	topology  topology.Provider
	hook      MetricsHook
	logger    logr.Logger
}

func NewPolicyUpdater(subsystem cpufreq.Subsystem, topo topology.Provider, hook MetricsHook, logger logr.Logger) PolicyUpdater {
	if hook == nil {
		hook = noopHook{}
	}

	return &policyUpdaterImpl{
		subsystem: subsystem,
		topology:  topo,
		hook:      hook,
		logger:    logger,
	}
}

// Update re-evaluates one online CPU per cluster. CPUs of a cluster share a
// policy so a single update covers all of them.
func (u *policyUpdaterImpl) Update(snapshot Modes) {
	for _, cluster := range topology.Clusters {
		logger := u.logger.WithValues("cluster", cluster.String(), "modes", snapshot.String())

		cpu, err := u.topology.FirstOnline(cluster)
		if err != nil {
			logger.V(4).Info("skipping policy update", "reason", err.Error())
			u.hook.OnPolicyUpdate(cluster, err)
			continue
		}

		err = u.subsystem.UpdatePolicy(cpu)
		if err != nil {
			logger.Error(err, "failed to update policy", "cpu", cpu)
		} else {
			logger.V(5).Info("policy updated", "cpu", cpu)
		}
		u.hook.OnPolicyUpdate(cluster, err)
	}
}
