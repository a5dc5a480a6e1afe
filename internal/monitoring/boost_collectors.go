package monitoring

import (
	"github.com/go-logr/logr"
	prom "github.com/prometheus/client_golang/prometheus"
	ctrlMetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/uditkarode/cpu-event-boost/internal/boost"
	"github.com/uditkarode/cpu-event-boost/internal/cpufreq"
	"github.com/uditkarode/cpu-event-boost/internal/topology"
)

// StateSource exposes the live boost option word.
type StateSource interface {
	Snapshot() boost.Modes
}

// Func definitions for unit testing
var (
	readPolicyFunc = cpufreq.ReadPolicy
)

// BoostMetrics records coordinator activity. It implements boost.MetricsHook.
type BoostMetrics struct {
	events        *prom.CounterVec
	expiries      prom.Counter
	policyUpdates *prom.CounterVec
	minFrequency  *prom.GaugeVec
}

var _ boost.MetricsHook = &BoostMetrics{}

func NewBoostMetrics() *BoostMetrics {
	return &BoostMetrics{
		events: prom.NewCounterVec(prom.CounterOpts{
			Namespace: promNamespace,
			Name:      "events_total",
			Help:      "Counter of boost events by source and outcome",
		}, []string{"source", "outcome"}),
		expiries: prom.NewCounter(prom.CounterOpts{
			Namespace: promNamespace,
			Name:      "expiries_total",
			Help:      "Counter of boost expiries",
		}),
		policyUpdates: prom.NewCounterVec(prom.CounterOpts{
			Namespace: promNamespace,
			Name:      "policy_updates_total",
			Help:      "Counter of cpufreq policy updates by cluster and result",
		}, []string{"cluster", "result"}),
		minFrequency: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: promNamespace,
			Name:      "min_frequency_khz",
			Help:      "Gauge of the last minimum frequency resolved for a cluster",
		}, []string{"cluster"}),
	}
}

func (m *BoostMetrics) Collectors() []prom.Collector {
	return []prom.Collector{m.events, m.expiries, m.policyUpdates, m.minFrequency}
}

func (m *BoostMetrics) OnEvent(source boost.EventSource, outcome boost.Outcome) {
	m.events.WithLabelValues(string(source), string(outcome)).Inc()
}

func (m *BoostMetrics) OnExpiry(boost.Modes) {
	m.expiries.Inc()
}

func (m *BoostMetrics) OnPolicyUpdate(cluster topology.Cluster, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.policyUpdates.WithLabelValues(cluster.String(), result).Inc()
}

func (m *BoostMetrics) OnPolicyAdjust(cluster topology.Cluster, minFreq uint) {
	m.minFrequency.WithLabelValues(cluster.String()).Set(float64(minFreq))
}

// newClusterPolicyReader returns a reader of one cpufreq policy field for the
// first online CPU of a cluster.
func newClusterPolicyReader(topo topology.Provider, field func(cpufreq.Policy) uint) func(topology.Cluster) (uint, error) {
	return func(cluster topology.Cluster) (uint, error) {
		cpu, err := topo.FirstOnline(cluster)
		if err != nil {
			return 0, err
		}
		policy, err := readPolicyFunc(cpu)
		if err != nil {
			return 0, err
		}
		return field(policy), nil
	}
}

func newBoostCollectors(metrics *BoostMetrics, state StateSource, topo topology.Provider, logger logr.Logger) []prom.Collector {
	collectors := append([]prom.Collector{}, metrics.Collectors()...)

	return append(collectors,
		newPerModeCollector(
			prom.BuildFQName(promNamespace, "", "mode_active"),
			"Gauge of boost modes currently set",
			state.Snapshot,
			logger.WithValues(logNameKey, "mode_active"),
		),
		newPerClusterCollector(
			prom.BuildFQName(promNamespace, cpufreqSubsystem, "scaling_min_khz"),
			"Gauge of the committed policy minimum frequency",
			prom.GaugeValue,
			newClusterPolicyReader(topo, func(p cpufreq.Policy) uint { return p.Min }),
			logger.WithValues(logNameKey, "scaling_min_khz"),
		),
		newPerClusterCollector(
			prom.BuildFQName(promNamespace, cpufreqSubsystem, "scaling_max_khz"),
			"Gauge of the policy maximum frequency",
			prom.GaugeValue,
			newClusterPolicyReader(topo, func(p cpufreq.Policy) uint { return p.Max }),
			logger.WithValues(logNameKey, "scaling_max_khz"),
		),
		newPerClusterCollector(
			prom.BuildFQName(promNamespace, cpufreqSubsystem, "hardware_min_khz"),
			"Gauge of the hardware minimum frequency",
			prom.GaugeValue,
			newClusterPolicyReader(topo, func(p cpufreq.Policy) uint { return p.HWMin }),
			logger.WithValues(logNameKey, "hardware_min_khz"),
		),
	)
}

// RegisterBoostCollectors registers the boost metrics and the live state and
// cpufreq collectors on the controller-runtime registry.
func RegisterBoostCollectors(metrics *BoostMetrics, state StateSource, topo topology.Provider, logger logr.Logger) {
	logger = logger.WithName("boost")

	ctrlMetrics.Registry.MustRegister(newBoostCollectors(metrics, state, topo, logger)...)
}
