package monitoring

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/constraints"

	"github.com/uditkarode/cpu-event-boost/internal/boost"
	"github.com/uditkarode/cpu-event-boost/internal/topology"
)

// Helper constants for prom Collectors
const (
	promNamespace string = "boost"

	LogTopName       string = "monitoring"
	cpufreqSubsystem string = "cpufreq"

	logNameKey string = "name"
)

type collectorImpl struct {
	collectFunc  func(ch chan<- prom.Metric)
	describeFunc func(ch chan<- *prom.Desc)
}

func (c collectorImpl) Collect(ch chan<- prom.Metric) {
	c.collectFunc(ch)
}

func (c collectorImpl) Describe(ch chan<- *prom.Desc) {
	c.describeFunc(ch)
}

type number interface {
	constraints.Integer | constraints.Float
}

// newPerClusterCollector is generic factory of prometheus Collectors for metrics that are cluster bound.
// readFunc is called on every scrape, clusters without an online CPU are skipped.
// log is Logger that should have all Names, KeysValues and other... already attached.
// return prometheus Collector that is ready for registration
func newPerClusterCollector[T number](metricName, metricDesc string, metricType prom.ValueType,
	readFunc func(topology.Cluster) (T, error), log logr.Logger,
) prom.Collector {
	desc := prom.NewDesc(
		metricName,
		metricDesc,
		[]string{"cluster"},
		nil,
	)

	log.V(4).Info("New perCluster prometheus Collector created")

	return collectorImpl{
		describeFunc: func(ch chan<- *prom.Desc) {
			ch <- desc
		},
		collectFunc: func(ch chan<- prom.Metric) {
			for _, cluster := range topology.Clusters {
				log.V(5).Info("Collecting metrics for prometheus", "cluster", cluster.String())
				val, err := readFunc(cluster)
				if errors.Is(err, topology.ErrNoOnlineCPU) {
					continue
				}
				if err != nil {
					log.V(5).Info(fmt.Sprintf("error reading metric value, err: %v", err), "cluster", cluster.String())
					continue
				}
				ch <- prom.MustNewConstMetric(desc, metricType, float64(val), cluster.String())
			}
		},
	}
}

// newPerModeCollector exposes one 0/1 gauge per boost mode from a live
// snapshot of the option word.
func newPerModeCollector(metricName, metricDesc string, snapshotFunc func() boost.Modes, log logr.Logger) prom.Collector {
	desc := prom.NewDesc(
		metricName,
		metricDesc,
		[]string{"mode"},
		nil,
	)

	log.V(4).Info("New perMode prometheus Collector created")

	return collectorImpl{
		describeFunc: func(ch chan<- *prom.Desc) {
			ch <- desc
		},
		collectFunc: func(ch chan<- prom.Metric) {
			modes := snapshotFunc()
			for _, mode := range boost.AllModes {
				val := 0.0
				if modes.Has(mode) {
					val = 1
				}
				ch <- prom.MustNewConstMetric(desc, prom.GaugeValue, val, mode.String())
			}
		},
	}
}
