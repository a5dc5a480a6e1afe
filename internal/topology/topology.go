package topology

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"k8s.io/utils/cpuset"
)

// Cluster identifies a group of CPUs sharing one frequency policy.
type Cluster int

const (
	LowPower Cluster = iota
	Performance
)

func (c Cluster) String() string {
	switch c {
	case LowPower:
		return "low_power"
	case Performance:
		return "performance"
	default:
		return fmt.Sprintf("Cluster(%d)", int(c))
	}
}

// Clusters lists every cluster in update order.
var Clusters = []Cluster{LowPower, Performance}

const onlineCPUsPath = "/sys/devices/system/cpu/online"

var (
	ErrNoOnlineCPU     = errors.New("no online cpu in cluster")
	ErrOverlappingMask = errors.New("cluster cpu masks overlap")
)

// Provider answers the two topology questions the boost coordinator asks:
// which cluster a CPU belongs to and which CPU represents a cluster.
type Provider interface {
	ClusterOf(cpu uint) Cluster
	FirstOnline(cluster Cluster) (uint, error)
}

type sysfsProvider struct {
	lowPower    cpuset.CPUSet
	performance cpuset.CPUSet
}

var getOnlineCPUsPathFunction = func() string { return onlineCPUsPath }

// NewSysfsProvider builds a Provider from cluster masks in cpulist syntax
// ("0-3", "4,5,6-7"). Online state is read from sysfs on every query.
func NewSysfsProvider(lowPowerCPUs, performanceCPUs string) (Provider, error) {
	lp, err := cpuset.Parse(lowPowerCPUs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse low power cpu list %q: %w", lowPowerCPUs, err)
	}
	perf, err := cpuset.Parse(performanceCPUs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse performance cpu list %q: %w", performanceCPUs, err)
	}
	if overlap := lp.Intersection(perf); !overlap.IsEmpty() {
		return nil, fmt.Errorf("cpus %s: %w", overlap.String(), ErrOverlappingMask)
	}

	return &sysfsProvider{lowPower: lp, performance: perf}, nil
}

// ClusterOf returns LowPower for members of the low power mask and
// Performance for everything else.
func (p *sysfsProvider) ClusterOf(cpu uint) Cluster {
	if p.lowPower.Contains(int(cpu)) {
		return LowPower
	}
	return Performance
}

func (p *sysfsProvider) FirstOnline(cluster Cluster) (uint, error) {
	online, err := readOnlineCPUs()
	if err != nil {
		return 0, err
	}

	mask := p.performance
	if cluster == LowPower {
		mask = p.lowPower
	}

	cpus := mask.Intersection(online).List()
	if len(cpus) == 0 {
		return 0, fmt.Errorf("cluster %s: %w", cluster, ErrNoOnlineCPU)
	}

	return uint(cpus[0]), nil
}

func readOnlineCPUs() (cpuset.CPUSet, error) {
	data, err := os.ReadFile(getOnlineCPUsPathFunction())
	if err != nil {
		return cpuset.New(), fmt.Errorf("failed to read online cpus: %w", err)
	}

	online, err := cpuset.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return cpuset.New(), fmt.Errorf("failed to parse online cpus: %w", err)
	}

	return online, nil
}
