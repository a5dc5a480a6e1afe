package testutils

import (
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/uditkarode/cpu-event-boost/internal/cpufreq"
	"github.com/uditkarode/cpu-event-boost/internal/notifier"
	"github.com/uditkarode/cpu-event-boost/internal/topology"
)

type MockTopology struct {
	mock.Mock
}

func (m *MockTopology) ClusterOf(cpu uint) topology.Cluster {
	return m.Called(cpu).Get(0).(topology.Cluster)
}

func (m *MockTopology) FirstOnline(cluster topology.Cluster) (uint, error) {
	args := m.Called(cluster)
	return args.Get(0).(uint), args.Error(1)
}

// NewTwoClusterTopology returns a topology mock with CPU 0 representing the
// low power cluster and CPU 4 the performance cluster.
func NewTwoClusterTopology() *MockTopology {
	topo := new(MockTopology)
	for cpu := uint(0); cpu < 4; cpu++ {
		topo.On("ClusterOf", cpu).Return(topology.LowPower).Maybe()
		topo.On("ClusterOf", cpu+4).Return(topology.Performance).Maybe()
	}
	topo.On("FirstOnline", topology.LowPower).Return(uint(0), nil).Maybe()
	topo.On("FirstOnline", topology.Performance).Return(uint(4), nil).Maybe()

	return topo
}

type MockSubsystem struct {
	mock.Mock
}

func (m *MockSubsystem) RegisterPolicyNotifier(name string, priority int, handler notifier.Handler[*cpufreq.Policy]) error {
	return m.Called(name, priority, handler).Error(0)
}

func (m *MockSubsystem) UnregisterPolicyNotifier(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockSubsystem) UpdatePolicy(cpu uint) error {
	return m.Called(cpu).Error(0)
}

// FakeSubsystem is an in-memory cpufreq subsystem. UpdatePolicy runs the
// registered adjust handlers and commits the result like the sysfs one does.
type FakeSubsystem struct {
	chain *notifier.Chain[*cpufreq.Policy]

	mu       sync.Mutex
	policies map[uint]cpufreq.Policy
	updates  []uint
}

func NewFakeSubsystem(policies ...cpufreq.Policy) *FakeSubsystem {
	f := &FakeSubsystem{
		chain:    notifier.NewChain[*cpufreq.Policy]("fake-cpufreq"),
		policies: make(map[uint]cpufreq.Policy),
	}
	for _, p := range policies {
		f.policies[p.CPU] = p
	}
	return f
}

func (f *FakeSubsystem) RegisterPolicyNotifier(name string, priority int, handler notifier.Handler[*cpufreq.Policy]) error {
	return f.chain.Register(name, priority, handler)
}

func (f *FakeSubsystem) UnregisterPolicyNotifier(name string) error {
	return f.chain.Unregister(name)
}

func (f *FakeSubsystem) UpdatePolicy(cpu uint) error {
	f.mu.Lock()
	policy, ok := f.policies[cpu]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no policy for CPU %d", cpu)
	}

	adjusted := policy
	f.chain.Call(cpufreq.PolicyAdjust, &adjusted)
	policy.Min = min(max(adjusted.Min, policy.HWMin), policy.Max)

	f.mu.Lock()
	f.policies[cpu] = policy
	f.updates = append(f.updates, cpu)
	f.mu.Unlock()

	f.chain.Call(cpufreq.PolicyNotify, &policy)
	return nil
}

func (f *FakeSubsystem) Policy(cpu uint) cpufreq.Policy {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.policies[cpu]
}

// Updates returns the CPUs UpdatePolicy was called for, in call order.
func (f *FakeSubsystem) Updates() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.updates...)
}

func (f *FakeSubsystem) Handlers() int {
	return f.chain.Len()
}
