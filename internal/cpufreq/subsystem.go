package cpufreq

import (
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/exp/constraints"

	"github.com/uditkarode/cpu-event-boost/internal/notifier"
)

const policyChainName = "cpufreq-policy"

// Policy notifier actions. PolicyAdjust handlers may change Min before it is
// committed, PolicyNotify handlers observe the committed policy.
const (
	PolicyAdjust notifier.Action = iota + 1
	PolicyNotify
)

// Policy holds the limits of one cpufreq policy, all values in kHz.
type Policy struct {
	CPU   uint
	Min   uint
	Max   uint
	HWMin uint
	HWMax uint
}

// Subsystem is the platform frequency governance layer the boost coordinator
// talks to.
type Subsystem interface {
	RegisterPolicyNotifier(name string, priority int, handler notifier.Handler[*Policy]) error
	UnregisterPolicyNotifier(name string) error
	// UpdatePolicy re-evaluates the policy owning cpu: adjust handlers run,
	// the resulting minimum is clamped and committed.
	UpdatePolicy(cpu uint) error
}

type Options struct {
	// DryRun evaluates policies without writing to sysfs.
	DryRun bool
}

type sysfsSubsystem struct {
	chain  *notifier.Chain[*Policy]
	dryRun bool
	logger logr.Logger
}

func NewSysfsSubsystem(logger logr.Logger, opts Options) Subsystem {
	return &sysfsSubsystem{
		chain:  notifier.NewChain[*Policy](policyChainName),
		dryRun: opts.DryRun,
		logger: logger,
	}
}

func (s *sysfsSubsystem) RegisterPolicyNotifier(name string, priority int, handler notifier.Handler[*Policy]) error {
	return s.chain.Register(name, priority, handler)
}

func (s *sysfsSubsystem) UnregisterPolicyNotifier(name string) error {
	return s.chain.Unregister(name)
}

func (s *sysfsSubsystem) UpdatePolicy(cpu uint) error {
	current, err := ReadPolicy(cpu)
	if err != nil {
		return fmt.Errorf("failed to read policy for CPU %d: %w", cpu, err)
	}

	adjusted := current
	s.chain.Call(PolicyAdjust, &adjusted)
	adjusted.Min = clamp(adjusted.Min, current.HWMin, current.Max)
	adjusted.Max = current.Max

	logger := s.logger.WithValues("cpu", cpu)
	if adjusted.Min == current.Min {
		logger.V(5).Info("policy minimum unchanged", "min", current.Min)
	} else if s.dryRun {
		logger.Info("dry run, not committing policy minimum", "from", current.Min, "to", adjusted.Min)
	} else {
		if err := writeFrequency(cpu, scalingMinFreqFile, adjusted.Min); err != nil {
			return err
		}
		logger.V(4).Info("committed policy minimum", "from", current.Min, "to", adjusted.Min)
	}

	s.chain.Call(PolicyNotify, &adjusted)
	return nil
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}
