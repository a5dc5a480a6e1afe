package boost

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	"github.com/uditkarode/cpu-event-boost/internal/cpufreq"
	"github.com/uditkarode/cpu-event-boost/internal/display"
	"github.com/uditkarode/cpu-event-boost/internal/notifier"
	"github.com/uditkarode/cpu-event-boost/internal/topology"
)

const handlerName = "cpu-event-boost"

// Func definitions for unit testing
var (
	newPolicyUpdateWorkerFunc = NewPolicyUpdateWorker
)

var ErrAlreadyStarted = errors.New("boost coordinator already started")

// DisplaySource is the subscription side of the display power event source.
type DisplaySource interface {
	Register(name string, priority int, handler notifier.Handler[display.Event]) error
	Unregister(name string) error
}

type Options struct {
	Frequencies FrequencyTable
	Thresholds  Thresholds
	// CompensateDuration is used when a delay event carries no duration.
	CompensateDuration time.Duration
	Worker             WorkerOptions
	Clock              clock.WithDelayedExecution
	Hook               MetricsHook
}

// Coordinator owns the boost state and wires the event sources, the expiry
// scheduler, the policy update worker and the frequency resolver together.
type Coordinator struct {
	state     *State
	scheduler *ExpiryScheduler
	wakeCh    chan struct{}

	frequencies        FrequencyTable
	thresholds         Thresholds
	compensateDuration time.Duration
	workerOpts         WorkerOptions
	clock              clock.WithDelayedExecution
	epoch              time.Time
	hook               MetricsHook

	display   DisplaySource
	subsystem cpufreq.Subsystem
	topology  topology.Provider

	started atomic.Bool
	ready   chan struct{}
	logger  logr.Logger
}

var _ manager.Runnable = &Coordinator{}

func NewCoordinator(
	displaySource DisplaySource,
	subsystem cpufreq.Subsystem,
	topo topology.Provider,
	opts Options,
	logger logr.Logger,
) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Hook == nil {
		opts.Hook = noopHook{}
	}

	c := &Coordinator{
		state:              NewState(),
		wakeCh:             make(chan struct{}, 1),
		frequencies:        opts.Frequencies,
		thresholds:         opts.Thresholds,
		compensateDuration: opts.CompensateDuration,
		workerOpts:         opts.Worker,
		clock:              opts.Clock,
		epoch:              opts.Clock.Now(),
		hook:               opts.Hook,
		display:            displaySource,
		subsystem:          subsystem,
		topology:           topo,
		ready:              make(chan struct{}),
		logger:             logger,
	}
	c.scheduler = NewExpiryScheduler(opts.Clock, c.unboost)

	return c
}

// Start registers with the display and cpufreq event sources, starts the
// policy update worker and blocks until ctx is done. Any registration failure
// aborts the start and undoes what was already registered.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := c.subsystem.RegisterPolicyNotifier(handlerName, 0, c.handlePolicyEvent); err != nil {
		return fmt.Errorf("failed to register cpufreq notifier: %w", err)
	}

	// Blank events are parsed as soon as they occur.
	if err := c.display.Register(handlerName, math.MaxInt, c.handleDisplayEvent); err != nil {
		c.unregisterPolicyNotifier()
		return fmt.Errorf("failed to register display notifier: %w", err)
	}

	updater := NewPolicyUpdater(c.subsystem, c.topology, c.hook, c.logger.WithName("updater"))
	worker, err := newPolicyUpdateWorkerFunc(c.state, c.wakeCh, updater, c.workerOpts, c.logger.WithName("worker"))
	if err != nil {
		c.unregisterDisplayNotifier()
		c.unregisterPolicyNotifier()
		return err
	}

	c.logger.Info("boost coordinator started", "frequencies", c.frequencies, "thresholds", c.thresholds)
	close(c.ready)

	<-ctx.Done()
	c.stop(worker)
	return nil
}

func (c *Coordinator) stop(worker PolicyUpdateWorker) {
	c.logger.V(4).Info("stopping boost coordinator")

	c.unregisterDisplayNotifier()
	c.scheduler.Stop()
	worker.Stop()
	c.unregisterPolicyNotifier()

	c.logger.Info("boost coordinator stopped")
}

func (c *Coordinator) unregisterDisplayNotifier() {
	if err := c.display.Unregister(handlerName); err != nil {
		c.logger.V(4).Info("display notifier already gone", "reason", err.Error())
	}
}

func (c *Coordinator) unregisterPolicyNotifier() {
	if err := c.subsystem.UnregisterPolicyNotifier(handlerName); err != nil {
		c.logger.V(4).Info("cpufreq notifier already gone", "reason", err.Error())
	}
}

// Ready is closed once Start registered all handlers and the worker runs.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

func (c *Coordinator) Snapshot() Modes {
	return c.state.Snapshot()
}

// MaxBoostExpiry returns the wall time the latest granted max boost ends at.
func (c *Coordinator) MaxBoostExpiry() time.Time {
	return c.epoch.Add(time.Duration(c.state.MaxBoostExpires()))
}

func (c *Coordinator) ExpiryPending() bool {
	return c.scheduler.Pending()
}

// ResolveMinFrequency returns the floor for policy under the current state.
func (c *Coordinator) ResolveMinFrequency(policy cpufreq.Policy) uint {
	cluster := c.topology.ClusterOf(policy.CPU)
	return ResolveMinFrequency(c.state.Snapshot(), c.frequencies.For(cluster), policy)
}

func (c *Coordinator) handlePolicyEvent(action notifier.Action, policy *cpufreq.Policy) notifier.Result {
	if action != cpufreq.PolicyAdjust {
		return notifier.ResultOK
	}

	c.AdjustPolicy(policy)
	return notifier.ResultOK
}

// AdjustPolicy overwrites policy.Min with the floor for the current state.
func (c *Coordinator) AdjustPolicy(policy *cpufreq.Policy) {
	policy.Min = c.ResolveMinFrequency(*policy)
	c.hook.OnPolicyAdjust(c.topology.ClusterOf(policy.CPU), policy.Min)
}

func (c *Coordinator) handleDisplayEvent(action notifier.Action, event display.Event) notifier.Result {
	if action != display.EarlyEventBlank {
		return notifier.ResultOK
	}

	c.OnDisplayPowerChange(event.Blank == display.Unblank)
	return notifier.ResultOK
}

// unboost is the expiry action: drop every boost and let the worker apply.
func (c *Coordinator) unboost() {
	cleared := c.state.ClearBoosts()
	c.logger.V(5).Info("boost expired", "cleared", cleared.String())
	c.hook.OnExpiry(cleared)
	c.wake()
}

func (c *Coordinator) wake() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}
