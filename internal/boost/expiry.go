package boost

import (
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"
)

// ExpiryScheduler owns the single delayed "unboost" task. Arming while a task
// is pending replaces its fire time instead of queueing another one.
type ExpiryScheduler struct {
	clock  clock.WithDelayedExecution
	action func()

	mu    sync.Mutex
	timer clock.Timer

	armedGen atomic.Uint64
	firedGen atomic.Uint64
	stopped  atomic.Bool
}

func NewExpiryScheduler(clk clock.WithDelayedExecution, action func()) *ExpiryScheduler {
	return &ExpiryScheduler{
		clock:  clk,
		action: action,
	}
}

// ArmOrExtend schedules the action d from now. The fire time is always reset
// to d, even when the pending task would have fired later. It returns true if
// a pending task was rescheduled and false if a new one had to be queued.
func (e *ExpiryScheduler) ArmOrExtend(d time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped.Load() {
		return false
	}

	rescheduled := e.timer != nil && e.timer.Stop()
	gen := e.armedGen.Add(1)
	e.timer = e.clock.AfterFunc(d, func() { e.fire(gen) })

	return rescheduled
}

// FireNow cancels the pending task and runs the action synchronously.
func (e *ExpiryScheduler) FireNow() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.firedGen.Store(e.armedGen.Load())
	e.mu.Unlock()

	e.action()
}

func (e *ExpiryScheduler) Pending() bool {
	return e.firedGen.Load() != e.armedGen.Load()
}

// Stop cancels the pending task. Tasks already firing complete as no-ops and
// later arms are refused.
func (e *ExpiryScheduler) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped.Store(true)
	if e.timer != nil {
		e.timer.Stop()
	}
	e.firedGen.Store(e.armedGen.Load())
}

func (e *ExpiryScheduler) fire(gen uint64) {
	if e.stopped.Load() {
		return
	}
	// a task superseded by a later arm must not clear the newer boost
	if e.armedGen.Load() != gen {
		return
	}
	e.firedGen.Store(gen)
	e.action()
}
