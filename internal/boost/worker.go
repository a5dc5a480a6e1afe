package boost

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/go-logr/logr"
)

var (
	testHookAfterUpdate     func(Modes)
	setRealtimePriorityFunc = setRealtimePriority
)

// PolicyUpdateWorker is the single goroutine applying boost state changes.
type PolicyUpdateWorker interface {
	Stop()
}

type policyUpdateWorkerImpl struct {
	state      *State
	wakeCh     <-chan struct{}
	updater    PolicyUpdater
	lastState  Modes
	cancelFunc func()
	waitGroup  sync.WaitGroup
	logger     logr.Logger
}

// NewPolicyUpdateWorker starts the worker goroutine on its own OS thread and
// returns once the thread is set up. wakeCh must be buffered; sends on it are
// expected to be non-blocking so rapid wakeups coalesce.
func NewPolicyUpdateWorker(
	state *State,
	wakeCh <-chan struct{},
	updater PolicyUpdater,
	opts WorkerOptions,
	logger logr.Logger,
) (PolicyUpdateWorker, error) {
	ctx, cancelFunc := context.WithCancel(context.Background())

	worker := &policyUpdateWorkerImpl{
		state:      state,
		wakeCh:     wakeCh,
		updater:    updater,
		lastState:  invalidModes,
		cancelFunc: cancelFunc,
		logger:     logger,
	}

	started := make(chan error, 1)
	worker.waitGroup.Add(1)

	go func() {
		// The thread is never unlocked so a modified scheduling policy
		// dies with the goroutine instead of leaking to the runtime.
		runtime.LockOSThread()

		if opts.Realtime {
			if err := setRealtimePriorityFunc(opts.Priority); err != nil {
				if opts.RequireRealtime {
					started <- err
					worker.waitGroup.Done()
					return
				}
				logger.Info("running worker without real-time priority", "reason", err.Error())
			}
		}
		started <- nil

		worker.runLoop(ctx)
	}()

	if err := <-started; err != nil {
		cancelFunc()
		return nil, fmt.Errorf("failed to start policy update worker: %w", err)
	}

	return worker, nil
}

func (w *policyUpdateWorkerImpl) Stop() {
	w.cancelFunc()
	w.waitGroup.Wait()
}

func (w *policyUpdateWorkerImpl) runLoop(ctx context.Context) {
	defer w.waitGroup.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		if curr := w.state.Snapshot(); curr != w.lastState {
			w.logger.V(5).Info("boost state changed", "from", w.lastState.String(), "to", curr.String())
			w.lastState = curr
			w.updater.Update(curr)
			if testHookAfterUpdate != nil {
				testHookAfterUpdate(curr)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-w.wakeCh:
		}
	}
}
