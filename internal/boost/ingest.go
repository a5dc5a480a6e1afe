package boost

import (
	"time"
)

// OnDisplayPowerChange records a display power transition. Powering off
// clears every boost immediately and cancels the pending expiry.
func (c *Coordinator) OnDisplayPowerChange(poweredOn bool) {
	logger := c.logger.WithValues("poweredOn", poweredOn)

	if poweredOn {
		if c.state.SetScreenOn() {
			logger.V(4).Info("screen on")
			c.wake()
		}
		c.hook.OnEvent(SourceDisplay, OutcomeAccepted)
		return
	}

	if c.state.ScreenOff() {
		logger.V(4).Info("screen off, dropping boosts")
	}
	c.scheduler.FireNow()
	c.hook.OnEvent(SourceDisplay, OutcomeAccepted)
}

// OnDelayObserved raises a compensate boost for an observed scheduling delay
// and (re)arms the expiry for duration. A zero duration uses the configured
// compensate duration.
//
// The critical limit sets MidCompensate and the medium limit sets
// CritCompensate. MidCompensate wins in the resolver, so the most severe
// delay gets the highest compensate floor.
func (c *Coordinator) OnDelayObserved(delay, duration time.Duration) Outcome {
	if !c.state.ScreenOn() {
		c.hook.OnEvent(SourceDelay, OutcomeIgnored)
		return OutcomeIgnored
	}

	changed := false
	switch {
	case delay > c.thresholds.Critical:
		changed = c.state.SetBoost(MidCompensate)
	case delay > c.thresholds.Medium:
		changed = c.state.SetBoost(CritCompensate)
	}

	if duration <= 0 {
		duration = c.compensateDuration
	}
	c.armExpiry(duration, changed)

	c.logger.V(5).Info("delay observed", "delay", delay, "duration", duration, "modes", c.state.Snapshot().String())
	c.hook.OnEvent(SourceDelay, OutcomeAccepted)
	return OutcomeAccepted
}

// OnMaxBoostRequest grants a max boost for duration unless a boost ending
// later is already in effect, in which case the request is dropped without
// touching the expiry timer.
func (c *Coordinator) OnMaxBoostRequest(duration time.Duration) Outcome {
	if !c.state.ScreenOn() {
		c.hook.OnEvent(SourceMaxBoost, OutcomeIgnored)
		return OutcomeIgnored
	}

	candidate := c.clock.Since(c.epoch) + duration
	if !c.state.ExtendMaxBoost(int64(candidate)) {
		c.logger.V(5).Info("max boost dropped, longer boost in effect", "duration", duration)
		c.hook.OnEvent(SourceMaxBoost, OutcomeDropped)
		return OutcomeDropped
	}

	changed := c.state.SetBoost(MaxBoost)
	c.armExpiry(duration, changed)

	c.logger.V(5).Info("max boost granted", "duration", duration)
	c.hook.OnEvent(SourceMaxBoost, OutcomeAccepted)
	return OutcomeAccepted
}

// armExpiry arms the expiry and wakes the worker when a new task had to be
// queued or the option word changed.
func (c *Coordinator) armExpiry(duration time.Duration, changed bool) {
	if !c.scheduler.ArmOrExtend(duration) || changed {
		c.wake()
	}
}
