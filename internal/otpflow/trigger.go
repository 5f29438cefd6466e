package otpflow

import "time"

// DefaultAutoSubmitDelay leaves the last digit visible before auto-submit
const DefaultAutoSubmitDelay = 300 * time.Millisecond

// TriggerState is the auto-submit state machine
type TriggerState int

const (
	TriggerWatching TriggerState = iota
	TriggerArmed
	TriggerConsumed
)

func (s TriggerState) String() string {
	switch s {
	case TriggerArmed:
		return "armed"
	case TriggerConsumed:
		return "consumed"
	default:
		return "watching"
	}
}

// trigger keeps at most one pending auto-submit. It has no lock of its own;
// the owning controller serializes access.
type trigger struct {
	clock Clock
	delay time.Duration
	fire  func(gen uint64)

	state   TriggerState
	pending Timer
	gen     uint64
}

func newTrigger(clock Clock, delay time.Duration, fire func(gen uint64)) *trigger {
	return &trigger{clock: clock, delay: delay, fire: fire}
}

// arm schedules one delayed submit, replacing any pending one. The trigger
// stays armed until the timer fires or is superseded.
func (t *trigger) arm() {
	t.cancel()
	t.state = TriggerArmed
	gen := t.gen
	t.pending = t.clock.AfterFunc(t.delay, func() { t.fire(gen) })
}

// reset goes back to watching and drops a pending submit
func (t *trigger) reset() {
	t.cancel()
	t.state = TriggerWatching
}

// cancel stops the pending timer. The generation bump makes a callback that
// already started a no-op.
func (t *trigger) cancel() {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

// take validates a firing callback, clears the pending slot and marks the
// trigger consumed
func (t *trigger) take(gen uint64) bool {
	if gen != t.gen || t.pending == nil {
		return false
	}
	t.pending = nil
	t.state = TriggerConsumed
	return true
}

// supersede drops a pending submit because the same code is being submitted
// by hand
func (t *trigger) supersede() {
	if t.pending == nil {
		return
	}
	t.cancel()
	t.state = TriggerConsumed
}
