package gesture

import "time"

// Default debounce timing.
const (
	// DefaultConfirmation is how long an open-hand observation must be
	// sustained before it fires a trigger.
	DefaultConfirmation = 500 * time.Millisecond
	// DefaultCooldown is the minimum gap between two gesture-sourced
	// triggers.
	DefaultCooldown = 10 * time.Second
)

// Debouncer suppresses single-frame false positives and rapid re-fires.
// An open-hand observation arms a confirmation window; the signal must
// still be observed once the window has elapsed for the trigger to fire.
// Any observation below the open-hand count cancels the pending window.
//
// Debouncer is driven from the single pipeline goroutine and is not
// safe for concurrent use.
type Debouncer struct {
	confirmation time.Duration
	cooldown     time.Duration

	now func() time.Time

	pending      bool
	pendingSince time.Time
	lastFired    time.Time
	hasFired     bool
}

// NewDebouncer creates a Debouncer with the given confirmation window and
// cooldown. Non-positive durations fall back to the defaults.
func NewDebouncer(confirmation, cooldown time.Duration) *Debouncer {
	if confirmation <= 0 {
		confirmation = DefaultConfirmation
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Debouncer{
		confirmation: confirmation,
		cooldown:     cooldown,
		now:          time.Now,
	}
}

// Observe feeds one frame's finger count into the debouncer and reports
// whether the trigger should fire now.
func (d *Debouncer) Observe(count int) bool {
	now := d.now()

	if count < OpenHandCount {
		d.pending = false
		return false
	}

	if !d.pending {
		d.pending = true
		d.pendingSince = now
		return false
	}

	if now.Sub(d.pendingSince) < d.confirmation {
		return false
	}

	// Confirmed. A fresh confirmation window is required after a
	// cooldown suppression, so pending resets either way.
	d.pending = false

	if d.hasFired && now.Sub(d.lastFired) < d.cooldown {
		return false
	}

	d.lastFired = now
	d.hasFired = true
	return true
}

// Reset clears any pending confirmation, e.g. when detection is toggled off.
func (d *Debouncer) Reset() {
	d.pending = false
}
