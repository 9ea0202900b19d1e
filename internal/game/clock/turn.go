// Package clock provides the per-room turn countdown.
package clock

import (
	"sync"
	"time"
)

// TurnClock is a single-shot, restartable countdown. Its state is guarded by
// the owner's lock rather than its own: Start, Cancel, and Armed must be
// called with owner held, and the expiry callback runs with owner held.
// That makes an expiry just another serialized event of the owner, so a
// firing timer and a concurrent Start or Cancel can never both take effect.
//
// Invariant: at most one armed countdown exists per TurnClock.
type TurnClock struct {
	owner sync.Locker
	timer *time.Timer
	gen   uint64
	armed bool
}

// New creates an idle TurnClock serialized by owner.
//
// Precondition: owner must be non-nil.
func New(owner sync.Locker) *TurnClock {
	return &TurnClock{owner: owner}
}

// Start arms a countdown of d that calls onExpire, replacing any pending one.
//
// Precondition: owner is held; d > 0; onExpire must not be nil.
// Postcondition: onExpire runs once after d unless Start or Cancel is called first.
func (c *TurnClock) Start(d time.Duration, onExpire func()) {
	c.stop()
	c.gen++
	gen := c.gen
	c.armed = true
	c.timer = time.AfterFunc(d, func() { c.fire(gen, onExpire) })
}

// Cancel disarms the pending countdown without invoking its callback.
// Safe to call when idle.
//
// Precondition: owner is held.
// Postcondition: No previously armed callback will run.
func (c *TurnClock) Cancel() {
	c.stop()
	c.gen++
	c.armed = false
}

// Armed reports whether a countdown is pending.
//
// Precondition: owner is held.
func (c *TurnClock) Armed() bool {
	return c.armed
}

func (c *TurnClock) stop() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// fire claims the expiry for generation gen. A timer that lost the race
// against Start or Cancel finds a newer generation and does nothing.
func (c *TurnClock) fire(gen uint64, onExpire func()) {
	c.owner.Lock()
	defer c.owner.Unlock()
	if !c.armed || c.gen != gen {
		return
	}
	c.armed = false
	c.timer = nil
	onExpire()
}
