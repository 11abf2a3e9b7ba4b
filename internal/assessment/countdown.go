package assessment

import (
	"sync"
	"time"
)

// Countdown is a pausable timer advanced by explicit ticks.
// Ticks received while paused are dropped.
type Countdown struct {
	mu        sync.Mutex
	remaining time.Duration
	paused    bool
	fired     bool
}

// NewCountdown creates a running countdown with remaining time left.
func NewCountdown(remaining time.Duration) *Countdown {
	return &Countdown{remaining: max(remaining, 0)}
}

// Tick subtracts elapsed from the remaining time.
// It returns true exactly once, on the first tick that leaves no time.
func (c *Countdown) Tick(elapsed time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || c.fired {
		return false
	}
	c.remaining = max(c.remaining-elapsed, 0)
	if c.remaining == 0 {
		c.fired = true
		return true
	}
	return false
}

// Pause stops the countdown. It reports whether the state changed.
func (c *Countdown) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || c.fired {
		return false
	}
	c.paused = true
	return true
}

// Resume restarts a paused countdown. It reports whether the state changed.
func (c *Countdown) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return false
	}
	c.paused = false
	return true
}

func (c *Countdown) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Expired reports whether the countdown has reached zero.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}
