package answer

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("remote backend circuit open")

// circuit stops calling the remote backend for a while after repeated
// failures: threshold failures inside window open it for cooldown.
type circuit struct {
	threshold int
	window    time.Duration
	cooldown  time.Duration

	mu        sync.Mutex
	fails     []time.Time
	openUntil time.Time
	cause     error
}

func newCircuit(threshold int, window, cooldown time.Duration) *circuit {
	return &circuit{threshold: threshold, window: window, cooldown: cooldown}
}

// allow returns nil when a call may proceed, otherwise the error to report.
func (c *circuit) allow(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Before(c.openUntil) {
		if errors.Is(c.cause, ErrQuota) {
			return ErrQuota
		}
		return ErrCircuitOpen
	}
	return nil
}

func (c *circuit) failure(now time.Time, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fails = append(c.fails, now)
	// prune older than the window
	cutoff := now.Add(-c.window)
	j := 0
	for _, t := range c.fails {
		if t.After(cutoff) {
			c.fails[j] = t
			j++
		}
	}
	c.fails = c.fails[:j]
	if len(c.fails) >= c.threshold {
		c.openUntil = now.Add(c.cooldown)
		c.cause = cause
		c.fails = nil
		metricCircuitOpens.Inc()
	}
}

func (c *circuit) success() {
	c.mu.Lock()
	c.fails = nil
	c.mu.Unlock()
}
