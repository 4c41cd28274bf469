package coordinator

import "time"

// Backoff doubles the wait after each consecutive failure, capped at max.
type Backoff struct {
	min, max time.Duration
	fails    int
}

func NewBackoff(min, max time.Duration) *Backoff {
	if min <= 0 {
		min = time.Second
	}
	if max < min {
		max = min
	}
	return &Backoff{min: min, max: max}
}

// Fail records a failure and returns how long to wait before retrying.
func (b *Backoff) Fail() time.Duration {
	b.fails++
	n := b.fails
	if n > 16 {
		n = 16
	}
	d := b.min << uint(n-1)
	if d > b.max || d <= 0 {
		d = b.max
	}
	return d
}

func (b *Backoff) Reset() { b.fails = 0 }

func (b *Backoff) Failures() int { return b.fails }
