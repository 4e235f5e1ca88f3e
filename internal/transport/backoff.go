package transport

import (
	"math"
	"math/rand"
	"time"
)

// backoff computes exponential retry delays with optional jitter.
type backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64
}

func newBackoff(base, max time.Duration, jitter float64) backoff {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	if max <= 0 {
		max = time.Second
	}
	if jitter < 0 {
		jitter = 0
	}
	return backoff{base: base, max: max, jitter: jitter}
}

// forAttempt returns the delay for the given attempt (0-indexed).
func (b backoff) forAttempt(attempt int) time.Duration {
	delay := b.base
	if attempt > 0 {
		exp := float64(uint(1) << uint(attempt))
		delay = time.Duration(float64(b.base) * exp)
		if delay <= 0 || delay > b.max {
			delay = b.max
		}
	}
	if b.jitter == 0 {
		return delay
	}
	factor := 1 + (rand.Float64()*2-1)*math.Min(b.jitter, 1)
	if factor < 0 {
		factor = 0
	}
	return time.Duration(float64(delay) * factor)
}
