package engine

import (
	"math"
	"time"
)

// DelayPolicy computes the wait before the next attempt.
// attempt is the 1-based number of the attempt that just finished.
type DelayPolicy interface {
	Delay(attempt int) time.Duration
}

// FixedDelay waits the same duration between every attempt.
type FixedDelay time.Duration

// Delay implements DelayPolicy.
func (d FixedDelay) Delay(int) time.Duration {
	return time.Duration(d)
}

// ExponentialBackoff grows the delay geometrically from Initial, capped
// at Max. A Multiplier below 1 is treated as 1 (no growth).
type ExponentialBackoff struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
}

// Delay implements DelayPolicy.
func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	if attempt <= 1 {
		return b.Initial
	}
	mult := b.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	d := float64(b.Initial) * math.Pow(mult, float64(attempt-1))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}

// NoDelay retries immediately. Intended for tests.
var NoDelay DelayPolicy = FixedDelay(0)
