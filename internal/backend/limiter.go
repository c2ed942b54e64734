package backend

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

// Limit configures the token bucket for one backend kind.
type Limit struct {
	// RPS is the sustained request rate. Zero means unlimited.
	RPS float64
	// Burst is the bucket size. Defaults to 1 when RPS is set.
	Burst int
}

// Limiter is the shared per-backend-kind token bucket.
//
// One Limiter is shared across all concurrently running probes so that many
// candidates verified in parallel cannot overwhelm a single backend host.
// This is the only genuinely shared mutable state in the system; rate.Limiter
// is safe for concurrent use, so no additional locking is needed.
type Limiter struct {
	buckets map[visibility.BackendKind]*rate.Limiter
}

// NewLimiter builds a limiter from per-kind limits. Kinds without an entry
// (or with zero RPS) are unlimited.
func NewLimiter(limits map[visibility.BackendKind]Limit) *Limiter {
	buckets := make(map[visibility.BackendKind]*rate.Limiter, len(limits))
	for kind, lim := range limits {
		if lim.RPS <= 0 {
			continue
		}
		burst := lim.Burst
		if burst < 1 {
			burst = 1
		}
		buckets[kind] = rate.NewLimiter(rate.Limit(lim.RPS), burst)
	}
	return &Limiter{buckets: buckets}
}

// Wait blocks until a token is available for the kind, or ctx is done.
// A nil Limiter never blocks.
func (l *Limiter) Wait(ctx context.Context, kind visibility.BackendKind) error {
	if l == nil {
		return nil
	}
	bucket, ok := l.buckets[kind]
	if !ok {
		return nil
	}
	if err := bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", kind, err)
	}
	return nil
}
