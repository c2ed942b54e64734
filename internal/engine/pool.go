package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

// DefaultPoolSize bounds candidate concurrency when unset.
const DefaultPoolSize = 4

// Pool verifies many candidates concurrently, bounded by a fixed worker
// count. Attempts within one candidate stay strictly sequential; candidates
// relative to each other have no ordering guarantee.
type Pool struct {
	orc  *Orchestrator
	size int
}

// NewPool creates a worker pool over an orchestrator.
// size <= 0 selects DefaultPoolSize.
func NewPool(orc *Orchestrator, size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{orc: orc, size: size}
}

// VerifyAll verifies every candidate under the same policy and returns the
// runs in candidate order. Cancellation propagates to every in-flight run;
// runs not yet started still produce a record (terminated ABORTED with zero
// attempts) so the result slice always lines up with the input.
func (p *Pool) VerifyAll(ctx context.Context, cands []visibility.Candidate, policy Policy) []*visibility.VerificationRun {
	runs := make([]*visibility.VerificationRun, len(cands))
	if len(cands) == 0 {
		return runs
	}

	workers := p.size
	if workers > len(cands) {
		workers = len(cands)
	}

	slog.Info("batch verification starting",
		"candidates", len(cands),
		"workers", workers,
	)

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				runs[i] = p.orc.Verify(ctx, cands[i], policy)
			}
		}()
	}

	for i := range cands {
		indices <- i
	}
	close(indices)
	wg.Wait()

	return runs
}
