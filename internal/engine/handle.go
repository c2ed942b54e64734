package engine

import (
	"context"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

// Handle is a cancellable, in-flight verification.
//
// Start runs Verify on its own goroutine; callers can cancel between
// attempts and wait for the terminated run.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	run    *visibility.VerificationRun
}

// Start begins verifying a candidate asynchronously.
func (o *Orchestrator) Start(ctx context.Context, cand visibility.Candidate, policy Policy) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		defer cancel()
		h.run = o.Verify(ctx, cand, policy)
	}()
	return h
}

// Cancel requests cooperative cancellation. In-flight probes finish or are
// cancelled via their context; no new attempt starts afterwards.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed when the run has terminated.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run terminates and returns it.
func (h *Handle) Wait() *visibility.VerificationRun {
	<-h.done
	return h.run
}
