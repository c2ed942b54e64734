package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/probe"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// DefaultMaxAttempts bounds a run when the policy leaves MaxAttempts unset.
const DefaultMaxAttempts = 10

// Policy parameterizes one verification run. The orchestrator hardcodes no
// values - every budget and delay comes from here.
type Policy struct {
	// MaxAttempts caps reconciliation attempts. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Delay computes the inter-attempt wait. Nil means no delay.
	Delay DelayPolicy

	// OverallTimeout bounds the whole run in wall time. Zero means no bound.
	// Expiry terminates the run as EXHAUSTED, even mid-delay.
	OverallTimeout time.Duration

	// ProbeTimeout bounds each individual probe call.
	// Zero means DefaultProbeTimeout. Independent of OverallTimeout.
	ProbeTimeout time.Duration

	// MaxParallelProbes bounds intra-attempt probe concurrency.
	// Zero means unbounded.
	MaxParallelProbes int
}

// withDefaults fills unset policy fields.
func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay == nil {
		p.Delay = NoDelay
	}
	return p
}

// Orchestrator drives repeated reconciliation attempts for candidates until
// a terminal state or budget exhaustion.
//
// State machine per candidate: PENDING → RUNNING → {SUCCEEDED | EXHAUSTED |
// ABORTED}. Attempts for the same candidate are strictly sequential - a new
// attempt never starts before the previous one, including all its probe
// calls, has finished. Cancellation is cooperative and observed at the two
// suspension points: inside probe calls (via context) and during the
// inter-attempt delay.
type Orchestrator struct {
	registry *probe.Registry
	adapters backend.AdapterSet
	limiter  *backend.Limiter
	ids      RunIDGenerator
	now      func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRunIDs overrides the run ID generator (for deterministic tests).
func WithRunIDs(g RunIDGenerator) OrchestratorOption {
	return func(o *Orchestrator) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithRateLimiter installs the shared per-backend-kind limiter.
func WithRateLimiter(l *backend.Limiter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.limiter = l
	}
}

// withNow overrides the time source, for tests.
func withNow(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates an Orchestrator over a probe registry and the
// injected adapter set.
func NewOrchestrator(reg *probe.Registry, adapters backend.AdapterSet, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry: reg,
		adapters: adapters,
		ids:      UUIDv7Generator{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Verify runs the retry loop for one candidate and returns its terminated
// run record. Never returns an error: every outcome, including cancellation
// and fatal auth failures, is encoded in the run.
func (o *Orchestrator) Verify(ctx context.Context, cand visibility.Candidate, policy Policy) *visibility.VerificationRun {
	policy = policy.withDefaults()

	run := &visibility.VerificationRun{
		ID:                o.ids.Generate(),
		Candidate:         cand.Clone(),
		FinalState:        visibility.StateUnknown,
		BestStateObserved: visibility.StateUnknown,
		StartedAt:         o.now().UTC(),
	}

	runCtx := ctx
	cancel := func() {}
	if policy.OverallTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, policy.OverallTimeout)
	}
	defer cancel()

	rec := NewReconciler(o.registry, o.adapters,
		WithLimiter(o.limiter),
		WithProbeTimeout(policy.ProbeTimeout),
		WithMaxParallelProbes(policy.MaxParallelProbes),
		withClock(o.now),
	)

	slog.Info("verification starting",
		"run", run.ID,
		"candidate", cand.ID,
		"max_attempts", policy.MaxAttempts,
	)

	for attemptNo := 1; ; attemptNo++ {
		// Cancellation and the overall deadline are checked between
		// attempts; in-flight probes are never killed forcibly.
		if ctx.Err() != nil {
			return o.finish(run, visibility.ReasonAborted, visibility.AbortCancelled)
		}
		if runCtx.Err() != nil {
			return o.finish(run, visibility.ReasonExhausted, visibility.AbortNone)
		}

		attempt := rec.Reconcile(runCtx, run.Candidate)
		attempt.Number = attemptNo
		run.Attempts = append(run.Attempts, attempt)
		if attempt.State.MoreConfident(run.BestStateObserved) {
			run.BestStateObserved = attempt.State
		}

		slog.Debug("attempt finished",
			"run", run.ID,
			"attempt", attemptNo,
			"state", attempt.State,
		)

		// Success is checked before the auth short-circuit: a UI-visible
		// result is terminal on its own, and the failing credential is
		// still visible in the attempt's probe results.
		if attempt.State == visibility.StateUIVisible {
			return o.finish(run, visibility.ReasonSucceeded, visibility.AbortNone)
		}
		if name, ok := authFailure(attempt); ok {
			slog.Warn("fatal auth failure, aborting run",
				"run", run.ID,
				"probe", name,
			)
			return o.finish(run, visibility.ReasonAborted, visibility.AbortAuth)
		}
		if attemptNo >= policy.MaxAttempts {
			return o.finish(run, visibility.ReasonExhausted, visibility.AbortNone)
		}

		if !o.sleep(ctx, runCtx, policy.Delay.Delay(attemptNo)) {
			if ctx.Err() != nil {
				return o.finish(run, visibility.ReasonAborted, visibility.AbortCancelled)
			}
			// Overall deadline expired mid-delay.
			return o.finish(run, visibility.ReasonExhausted, visibility.AbortNone)
		}
	}
}

// sleep waits the inter-attempt delay. Returns false if the wait was cut
// short by cancellation or the run deadline.
func (o *Orchestrator) sleep(ctx, runCtx context.Context, d time.Duration) bool {
	if d <= 0 {
		return runCtx.Err() == nil && ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-runCtx.Done():
		return false
	}
}

// finish seals the run record.
func (o *Orchestrator) finish(run *visibility.VerificationRun, reason visibility.TerminatedReason, cause visibility.AbortCause) *visibility.VerificationRun {
	if n := len(run.Attempts); n > 0 {
		run.FinalState = run.Attempts[n-1].State
	}
	run.TerminatedReason = reason
	run.AbortCause = cause
	run.FinishedAt = o.now().UTC()

	slog.Info("verification terminated",
		"run", run.ID,
		"candidate", run.Candidate.ID,
		"reason", reason,
		"final_state", run.FinalState,
		"best_state", run.BestStateObserved,
		"attempts", len(run.Attempts),
	)
	return run
}

// authFailure returns the first probe in the attempt that surfaced a fatal
// credential failure. Retrying cannot help those.
func authFailure(attempt visibility.VerificationAttempt) (string, bool) {
	for _, r := range attempt.ProbeResults {
		if r.Err == visibility.ErrAuth {
			return r.ProbeName, true
		}
	}
	return "", false
}
