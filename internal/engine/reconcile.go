package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/probe"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// DefaultProbeTimeout bounds a single probe call when no explicit timeout
// is configured.
const DefaultProbeTimeout = 30 * time.Second

// Reconciler runs every registered probe against a candidate once and
// derives the composite visibility state.
//
// Reconcile never returns an error: all failure is captured per probe in
// the attempt's results. A single probe's failure cannot cancel or block
// the others.
type Reconciler struct {
	registry *probe.Registry
	adapters backend.AdapterSet
	limiter  *backend.Limiter

	probeTimeout time.Duration
	maxParallel  int

	now func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithProbeTimeout sets the per-probe call timeout.
func WithProbeTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithMaxParallelProbes bounds how many probes of one attempt run at once.
// Zero or negative means unbounded.
func WithMaxParallelProbes(n int) ReconcilerOption {
	return func(r *Reconciler) {
		r.maxParallel = n
	}
}

// WithLimiter installs the shared per-backend-kind rate limiter.
func WithLimiter(l *backend.Limiter) ReconcilerOption {
	return func(r *Reconciler) {
		r.limiter = l
	}
}

// withClock overrides the time source, for tests.
func withClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates a Reconciler over a probe registry and the injected
// adapter set.
func NewReconciler(reg *probe.Registry, adapters backend.AdapterSet, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		registry:     reg,
		adapters:     adapters,
		probeTimeout: DefaultProbeTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile executes every registered probe concurrently against the
// candidate and returns the attempt with its derived state.
//
// Each probe call is bounded by the per-probe timeout; the shared rate
// limiter is acquired before each call. Results are collected in
// registration order regardless of completion order, so attempts are
// directly comparable across retries.
func (r *Reconciler) Reconcile(ctx context.Context, cand visibility.Candidate) visibility.VerificationAttempt {
	probes := r.registry.List()
	results := make([]visibility.ProbeResult, len(probes))

	// Semaphore bounds intra-attempt parallelism to respect backend
	// rate limits; the limiter handles cross-candidate pressure.
	var sem chan struct{}
	if r.maxParallel > 0 {
		sem = make(chan struct{}, r.maxParallel)
	}

	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p probe.Probe) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results[i] = r.runProbe(ctx, p, cand)
		}(i, p)
	}
	wg.Wait()

	attempt := visibility.VerificationAttempt{
		Timestamp:    r.now().UTC(),
		ProbeResults: results,
		State:        DeriveState(results),
	}

	slog.Debug("reconciled candidate",
		"candidate", cand.ID,
		"state", attempt.State,
		"probes", len(results),
	)

	return attempt
}

// runProbe executes one probe and folds any failure into the result.
func (r *Reconciler) runProbe(ctx context.Context, p probe.Probe, cand visibility.Candidate) visibility.ProbeResult {
	result := visibility.ProbeResult{ProbeName: p.Name, Kind: p.Kind}
	start := r.now()
	done := func() {
		result.LatencyMS = r.now().Sub(start).Milliseconds()
	}

	adapter, ok := r.adapters.ForKind(p.Kind)
	if !ok {
		done()
		return failed(result, visibility.ErrQuery,
			fmt.Sprintf("no adapter for backend kind %s", p.Kind))
	}

	if err := r.limiter.Wait(ctx, p.Kind); err != nil {
		done()
		return failed(result, backend.KindOf(err), err.Error())
	}

	spec := p.BuildQuery(cand)

	callCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	raw, err := adapter.Submit(callCtx, spec)
	if err != nil {
		done()
		slog.Debug("probe failed",
			"probe", p.Name,
			"candidate", cand.ID,
			"kind", backend.KindOf(err),
			"error", err,
		)
		return failed(result, backend.KindOf(err), err.Error())
	}

	m, err := p.Extract(raw)
	done()
	if err != nil {
		// A result the extractor cannot read means the query shape and
		// the extractor disagree - a query-class failure for this probe.
		return failed(result, visibility.ErrQuery,
			fmt.Sprintf("extract: %v", err))
	}

	result.Measurement = &m
	return result
}

// failed finalizes a probe result carrying an error instead of a measurement.
func failed(r visibility.ProbeResult, kind visibility.ErrorKind, msg string) visibility.ProbeResult {
	r.Measurement = nil
	r.Err = kind
	r.ErrMessage = msg
	return r
}
