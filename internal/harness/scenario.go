package harness

import (
	"context"
	"time"

	"github.com/synthwatch/synthwatch/internal/engine"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

var zeroTime = time.Time{}

// Scenario scripts one verification run end to end: a candidate, a policy,
// and the outcome each backend returns per attempt.
type Scenario struct {
	// Name uniquely identifies the scenario; it also names the golden file
	// and the fixed run ID.
	Name string

	Candidate visibility.Candidate
	Policy    engine.Policy

	// Script maps each backend kind to its per-attempt outcomes.
	Script map[visibility.BackendKind][]Outcome
}

// Run executes the scenario and returns the terminated run.
// The run ID is fixed to the scenario name for deterministic comparison.
func (s Scenario) Run(ctx context.Context) *visibility.VerificationRun {
	orc := engine.NewOrchestrator(Registry(), Adapters(s.Script),
		engine.WithRunIDs(engine.NewFixedGenerator(s.Name)),
	)
	policy := s.Policy
	if policy.Delay == nil {
		policy.Delay = engine.NoDelay
	}
	return orc.Verify(ctx, s.Candidate, policy)
}

// Snapshot strips the wall-clock fields from a run so golden files stay
// stable across executions: timestamps are zeroed and latencies dropped.
// Everything decision-relevant (states, errors, attempt counts) survives.
func Snapshot(run *visibility.VerificationRun) *visibility.VerificationRun {
	out := *run
	out.StartedAt = zeroTime
	out.FinishedAt = zeroTime
	out.Attempts = make([]visibility.VerificationAttempt, len(run.Attempts))
	for i, attempt := range run.Attempts {
		a := attempt
		a.Timestamp = zeroTime
		a.ProbeResults = make([]visibility.ProbeResult, len(attempt.ProbeResults))
		for j, pr := range attempt.ProbeResults {
			pr.LatencyMS = 0
			if pr.Measurement != nil {
				m := *pr.Measurement
				m.Raw = nil
				pr.Measurement = &m
			}
			a.ProbeResults[j] = pr
		}
		out.Attempts[i] = a
	}
	return &out
}
