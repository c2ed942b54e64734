// Package aggregator accumulates verification run outcomes into summary
// counts. Purely bookkeeping - no decision logic lives here.
package aggregator

import (
	"context"
	"fmt"
	"sync"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

// Sink receives terminated runs. Persistence (file, database, stdout) is an
// external concern injected here; the in-memory aggregator is itself a Sink.
type Sink interface {
	Record(ctx context.Context, run *visibility.VerificationRun) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, run *visibility.VerificationRun) error

// Record implements Sink.
func (f SinkFunc) Record(ctx context.Context, run *visibility.VerificationRun) error {
	return f(ctx, run)
}

// Summary is the roll-up of recorded runs.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Exhausted int `json:"exhausted"`
	Aborted   int `json:"aborted"`

	ByFinalState map[visibility.VisibilityState]int `json:"by_final_state"`
}

// Aggregator keeps runs in memory and fans each recorded run out to any
// attached sinks. Safe for concurrent use - pool workers record directly.
type Aggregator struct {
	mu    sync.Mutex
	runs  []*visibility.VerificationRun
	sinks []Sink
}

// New creates an Aggregator that also forwards to the given sinks.
func New(sinks ...Sink) *Aggregator {
	return &Aggregator{sinks: sinks}
}

// Record appends a terminated run and forwards it to every attached sink.
// The first sink failure is returned; the run is retained in memory either
// way.
func (a *Aggregator) Record(ctx context.Context, run *visibility.VerificationRun) error {
	if run == nil {
		return fmt.Errorf("aggregator: record nil run")
	}

	a.mu.Lock()
	a.runs = append(a.runs, run)
	sinks := a.sinks
	a.mu.Unlock()

	for _, s := range sinks {
		if err := s.Record(ctx, run); err != nil {
			return fmt.Errorf("aggregator: sink record run %s: %w", run.ID, err)
		}
	}
	return nil
}

// Summarize computes counts over every recorded run.
func (a *Aggregator) Summarize() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{ByFinalState: make(map[visibility.VisibilityState]int)}
	for _, run := range a.runs {
		s.Total++
		switch run.TerminatedReason {
		case visibility.ReasonSucceeded:
			s.Succeeded++
		case visibility.ReasonExhausted:
			s.Exhausted++
		case visibility.ReasonAborted:
			s.Aborted++
		}
		s.ByFinalState[run.FinalState]++
	}
	return s
}

// Runs returns a snapshot of the recorded runs in record order.
func (a *Aggregator) Runs() []*visibility.VerificationRun {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*visibility.VerificationRun, len(a.runs))
	copy(out, a.runs)
	return out
}
