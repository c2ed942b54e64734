// Package harness provides test support for driving the verification
// engine against scripted backends: per-kind adapters that replay a
// predefined sequence of outcomes, a synthetic probe set that reads them,
// and run snapshots suitable for golden-file comparison.
package harness

import (
	"context"
	"sync"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/probe"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// Outcome is one scripted backend response.
// A non-empty Err produces a classified backend failure instead of data.
type Outcome struct {
	Present   bool
	Reporting bool
	Count     int64

	Err visibility.ErrorKind

	// Hang stalls the response until the context expires - used to
	// provoke per-probe timeouts. The response then follows ctx.
	Hang bool
}

// ScriptedAdapter replays outcomes in order; the last outcome repeats once
// the script is exhausted. Safe for concurrent use, though within one run
// the engine serializes attempts.
type ScriptedAdapter struct {
	mu     sync.Mutex
	script []Outcome
	calls  int
}

// NewScriptedAdapter creates an adapter that replays the given outcomes.
func NewScriptedAdapter(outcomes ...Outcome) *ScriptedAdapter {
	return &ScriptedAdapter{script: outcomes}
}

// Calls returns how many submissions the adapter served.
func (a *ScriptedAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Submit implements backend.Adapter.
func (a *ScriptedAdapter) Submit(ctx context.Context, spec backend.QuerySpec) (backend.RawResult, error) {
	a.mu.Lock()
	idx := a.calls
	a.calls++
	if idx >= len(a.script) {
		idx = len(a.script) - 1
	}
	var out Outcome
	if idx >= 0 {
		out = a.script[idx]
	}
	a.mu.Unlock()

	if out.Hang {
		<-ctx.Done()
		return nil, backend.WrapError(visibility.ErrTimeout, "scripted.submit", ctx.Err())
	}
	if out.Err != visibility.ErrNone {
		return nil, backend.NewError(out.Err, "scripted.submit", "scripted failure")
	}
	return backend.RawResult{
		"present":   out.Present,
		"reporting": out.Reporting,
		"count":     out.Count,
	}, nil
}

// Adapters builds an adapter set from per-kind scripts. Kinds without a
// script reply absent forever.
func Adapters(scripts map[visibility.BackendKind][]Outcome) backend.AdapterSet {
	set := make(backend.AdapterSet, 3)
	for _, kind := range []visibility.BackendKind{
		visibility.KindIngestion, visibility.KindGraph, visibility.KindUI,
	} {
		set[kind] = NewScriptedAdapter(scripts[kind]...)
	}
	return set
}

// Registry returns a registry with one synthetic probe per backend kind,
// each reading the scripted response shape.
func Registry() *probe.Registry {
	reg := probe.NewRegistry()
	reg.MustRegister(
		probe.Probe{
			Name:       "scripted-ingestion",
			Kind:       visibility.KindIngestion,
			BuildQuery: scriptedQuery(visibility.KindIngestion),
			Extract: func(raw backend.RawResult) (visibility.Measurement, error) {
				count := rawCount(raw)
				return visibility.Measurement{Present: count > 0, Count: &count}, nil
			},
		},
		probe.Probe{
			Name:       "scripted-graph",
			Kind:       visibility.KindGraph,
			BuildQuery: scriptedQuery(visibility.KindGraph),
			Extract: func(raw backend.RawResult) (visibility.Measurement, error) {
				present, _ := raw["present"].(bool)
				reporting, _ := raw["reporting"].(bool)
				return visibility.Measurement{Present: present, Reporting: &reporting}, nil
			},
		},
		probe.Probe{
			Name:       "scripted-ui",
			Kind:       visibility.KindUI,
			BuildQuery: scriptedQuery(visibility.KindUI),
			Extract: func(raw backend.RawResult) (visibility.Measurement, error) {
				present, _ := raw["present"].(bool)
				count := rawCount(raw)
				return visibility.Measurement{Present: present, Count: &count}, nil
			},
		},
	)
	return reg
}

func scriptedQuery(kind visibility.BackendKind) func(visibility.Candidate) backend.QuerySpec {
	return func(c visibility.Candidate) backend.QuerySpec {
		return backend.QuerySpec{
			Kind:      kind,
			Statement: "scripted",
			Variables: map[string]any{"candidate": c.ID},
		}
	}
}

func rawCount(raw backend.RawResult) int64 {
	switch v := raw["count"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
