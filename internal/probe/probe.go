// Package probe defines the named query+extraction units the reconciliation
// engine fans out to, and the registry that holds the active set.
package probe

import (
	"fmt"
	"sort"
	"sync"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// Probe binds one backend kind to a query builder and a result extractor.
//
// Probes are pure configuration: stateless, registered once at startup,
// and reused across all candidates. BuildQuery derives the backend-native
// query from the candidate's identifiers; Extract reduces the adapter's raw
// result to a typed measurement.
type Probe struct {
	// Name uniquely identifies the probe in results and diagnostics.
	Name string

	// Kind selects which injected adapter executes the query.
	Kind visibility.BackendKind

	// BuildQuery constructs the backend-native query for a candidate.
	BuildQuery func(c visibility.Candidate) backend.QuerySpec

	// Extract reduces a raw backend result to a measurement. A returned
	// error is classified as a query failure for this probe only.
	Extract func(raw backend.RawResult) (visibility.Measurement, error)
}

// Validate checks that the probe is fully specified.
func (p Probe) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("probe has no name")
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("probe %s: invalid backend kind %q", p.Name, p.Kind)
	}
	if p.BuildQuery == nil {
		return fmt.Errorf("probe %s: BuildQuery is nil", p.Name)
	}
	if p.Extract == nil {
		return fmt.Errorf("probe %s: Extract is nil", p.Name)
	}
	return nil
}

// Registry holds the active probe set.
//
// Registration happens at startup, before any verification run; it is not
// safe to register concurrently with active runs. The mutex exists so that
// List snapshots taken by concurrent runs are consistent, not to make
// mid-run registration supported.
type Registry struct {
	mu     sync.RWMutex
	probes []Probe
	names  map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds a probe to the active set.
// Probe names must be unique; duplicates are rejected.
func (r *Registry) Register(p Probe) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("register probe: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.names[p.Name] {
		return fmt.Errorf("register probe: duplicate name %q", p.Name)
	}
	r.names[p.Name] = true
	r.probes = append(r.probes, p)
	return nil
}

// MustRegister registers each probe and panics on failure.
// Intended for startup wiring of a known-good default set.
func (r *Registry) MustRegister(probes ...Probe) {
	for _, p := range probes {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// List returns a copy of the registered set in registration order.
// Every reconciliation attempt runs against such a snapshot.
func (r *Registry) List() []Probe {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Probe, len(r.probes))
	copy(out, r.probes)
	return out
}

// Len returns the number of registered probes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.probes)
}

// Names returns the sorted probe names, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.probes))
	for _, p := range r.probes {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}
