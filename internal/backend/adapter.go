package backend

import (
	"context"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

// QuerySpec is a backend-native query payload built by a probe.
// The core treats it as opaque; only the adapter for the matching kind
// interprets Statement and Variables.
type QuerySpec struct {
	// Kind routes the spec to the right adapter.
	Kind visibility.BackendKind

	// Statement is the backend-native query text (NRQL, a GraphQL
	// document, an entity search expression - whatever the adapter speaks).
	Statement string

	// Variables carries named parameters referenced by Statement.
	Variables map[string]any
}

// RawResult is the opaque structured result an adapter returns.
// Probes reduce it to a typed Measurement via their extractor.
type RawResult map[string]any

// Adapter submits one backend-native query and returns its raw result.
//
// Timeouts and cancellation propagate through ctx; an expired deadline must
// surface as an Error with kind TIMEOUT. Implementations are safe for
// concurrent use - one adapter instance serves every probe of its kind.
type Adapter interface {
	Submit(ctx context.Context, spec QuerySpec) (RawResult, error)
}

// AdapterSet maps each backend kind to its injected adapter.
type AdapterSet map[visibility.BackendKind]Adapter

// ForKind returns the adapter for a kind.
func (s AdapterSet) ForKind(k visibility.BackendKind) (Adapter, bool) {
	a, ok := s[k]
	return a, ok
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, spec QuerySpec) (RawResult, error)

// Submit implements Adapter.
func (f AdapterFunc) Submit(ctx context.Context, spec QuerySpec) (RawResult, error) {
	return f(ctx, spec)
}
