package engine

import (
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// DeriveState computes the composite visibility state for one attempt's
// probe results.
//
// Pure function of the results passed in - no hidden state, no history.
// Precedence is fixed, most-confident signal wins:
//
//  1. any UI probe present (with a positive count when it counts) → UI_VISIBLE
//  2. any graph probe present → SYNTHESIZED, regardless of the reporting
//     flag (existence and reporting are independent signals)
//  3. any ingestion probe with count > 0 → INGESTED
//  4. every probe measured and all report absence → NOT_FOUND
//  5. every probe errored → FAILED
//  6. mixed (some errored, the rest report absence) → NOT_FOUND; the
//     errors stay in the attempt for diagnostics
//
// Zero results derive UNKNOWN.
func DeriveState(results []visibility.ProbeResult) visibility.VisibilityState {
	if len(results) == 0 {
		return visibility.StateUnknown
	}

	errored := 0
	for _, r := range results {
		if r.Failed() {
			errored++
			continue
		}
		if r.Kind == visibility.KindUI && uiVisible(r.Measurement) {
			return visibility.StateUIVisible
		}
	}

	for _, r := range results {
		if !r.Failed() && r.Kind == visibility.KindGraph && r.Measurement.Present {
			return visibility.StateSynthesized
		}
	}

	for _, r := range results {
		if !r.Failed() && r.Kind == visibility.KindIngestion && positiveCount(r.Measurement) {
			return visibility.StateIngested
		}
	}

	if errored == len(results) {
		return visibility.StateFailed
	}

	// All remaining measurements report absence. Some probes may have
	// errored; that degrades confidence but not the derived state.
	return visibility.StateNotFound
}

// uiVisible reports whether a UI measurement counts as a positive signal:
// the resource is present and, for probes that count matches, the count
// is positive.
func uiVisible(m *visibility.Measurement) bool {
	if m == nil || !m.Present {
		return false
	}
	if m.Count != nil && *m.Count <= 0 {
		return false
	}
	return true
}

// positiveCount reports whether an ingestion measurement saw any events.
func positiveCount(m *visibility.Measurement) bool {
	return m != nil && m.Count != nil && *m.Count > 0
}
