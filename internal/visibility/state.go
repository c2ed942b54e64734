package visibility

// BackendKind identifies which backend stage a probe or adapter targets.
//
// The three kinds represent progressively higher confidence that a resource
// is externally visible: raw event ingestion, synthesized entity graph,
// and the aggregation layer the user interface queries.
type BackendKind string

const (
	// KindIngestion is the raw event store (event counts).
	KindIngestion BackendKind = "INGESTION"
	// KindGraph is the synthesized entity graph (existence + reporting flag).
	KindGraph BackendKind = "GRAPH"
	// KindUI is the aggregation layer the end-user interface queries.
	KindUI BackendKind = "UI"
)

// Valid reports whether k is a recognized backend kind.
func (k BackendKind) Valid() bool {
	switch k {
	case KindIngestion, KindGraph, KindUI:
		return true
	default:
		return false
	}
}

// VisibilityState is the composite status derived from one attempt's
// probe results.
type VisibilityState string

const (
	// StateUnknown means no signal is available (zero probes ran).
	StateUnknown VisibilityState = "UNKNOWN"
	// StateNotFound means every responding backend reported absence.
	StateNotFound VisibilityState = "NOT_FOUND"
	// StateIngested means raw events exist but no entity was synthesized.
	StateIngested VisibilityState = "INGESTED"
	// StateSynthesized means the entity exists in the graph. Existence alone
	// is sufficient; the reporting flag is carried as diagnostics only,
	// since the two signals are independent and sometimes inconsistent.
	StateSynthesized VisibilityState = "SYNTHESIZED"
	// StateUIVisible means the query shape the UI issues returns the entity.
	StateUIVisible VisibilityState = "UI_VISIBLE"
	// StateFailed means every probe errored; nothing can be concluded.
	StateFailed VisibilityState = "FAILED"
)

// confidence orders states for best-state tracking. UI visibility is the
// strongest signal; FAILED and UNKNOWN carry no positive signal and rank
// below NOT_FOUND.
var confidence = map[VisibilityState]int{
	StateUnknown:     -1,
	StateFailed:      0,
	StateNotFound:    1,
	StateIngested:    2,
	StateSynthesized: 3,
	StateUIVisible:   4,
}

// Confidence returns the ordering rank of the state.
func (s VisibilityState) Confidence() int {
	return confidence[s]
}

// MoreConfident reports whether s carries a stronger signal than other.
func (s VisibilityState) MoreConfident(other VisibilityState) bool {
	return s.Confidence() > other.Confidence()
}

// TerminatedReason records why a verification run stopped.
type TerminatedReason string

const (
	// ReasonSucceeded means an attempt reached UI_VISIBLE.
	ReasonSucceeded TerminatedReason = "SUCCEEDED"
	// ReasonExhausted means the attempt or time budget ran out.
	ReasonExhausted TerminatedReason = "EXHAUSTED"
	// ReasonAborted means the run was cut short: external cancellation,
	// or a fatal auth failure that retrying cannot fix.
	ReasonAborted TerminatedReason = "ABORTED"
)

// AbortCause distinguishes why an aborted run was aborted.
type AbortCause string

const (
	// AbortNone is set on runs that were not aborted.
	AbortNone AbortCause = ""
	// AbortCancelled means the caller cancelled between attempts.
	AbortCancelled AbortCause = "CANCELLED"
	// AbortAuth means a probe surfaced a fatal authentication failure.
	AbortAuth AbortCause = "AUTH"
)

// ErrorKind classifies a backend failure observed by a probe.
type ErrorKind string

const (
	// ErrNone marks a probe result that carries a measurement.
	ErrNone ErrorKind = ""
	// ErrNetwork is a transient transport failure.
	ErrNetwork ErrorKind = "NETWORK"
	// ErrTimeout means the per-probe deadline expired.
	ErrTimeout ErrorKind = "TIMEOUT"
	// ErrQuery means the backend rejected the query shape. Permanent for
	// that probe, but never fatal to the run.
	ErrQuery ErrorKind = "QUERY"
	// ErrAuth is a fatal credential failure. The orchestrator aborts the
	// whole run on the first occurrence.
	ErrAuth ErrorKind = "AUTH"
)

// Transient reports whether retrying can plausibly clear the error.
func (k ErrorKind) Transient() bool {
	return k == ErrNetwork || k == ErrTimeout
}
