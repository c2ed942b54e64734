package visibility

import (
	"time"
)

// Candidate identifies the resource under verification and carries whatever
// identifiers each backend needs (one backend may query by name, another by
// an opaque key). Immutable once a verification run starts - the orchestrator
// stores its own copy.
type Candidate struct {
	ID          string            `json:"id" yaml:"id"`
	DisplayName string            `json:"display_name,omitempty" yaml:"display_name"`
	BackendKeys map[string]string `json:"backend_keys,omitempty" yaml:"backend_keys"`
}

// Key returns the backend key for name, falling back to the candidate ID
// when no explicit key was provided.
func (c Candidate) Key(name string) string {
	if v, ok := c.BackendKeys[name]; ok && v != "" {
		return v
	}
	return c.ID
}

// Clone returns a deep copy so the run record cannot observe later mutation
// of the caller's map.
func (c Candidate) Clone() Candidate {
	out := c
	if c.BackendKeys != nil {
		out.BackendKeys = make(map[string]string, len(c.BackendKeys))
		for k, v := range c.BackendKeys {
			out.BackendKeys[k] = v
		}
	}
	return out
}

// Measurement is the normalized outcome of one successful probe.
// Fields that do not apply to a probe are nil: an ingestion probe sets only
// Count, a graph probe sets Present and Reporting, a UI probe sets Present
// and usually Count.
type Measurement struct {
	// Present reports whether the backend returned the resource at all.
	Present bool `json:"present"`

	// Reporting is the entity graph's reporting flag. Independent of
	// Present: the graph exposes "exists" and "reporting" as distinct,
	// sometimes inconsistent signals.
	Reporting *bool `json:"reporting,omitempty"`

	// Count is the raw event or match count, when the probe counts.
	Count *int64 `json:"count,omitempty"`

	// Raw retains the backend's structured result for diagnostics.
	Raw any `json:"-"`
}

// ProbeResult is the outcome of one probe execution within an attempt.
// Exactly one of Measurement / Err is set.
type ProbeResult struct {
	ProbeName   string       `json:"probe"`
	Kind        BackendKind  `json:"backend"`
	Measurement *Measurement `json:"measurement,omitempty"`
	Err         ErrorKind    `json:"error,omitempty"`
	ErrMessage  string       `json:"error_message,omitempty"`
	LatencyMS   int64        `json:"latency_ms"`
}

// Failed reports whether the probe errored instead of measuring.
func (r ProbeResult) Failed() bool {
	return r.Err != ErrNone
}

// VerificationAttempt is one reconciliation pass: every registered probe
// executed once, plus the composite state derived from those results alone.
// Never mutated after creation; state never depends on prior attempts.
type VerificationAttempt struct {
	Number       int             `json:"attempt"`
	Timestamp    time.Time       `json:"timestamp"`
	ProbeResults []ProbeResult   `json:"probe_results"`
	State        VisibilityState `json:"state"`
}

// VerificationRun is the full record of verifying one candidate. Owned
// exclusively by the orchestrator while running; read-only once terminated.
type VerificationRun struct {
	ID        string    `json:"id"`
	Candidate Candidate `json:"candidate"`

	Attempts []VerificationAttempt `json:"attempts"`

	// FinalState is the state of the last attempt (UNKNOWN if none ran).
	FinalState VisibilityState `json:"final_state"`

	// BestStateObserved is the maximum-confidence state seen across all
	// attempts. Backend data can lag or disappear between attempts, so the
	// state can regress; the best ever seen is kept for diagnostics.
	BestStateObserved VisibilityState `json:"best_state_observed"`

	TerminatedReason TerminatedReason `json:"terminated_reason"`
	AbortCause       AbortCause       `json:"abort_cause,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Succeeded reports whether the run terminated because an attempt reached
// UI visibility.
func (r *VerificationRun) Succeeded() bool {
	return r.TerminatedReason == ReasonSucceeded
}
