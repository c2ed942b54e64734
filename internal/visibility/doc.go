// Package visibility defines the shared data model for entity visibility
// verification: candidates, probe measurements, composite visibility states,
// and the attempt/run records produced by the verification engine.
//
// The types here are plain values with no behavior beyond derivation helpers.
// Everything that mutates them lives in internal/engine; once a run
// terminates its record is read-only.
package visibility
