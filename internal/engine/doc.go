// Package engine implements the reconciliation and retry core.
//
// Two pieces cooperate:
//
// Reconciler - one attempt. Fans out every registered probe concurrently
// against a candidate, each bounded by a per-probe timeout and the shared
// rate limiter, and folds all results (successes and failures together)
// into one composite visibility state via a fixed precedence rule.
// DeriveState is a pure function of the attempt's own results; history
// never influences it.
//
// Orchestrator - one run. Drives repeated attempts under an injected retry
// policy (attempt budget, delay policy, overall wall-time budget) until the
// candidate is UI-visible, the budget is exhausted, the caller cancels, or
// a fatal auth failure makes retrying pointless. Attempts for the same
// candidate are strictly sequential; the Pool adds bounded concurrency
// across candidates.
//
// Nothing in this package raises on probe failure: failures are data,
// captured per probe in the attempt and folded into state derivation.
package engine
