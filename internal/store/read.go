package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/synthwatch/synthwatch/internal/aggregator"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = fmt.Errorf("store: run not found")

// ReadRun loads one run and its attempts.
func (s *Store) ReadRun(ctx context.Context, id string) (*visibility.VerificationRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, candidate_id, display_name, backend_keys, final_state,
		       best_state, terminated_reason, abort_cause, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	var run visibility.VerificationRun
	var keysJSON, startedAt, finishedAt string
	err := row.Scan(
		&run.ID,
		&run.Candidate.ID,
		&run.Candidate.DisplayName,
		&keysJSON,
		(*string)(&run.FinalState),
		(*string)(&run.BestStateObserved),
		(*string)(&run.TerminatedReason),
		(*string)(&run.AbortCause),
		&startedAt,
		&finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read run %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(keysJSON), &run.Candidate.BackendKeys); err != nil {
		return nil, fmt.Errorf("store: unmarshal backend keys: %w", err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("store: parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return nil, fmt.Errorf("store: parse finished_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT number, ts, state, probe_results
		FROM attempts WHERE run_id = ?
		ORDER BY number ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: read attempts of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var attempt visibility.VerificationAttempt
		var ts, resultsJSON string
		if err := rows.Scan(&attempt.Number, &ts, (*string)(&attempt.State), &resultsJSON); err != nil {
			return nil, fmt.Errorf("store: scan attempt: %w", err)
		}
		if attempt.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("store: parse attempt ts: %w", err)
		}
		if err := json.Unmarshal([]byte(resultsJSON), &attempt.ProbeResults); err != nil {
			return nil, fmt.Errorf("store: unmarshal probe results: %w", err)
		}
		run.Attempts = append(run.Attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate attempts: %w", err)
	}

	return &run, nil
}

// Summarize computes the roll-up over every persisted run.
func (s *Store) Summarize(ctx context.Context) (aggregator.Summary, error) {
	summary := aggregator.Summary{
		ByFinalState: make(map[visibility.VisibilityState]int),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT terminated_reason, final_state, COUNT(*)
		FROM runs
		GROUP BY terminated_reason, final_state
		ORDER BY terminated_reason ASC, final_state ASC
	`)
	if err != nil {
		return summary, fmt.Errorf("store: summarize: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reason, state string
		var n int
		if err := rows.Scan(&reason, &state, &n); err != nil {
			return summary, fmt.Errorf("store: scan summary row: %w", err)
		}
		summary.Total += n
		switch visibility.TerminatedReason(reason) {
		case visibility.ReasonSucceeded:
			summary.Succeeded += n
		case visibility.ReasonExhausted:
			summary.Exhausted += n
		case visibility.ReasonAborted:
			summary.Aborted += n
		}
		summary.ByFinalState[visibility.VisibilityState(state)] += n
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("store: iterate summary: %w", err)
	}

	return summary, nil
}
