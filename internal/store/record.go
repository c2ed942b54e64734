package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

// Record implements aggregator.Sink by persisting the terminated run and
// all its attempts in a single transaction. Recording the same run ID twice
// is a no-op.
func (s *Store) Record(ctx context.Context, run *visibility.VerificationRun) error {
	if run == nil {
		return fmt.Errorf("store: record nil run")
	}

	keysJSON, err := json.Marshal(run.Candidate.BackendKeys)
	if err != nil {
		return fmt.Errorf("store: marshal backend keys: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, candidate_id, display_name, backend_keys, final_state, best_state,
		 terminated_reason, abort_cause, attempt_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Candidate.ID,
		run.Candidate.DisplayName,
		string(keysJSON),
		string(run.FinalState),
		string(run.BestStateObserved),
		string(run.TerminatedReason),
		string(run.AbortCause),
		len(run.Attempts),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: insert run %s: %w", run.ID, err)
	}

	for _, attempt := range run.Attempts {
		resultsJSON, err := json.Marshal(attempt.ProbeResults)
		if err != nil {
			return fmt.Errorf("store: marshal probe results: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attempts (run_id, number, ts, state, probe_results)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, number) DO NOTHING
		`,
			run.ID,
			attempt.Number,
			attempt.Timestamp.UTC().Format(time.RFC3339Nano),
			string(attempt.State),
			string(resultsJSON),
		)
		if err != nil {
			return fmt.Errorf("store: insert attempt %d of run %s: %w", attempt.Number, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit run %s: %w", run.ID, err)
	}
	return nil
}
