package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthwatch/synthwatch/internal/aggregator"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

func renderedRun() *visibility.VerificationRun {
	count := int64(42)
	reporting := false
	return &visibility.VerificationRun{
		ID: "run-1",
		Candidate: visibility.Candidate{
			ID:          "prod-kafka",
			DisplayName: "Prod Kafka",
		},
		Attempts: []visibility.VerificationAttempt{
			{
				Number:    1,
				Timestamp: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
				State:     visibility.StateIngested,
				ProbeResults: []visibility.ProbeResult{
					{
						ProbeName:   "ingestion-broker-samples",
						Kind:        visibility.KindIngestion,
						Measurement: &visibility.Measurement{Present: true, Count: &count},
						LatencyMS:   120,
					},
					{
						ProbeName:   "entity-graph-search",
						Kind:        visibility.KindGraph,
						Measurement: &visibility.Measurement{Present: false, Reporting: &reporting},
						LatencyMS:   80,
					},
					{
						ProbeName:  "ui-queues-streams",
						Kind:       visibility.KindUI,
						Err:        visibility.ErrTimeout,
						ErrMessage: "deadline exceeded",
						LatencyMS:  30000,
					},
				},
			},
		},
		FinalState:        visibility.StateIngested,
		BestStateObserved: visibility.StateIngested,
		TerminatedReason:  visibility.ReasonExhausted,
	}
}

func TestRenderRun_Compact(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, renderRun(buf, renderedRun(), false))

	out := buf.String()
	assert.Contains(t, out, "candidate:  Prod Kafka (prod-kafka)")
	assert.Contains(t, out, "run:        run-1")
	assert.Contains(t, out, "result:     EXHAUSTED")
	assert.Contains(t, out, "final:      INGESTED")
	assert.Contains(t, out, "best seen:  INGESTED")
	assert.Contains(t, out, "attempts:   1")
	assert.NotContains(t, out, "attempt 1:", "diagnostics hidden without --show-attempts")
}

func TestRenderRun_ShowAttempts(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, renderRun(buf, renderedRun(), true))

	out := buf.String()
	assert.Contains(t, out, "attempt 1: INGESTED")
	assert.Contains(t, out, "present=true count=42")
	assert.Contains(t, out, "present=false reporting=false")
	assert.Contains(t, out, "error=TIMEOUT")
	assert.Contains(t, out, "deadline exceeded")
	assert.Contains(t, out, "(120ms)")
}

func TestRenderRun_AbortCause(t *testing.T) {
	run := renderedRun()
	run.TerminatedReason = visibility.ReasonAborted
	run.AbortCause = visibility.AbortAuth

	buf := &bytes.Buffer{}
	require.NoError(t, renderRun(buf, run, false))
	assert.Contains(t, buf.String(), "result:     ABORTED (AUTH)")
}

func TestRenderRun_FallsBackToID(t *testing.T) {
	run := renderedRun()
	run.Candidate.DisplayName = ""

	buf := &bytes.Buffer{}
	require.NoError(t, renderRun(buf, run, false))
	assert.Contains(t, buf.String(), "candidate:  prod-kafka (prod-kafka)")
}

func TestDescribeMeasurement(t *testing.T) {
	count := int64(3)
	reporting := true

	assert.Equal(t, "no measurement", describeMeasurement(nil))
	assert.Equal(t, "present=true", describeMeasurement(&visibility.Measurement{Present: true}))
	assert.Equal(t, "present=true count=3",
		describeMeasurement(&visibility.Measurement{Present: true, Count: &count}))
	assert.Equal(t, "present=true count=3 reporting=true",
		describeMeasurement(&visibility.Measurement{Present: true, Count: &count, Reporting: &reporting}))
}

func TestRenderSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, renderSummary(buf, aggregator.Summary{
		Total:     4,
		Succeeded: 2,
		Exhausted: 1,
		Aborted:   1,
		ByFinalState: map[visibility.VisibilityState]int{
			visibility.StateUIVisible: 2,
			visibility.StateNotFound:  1,
			visibility.StateFailed:    1,
		},
	}))

	out := buf.String()
	assert.Contains(t, out, "total:      4")
	assert.Contains(t, out, "succeeded:  2")
	assert.Contains(t, out, "by final state:")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "UI_VISIBLE")
}
