package aggregator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

func run(id string, reason visibility.TerminatedReason, final visibility.VisibilityState) *visibility.VerificationRun {
	return &visibility.VerificationRun{
		ID:               id,
		Candidate:        visibility.Candidate{ID: "cand-" + id},
		TerminatedReason: reason,
		FinalState:       final,
	}
}

func TestAggregator_Summarize(t *testing.T) {
	a := New()
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, run("r1", visibility.ReasonSucceeded, visibility.StateUIVisible)))
	require.NoError(t, a.Record(ctx, run("r2", visibility.ReasonExhausted, visibility.StateNotFound)))
	require.NoError(t, a.Record(ctx, run("r3", visibility.ReasonExhausted, visibility.StateSynthesized)))
	require.NoError(t, a.Record(ctx, run("r4", visibility.ReasonAborted, visibility.StateFailed)))

	s := a.Summarize()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 2, s.Exhausted)
	assert.Equal(t, 1, s.Aborted)
	assert.Equal(t, 1, s.ByFinalState[visibility.StateUIVisible])
	assert.Equal(t, 1, s.ByFinalState[visibility.StateNotFound])
	assert.Equal(t, 1, s.ByFinalState[visibility.StateSynthesized])
	assert.Equal(t, 1, s.ByFinalState[visibility.StateFailed])
}

func TestAggregator_RecordNilRun(t *testing.T) {
	a := New()
	assert.Error(t, a.Record(context.Background(), nil))
}

func TestAggregator_FansOutToSinks(t *testing.T) {
	var got []string
	sink := SinkFunc(func(ctx context.Context, r *visibility.VerificationRun) error {
		got = append(got, r.ID)
		return nil
	})
	a := New(sink)

	ctx := context.Background()
	require.NoError(t, a.Record(ctx, run("r1", visibility.ReasonSucceeded, visibility.StateUIVisible)))
	require.NoError(t, a.Record(ctx, run("r2", visibility.ReasonExhausted, visibility.StateNotFound)))

	assert.Equal(t, []string{"r1", "r2"}, got)
}

func TestAggregator_SinkFailureStillRetainsRun(t *testing.T) {
	sink := SinkFunc(func(ctx context.Context, r *visibility.VerificationRun) error {
		return fmt.Errorf("disk full")
	})
	a := New(sink)

	err := a.Record(context.Background(), run("r1", visibility.ReasonSucceeded, visibility.StateUIVisible))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, a.Summarize().Total)
}

func TestAggregator_ConcurrentRecord(t *testing.T) {
	a := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = a.Record(ctx, run(fmt.Sprintf("r%d", i), visibility.ReasonSucceeded, visibility.StateUIVisible))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, a.Summarize().Total)
	assert.Len(t, a.Runs(), 50)
}
