package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

// RunWithGolden executes a scenario and compares its run snapshot against a
// golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s Scenario) *visibility.VerificationRun {
	t.Helper()

	run := s.Run(context.Background())
	AssertGolden(t, s.Name, run)
	return run
}

// AssertGolden compares an already-terminated run against a golden file.
func AssertGolden(t *testing.T, name string, run *visibility.VerificationRun) {
	t.Helper()

	data, err := json.MarshalIndent(Snapshot(run), "", "  ")
	if err != nil {
		t.Fatalf("marshal run snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
