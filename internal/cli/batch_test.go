package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthwatch/synthwatch/internal/harness"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

func scriptedBatch(rootOpts *RootOptions, script map[visibility.BackendKind][]harness.Outcome) (*bytes.Buffer, *cobra.Command) {
	buf := &bytes.Buffer{}
	opts := &BatchOptions{
		RootOptions: rootOpts,
		Adapters:    harness.Adapters(script),
		Registry:    harness.Registry(),
	}
	cmd := newBatchCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return buf, cmd
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// fastConfig caps the retry budget so exhaustion tests stay quick.
func fastConfig(t *testing.T) string {
	t.Helper()
	return writeTestFile(t, "config.yaml", `
policy:
  max_attempts: 1
  delay: 0s
`)
}

func TestBatch_AllVisible(t *testing.T) {
	path := writeTestFile(t, "candidates.yaml", `
candidates:
  - id: kafka-a
  - id: kafka-b
`)
	buf, cmd := scriptedBatch(&RootOptions{Format: "text"}, map[visibility.BackendKind][]harness.Outcome{
		visibility.KindUI: {{Present: true, Count: 1}},
	})
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "2/2 candidates UI-visible")
}

func TestBatch_PartialFailureIsExitOne(t *testing.T) {
	path := writeTestFile(t, "candidates.yaml", `
candidates:
  - id: kafka-a
  - id: kafka-b
  - id: kafka-c
`)
	// Pool size 1 keeps script order deterministic: the first candidate
	// sees a visible UI, the next two see nothing.
	buf, cmd := scriptedBatch(&RootOptions{Format: "text", Config: fastConfig(t)},
		map[visibility.BackendKind][]harness.Outcome{
			visibility.KindUI: {{Present: true, Count: 1}, {Present: false}},
		})
	cmd.SetArgs([]string{path, "--pool", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "did not reach UI visibility")
	assert.Contains(t, buf.String(), "1/3 candidates UI-visible")
}

func TestBatch_MissingFileIsCommandError(t *testing.T) {
	_, cmd := scriptedBatch(&RootOptions{Format: "text"}, nil)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBatch_RecordsToDatabase(t *testing.T) {
	path := writeTestFile(t, "candidates.yaml", `
candidates:
  - id: kafka-a
`)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	_, cmd := scriptedBatch(&RootOptions{Format: "text"}, map[visibility.BackendKind][]harness.Outcome{
		visibility.KindUI: {{Present: true, Count: 1}},
	})
	cmd.SetArgs([]string{path, "--db", dbPath})

	require.NoError(t, cmd.Execute())

	// The summary command reads the same database back.
	buf := &bytes.Buffer{}
	sumCmd := NewSummaryCommand(&RootOptions{Format: "text"})
	sumCmd.SetOut(buf)
	sumCmd.SetErr(buf)
	sumCmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, sumCmd.Execute())
	assert.Contains(t, buf.String(), "total:      1")
	assert.Contains(t, buf.String(), "succeeded:  1")
}

func TestSummary_NoDatabaseConfigured(t *testing.T) {
	cmd := NewSummaryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
