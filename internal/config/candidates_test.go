package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCandidates(t *testing.T) {
	path := writeFile(t, "candidates.yaml", `
candidates:
  - id: prod-kafka
    display_name: Prod Kafka
    backend_keys:
      clusterName: prod-kafka-cluster
  - id: staging-kafka
`)

	cands, err := LoadCandidates(path)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	assert.Equal(t, "prod-kafka", cands[0].ID)
	assert.Equal(t, "Prod Kafka", cands[0].DisplayName)
	assert.Equal(t, "prod-kafka-cluster", cands[0].BackendKeys["clusterName"])
	assert.Equal(t, "staging-kafka", cands[1].ID)
}

func TestLoadCandidates_Errors(t *testing.T) {
	_, err := LoadCandidates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadCandidates(writeFile(t, "empty.yaml", "candidates: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")

	_, err = LoadCandidates(writeFile(t, "noid.yaml", `
candidates:
  - display_name: Missing ID
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")

	_, err = LoadCandidates(writeFile(t, "dup.yaml", `
candidates:
  - id: a
  - id: a
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}
