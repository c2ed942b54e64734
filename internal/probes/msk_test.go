package probes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

var testCfg = Config{AccountID: 12345, Window: "30 minutes ago"}

func nrqlEnvelope(rows ...map[string]any) backend.RawResult {
	anyRows := make([]any, len(rows))
	for i, r := range rows {
		anyRows[i] = r
	}
	return backend.RawResult{
		"actor": map[string]any{
			"account": map[string]any{
				"nrql": map[string]any{"results": anyRows},
			},
		},
	}
}

func searchEnvelope(entities ...map[string]any) backend.RawResult {
	anyEntities := make([]any, len(entities))
	for i, e := range entities {
		anyEntities[i] = e
	}
	return backend.RawResult{
		"actor": map[string]any{
			"entitySearch": map[string]any{
				"results": map[string]any{"entities": anyEntities},
			},
		},
	}
}

func TestDefaults_ValidAndDistinct(t *testing.T) {
	set := Defaults(testCfg)
	require.Len(t, set, 3)

	kinds := make(map[visibility.BackendKind]bool)
	for _, p := range set {
		require.NoError(t, p.Validate())
		kinds[p.Kind] = true
	}
	assert.True(t, kinds[visibility.KindIngestion])
	assert.True(t, kinds[visibility.KindGraph])
	assert.True(t, kinds[visibility.KindUI])
}

func TestIngestionProbe_BuildQuery(t *testing.T) {
	p := IngestionProbe(testCfg)
	cand := visibility.Candidate{
		ID:          "cand-1",
		BackendKeys: map[string]string{KeyClusterName: "prod-kafka"},
	}

	spec := p.BuildQuery(cand)
	assert.Equal(t, visibility.KindIngestion, spec.Kind)
	assert.Equal(t, 12345, spec.Variables["accountId"])

	nrqlText, _ := spec.Variables["nrql"].(string)
	assert.Contains(t, nrqlText, "FROM AwsMskBrokerSample")
	assert.Contains(t, nrqlText, "provider.clusterName = 'prod-kafka'")
	assert.Contains(t, nrqlText, "SINCE 30 minutes ago")
}

func TestIngestionProbe_KeyFallsBackToID(t *testing.T) {
	p := IngestionProbe(testCfg)
	spec := p.BuildQuery(visibility.Candidate{ID: "my-cluster"})

	nrqlText, _ := spec.Variables["nrql"].(string)
	assert.Contains(t, nrqlText, "'my-cluster'")
}

func TestIngestionProbe_Extract(t *testing.T) {
	p := IngestionProbe(testCfg)

	m, err := p.Extract(nrqlEnvelope(map[string]any{"count": float64(42)}))
	require.NoError(t, err)
	assert.True(t, m.Present)
	require.NotNil(t, m.Count)
	assert.Equal(t, int64(42), *m.Count)

	m, err = p.Extract(nrqlEnvelope(map[string]any{"count": float64(0)}))
	require.NoError(t, err)
	assert.False(t, m.Present)
	assert.Equal(t, int64(0), *m.Count)

	// Empty result set means zero events.
	m, err = p.Extract(nrqlEnvelope())
	require.NoError(t, err)
	assert.False(t, m.Present)
}

func TestIngestionProbe_Extract_BadEnvelope(t *testing.T) {
	p := IngestionProbe(testCfg)

	_, err := p.Extract(backend.RawResult{"unexpected": true})
	assert.Error(t, err)

	_, err = p.Extract(nrqlEnvelope(map[string]any{"other": "field"}))
	assert.Error(t, err)
}

func TestGraphProbe_BuildQuery_NormalizesName(t *testing.T) {
	p := GraphProbe(testCfg)
	cand := visibility.Candidate{
		ID:          "cand-1",
		BackendKeys: map[string]string{KeyEntityName: " café "},
	}

	spec := p.BuildQuery(cand)
	assert.Equal(t, visibility.KindGraph, spec.Kind)

	search, _ := spec.Variables["query"].(string)
	assert.Contains(t, search, "name = 'café'", "name must be NFC-normalized and trimmed")
	assert.Contains(t, search, "type = 'AWSMSKCLUSTER'")
}

func TestGraphProbe_BuildQuery_NamePrecedence(t *testing.T) {
	p := GraphProbe(testCfg)

	// entityName key wins over display name, which wins over ID.
	spec := p.BuildQuery(visibility.Candidate{
		ID:          "id-1",
		DisplayName: "Display",
		BackendKeys: map[string]string{KeyEntityName: "explicit"},
	})
	assert.Contains(t, spec.Variables["query"], "'explicit'")

	spec = p.BuildQuery(visibility.Candidate{ID: "id-1", DisplayName: "Display"})
	assert.Contains(t, spec.Variables["query"], "'Display'")

	spec = p.BuildQuery(visibility.Candidate{ID: "id-1"})
	assert.Contains(t, spec.Variables["query"], "'id-1'")
}

func TestGraphProbe_Extract(t *testing.T) {
	p := GraphProbe(testCfg)

	m, err := p.Extract(searchEnvelope(
		map[string]any{"guid": "g1", "name": "prod-kafka", "reporting": false},
		map[string]any{"guid": "g2", "name": "prod-kafka", "reporting": true},
	))
	require.NoError(t, err)
	assert.True(t, m.Present)
	require.NotNil(t, m.Reporting)
	assert.True(t, *m.Reporting, "reporting is true when any match reports")

	m, err = p.Extract(searchEnvelope())
	require.NoError(t, err)
	assert.False(t, m.Present)
	assert.False(t, *m.Reporting)
}

func TestGraphProbe_Extract_ExistsButNotReporting(t *testing.T) {
	p := GraphProbe(testCfg)

	m, err := p.Extract(searchEnvelope(
		map[string]any{"guid": "g1", "name": "prod-kafka", "reporting": false},
	))
	require.NoError(t, err)
	// Existence and reporting are independent signals.
	assert.True(t, m.Present)
	assert.False(t, *m.Reporting)
}

func TestUIProbe_BuildQuery(t *testing.T) {
	p := UIProbe(testCfg)
	spec := p.BuildQuery(visibility.Candidate{
		ID:          "cand-1",
		BackendKeys: map[string]string{KeyClusterName: "prod-kafka"},
	})

	assert.Equal(t, visibility.KindUI, spec.Kind)
	nrqlText, _ := spec.Variables["nrql"].(string)
	assert.Contains(t, nrqlText, "FROM Metric")
	assert.Contains(t, nrqlText, "metricName LIKE 'aws.kafka.%'")
	assert.Contains(t, nrqlText, "aws.kafka.ClusterName = 'prod-kafka'")
}

func TestUIProbe_Extract(t *testing.T) {
	p := UIProbe(testCfg)

	m, err := p.Extract(nrqlEnvelope(map[string]any{"clusters": float64(1)}))
	require.NoError(t, err)
	assert.True(t, m.Present)
	assert.Equal(t, int64(1), *m.Count)

	m, err = p.Extract(nrqlEnvelope(map[string]any{"clusters": float64(0)}))
	require.NoError(t, err)
	assert.False(t, m.Present)
}

func TestQuoting_ResistsInjection(t *testing.T) {
	p := IngestionProbe(testCfg)
	spec := p.BuildQuery(visibility.Candidate{
		ID:          "cand-1",
		BackendKeys: map[string]string{KeyClusterName: "x' OR 1=1 --"},
	})

	nrqlText, _ := spec.Variables["nrql"].(string)
	assert.Contains(t, nrqlText, `'x\' OR 1=1 --'`)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, "30 minutes ago", cfg.Window)
	assert.Equal(t, "AWSMSKCLUSTER", cfg.EntityType)
}
