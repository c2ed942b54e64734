// Package probes ships the default probe set for Kafka/MSK entity
// visibility: one probe per backend stage, each pairing a query builder
// with the extractor that reads its result shape.
package probes

import (
	"fmt"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/nrql"
	"github.com/synthwatch/synthwatch/internal/probe"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// Candidate backend key names the default probes consult. Each falls back
// to the candidate ID when absent.
const (
	// KeyClusterName is the cluster name as it appears in ingested samples.
	KeyClusterName = "clusterName"
	// KeyEntityName is the synthesized entity's name in the graph, when it
	// differs from the cluster name.
	KeyEntityName = "entityName"
)

// Config parameterizes the default probe set.
type Config struct {
	// AccountID scopes event queries to one account.
	AccountID int

	// Window is the NRQL time window, e.g. "30 minutes ago".
	Window string

	// EntityType is the synthesized entity type to search for.
	EntityType string
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Window == "" {
		c.Window = "30 minutes ago"
	}
	if c.EntityType == "" {
		c.EntityType = "AWSMSKCLUSTER"
	}
	return c
}

// GraphQL documents submitted through the adapter. The NRQL statement
// travels as a variable so the document itself never embeds user input.
const (
	nrqlDocument = `query($accountId: Int!, $nrql: Nrql!) {
  actor {
    account(id: $accountId) {
      nrql(query: $nrql) {
        results
      }
    }
  }
}`

	entitySearchDocument = `query($query: String!) {
  actor {
    entitySearch(query: $query) {
      results {
        entities {
          guid
          name
          reporting
        }
      }
    }
  }
}`
)

// Defaults returns the three default probes: raw ingestion, entity graph,
// and the aggregation query the UI issues.
func Defaults(cfg Config) []probe.Probe {
	cfg = cfg.withDefaults()
	return []probe.Probe{
		IngestionProbe(cfg),
		GraphProbe(cfg),
		UIProbe(cfg),
	}
}

// IngestionProbe counts raw broker samples for the cluster. A positive
// count proves events reached the ingestion store, whether or not any
// entity was synthesized from them.
func IngestionProbe(cfg Config) probe.Probe {
	cfg = cfg.withDefaults()
	return probe.Probe{
		Name: "ingestion-broker-samples",
		Kind: visibility.KindIngestion,
		BuildQuery: func(c visibility.Candidate) backend.QuerySpec {
			q := nrql.Query{
				Select: []string{"count(*)"},
				From:   "AwsMskBrokerSample",
				Where:  []string{nrql.Eq("provider.clusterName", c.Key(KeyClusterName))},
				Since:  cfg.Window,
			}
			return backend.QuerySpec{
				Kind:      visibility.KindIngestion,
				Statement: nrqlDocument,
				Variables: map[string]any{
					"accountId": cfg.AccountID,
					"nrql":      q.MustCompile(),
				},
			}
		},
		Extract: func(raw backend.RawResult) (visibility.Measurement, error) {
			results, err := nrqlResults(raw)
			if err != nil {
				return visibility.Measurement{}, err
			}
			count := int64(0)
			if len(results) > 0 {
				n, ok := numberField(results[0], "count")
				if !ok {
					return visibility.Measurement{}, fmt.Errorf("result row has no count field")
				}
				count = int64(n)
			}
			return visibility.Measurement{
				Present: count > 0,
				Count:   &count,
				Raw:     raw,
			}, nil
		},
	}
}

// GraphProbe checks whether the entity graph synthesized the cluster.
// Existence and the reporting flag are extracted as independent signals;
// the reporting flag never gates the derived state.
func GraphProbe(cfg Config) probe.Probe {
	cfg = cfg.withDefaults()
	return probe.Probe{
		Name: "entity-graph-search",
		Kind: visibility.KindGraph,
		BuildQuery: func(c visibility.Candidate) backend.QuerySpec {
			// Names are NFC-normalized before they enter the search: the
			// graph stores whatever Unicode form the ingestion path sent,
			// and a decomposed form in the query misses it.
			search := fmt.Sprintf("name = %s AND type = %s",
				nrql.Quote(visibility.NormalizeName(entityName(c))), nrql.Quote(cfg.EntityType))
			return backend.QuerySpec{
				Kind:      visibility.KindGraph,
				Statement: entitySearchDocument,
				Variables: map[string]any{"query": search},
			}
		},
		Extract: func(raw backend.RawResult) (visibility.Measurement, error) {
			entities, err := searchEntities(raw)
			if err != nil {
				return visibility.Measurement{}, err
			}
			present := len(entities) > 0
			reporting := false
			for _, e := range entities {
				if rep, ok := e["reporting"].(bool); ok && rep {
					reporting = true
				}
			}
			return visibility.Measurement{
				Present:   present,
				Reporting: &reporting,
				Raw:       raw,
			}, nil
		},
	}
}

// UIProbe issues the aggregation query the queues-and-streams UI runs, so a
// positive result means a user would actually see the cluster on screen.
func UIProbe(cfg Config) probe.Probe {
	cfg = cfg.withDefaults()
	return probe.Probe{
		Name: "ui-queues-streams",
		Kind: visibility.KindUI,
		BuildQuery: func(c visibility.Candidate) backend.QuerySpec {
			q := nrql.Query{
				Select: []string{"uniqueCount(entity.guid) AS 'clusters'"},
				From:   "Metric",
				Where: []string{
					nrql.Like("metricName", "aws.kafka.%"),
					nrql.Eq("aws.kafka.ClusterName", c.Key(KeyClusterName)),
				},
				Since: cfg.Window,
			}
			return backend.QuerySpec{
				Kind:      visibility.KindUI,
				Statement: nrqlDocument,
				Variables: map[string]any{
					"accountId": cfg.AccountID,
					"nrql":      q.MustCompile(),
				},
			}
		},
		Extract: func(raw backend.RawResult) (visibility.Measurement, error) {
			results, err := nrqlResults(raw)
			if err != nil {
				return visibility.Measurement{}, err
			}
			count := int64(0)
			if len(results) > 0 {
				n, ok := numberField(results[0], "clusters")
				if !ok {
					return visibility.Measurement{}, fmt.Errorf("result row has no clusters field")
				}
				count = int64(n)
			}
			return visibility.Measurement{
				Present: count > 0,
				Count:   &count,
				Raw:     raw,
			}, nil
		},
	}
}

// entityName picks the name the graph should know the candidate by.
func entityName(c visibility.Candidate) string {
	if v, ok := c.BackendKeys[KeyEntityName]; ok && v != "" {
		return v
	}
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.ID
}
