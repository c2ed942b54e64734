package probes

import (
	"fmt"

	"github.com/synthwatch/synthwatch/internal/backend"
)

// nrqlResults digs the rows out of an actor.account.nrql response envelope.
func nrqlResults(raw backend.RawResult) ([]map[string]any, error) {
	node, err := dig(map[string]any(raw), "actor", "account", "nrql")
	if err != nil {
		return nil, err
	}
	rows, ok := node["results"].([]any)
	if !ok {
		return nil, fmt.Errorf("nrql envelope has no results array")
	}
	return rowMaps(rows)
}

// searchEntities digs the entity list out of an actor.entitySearch response
// envelope.
func searchEntities(raw backend.RawResult) ([]map[string]any, error) {
	node, err := dig(map[string]any(raw), "actor", "entitySearch", "results")
	if err != nil {
		return nil, err
	}
	entities, ok := node["entities"].([]any)
	if !ok {
		return nil, fmt.Errorf("entitySearch envelope has no entities array")
	}
	return rowMaps(entities)
}

// dig walks nested objects by key, failing with the path that was missing.
func dig(node map[string]any, path ...string) (map[string]any, error) {
	for i, key := range path {
		next, ok := node[key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("response envelope missing %v", path[:i+1])
		}
		node = next
	}
	return node, nil
}

// rowMaps asserts each element of a JSON array is an object.
func rowMaps(rows []any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("result row is %T, not an object", r)
		}
		out = append(out, m)
	}
	return out, nil
}

// numberField reads a numeric field from a result row. JSON numbers decode
// as float64; integer-typed values are accepted too for scripted test data.
func numberField(row map[string]any, field string) (float64, bool) {
	switch v := row[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
