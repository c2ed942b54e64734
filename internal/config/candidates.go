package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

// candidateFile is the YAML shape of a batch candidate list.
type candidateFile struct {
	Candidates []visibility.Candidate `yaml:"candidates"`
}

// LoadCandidates reads a batch candidate file:
//
//	candidates:
//	  - id: my-cluster
//	    display_name: My Cluster
//	    backend_keys:
//	      clusterName: my-cluster
func LoadCandidates(path string) ([]visibility.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	var f candidateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse candidates %s: %w", path, err)
	}
	if len(f.Candidates) == 0 {
		return nil, fmt.Errorf("candidates %s: no candidates listed", path)
	}

	seen := make(map[string]bool, len(f.Candidates))
	for i, c := range f.Candidates {
		if c.ID == "" {
			return nil, fmt.Errorf("candidates %s: entry %d has no id", path, i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("candidates %s: duplicate id %q", path, c.ID)
		}
		seen[c.ID] = true
	}
	return f.Candidates, nil
}
