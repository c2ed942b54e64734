// Package config loads the YAML configuration the CLI wires the system up
// from: backend endpoint and credential, default retry policy, per-backend
// rate limits, and pool sizing.
//
// The verification core never reads configuration or the process
// environment; everything it needs arrives as constructed values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// Duration wraps time.Duration with YAML parsing of "5s" style strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// PolicyConfig is the default retry policy applied when the CLI flags leave
// a knob unset.
type PolicyConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	Delay       Duration `yaml:"delay"`
	// BackoffMultiplier > 1 selects exponential backoff from Delay,
	// capped at MaxDelay. 0 or 1 keeps the delay fixed.
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
	MaxDelay          Duration `yaml:"max_delay"`
	OverallTimeout    Duration `yaml:"overall_timeout"`
	ProbeTimeout      Duration `yaml:"probe_timeout"`
	MaxParallelProbes int      `yaml:"max_parallel_probes"`
}

// LimitConfig is the token bucket for one backend kind.
type LimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Config is the full configuration file.
type Config struct {
	// AccountID scopes event queries.
	AccountID int `yaml:"account_id"`

	// Endpoint overrides the GraphQL API endpoint.
	Endpoint string `yaml:"endpoint"`

	// APIKey holds the credential inline; APIKeyFile points at a file
	// containing it. The file wins when both are set.
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"`

	// Window is the query time window, e.g. "30 minutes ago".
	Window string `yaml:"window"`

	// EntityType is the synthesized entity type to verify.
	EntityType string `yaml:"entity_type"`

	Policy PolicyConfig `yaml:"policy"`

	// Limits maps backend kind (ingestion|graph|ui) to its rate limit.
	Limits map[string]LimitConfig `yaml:"limits"`

	// PoolSize bounds concurrent candidate verification in batch mode.
	PoolSize int `yaml:"pool_size"`

	// Database is the SQLite run-history path. Empty disables persistence.
	Database string `yaml:"database"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Policy: PolicyConfig{
			MaxAttempts:       10,
			Delay:             Duration(15 * time.Second),
			BackoffMultiplier: 1,
			OverallTimeout:    Duration(15 * time.Minute),
			ProbeTimeout:      Duration(30 * time.Second),
			MaxParallelProbes: 3,
		},
		PoolSize: 4,
	}
}

// Load reads and validates a configuration file, applying defaults for
// unset fields.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Policy.MaxAttempts < 0 {
		return fmt.Errorf("policy.max_attempts must not be negative")
	}
	if c.Policy.BackoffMultiplier < 0 {
		return fmt.Errorf("policy.backoff_multiplier must not be negative")
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("pool_size must not be negative")
	}
	for kind := range c.Limits {
		if !kindFromName(kind).Valid() {
			return fmt.Errorf("limits: unknown backend kind %q (want ingestion|graph|ui)", kind)
		}
	}
	return nil
}

// ResolveAPIKey returns the credential, reading APIKeyFile when set.
func (c Config) ResolveAPIKey() (string, error) {
	if c.APIKeyFile != "" {
		data, err := os.ReadFile(c.APIKeyFile)
		if err != nil {
			return "", fmt.Errorf("read api key file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return c.APIKey, nil
}

// BackendLimits converts the limits section into the engine's limiter form.
func (c Config) BackendLimits() map[visibility.BackendKind]backend.Limit {
	out := make(map[visibility.BackendKind]backend.Limit, len(c.Limits))
	for name, lim := range c.Limits {
		out[kindFromName(name)] = backend.Limit{RPS: lim.RPS, Burst: lim.Burst}
	}
	return out
}

func kindFromName(name string) visibility.BackendKind {
	switch strings.ToLower(name) {
	case "ingestion":
		return visibility.KindIngestion
	case "graph":
		return visibility.KindGraph
	case "ui":
		return visibility.KindUI
	default:
		return visibility.BackendKind(name)
	}
}
