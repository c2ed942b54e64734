package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/synthwatch/synthwatch/internal/aggregator"
	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/config"
	"github.com/synthwatch/synthwatch/internal/engine"
	"github.com/synthwatch/synthwatch/internal/nerdgraph"
	"github.com/synthwatch/synthwatch/internal/probe"
	"github.com/synthwatch/synthwatch/internal/probes"
	"github.com/synthwatch/synthwatch/internal/store"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions

	DisplayName  string
	BackendKeys  []string
	MaxRetries   int
	Delay        time.Duration
	Backoff      float64
	MaxDelay     time.Duration
	Timeout      time.Duration
	ProbeTimeout time.Duration
	MaxParallel  int
	ShowAttempts bool
	Database     string

	// Adapters, Registry and RunIDs allow tests to inject scripted
	// backends instead of the real GraphQL client. Nil selects production
	// wiring from the config file.
	Adapters backend.AdapterSet
	Registry *probe.Registry
	RunIDs   engine.RunIDGenerator
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return newVerifyCommand(&VerifyOptions{RootOptions: rootOpts})
}

func newVerifyCommand(opts *VerifyOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <candidate-id>",
		Short: "Verify one candidate's visibility, retrying until terminal",
		Long: `Verify that a candidate resource is visible across the backend stages.

All registered probes run concurrently each attempt; attempts repeat under
the retry policy until the candidate is UI-visible, the budget runs out, or
a fatal auth failure makes retrying pointless.

Exit code 0 means the run SUCCEEDED (UI-visible); 1 means it terminated
EXHAUSTED or ABORTED.

Example:
  synthwatch verify my-kafka-cluster --config synthwatch.yaml
  synthwatch verify my-kafka-cluster --max-retries 5 --delay 30s --show-attempts`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.DisplayName, "name", "", "candidate display name (defaults to the id)")
	cmd.Flags().StringArrayVar(&opts.BackendKeys, "backend-key", nil, "backend-specific key as name=value (repeatable)")
	cmd.Flags().IntVar(&opts.MaxRetries, "max-retries", 0, "maximum reconciliation attempts")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "delay between attempts")
	cmd.Flags().Float64Var(&opts.Backoff, "backoff", 0, "backoff multiplier (>1 grows the delay exponentially)")
	cmd.Flags().DurationVar(&opts.MaxDelay, "max-delay", 0, "cap for the backoff delay")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "overall wall-time budget for the run")
	cmd.Flags().DurationVar(&opts.ProbeTimeout, "probe-timeout", 0, "timeout for each individual probe call")
	cmd.Flags().IntVar(&opts.MaxParallel, "max-parallel-probes", 0, "bound on concurrent probes per attempt")
	cmd.Flags().BoolVar(&opts.ShowAttempts, "show-attempts", false, "print per-attempt probe diagnostics")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite run-history path (overrides config)")

	return cmd
}

func runVerify(cmd *cobra.Command, opts *VerifyOptions, candidateID string) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	keys, err := parseBackendKeys(opts.BackendKeys)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --backend-key", err)
	}
	cand := visibility.Candidate{
		ID:          candidateID,
		DisplayName: opts.DisplayName,
		BackendKeys: keys,
	}

	registry, adapters, err := buildBackends(opts.Registry, opts.Adapters, cfg)
	if err != nil {
		return err
	}

	sink, closeSink, err := buildSink(opts.Database, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	orcOpts := []engine.OrchestratorOption{
		engine.WithRateLimiter(backend.NewLimiter(cfg.BackendLimits())),
	}
	if opts.RunIDs != nil {
		orcOpts = append(orcOpts, engine.WithRunIDs(opts.RunIDs))
	}
	orc := engine.NewOrchestrator(registry, adapters, orcOpts...)

	ctx, stop := signalContext(cmd)
	defer stop()

	run := orc.Verify(ctx, cand, buildPolicy(cmd, opts, cfg))

	if err := sink.Record(ctx, run); err != nil {
		slog.Error("recording run failed", "run", run.ID, "error", err)
	}

	f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := f.Success(run, func(w io.Writer) error {
		return renderRun(w, run, opts.ShowAttempts)
	}); err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}

	if !run.Succeeded() {
		return NewExitError(ExitFailure,
			fmt.Sprintf("candidate %s terminated %s with state %s",
				cand.ID, run.TerminatedReason, run.FinalState))
	}
	return nil
}

// loadConfig loads the configured file, or defaults when none was given.
func loadConfig(root *RootOptions) (config.Config, error) {
	if root.Config == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "load config", err)
	}
	return cfg, nil
}

// buildBackends wires the probe registry and adapter set: injected test
// doubles when present, otherwise the GraphQL client and default probe set
// from configuration.
func buildBackends(registry *probe.Registry, adapters backend.AdapterSet, cfg config.Config) (*probe.Registry, backend.AdapterSet, error) {
	if registry != nil && adapters != nil {
		return registry, adapters, nil
	}

	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "resolve api key", err)
	}
	client, err := nerdgraph.New(nerdgraph.Config{Endpoint: cfg.Endpoint, APIKey: apiKey})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "build backend client", err)
	}

	reg := probe.NewRegistry()
	for _, p := range probes.Defaults(probes.Config{
		AccountID:  cfg.AccountID,
		Window:     cfg.Window,
		EntityType: cfg.EntityType,
	}) {
		if err := reg.Register(p); err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "register probes", err)
		}
	}

	return reg, nerdgraph.AdapterSet(client), nil
}

// buildSink returns the run sink: in-memory always, plus SQLite when a
// database path is configured.
func buildSink(flagDB string, cfg config.Config) (aggregator.Sink, func(), error) {
	path := cfg.Database
	if flagDB != "" {
		path = flagDB
	}
	if path == "" {
		return aggregator.New(), func() {}, nil
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open run database", err)
	}
	return aggregator.New(st), func() {
		if err := st.Close(); err != nil {
			slog.Error("closing run database failed", "error", err)
		}
	}, nil
}

// buildPolicy merges the config defaults with any flags explicitly set.
func buildPolicy(cmd *cobra.Command, opts *VerifyOptions, cfg config.Config) engine.Policy {
	p := cfg.Policy

	flags := cmd.Flags()
	if flags.Changed("max-retries") {
		p.MaxAttempts = opts.MaxRetries
	}
	if flags.Changed("delay") {
		p.Delay = config.Duration(opts.Delay)
	}
	if flags.Changed("backoff") {
		p.BackoffMultiplier = opts.Backoff
	}
	if flags.Changed("max-delay") {
		p.MaxDelay = config.Duration(opts.MaxDelay)
	}
	if flags.Changed("timeout") {
		p.OverallTimeout = config.Duration(opts.Timeout)
	}
	if flags.Changed("probe-timeout") {
		p.ProbeTimeout = config.Duration(opts.ProbeTimeout)
	}
	if flags.Changed("max-parallel-probes") {
		p.MaxParallelProbes = opts.MaxParallel
	}

	return enginePolicy(p)
}

// enginePolicy converts the config policy into the engine's form, choosing
// fixed delay or exponential backoff from the multiplier.
func enginePolicy(p config.PolicyConfig) engine.Policy {
	var delay engine.DelayPolicy = engine.FixedDelay(p.Delay.Std())
	if p.BackoffMultiplier > 1 {
		delay = engine.ExponentialBackoff{
			Initial:    p.Delay.Std(),
			Multiplier: p.BackoffMultiplier,
			Max:        p.MaxDelay.Std(),
		}
	}
	return engine.Policy{
		MaxAttempts:       p.MaxAttempts,
		Delay:             delay,
		OverallTimeout:    p.OverallTimeout.Std(),
		ProbeTimeout:      p.ProbeTimeout.Std(),
		MaxParallelProbes: p.MaxParallelProbes,
	}
}

// parseBackendKeys parses repeated name=value flags.
func parseBackendKeys(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	keys := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		keys[name] = value
	}
	return keys, nil
}

// signalContext derives a context cancelled by SIGINT/SIGTERM, so Ctrl-C
// aborts between attempts instead of killing mid-write.
func signalContext(cmd *cobra.Command) (context.Context, func()) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
