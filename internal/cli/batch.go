package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/config"
	"github.com/synthwatch/synthwatch/internal/engine"
	"github.com/synthwatch/synthwatch/internal/probe"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions

	PoolSize     int
	Timeout      time.Duration
	ShowAttempts bool
	Database     string

	// Test injection, same as VerifyOptions.
	Adapters backend.AdapterSet
	Registry *probe.Registry
	RunIDs   engine.RunIDGenerator
}

// batchReport is the JSON payload of a batch run.
type batchReport struct {
	Runs      []*visibility.VerificationRun `json:"runs"`
	Total     int                           `json:"total"`
	Succeeded int                           `json:"succeeded"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	return newBatchCommand(&BatchOptions{RootOptions: rootOpts})
}

func newBatchCommand(opts *BatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <candidates-file>",
		Short: "Verify every candidate in a file concurrently",
		Long: `Verify a YAML list of candidates through a bounded worker pool.

Each candidate gets its own independent verification run under the
configured policy; a failure for one never affects another. Exit code 0
means every candidate reached UI visibility.

Example:
  synthwatch batch clusters.yaml --config synthwatch.yaml --pool 8`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.PoolSize, "pool", 0, "concurrent candidate verifications")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "overall wall-time budget per candidate")
	cmd.Flags().BoolVar(&opts.ShowAttempts, "show-attempts", false, "print per-attempt probe diagnostics")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite run-history path (overrides config)")

	return cmd
}

func runBatch(cmd *cobra.Command, opts *BatchOptions, path string) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	cands, err := config.LoadCandidates(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load candidates", err)
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

	poolSize := cfg.PoolSize
	if cmd.Flags().Changed("pool") {
		poolSize = opts.PoolSize
	}

	policy := cfg.Policy
	if cmd.Flags().Changed("timeout") {
		policy.OverallTimeout = config.Duration(opts.Timeout)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	runs := engine.NewPool(orc, poolSize).VerifyAll(ctx, cands, enginePolicy(policy))

	succeeded := 0
	for _, run := range runs {
		if run.Succeeded() {
			succeeded++
		}
		if err := sink.Record(ctx, run); err != nil {
			slog.Error("recording run failed", "run", run.ID, "error", err)
		}
	}

	report := batchReport{Runs: runs, Total: len(runs), Succeeded: succeeded}
	f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := f.Success(report, func(w io.Writer) error {
		return renderBatch(w, runs, opts.ShowAttempts)
	}); err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}

	if succeeded != len(runs) {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d candidates did not reach UI visibility",
				len(runs)-succeeded, len(runs)))
	}
	return nil
}

// renderBatch writes one block per run plus a trailing tally.
func renderBatch(w io.Writer, runs []*visibility.VerificationRun, showAttempts bool) error {
	succeeded := 0
	for i, run := range runs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := renderRun(w, run, showAttempts); err != nil {
			return err
		}
		if run.Succeeded() {
			succeeded++
		}
	}
	fmt.Fprintf(w, "\n%d/%d candidates UI-visible\n", succeeded, len(runs))
	return nil
}
