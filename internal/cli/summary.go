package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/synthwatch/synthwatch/internal/store"
)

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions

	Database string
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Roll up persisted verification runs",
		Long: `Summarize the run history recorded in the SQLite database: totals by
termination reason and by final visibility state.

Example:
  synthwatch summary --db runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite run-history path (overrides config)")

	return cmd
}

func runSummary(cmd *cobra.Command, opts *SummaryOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	path := cfg.Database
	if opts.Database != "" {
		path = opts.Database
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no run database configured: set database in config or pass --db")
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "open run database", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("closing run database failed", "error", err)
		}
	}()

	summary, err := st.Summarize(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "summarize runs", err)
	}

	f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := f.Success(summary, func(w io.Writer) error {
		return renderSummary(w, summary)
	}); err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}
	return nil
}
