package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, injected at link time via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// versionInfo is the JSON payload of the version command.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:   version,
				Commit:    commit,
				Date:      date,
				GoVersion: runtime.Version(),
			}
			f := &Formatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Success(info, func(w io.Writer) error {
				fmt.Fprintf(w, "synthwatch %s (%s, %s, %s)\n",
					info.Version, info.Commit, info.Date, info.GoVersion)
				return nil
			})
		},
	}
}
