package versioncmd

import (
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcstr/verpack/internal/cli/buildinfo"
	"github.com/gcstr/verpack/internal/ui"
)

const unknown = "<unknown>"

// New creates the `version` command, which reports verpack's own build.
// The version of the package being built is `verpack resolve`.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show verpack build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			goVer := buildinfo.GoVersion()
			if goVer == "" {
				goVer = runtime.Version()
			}
			commit := buildinfo.Commit()
			if commit == "" {
				commit = unknown
			}
			built := buildinfo.BuildDate()
			if built == "" {
				built = unknown
			}
			if by := buildinfo.BuiltBy(); by != "" && built != unknown {
				built += " (" + by + ")"
			}

			pr := ui.StdPrinter{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
			pr.Plain("Verpack")
			table := ui.RenderKeyValues([]ui.KV{
				{Key: "Version:", Value: buildinfo.Version()},
				{Key: "Go version:", Value: goVer},
				{Key: "Git commit:", Value: commit},
				{Key: "Built:", Value: built},
				{Key: "OS/Arch:", Value: runtime.GOOS + "/" + runtime.GOARCH},
			})
			for _, line := range strings.Split(strings.TrimRight(table, "\n"), "\n") {
				pr.Plain(" %s", line)
			}
			return nil
		},
	}
	return cmd
}
