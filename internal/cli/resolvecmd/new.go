package resolvecmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcstr/verpack/internal/cli/common"
	"github.com/gcstr/verpack/internal/ui"
)

// New creates the `resolve` command.
func New() *cobra.Command {
	var write bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the build version from git and write the settings file",
		Long: `Resolve reads the latest vX.Y.Z tag, counts the commits made since it and
checks the working tree for changes. The result is printed and, unless
--write=false, written to the recipe's settings file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := common.SetupCLIContext(cmd)
			if err != nil {
				return err
			}
			v, err := cliCtx.Resolve()
			if err != nil {
				return err
			}
			var path string
			if write {
				if path, err = cliCtx.WriteSettings(v); err != nil {
					return err
				}
			}

			if asJSON {
				return common.WriteJSON(cmd.OutOrStdout(), common.NewVersionDoc(v, path))
			}
			cliCtx.Printer.Plain("%s", strings.TrimRight(ui.RenderKeyValues(common.VersionRows(v)), "\n"))
			if path != "" {
				cliCtx.Printer.Info("wrote %s", ui.Italic(path))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", true, "Write the settings file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the version as JSON")
	return cmd
}
