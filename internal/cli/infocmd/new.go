package infocmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcstr/verpack/internal/cli/common"
	"github.com/gcstr/verpack/internal/ui"
)

// New creates the `info` command.
func New() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print package metadata: name, version, libraries and options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := common.SetupCLIContext(cmd)
			if err != nil {
				return err
			}
			v, err := cliCtx.Resolve()
			if err != nil {
				return err
			}
			info := cliCtx.Recipe.Info(v.String())
			if asJSON {
				return common.WriteJSON(cmd.OutOrStdout(), common.NewInfoDoc(info))
			}
			cliCtx.Printer.Plain("%s", strings.TrimRight(ui.RenderKeyValues(common.InfoRows(info)), "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the metadata as JSON")
	return cmd
}
