package showcmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcstr/verpack/internal/cli/common"
	"github.com/gcstr/verpack/internal/settings"
	"github.com/gcstr/verpack/internal/ui"
)

// New creates the `show` command.
func New() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the settings file written by the last resolve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pr := ui.StdPrinter{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
			path := file
			if path == "" {
				r, err := common.LoadRecipeWithWarnings(cmd, pr)
				if err != nil {
					return err
				}
				path = r.SettingsPath()
			}
			vals, err := settings.Read(path)
			if err != nil {
				return err
			}

			rows := make([]ui.KV, 0, len(settings.Keys))
			for _, kv := range vals.Pairs() {
				rows = append(rows, ui.KV{Key: kv[0], Value: kv[1]})
			}
			pr.Plain("%s", ui.SectionTitle(path))
			pr.Plain("%s", strings.TrimRight(ui.RenderKeyValues(rows), "\n"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Settings file to read (defaults to the recipe's version.settings_file)")
	return cmd
}
