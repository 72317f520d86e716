package buildcmd

import (
	"github.com/spf13/cobra"

	"github.com/gcstr/verpack/internal/cli/common"
	"github.com/gcstr/verpack/internal/ui"
)

// New creates the `build` command.
func New() *cobra.Command {
	var configureOnly bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Resolve the version, write the settings file, then configure and build with CMake",
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
			path, err := cliCtx.WriteSettings(v)
			if err != nil {
				return err
			}
			cliCtx.Printer.Info("version %s, settings in %s", v.Full(), ui.Italic(path))

			r := cliCtx.Recipe
			src := r.Path(r.CMake.SourceDir)
			build := r.Path(r.CMake.BuildDir)
			drv := cliCtx.CMake()
			err = ui.Run(cmd.OutOrStdout(), "Configuring...", func(sp *ui.Spinner) error {
				if err := drv.Configure(cliCtx.Ctx, src, build, r.CMakeDefines()); err != nil {
					return err
				}
				if configureOnly {
					return nil
				}
				sp.SetLabel("Building...")
				return drv.Build(cliCtx.Ctx, build, r.Settings.BuildType)
			})
			if err != nil {
				return err
			}
			if configureOnly {
				cliCtx.Printer.Info("configured %s", ui.Italic(build))
				return nil
			}
			cliCtx.Printer.Info("built %s %s (%s) in %s", r.Name, v.Full(), r.Settings.BuildType, ui.Italic(build))
			return nil
		},
	}
	cmd.Flags().BoolVar(&configureOnly, "configure-only", false, "Stop after the CMake configure step")
	return cmd
}
