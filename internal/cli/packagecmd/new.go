package packagecmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/cli/common"
	"github.com/gcstr/verpack/internal/stage"
	"github.com/gcstr/verpack/internal/ui"
)

// New creates the `package` command.
func New() *cobra.Command {
	var skipInstall bool
	var keep bool
	var archive bool
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Install the build and stage its artifacts into the package directory",
		Long: `Package runs the CMake install step into the recipe's install dir, copies the
files selected by package.copy into the package dir and records them in a
manifest. With --archive the package dir is also written as NAME-VERSION.tar.gz
into the CMake build dir, so it stays out of the tracked tree.

A package dir that exists, is non-empty and holds no manifest from an earlier
run is never cleared; pass --keep to stage into it anyway.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := common.SetupCLIContext(cmd)
			if err != nil {
				return err
			}
			pkgDir, err := cliCtx.PackageDir()
			if err != nil {
				return err
			}
			v, err := cliCtx.Resolve()
			if err != nil {
				return err
			}

			r := cliCtx.Recipe
			install := r.Path(r.CMake.InstallDir)
			if !skipInstall {
				err = ui.Run(cmd.OutOrStdout(), "Installing...", func(*ui.Spinner) error {
					return cliCtx.CMake().Install(cliCtx.Ctx, r.Path(r.CMake.BuildDir), install, r.Settings.BuildType)
				})
				if err != nil {
					return err
				}
			}

			if !keep {
				if err := stage.Clean(pkgDir); err != nil {
					return err
				}
			}
			res, err := stage.Copy(cliCtx.Ctx, install, pkgDir, r.Package.Copy)
			if err != nil {
				return err
			}
			m, err := stage.BuildManifest(pkgDir, r.Name, v.Full())
			if err != nil {
				return err
			}
			if err := stage.WriteManifest(pkgDir, m); err != nil {
				return err
			}

			if len(m.Files) > 0 {
				cliCtx.Printer.Plain("%s", strings.TrimRight(ui.RenderSections(common.StagedSections(m.Files)), "\n"))
			}
			cliCtx.Printer.Info("staged %d files into %s (tree %s)", len(res.Files), ui.Italic(pkgDir), shortHash(m.TreeHash))

			if archive {
				base := r.Name + "-" + v.String()
				outDir := r.Path(r.CMake.BuildDir)
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return apperr.Wrap("packagecmd.archive", apperr.Internal, err, "create %s", outDir)
				}
				file := filepath.Join(outDir, stage.ArchiveName(r.Name, v.String()))
				if err := stage.WriteArchiveFile(pkgDir, base, file); err != nil {
					return err
				}
				cliCtx.Printer.Info("wrote %s", ui.Italic(file))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipInstall, "skip-install", false, "Stage from the install dir without running cmake --install")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep existing files in the package dir")
	cmd.Flags().BoolVar(&archive, "archive", false, "Also write a .tar.gz of the package dir")
	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
