package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/cli/buildcmd"
	"github.com/gcstr/verpack/internal/cli/buildinfo"
	"github.com/gcstr/verpack/internal/cli/infocmd"
	"github.com/gcstr/verpack/internal/cli/packagecmd"
	"github.com/gcstr/verpack/internal/cli/resolvecmd"
	"github.com/gcstr/verpack/internal/cli/showcmd"
	"github.com/gcstr/verpack/internal/cli/versioncmd"
	"github.com/gcstr/verpack/internal/logger"
)

// verbose controls extra error detail printing.
var verbose bool

// logCloser holds the --log-file sink opened for the current run.
var logCloser io.Closer

// Execute runs the root command and handles error formatting and exit codes.
func Execute(ctx context.Context) int {
	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	if err != nil {
		printUserFriendly(cmd.ErrOrStderr(), err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch {
	case apperr.IsKind(err, apperr.InvalidInput) || apperr.IsKind(err, apperr.MalformedTag):
		return 2
	case apperr.IsResolution(err):
		// EX_DATAERR: the repository state cannot produce a version
		return 65
	case apperr.IsKind(err, apperr.External):
		return 70
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "verpack",
		Short:         "Version and package CMake libraries from git history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("recipe", "r", "", "Path to recipe file or directory (defaults to verpack.yml or verpack.yaml in --dir)")
	pf.StringP("dir", "C", "", "Project directory (defaults to the current directory)")
	pf.String("backend", "", "Git backend: exec (git CLI) or go-git (overrides the recipe)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose error output")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-format", "auto", "Log format: auto, pretty, json")
	pf.String("log-file", "", "Also append JSON logs to this file")

	cmd.AddCommand(resolvecmd.New())
	cmd.AddCommand(showcmd.New())
	cmd.AddCommand(buildcmd.New())
	cmd.AddCommand(packagecmd.New())
	cmd.AddCommand(infocmd.New())
	cmd.AddCommand(versioncmd.New())

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\nProject home: https://github.com/gcstr/verpack\n")

	cmd.SetVersionTemplate(fmt.Sprintf("%s\n", Version()))
	cmd.Version = Version()

	return cmd
}

// Version is the string printed by --version.
func Version() string { return buildinfo.VersionSimple() }

func setupLogger(cmd *cobra.Command) error {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	file, _ := cmd.Flags().GetString("log-file")

	l, closer, err := logger.New(logger.Options{Out: cmd.ErrOrStderr(), Level: level, Format: format, LogFile: file})
	if err != nil {
		return apperr.Wrap("cli.setupLogger", apperr.InvalidInput, err, "configure logging: %v", err)
	}
	logCloser = closer
	l = l.With("run_id", logger.NewRunID(), "command", cmd.CommandPath())
	cmd.SetContext(logger.WithContext(cmd.Context(), l))
	return nil
}

func printUserFriendly(w io.Writer, err error) {
	var e *apperr.E
	if !errors.As(err, &e) {
		_, _ = fmt.Fprintln(w, "Error:", err)
		return
	}
	if e.Msg != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", e.Msg)
	} else {
		_, _ = fmt.Fprintf(w, "Error: %s\n", err.Error())
	}
	if verbose {
		_, _ = fmt.Fprintln(w, "Detail:", err)
	}
	switch apperr.KindOf(err) {
	case apperr.NoTagsFound:
		_, _ = fmt.Fprintln(w, "Hint: tag a release first, e.g. git tag v0.1.0")
	case apperr.MalformedTag:
		_, _ = fmt.Fprintln(w, "Hint: the latest tag must look like vX.Y.Z with single-digit components")
	case apperr.InvalidTopology:
		_, _ = fmt.Fprintln(w, "Hint: the latest tag is not part of HEAD's history; check out a branch containing it")
	}
}
