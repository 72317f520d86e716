package common

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/cmake"
	"github.com/gcstr/verpack/internal/config"
	"github.com/gcstr/verpack/internal/gitcli"
	"github.com/gcstr/verpack/internal/gitlib"
	"github.com/gcstr/verpack/internal/logger"
	"github.com/gcstr/verpack/internal/settings"
	"github.com/gcstr/verpack/internal/toolexec"
	"github.com/gcstr/verpack/internal/ui"
	"github.com/gcstr/verpack/internal/version"
)

// CLIContext contains all the components needed for most CLI operations.
type CLIContext struct {
	Ctx      context.Context
	Recipe   *config.Recipe
	Repo     version.Repository
	Resolver *version.Resolver
	Printer  ui.StdPrinter
}

// SetupCLIContext loads the recipe and opens the checkout with the selected backend.
func SetupCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	pr := ui.StdPrinter{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}

	r, err := LoadRecipeWithWarnings(cmd, pr)
	if err != nil {
		return nil, err
	}

	backend, _ := cmd.Flags().GetString("backend")
	repo, err := OpenRepository(cmd.Context(), r, backend)
	if err != nil {
		return nil, err
	}

	return &CLIContext{
		Ctx:      cmd.Context(),
		Recipe:   r,
		Repo:     repo,
		Resolver: version.NewResolver(repo),
		Printer:  pr,
	}, nil
}

// OpenRepository returns the git backend named by backend, falling back to
// the recipe's git.backend.
func OpenRepository(ctx context.Context, r *config.Recipe, backend string) (version.Repository, error) {
	if backend == "" {
		backend = r.Git.Backend
	}
	dir := r.Path(r.Git.Dir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, apperr.New("common.OpenRepository", apperr.InvalidInput, "git directory %s does not exist", dir)
	}
	switch backend {
	case config.BackendExec:
		return gitcli.New(dir).WithExecHook(toolexec.LogHook(logger.FromContext(ctx))), nil
	case config.BackendGoGit:
		repo, err := gitlib.Open(dir)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, apperr.New("common.OpenRepository", apperr.InvalidInput, "unknown git backend %q (want %s or %s)", backend, config.BackendExec, config.BackendGoGit)
	}
}

// Resolve computes the build version of the checkout.
func (c *CLIContext) Resolve() (version.BuildVersion, error) {
	return c.Resolver.Resolve(c.Ctx)
}

// WriteSettings writes v to the recipe's settings file and returns its path.
func (c *CLIContext) WriteSettings(v version.BuildVersion) (string, error) {
	path := c.Recipe.SettingsPath()
	st := logger.StartStep(logger.FromContext(c.Ctx), "settings_write", path)
	if err := settings.Write(path, v); err != nil {
		return "", st.Fail(err)
	}
	st.OK("version", v.Full())
	return path, nil
}

// CMake returns a cmake driver rooted at the recipe directory.
func (c *CLIContext) CMake() *cmake.Driver {
	e := toolexec.New("cmake", c.Recipe.BaseDir).WithLogger(toolexec.LogHook(logger.FromContext(c.Ctx)))
	return cmake.NewWithExec(e).WithGenerator(c.Recipe.CMake.Generator)
}

// PackageDir returns the absolute package directory, refusing the recipe
// directory itself, anything outside it, and any dir that holds or sits inside
// the CMake build or install trees.
func (c *CLIContext) PackageDir() (string, error) {
	r := c.Recipe
	dir := r.Path(r.Package.Dir)
	rel, err := filepath.Rel(r.BaseDir, dir)
	if err != nil || rel == "." || !within(r.BaseDir, dir) {
		return "", apperr.New("common.PackageDir", apperr.InvalidInput, "package dir %s must be a subdirectory of %s", dir, r.BaseDir)
	}
	if src := r.Path(r.CMake.SourceDir); within(dir, src) {
		return "", apperr.New("common.PackageDir", apperr.InvalidInput, "package dir %s contains the cmake source dir %s", dir, src)
	}
	for _, other := range []string{r.Path(r.CMake.BuildDir), r.Path(r.CMake.InstallDir)} {
		if within(dir, other) || within(other, dir) {
			return "", apperr.New("common.PackageDir", apperr.InvalidInput, "package dir %s overlaps cmake dir %s", dir, other)
		}
	}
	return dir, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
