package common

import (
	"github.com/spf13/cobra"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/config"
	"github.com/gcstr/verpack/internal/logger"
	"github.com/gcstr/verpack/internal/ui"
)

// LoadRecipeWithWarnings loads the recipe named by --recipe, or the one in
// --dir (default: the working directory). Without --recipe, a directory that
// holds no recipe file gets config.Default.
func LoadRecipeWithWarnings(cmd *cobra.Command, pr ui.Printer) (*config.Recipe, error) {
	file, _ := cmd.Flags().GetString("recipe")
	dir, _ := cmd.Flags().GetString("dir")

	path := file
	if path == "" {
		path = dir
	}
	r, missing, err := config.LoadWithWarnings(path)
	if err == nil {
		for _, name := range missing {
			pr.Warn("environment variable %s is not set; replacing with empty string", name)
		}
		return &r, nil
	}
	if file != "" || !apperr.IsKind(err, apperr.NotFound) {
		return nil, err
	}

	base := dir
	if base == "" {
		base = "."
	}
	r, err = config.Default(base)
	if err != nil {
		return nil, err
	}
	logger.FromContext(cmd.Context()).Debug("recipe_default", "dir", r.BaseDir, "name", r.Name)
	return &r, nil
}
