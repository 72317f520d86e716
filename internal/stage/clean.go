package stage

import (
	"os"
	"path/filepath"

	"github.com/gcstr/verpack/internal/apperr"
)

// Clean removes a package directory left by an earlier run. A missing or
// empty dir is fine; a non-empty dir without a manifest was not staged by
// verpack and is left alone.
func Clean(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperr.Wrap("stage.Clean", apperr.Internal, err, "read %s", dir)
	}
	if len(entries) > 0 {
		if _, err := os.Lstat(filepath.Join(dir, ManifestFileName)); err != nil {
			return apperr.New("stage.Clean", apperr.InvalidInput, "refusing to clear %s: it has no %s (use --keep or pick another package.dir)", dir, ManifestFileName)
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return apperr.Wrap("stage.Clean", apperr.Internal, err, "remove %s", dir)
	}
	return nil
}
