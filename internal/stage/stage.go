package stage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/config"
	"github.com/gcstr/verpack/internal/logger"
)

// Result lists what a Copy run placed in the package directory.
type Result struct {
	// Files are slash-separated paths relative to the package directory, sorted.
	Files []string
}

// Copy applies rules in order, copying matches from under srcRoot into
// dstRoot. Directories are never copied themselves; a pattern reaching into
// them copies their files. Two matches landing on the same destination in
// one run are an error.
func Copy(ctx context.Context, srcRoot, dstRoot string, rules []config.CopyRule) (Result, error) {
	l := logger.FromContext(ctx).With("component", "stage")
	dstRoot = filepath.Clean(dstRoot)
	if err := os.MkdirAll(dstRoot, 0o755); err != nil {
		return Result{}, apperr.Wrap("stage.Copy", apperr.Internal, err, "create %s", dstRoot)
	}

	placed := map[string]string{}
	for i, rule := range rules {
		src := rule.Src
		if !filepath.IsAbs(src) {
			src = filepath.Join(srcRoot, src)
		}
		if rule.Optional {
			if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
				l.Debug("stage_skip", "resource", src, "reason", "optional source missing")
				continue
			}
		}
		st := logger.StartStep(l, "stage_copy", src, "pattern", rule.Pattern, "dst", rule.Dst)
		n, err := copyRule(ctx, src, dstRoot, rule, placed)
		if err != nil {
			return Result{}, st.Fail(err, "rule", i)
		}
		st.OK("files", n)
	}

	files := make([]string, 0, len(placed))
	for rel := range placed {
		files = append(files, rel)
	}
	sort.Strings(files)
	return Result{Files: files}, nil
}

func copyRule(ctx context.Context, src, dstRoot string, rule config.CopyRule, placed map[string]string) (int, error) {
	if !doublestar.ValidatePattern(rule.Pattern) {
		return 0, apperr.New("stage.Copy", apperr.InvalidInput, "invalid pattern %q", rule.Pattern)
	}
	excludes := normalizeExcludes(rule.Exclude)
	for _, pat := range excludes {
		if !doublestar.ValidatePattern(pat) {
			return 0, apperr.New("stage.Copy", apperr.InvalidInput, "invalid exclude pattern %q", pat)
		}
	}
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, apperr.Wrap("stage.Copy", apperr.NotFound, err, "source %s does not exist", src)
		}
		return 0, apperr.Wrap("stage.Copy", apperr.Internal, err, "stat %s", src)
	}
	if !info.IsDir() {
		return 0, apperr.New("stage.Copy", apperr.InvalidInput, "source %s is not a directory", src)
	}

	matches, err := doublestar.Glob(os.DirFS(src), rule.Pattern, doublestar.WithNoFollow())
	if err != nil {
		return 0, apperr.Wrap("stage.Copy", apperr.Internal, err, "glob %s in %s", rule.Pattern, src)
	}
	sort.Strings(matches)

	n := 0
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if excluded(excludes, m) {
			continue
		}
		from := filepath.Join(src, filepath.FromSlash(m))
		fi, err := os.Lstat(from)
		if err != nil {
			return n, apperr.Wrap("stage.Copy", apperr.Internal, err, "lstat %s", from)
		}
		isLink := fi.Mode()&fs.ModeSymlink != 0
		if fi.IsDir() {
			continue
		}
		if isLink && !rule.Symlinks {
			// copy the file the link points at
			if fi, err = os.Stat(from); err != nil {
				return n, apperr.Wrap("stage.Copy", apperr.NotFound, err, "dangling symlink %s", from)
			}
			if fi.IsDir() {
				continue
			}
		}

		rel := path.Base(m)
		if rule.KeepPath {
			rel = m
		}
		rel = path.Join(filepath.ToSlash(rule.Dst), rel)
		if !inside(rel) {
			return n, apperr.New("stage.Copy", apperr.InvalidInput, "%s escapes the package directory", rel)
		}
		if prev, dup := placed[rel]; dup {
			return n, apperr.New("stage.Copy", apperr.InvalidInput, "%s and %s both stage to %s", prev, from, rel)
		}
		to := filepath.Join(dstRoot, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return n, apperr.Wrap("stage.Copy", apperr.Internal, err, "create %s", filepath.Dir(to))
		}
		if isLink && rule.Symlinks {
			err = copySymlink(from, to)
		} else {
			err = copyFile(from, to, fi.Mode().Perm())
		}
		if err != nil {
			return n, apperr.Wrap("stage.Copy", apperr.Internal, err, "copy %s", from)
		}
		placed[rel] = from
		n++
	}
	return n, nil
}

func normalizeExcludes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		p = filepath.ToSlash(p)
		if strings.HasSuffix(p, "/") {
			p += "**"
		}
		out = append(out, p)
	}
	return out
}

func excluded(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func inside(rel string) bool {
	clean := path.Clean(rel)
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, "../") && !path.IsAbs(clean)
}

func copySymlink(from, to string) error {
	target, err := os.Readlink(from)
	if err != nil {
		return err
	}
	if err := os.Remove(to); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Symlink(target, to)
}

func copyFile(from, to string, perm fs.FileMode) error {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	// replace rather than write through an existing symlink
	if err := os.Remove(to); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	out, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
