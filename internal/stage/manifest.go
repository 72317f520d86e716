package stage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gcstr/verpack/internal/apperr"
)

const ManifestFileName = ".verpack-manifest.json"

type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256,omitempty"`
	Link   string `json:"link,omitempty"`
}

// Manifest records the content of a staged package directory.
type Manifest struct {
	Version  string      `json:"version"`
	Package  string      `json:"package"`
	Release  string      `json:"release"`
	Files    []FileEntry `json:"files"`
	TreeHash string      `json:"tree_hash"`
}

// BuildManifest hashes every file under dir. Symlinks are recorded by target
// and not followed. The manifest file itself is skipped.
func BuildManifest(dir, pkg, release string) (Manifest, error) {
	m := Manifest{Version: "v1", Package: pkg, Release: release}
	root := filepath.Clean(dir)
	files := []FileEntry{}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." || d.IsDir() {
			return nil
		}
		relSlash := filepath.ToSlash(rel)
		if relSlash == ManifestFileName {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			files = append(files, FileEntry{Path: relSlash, Link: filepath.ToSlash(target)})
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		sum, err := sha256File(p)
		if err != nil {
			return err
		}
		files = append(files, FileEntry{Path: relSlash, Size: info.Size(), Sha256: sum})
		return nil
	})
	if err != nil {
		return Manifest{}, apperr.Wrap("stage.BuildManifest", apperr.Internal, err, "walk %s", root)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	m.Files = files

	// path NUL size NUL sha256-or-link LF
	var b strings.Builder
	for _, f := range files {
		b.WriteString(f.Path)
		b.WriteByte('\x00')
		b.WriteString(strconv.FormatInt(f.Size, 10))
		b.WriteByte('\x00')
		if f.Link != "" {
			b.WriteString("->" + f.Link)
		} else {
			b.WriteString(f.Sha256)
		}
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	m.TreeHash = hex.EncodeToString(sum[:])
	return m, nil
}

// WriteManifest stores m as ManifestFileName inside dir.
func WriteManifest(dir string, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return apperr.Wrap("stage.WriteManifest", apperr.Internal, err, "encode manifest")
	}
	p := filepath.Join(dir, ManifestFileName)
	if err := os.WriteFile(p, append(b, '\n'), 0o644); err != nil {
		return apperr.Wrap("stage.WriteManifest", apperr.Internal, err, "write %s", p)
	}
	return nil
}

// ReadManifest loads the manifest stored in dir.
func ReadManifest(dir string) (Manifest, error) {
	p := filepath.Join(dir, ManifestFileName)
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, apperr.Wrap("stage.ReadManifest", apperr.NotFound, err, "no manifest in %s", dir)
		}
		return Manifest{}, apperr.Wrap("stage.ReadManifest", apperr.Internal, err, "read %s", p)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, apperr.Wrap("stage.ReadManifest", apperr.InvalidInput, err, "parse %s", p)
	}
	return m, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
