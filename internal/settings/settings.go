// Package settings writes the resolved build version as a CMake include file
// and reads it back. The five keys and their order are the contract with the
// CMake project that includes the file.
package settings

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/version"
)

// DefaultFileName is the settings file written next to the recipe.
const DefaultFileName = "version.cmake"

const (
	KeyMajor      = "VERSION_MAJOR"
	KeyMinor      = "VERSION_MINOR"
	KeyPatch      = "VERSION_PATCH"
	KeyTweak      = "VERSION_TWEAK"
	KeyTweakDirty = "VERSION_TWEAK_DIRTY"
)

// Keys lists the settings keys in file order.
var Keys = []string{KeyMajor, KeyMinor, KeyPatch, KeyTweak, KeyTweakDirty}

// Values is the content of a settings file.
type Values struct {
	Major int
	Minor int
	Patch int
	Tweak int
	Dirty bool
}

// FromVersion extracts the persisted fields of v.
func FromVersion(v version.BuildVersion) Values {
	return Values{Major: v.Major, Minor: v.Minor, Patch: v.Patch, Tweak: v.Tweak, Dirty: v.Dirty}
}

// Pairs returns the key/value pairs in file order.
func (v Values) Pairs() [][2]string {
	dirty := "0"
	if v.Dirty {
		dirty = "1"
	}
	return [][2]string{
		{KeyMajor, strconv.Itoa(v.Major)},
		{KeyMinor, strconv.Itoa(v.Minor)},
		{KeyPatch, strconv.Itoa(v.Patch)},
		{KeyTweak, strconv.Itoa(v.Tweak)},
		{KeyTweakDirty, dirty},
	}
}

// Render returns the file content.
func Render(v Values) []byte {
	var b bytes.Buffer
	for _, kv := range v.Pairs() {
		fmt.Fprintf(&b, "set(%s %s)\n", kv[0], kv[1])
	}
	return b.Bytes()
}

// Write atomically replaces path with the settings for v. Nothing is left
// behind if any step fails.
func Write(path string, v version.BuildVersion) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return apperr.Wrap("settings.Write", apperr.Internal, err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(Render(FromVersion(v))); err != nil {
		_ = tmp.Close()
		cleanup()
		return apperr.Wrap("settings.Write", apperr.Internal, err, "write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return apperr.Wrap("settings.Write", apperr.Internal, err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return apperr.Wrap("settings.Write", apperr.Internal, err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return apperr.Wrap("settings.Write", apperr.Internal, err, "replace %s", path)
	}
	return nil
}

var linePattern = regexp.MustCompile(`^set\((VERSION_[A-Z_]+) ([0-9]+)\)$`)

// Read parses a settings file written by Write.
func Read(path string) (Values, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Values{}, apperr.Wrap("settings.Read", apperr.NotFound, err, "settings file %s not found; run `verpack resolve` first", path)
		}
		return Values{}, apperr.Wrap("settings.Read", apperr.Internal, err, "read %s", path)
	}
	return Parse(b)
}

// Parse decodes settings file content.
func Parse(b []byte) (Values, error) {
	seen := map[string]int{}
	sc := bufio.NewScanner(bytes.NewReader(b))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			return Values{}, apperr.New("settings.Parse", apperr.InvalidInput, "line %d: malformed entry %q", lineNo, line)
		}
		if _, dup := seen[m[1]]; dup {
			return Values{}, apperr.New("settings.Parse", apperr.InvalidInput, "line %d: duplicate key %s", lineNo, m[1])
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Values{}, apperr.Wrap("settings.Parse", apperr.InvalidInput, err, "line %d: value %q", lineNo, m[2])
		}
		seen[m[1]] = n
	}
	if err := sc.Err(); err != nil {
		return Values{}, apperr.Wrap("settings.Parse", apperr.Internal, err, "scan settings")
	}
	for k := range seen {
		if !isKey(k) {
			return Values{}, apperr.New("settings.Parse", apperr.InvalidInput, "unknown key %s", k)
		}
	}
	for _, k := range Keys {
		if _, ok := seen[k]; !ok {
			return Values{}, apperr.New("settings.Parse", apperr.InvalidInput, "missing key %s", k)
		}
	}
	dirty := seen[KeyTweakDirty]
	if dirty != 0 && dirty != 1 {
		return Values{}, apperr.New("settings.Parse", apperr.InvalidInput, "%s must be 0 or 1, got %d", KeyTweakDirty, dirty)
	}
	return Values{
		Major: seen[KeyMajor],
		Minor: seen[KeyMinor],
		Patch: seen[KeyPatch],
		Tweak: seen[KeyTweak],
		Dirty: dirty == 1,
	}, nil
}

func isKey(k string) bool {
	for _, want := range Keys {
		if k == want {
			return true
		}
	}
	return false
}
