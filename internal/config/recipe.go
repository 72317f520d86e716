package config

import (
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/gcstr/verpack/internal/apperr"
)

// HostOS maps runtime.GOOS to the settings.os vocabulary.
func HostOS() string {
	return osName(runtime.GOOS)
}

func osName(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "darwin":
		return "Macos"
	case "windows":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	case "android":
		return "Android"
	case "ios":
		return "iOS"
	default:
		return goos
	}
}

func (r *Recipe) normalizeAndValidate(baseDir string) error {
	r.BaseDir = baseDir
	if !nameRegex.MatchString(r.Name) {
		return apperr.New("config.Validate", apperr.InvalidInput, "invalid package name %q: must match %s", r.Name, nameRegex.String())
	}
	if len(r.Libs) == 0 {
		r.Libs = []string{r.Name}
	}
	for _, lib := range r.Libs {
		if strings.TrimSpace(lib) == "" {
			return apperr.New("config.Validate", apperr.InvalidInput, "libs: empty library name")
		}
	}

	if r.Settings.OS == "" {
		r.Settings.OS = HostOS()
	}
	if r.Settings.Arch == "" {
		r.Settings.Arch = runtime.GOARCH
	}
	if r.Settings.BuildType == "" {
		r.Settings.BuildType = "Release"
	}
	if r.Options.Shared == nil {
		r.Options.Shared = boolPtr(false)
	}
	if r.Options.FPIC == nil {
		r.Options.FPIC = boolPtr(true)
	}

	if r.Git.Backend == "" {
		r.Git.Backend = BackendExec
	}
	if r.Git.Dir == "" {
		r.Git.Dir = "."
	}
	if r.Version.SettingsFile == "" {
		r.Version.SettingsFile = "version.cmake"
	}
	if r.CMake.SourceDir == "" {
		r.CMake.SourceDir = "."
	}
	if r.CMake.BuildDir == "" {
		r.CMake.BuildDir = "build"
	}
	if r.CMake.InstallDir == "" {
		r.CMake.InstallDir = filepath.Join(r.CMake.BuildDir, "install")
	}
	for k := range r.CMake.Defines {
		if k == "" || strings.ContainsAny(k, "= \t") {
			return apperr.New("config.Validate", apperr.InvalidInput, "cmake.defines: invalid key %q", k)
		}
	}
	if r.Package.Dir == "" {
		r.Package.Dir = "package"
	}
	if len(r.Package.Copy) == 0 {
		r.Package.Copy = DefaultCopyRules()
	}
	for i, c := range r.Package.Copy {
		if filepath.IsAbs(c.Dst) || escapes(c.Dst) {
			return apperr.New("config.Validate", apperr.InvalidInput, "package.copy[%d]: dst %q must stay inside the package dir", i, c.Dst)
		}
	}
	return nil
}

// DefaultCopyRules stage installed libraries (keeping symlinks) and headers.
func DefaultCopyRules() []CopyRule {
	return []CopyRule{
		{Src: "lib", Pattern: "**/*", Dst: "lib", Symlinks: true},
		{Src: "include", Pattern: "**/*", Dst: "include", KeepPath: true, Optional: true},
	}
}

func escapes(rel string) bool {
	clean := filepath.Clean(rel)
	return clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

func boolPtr(b bool) *bool { return &b }

// Path resolves p against the recipe's base directory.
func (r Recipe) Path(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(r.BaseDir, p)
}

// SettingsPath is the absolute path of the generated settings file.
func (r Recipe) SettingsPath() string { return r.Path(r.Version.SettingsFile) }

// EffectiveOptions returns the options that exist for the target. On Linux
// the fPIC option is removed: position independence is left to the toolchain.
func (r Recipe) EffectiveOptions() map[string]bool {
	opts := map[string]bool{"shared": deref(r.Options.Shared, false)}
	if r.Settings.OS != "Linux" {
		opts["fpic"] = deref(r.Options.FPIC, true)
	}
	return opts
}

func deref(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// CMakeDefines returns the cache entries passed at configure time. Recipe
// defines win over computed ones.
func (r Recipe) CMakeDefines() map[string]string {
	opts := r.EffectiveOptions()
	d := map[string]string{
		"CMAKE_BUILD_TYPE":     r.Settings.BuildType,
		"BUILD_SHARED_LIBS":    onOff(opts["shared"]),
		"CMAKE_INSTALL_PREFIX": r.Path(r.CMake.InstallDir),
	}
	if fpic, ok := opts["fpic"]; ok {
		d["CMAKE_POSITION_INDEPENDENT_CODE"] = onOff(fpic)
	}
	for k, v := range r.CMake.Defines {
		d[k] = v
	}
	return d
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// PackageInfo is the metadata a package consumer links against.
type PackageInfo struct {
	Name     string
	Version  string
	Libs     []string
	Options  map[string]bool
	Settings Settings
}

// Info returns the package metadata for a resolved version string.
func (r Recipe) Info(version string) PackageInfo {
	libs := append([]string(nil), r.Libs...)
	return PackageInfo{
		Name:     r.Name,
		Version:  version,
		Libs:     libs,
		Options:  r.EffectiveOptions(),
		Settings: r.Settings,
	}
}

// OptionNames returns the option keys of info in sorted order.
func (p PackageInfo) OptionNames() []string {
	names := make([]string, 0, len(p.Options))
	for k := range p.Options {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
