package config

// Recipe is the packaging recipe parsed from verpack.yml.
type Recipe struct {
	Name     string        `yaml:"name" validate:"required"`
	Libs     []string      `yaml:"libs"`
	Settings Settings      `yaml:"settings"`
	Options  Options       `yaml:"options"`
	Git      GitConfig     `yaml:"git"`
	Version  VersionConfig `yaml:"version"`
	CMake    CMakeConfig   `yaml:"cmake"`
	Package  PackageConfig `yaml:"package"`

	// BaseDir is the directory relative paths are resolved against.
	BaseDir string `yaml:"-"`
}

// Settings describe the target the package is built for.
type Settings struct {
	OS        string `yaml:"os" validate:"omitempty,oneof=Linux Macos Windows FreeBSD Android iOS"`
	Arch      string `yaml:"arch"`
	Compiler  string `yaml:"compiler"`
	BuildType string `yaml:"build_type" validate:"omitempty,oneof=Debug Release RelWithDebInfo MinSizeRel"`
}

// Options are the package's user-facing build toggles. Nil means "use the default".
type Options struct {
	Shared *bool `yaml:"shared"`
	FPIC   *bool `yaml:"fpic"`
}

// GitConfig selects how the checkout is read.
type GitConfig struct {
	// Backend is "exec" (git CLI) or "go-git" (in-process).
	Backend string `yaml:"backend" validate:"omitempty,oneof=exec go-git"`
	// Dir is the checkout to resolve the version from.
	Dir string `yaml:"dir"`
}

// VersionConfig controls where the resolved version is written.
type VersionConfig struct {
	SettingsFile string `yaml:"settings_file"`
}

// CMakeConfig drives the configure/build/install steps.
type CMakeConfig struct {
	SourceDir  string            `yaml:"source_dir"`
	BuildDir   string            `yaml:"build_dir"`
	InstallDir string            `yaml:"install_dir"`
	Generator  string            `yaml:"generator"`
	Defines    map[string]string `yaml:"defines"`
}

// PackageConfig describes the staged package layout.
type PackageConfig struct {
	Dir  string     `yaml:"dir"`
	Copy []CopyRule `yaml:"copy" validate:"dive"`
}

// CopyRule copies files matching Pattern under Src into Dst inside the package dir.
type CopyRule struct {
	Src      string `yaml:"src"`
	Pattern  string `yaml:"pattern" validate:"required"`
	Dst      string `yaml:"dst"`
	KeepPath bool   `yaml:"keep_path"`
	Symlinks bool   `yaml:"symlinks"`

	// Exclude drops matches by slash-separated path relative to Src. A
	// pattern ending in "/" excludes everything below that directory.
	Exclude []string `yaml:"exclude"`

	// Optional rules are skipped when Src does not exist.
	Optional bool `yaml:"optional"`
}

const (
	BackendExec  = "exec"
	BackendGoGit = "go-git"
)
