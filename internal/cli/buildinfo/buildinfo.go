package buildinfo

import "runtime/debug"

// Build-time variables injected via -ldflags; defaults are used for dev builds.
var (
	version   = "0.1.0-dev"
	commit    = ""
	date      = ""
	builtBy   = ""
	goVersion = ""
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Version returns the semantic version string.
func Version() string {
	return version
}

// VersionSimple returns the version with the short commit hash, for --version.
func VersionSimple() string {
	v := version
	if c := Commit(); c != "" {
		v += " (" + short(c) + ")"
	}
	return v
}

// VersionDetailed returns version info with build metadata if available.
func VersionDetailed() string {
	v := version
	if c := Commit(); c != "" {
		v += " (" + c
		if d := BuildDate(); d != "" {
			v += ", " + d
		}
		if builtBy != "" {
			v += ", " + builtBy
		}
		v += ")"
	}
	return v
}

// GoVersion returns the build-time Go version if provided.
func GoVersion() string { return goVersion }

// Commit returns the commit injected via -ldflags, else the VCS revision
// stamped by the go tool.
func Commit() string {
	if commit != "" {
		return commit
	}
	return vcsSetting("vcs.revision")
}

// BuildDate returns the injected build date, else the VCS commit time.
func BuildDate() string {
	if date != "" {
		return date
	}
	return vcsSetting("vcs.time")
}

// BuiltBy returns the builder identifier if provided via -ldflags.
func BuiltBy() string { return builtBy }

func vcsSetting(key string) string {
	bi, ok := readBuildInfo()
	if !ok || bi == nil {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

func short(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
