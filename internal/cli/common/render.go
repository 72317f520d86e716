package common

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-units"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/config"
	"github.com/gcstr/verpack/internal/stage"
	"github.com/gcstr/verpack/internal/ui"
	"github.com/gcstr/verpack/internal/version"
)

// VersionRows are the rows printed for a resolved version.
func VersionRows(v version.BuildVersion) []ui.KV {
	dirty := strconv.FormatBool(v.Dirty)
	if v.Dirty {
		dirty = ui.Dirty(dirty)
	}
	return []ui.KV{
		{Key: "version", Value: v.Full()},
		{Key: "tag", Value: v.Tag},
		{Key: "tweak", Value: strconv.Itoa(v.Tweak)},
		{Key: "dirty", Value: dirty},
		{Key: "commit", Value: v.ShortCommit()},
	}
}

// VersionDoc is the JSON form of a resolved version.
type VersionDoc struct {
	Version      string `json:"version"`
	SemVer       string `json:"semver"`
	Major        int    `json:"major"`
	Minor        int    `json:"minor"`
	Patch        int    `json:"patch"`
	Tweak        int    `json:"tweak"`
	Dirty        bool   `json:"dirty"`
	Tag          string `json:"tag"`
	TagCommit    string `json:"tag_commit"`
	HeadCommit   string `json:"head_commit"`
	SettingsFile string `json:"settings_file,omitempty"`
}

// NewVersionDoc builds the JSON document for v. settingsFile is empty when nothing was written.
func NewVersionDoc(v version.BuildVersion, settingsFile string) VersionDoc {
	return VersionDoc{
		Version:      v.Full(),
		SemVer:       v.SemVer().String(),
		Major:        v.Major,
		Minor:        v.Minor,
		Patch:        v.Patch,
		Tweak:        v.Tweak,
		Dirty:        v.Dirty,
		Tag:          v.Tag,
		TagCommit:    v.TagCommit,
		HeadCommit:   v.HeadCommit,
		SettingsFile: settingsFile,
	}
}

// InfoRows are the rows printed for package metadata.
func InfoRows(info config.PackageInfo) []ui.KV {
	opts := make([]string, 0, len(info.Options))
	for _, k := range info.OptionNames() {
		opts = append(opts, fmt.Sprintf("%s=%t", k, info.Options[k]))
	}
	rows := []ui.KV{
		{Key: "name", Value: info.Name},
		{Key: "version", Value: info.Version},
		{Key: "libs", Value: strings.Join(info.Libs, ", ")},
		{Key: "options", Value: strings.Join(opts, " ")},
		{Key: "os", Value: info.Settings.OS},
		{Key: "arch", Value: info.Settings.Arch},
		{Key: "build_type", Value: info.Settings.BuildType},
	}
	if info.Settings.Compiler != "" {
		rows = append(rows, ui.KV{Key: "compiler", Value: info.Settings.Compiler})
	}
	return rows
}

// InfoDoc is the JSON form of package metadata.
type InfoDoc struct {
	Name     string            `json:"name"`
	Version  string            `json:"version"`
	Libs     []string          `json:"libs"`
	Options  map[string]bool   `json:"options"`
	Settings map[string]string `json:"settings"`
}

// NewInfoDoc builds the JSON document for info. Empty settings are omitted.
func NewInfoDoc(info config.PackageInfo) InfoDoc {
	s := map[string]string{}
	for k, v := range map[string]string{
		"os":         info.Settings.OS,
		"arch":       info.Settings.Arch,
		"compiler":   info.Settings.Compiler,
		"build_type": info.Settings.BuildType,
	} {
		if v != "" {
			s[k] = v
		}
	}
	return InfoDoc{Name: info.Name, Version: info.Version, Libs: info.Libs, Options: info.Options, Settings: s}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return apperr.Wrap("common.WriteJSON", apperr.Internal, err, "encode json")
	}
	return nil
}

// StagedSections groups package entries by their top-level directory. Files
// show their size and symlinks their target.
func StagedSections(files []stage.FileEntry) []ui.Section {
	byDir := map[string][]ui.Item{}
	for _, f := range files {
		dir, rest, ok := strings.Cut(f.Path, "/")
		if !ok {
			dir, rest = ".", f.Path
		}
		item := ui.Item{Mark: ui.MarkFile, Text: rest, Note: units.HumanSize(float64(f.Size))}
		if f.Link != "" {
			item = ui.Item{Mark: ui.MarkLink, Text: rest, Note: f.Link}
		}
		byDir[dir] = append(byDir[dir], item)
	}
	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	sections := make([]ui.Section, 0, len(dirs))
	for _, d := range dirs {
		sections = append(sections, ui.Section{Title: d, Items: byDir[d]})
	}
	return sections
}
