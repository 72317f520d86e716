// Package version derives a build version from the tags, commit graph and
// working-tree state of a git checkout.
package version

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blang/semver"
)

// Repository is the view of a checkout the resolver needs. Both the git CLI
// client and the go-git backed repository implement it.
type Repository interface {
	// Tags lists tag names in git's default order (sorted by refname).
	Tags(ctx context.Context) ([]string, error)
	// ResolveCommit returns the commit hash ref points to, peeling annotated
	// tags. Unknown refs fail with apperr.RevisionNotFound.
	ResolveCommit(ctx context.Context, ref string) (string, error)
	// CountCommits returns the number of commits reachable from ref.
	CountCommits(ctx context.Context, ref string) (int, error)
	// IsAncestor reports whether ancestor is reachable from descendant.
	// A commit is its own ancestor.
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	// Status returns one entry per changed or untracked path.
	Status(ctx context.Context) ([]string, error)
}

// BuildVersion is computed once per invocation and never mutated.
type BuildVersion struct {
	Major int
	Minor int
	Patch int
	// Tweak counts commits since the tag: commits reachable from HEAD minus
	// commits reachable from the tag's commit.
	Tweak int
	Dirty bool

	Tag        string
	TagCommit  string
	HeadCommit string
}

// String returns MAJOR.MINOR.PATCH.
func (v BuildVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Full returns MAJOR.MINOR.PATCH.TWEAK with a "-dirty" suffix for modified trees.
func (v BuildVersion) Full() string {
	s := fmt.Sprintf("%s.%d", v.String(), v.Tweak)
	if v.Dirty {
		s += "-dirty"
	}
	return s
}

// SemVer returns the version with the tweak, and "dirty" for a modified
// tree, as build metadata: 1.2.3+4 or 1.2.3+4.dirty.
func (v BuildVersion) SemVer() semver.Version {
	sv := semver.Version{
		Major: uint64(v.Major),
		Minor: uint64(v.Minor),
		Patch: uint64(v.Patch),
		Build: []string{strconv.Itoa(v.Tweak)},
	}
	if v.Dirty {
		sv.Build = append(sv.Build, "dirty")
	}
	return sv
}

// ShortCommit returns the first seven characters of the HEAD commit.
func (v BuildVersion) ShortCommit() string {
	h := strings.TrimSpace(v.HeadCommit)
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
