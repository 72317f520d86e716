// Package gitlib reads a checkout in-process with go-git. It answers the
// same questions as the git CLI client without requiring a git binary.
package gitlib

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/version"
)

var _ version.Repository = (*Repo)(nil)

// Repo wraps a go-git repository opened from a working tree.
type Repo struct {
	r    *git.Repository
	path string
}

// Open opens the repository containing path, searching parent directories
// for .git the way the git CLI does.
func Open(path string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, apperr.Wrap("gitlib.Open", apperr.InvalidInput, err, "%s is not inside a git working tree", path)
		}
		return nil, apperr.Wrap("gitlib.Open", apperr.External, err, "open repository at %s", path)
	}
	return &Repo{r: r, path: path}, nil
}

// Wrap adapts an already opened go-git repository.
func Wrap(r *git.Repository) *Repo { return &Repo{r: r} }

// Tags lists tag names sorted by refname, matching `git tag`.
func (g *Repo) Tags(ctx context.Context) ([]string, error) {
	iter, err := g.r.Tags()
	if err != nil {
		return nil, apperr.Wrap("gitlib.Tags", apperr.External, err, "list tags")
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap("gitlib.Tags", apperr.External, err, "list tags")
	}
	sort.Strings(names)
	return names, nil
}

// ResolveCommit resolves ref to a commit hash, peeling annotated tags.
func (g *Repo) ResolveCommit(ctx context.Context, ref string) (string, error) {
	c, err := g.commit(ref)
	if err != nil {
		return "", err
	}
	return c.Hash.String(), nil
}

func (g *Repo) commit(ref string) (*object.Commit, error) {
	h, err := g.r.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, apperr.Wrap("gitlib.ResolveCommit", apperr.RevisionNotFound, err, "revision %q not found", ref)
	}
	c, err := g.r.CommitObject(*h)
	if err == nil {
		return c, nil
	}
	// a hash naming an annotated tag object
	if tag, terr := g.r.TagObject(*h); terr == nil {
		if c, cerr := tag.Commit(); cerr == nil {
			return c, nil
		}
	}
	return nil, apperr.Wrap("gitlib.ResolveCommit", apperr.RevisionNotFound, err, "revision %q is not a commit", ref)
}

// CountCommits counts distinct commits reachable from ref, like
// `git rev-list --count`.
func (g *Repo) CountCommits(ctx context.Context, ref string) (int, error) {
	c, err := g.commit(ref)
	if err != nil {
		return 0, err
	}
	iter, err := g.r.Log(&git.LogOptions{From: c.Hash})
	if err != nil {
		return 0, apperr.Wrap("gitlib.CountCommits", apperr.External, err, "walk history from %s", ref)
	}
	defer iter.Close()
	n := 0
	err = iter.ForEach(func(*object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return 0, apperr.Wrap("gitlib.CountCommits", apperr.External, err, "walk history from %s", ref)
	}
	return n, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (g *Repo) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	a, err := g.commit(ancestor)
	if err != nil {
		return false, err
	}
	d, err := g.commit(descendant)
	if err != nil {
		return false, err
	}
	ok, err := a.IsAncestor(d)
	if err != nil {
		return false, apperr.Wrap("gitlib.IsAncestor", apperr.External, err, "walk history from %s", descendant)
	}
	return ok, nil
}

// Status returns porcelain-style entries ("XY path") for every path that
// differs from HEAD or is untracked.
func (g *Repo) Status(ctx context.Context) ([]string, error) {
	wt, err := g.r.Worktree()
	if err != nil {
		return nil, apperr.Wrap("gitlib.Status", apperr.InvalidInput, err, "repository has no working tree")
	}
	excludes, err := userExcludes()
	if err != nil {
		return nil, apperr.Wrap("gitlib.Status", apperr.External, err, "load core.excludesFile patterns")
	}
	wt.Excludes = append(wt.Excludes, excludes...)
	st, err := wt.Status()
	if err != nil {
		return nil, apperr.Wrap("gitlib.Status", apperr.External, err, "compute status")
	}
	var entries []string
	for path, fs := range st {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		entries = append(entries, fmt.Sprintf("%c%c %s", byte(fs.Staging), byte(fs.Worktree), path))
	}
	sort.Strings(entries)
	return entries, nil
}

// userExcludes loads the core.excludesFile patterns named by the system and
// global git config. Worktree.Status only reads .gitignore and info/exclude.
func userExcludes() ([]gitignore.Pattern, error) {
	root := osfs.New("/")
	sys, err := gitignore.LoadSystemPatterns(root)
	if err != nil {
		return nil, err
	}
	global, err := gitignore.LoadGlobalPatterns(root)
	if err != nil {
		return nil, err
	}
	return append(sys, global...), nil
}
