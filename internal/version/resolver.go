package version

import (
	"context"
	"errors"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/logger"
)

// Head is the ref the resolver measures from.
const Head = "HEAD"

// Resolver turns repository state into a BuildVersion. Every step is a
// single synchronous query; the first failure aborts resolution.
type Resolver struct {
	repo Repository
}

// NewResolver returns a Resolver reading from repo.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx).With("component", "version")
}

// ResolveLatestTag lists tags and parses the last one.
func (r *Resolver) ResolveLatestTag(ctx context.Context) (Tag, error) {
	st := logger.StartStep(r.log(ctx), "git_latest_tag", "tags")
	tags, err := r.repo.Tags(ctx)
	if err != nil {
		return Tag{}, stepError("git_latest_tag", st.Fail(err))
	}
	if len(tags) == 0 {
		return Tag{}, stepError("git_latest_tag", st.Fail(apperr.New("version.ResolveLatestTag", apperr.NoTagsFound, "repository has no tags")))
	}
	tag, err := ParseTag(tags[len(tags)-1])
	if err != nil {
		return Tag{}, stepError("git_latest_tag", st.Fail(err))
	}
	st.OK("tag", tag.Name)
	return tag, nil
}

// ResolveCommit returns the commit hash ref points to.
func (r *Resolver) ResolveCommit(ctx context.Context, ref string) (string, error) {
	st := logger.StartStep(r.log(ctx), "git_resolve_commit", ref)
	h, err := r.repo.ResolveCommit(ctx, ref)
	if err != nil {
		return "", stepError("git_resolve_commit", st.Fail(err))
	}
	st.OK("commit", short(h))
	return h, nil
}

// CountCommits returns the number of commits reachable from ref.
func (r *Resolver) CountCommits(ctx context.Context, ref string) (int, error) {
	st := logger.StartStep(r.log(ctx), "git_count_commits", ref)
	if _, err := r.repo.ResolveCommit(ctx, ref); err != nil {
		return 0, stepError("git_count_commits", st.Fail(err))
	}
	n, err := r.repo.CountCommits(ctx, ref)
	if err != nil {
		return 0, stepError("git_count_commits", st.Fail(err))
	}
	st.OK("count", n)
	return n, nil
}

// ComputeTweak returns the commit count difference between headCommit and
// tagCommit. The tag must be an ancestor of HEAD.
func (r *Resolver) ComputeTweak(ctx context.Context, tagCommit, headCommit string) (int, error) {
	st := logger.StartStep(r.log(ctx), "git_is_ancestor", short(tagCommit)+".."+short(headCommit))
	ok, err := r.repo.IsAncestor(ctx, tagCommit, headCommit)
	if err != nil {
		return 0, stepError("git_is_ancestor", st.Fail(err))
	}
	if !ok {
		err := apperr.New("version.ComputeTweak", apperr.InvalidTopology, "tag commit %s is not an ancestor of %s", short(tagCommit), short(headCommit))
		return 0, stepError("git_is_ancestor", st.Fail(err))
	}
	st.OK("ancestor", true)
	headCount, err := r.CountCommits(ctx, headCommit)
	if err != nil {
		return 0, err
	}
	tagCount, err := r.CountCommits(ctx, tagCommit)
	if err != nil {
		return 0, err
	}
	tweak := headCount - tagCount
	if tweak < 0 {
		return 0, apperr.New("version.ComputeTweak", apperr.InvalidTopology, "HEAD has %d commits, fewer than the tag's %d", headCount, tagCount)
	}
	return tweak, nil
}

// IsDirty reports whether the working tree has tracked or untracked changes.
func (r *Resolver) IsDirty(ctx context.Context) (bool, error) {
	st := logger.StartStep(r.log(ctx), "git_status", ".")
	entries, err := r.repo.Status(ctx)
	if err != nil {
		return false, stepError("git_status", st.Fail(err))
	}
	st.OK("dirty", len(entries) > 0, "entries", len(entries))
	return len(entries) > 0, nil
}

// Resolve composes the steps above into a BuildVersion.
func (r *Resolver) Resolve(ctx context.Context) (BuildVersion, error) {
	tag, err := r.ResolveLatestTag(ctx)
	if err != nil {
		return BuildVersion{}, err
	}
	tagCommit, err := r.ResolveCommit(ctx, tag.Name)
	if err != nil {
		return BuildVersion{}, err
	}
	headCommit, err := r.ResolveCommit(ctx, Head)
	if err != nil {
		return BuildVersion{}, err
	}
	tweak, err := r.ComputeTweak(ctx, tagCommit, headCommit)
	if err != nil {
		return BuildVersion{}, err
	}
	dirty, err := r.IsDirty(ctx)
	if err != nil {
		return BuildVersion{}, err
	}
	v := BuildVersion{
		Major:      tag.Major,
		Minor:      tag.Minor,
		Patch:      tag.Patch,
		Tweak:      tweak,
		Dirty:      dirty,
		Tag:        tag.Name,
		TagCommit:  tagCommit,
		HeadCommit: headCommit,
	}
	r.log(ctx).Info("version_resolved", "version", v.String(), "tweak", v.Tweak, "dirty", v.Dirty, "commit", v.ShortCommit())
	return v, nil
}

func short(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

// stepError prefixes err's message with the failed step, keeping its kind.
func stepError(action string, err error) error {
	kind := apperr.KindOf(err)
	if kind == "" {
		kind = apperr.External
	}
	msg := err.Error()
	var e *apperr.E
	if errors.As(err, &e) && e.Msg != "" {
		msg = e.Msg
	}
	return apperr.Wrap("version.Resolver", kind, err, "%s failed: %s", action, msg)
}
