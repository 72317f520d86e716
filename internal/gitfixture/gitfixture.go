// Package gitfixture builds small on-disk git repositories for tests.
package gitfixture

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a working tree under a test temp dir.
type Repo struct {
	t    testing.TB
	Dir  string
	Git  *git.Repository
	seq  int
	when time.Time
}

// Init creates an empty repository in a fresh temp dir.
func Init(t testing.TB) *Repo {
	t.Helper()
	dir := t.TempDir()
	r, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("git init: %v", err)
	}
	return &Repo{t: t, Dir: dir, Git: r, when: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// WriteFile writes content to a path relative to the working tree.
func (r *Repo) WriteFile(rel, content string) {
	r.t.Helper()
	p := filepath.Join(r.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		r.t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", rel, err)
	}
}

// Commit writes a unique file, stages everything and commits it. It returns
// the new commit hash.
func (r *Repo) Commit(msg string) string {
	r.t.Helper()
	r.seq++
	r.WriteFile(fmt.Sprintf("changes/%03d.txt", r.seq), msg+"\n")
	wt := r.worktree()
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		r.t.Fatalf("git add: %v", err)
	}
	r.when = r.when.Add(time.Minute)
	h, err := wt.Commit(msg, &git.CommitOptions{Author: r.signature()})
	if err != nil {
		r.t.Fatalf("git commit: %v", err)
	}
	return h.String()
}

// Commits makes n commits and returns the last hash.
func (r *Repo) Commits(n int) string {
	r.t.Helper()
	var h string
	for i := 0; i < n; i++ {
		h = r.Commit(fmt.Sprintf("change %d", r.seq+1))
	}
	return h
}

// Tag creates a lightweight tag at HEAD.
func (r *Repo) Tag(name string) {
	r.t.Helper()
	if _, err := r.Git.CreateTag(name, r.head(), nil); err != nil {
		r.t.Fatalf("git tag %s: %v", name, err)
	}
}

// AnnotatedTag creates an annotated tag at HEAD.
func (r *Repo) AnnotatedTag(name string) {
	r.t.Helper()
	opts := &git.CreateTagOptions{Tagger: r.signature(), Message: "release " + name}
	if _, err := r.Git.CreateTag(name, r.head(), opts); err != nil {
		r.t.Fatalf("git tag -a %s: %v", name, err)
	}
}

// Branch returns the short name of the current branch.
func (r *Repo) Branch() string {
	r.t.Helper()
	ref, err := r.Git.Head()
	if err != nil {
		r.t.Fatalf("git head: %v", err)
	}
	return ref.Name().Short()
}

// Checkout switches to branch, creating it at HEAD when create is set.
func (r *Repo) Checkout(branch string, create bool) {
	r.t.Helper()
	err := r.worktree().Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	})
	if err != nil {
		r.t.Fatalf("git checkout %s: %v", branch, err)
	}
}

func (r *Repo) head() plumbing.Hash {
	r.t.Helper()
	ref, err := r.Git.Head()
	if err != nil {
		r.t.Fatalf("git head: %v", err)
	}
	return ref.Hash()
}

func (r *Repo) worktree() *git.Worktree {
	r.t.Helper()
	wt, err := r.Git.Worktree()
	if err != nil {
		r.t.Fatalf("git worktree: %v", err)
	}
	return wt
}

func (r *Repo) signature() *object.Signature {
	return &object.Signature{Name: "Fixture", Email: "fixture@example.com", When: r.when}
}
