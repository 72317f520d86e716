package gitcli

import (
	"context"
	"strconv"
	"strings"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/toolexec"
	"github.com/gcstr/verpack/internal/version"
)

var _ version.Repository = (*Client)(nil)

// Client provides typed helpers around the git CLI for a single checkout.
type Client struct {
	exec toolexec.Exec
	dir  string
}

// New returns a Client running git inside dir.
func New(dir string) *Client {
	e := toolexec.New("git", dir).WithEnv(stableEnv...)
	return &Client{exec: e, dir: dir}
}

// NewWithExec returns a Client backed by a custom Exec.
func NewWithExec(e toolexec.Exec, dir string) *Client {
	return &Client{exec: e, dir: dir}
}

// stableEnv keeps git output parseable and non-interactive.
var stableEnv = []string{"LC_ALL=C", "GIT_TERMINAL_PROMPT=0", "GIT_OPTIONAL_LOCKS=0"}

// WithExecHook observes the git commands the client runs.
func (c *Client) WithExecHook(h toolexec.LoggerHook) *Client {
	if se, ok := c.exec.(*toolexec.SystemExec); ok {
		se.WithLogger(h)
	}
	return c
}

// Dir returns the checkout directory.
func (c *Client) Dir() string { return c.dir }

// Tags lists tag names in git's default order.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	out, err := c.exec.Run(ctx, "tag")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ResolveCommit returns the full commit hash for ref, peeling annotated tags.
func (c *Client) ResolveCommit(ctx context.Context, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" || strings.HasPrefix(ref, "-") {
		return "", apperr.New("gitcli.ResolveCommit", apperr.InvalidInput, "invalid ref %q", ref)
	}
	res, err := c.exec.RunDetailed(ctx, toolexec.Options{}, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		// --verify --quiet exits 1 without output for unknown revisions
		if res.ExitCode == 1 {
			return "", apperr.New("gitcli.ResolveCommit", apperr.RevisionNotFound, "revision %q not found", ref)
		}
		return "", err
	}
	h := strings.TrimSpace(res.Stdout)
	if h == "" {
		return "", apperr.New("gitcli.ResolveCommit", apperr.RevisionNotFound, "revision %q not found", ref)
	}
	return h, nil
}

// CountCommits returns the number of commits reachable from ref.
func (c *Client) CountCommits(ctx context.Context, ref string) (int, error) {
	h, err := c.ResolveCommit(ctx, ref)
	if err != nil {
		return 0, err
	}
	out, err := c.exec.Run(ctx, "rev-list", "--count", h)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, apperr.Wrap("gitcli.CountCommits", apperr.External, err, "unexpected rev-list output %q", strings.TrimSpace(out))
	}
	return n, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (c *Client) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	res, err := c.exec.RunDetailed(ctx, toolexec.Options{}, "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}
	if res.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

// Status returns porcelain status entries, one per changed or untracked path.
func (c *Client) Status(ctx context.Context) ([]string, error) {
	out, err := c.exec.Run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// TopLevel returns the absolute root of the working tree containing dir.
func (c *Client) TopLevel(ctx context.Context) (string, error) {
	out, err := c.exec.Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", apperr.Wrap("gitcli.TopLevel", apperr.InvalidInput, err, "%s is not inside a git working tree", c.dir)
	}
	return strings.TrimSpace(out), nil
}

// splitLines keeps leading spaces, which are significant in porcelain output.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
