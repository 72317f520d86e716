package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/cli/clitest"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRoot_HasSubcommandsAndFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, f := range []string{"recipe", "dir", "backend", "verbose", "log-level", "log-format", "log-file"} {
		if cmd.PersistentFlags().Lookup(f) == nil {
			t.Fatalf("expected persistent --%s flag on root command", f)
		}
	}
	want := map[string]bool{"resolve": false, "show": false, "build": false, "package": false, "info": false, "version": false}
	for _, c := range cmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected %s subcommand", name)
		}
	}
}

func TestRoot_VersionFlagPrints(t *testing.T) {
	out, _, err := runRoot(t, "--version")
	if err != nil {
		t.Fatalf("execute --version: %v", err)
	}
	if !strings.Contains(out, Version()+"\n") {
		t.Fatalf("version output mismatch; got: %q", out)
	}
}

func TestRoot_HelpShowsProjectHome(t *testing.T) {
	out, _, err := runRoot(t, "--help")
	if err != nil {
		t.Fatalf("execute --help: %v", err)
	}
	if !strings.Contains(out, "Project home: https://github.com/gcstr/verpack") {
		t.Fatalf("help output missing project home; got: %q", out)
	}
}

func TestRoot_SilencesUsageAndErrors(t *testing.T) {
	cmd := newRootCmd()
	if !cmd.SilenceUsage || !cmd.SilenceErrors {
		t.Fatalf("expected SilenceUsage and SilenceErrors on root command")
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", apperr.New("t", apperr.InvalidInput, "bad"), 2},
		{"malformed tag", apperr.New("t", apperr.MalformedTag, "bad tag"), 2},
		{"no tags", apperr.New("t", apperr.NoTagsFound, "none"), 65},
		{"revision", apperr.New("t", apperr.RevisionNotFound, "gone"), 65},
		{"topology", apperr.New("t", apperr.InvalidTopology, "diverged"), 65},
		{"external", apperr.Wrap("t", apperr.External, errors.New("exit 1"), "cmake failed"), 70},
		{"not found", apperr.New("t", apperr.NotFound, "missing"), 1},
		{"plain", errors.New("boom"), 1},
		{"wrapped", fmt.Errorf("outer: %w", apperr.New("t", apperr.NoTagsFound, "none")), 65},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPrintUserFriendly_Hints(t *testing.T) {
	cases := []struct {
		kind apperr.Kind
		hint string
	}{
		{apperr.NoTagsFound, "git tag v0.1.0"},
		{apperr.MalformedTag, "vX.Y.Z"},
		{apperr.InvalidTopology, "not part of HEAD's history"},
	}
	for _, tc := range cases {
		var b bytes.Buffer
		printUserFriendly(&b, apperr.New("t", tc.kind, "resolution failed"))
		got := b.String()
		if !strings.Contains(got, "Error: resolution failed") || !strings.Contains(got, "Hint: ") || !strings.Contains(got, tc.hint) {
			t.Fatalf("kind %v: unexpected output %q", tc.kind, got)
		}
	}
}

func TestPrintUserFriendly_PlainAndVerbose(t *testing.T) {
	var b bytes.Buffer
	printUserFriendly(&b, errors.New("boom"))
	if b.String() != "Error: boom\n" {
		t.Fatalf("plain error output: %q", b.String())
	}

	verbose = true
	t.Cleanup(func() { verbose = false })
	b.Reset()
	printUserFriendly(&b, apperr.Wrap("gitcli.Tags", apperr.External, errors.New("exit status 128"), "list tags"))
	got := b.String()
	if !strings.Contains(got, "Error: list tags") || !strings.Contains(got, "Detail: gitcli.Tags") {
		t.Fatalf("verbose output: %q", got)
	}
	if strings.Contains(got, "Hint:") {
		t.Fatalf("unexpected hint for external error: %q", got)
	}
}

func TestRoot_NoTagsFails(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "")
	_, _, err := runRoot(t, "resolve", "-C", repo.Dir)
	if !apperr.IsKind(err, apperr.NoTagsFound) {
		t.Fatalf("expected NoTagsFound, got %v", err)
	}
	if exitCode(err) != 65 {
		t.Fatalf("exit code = %d, want 65", exitCode(err))
	}
}

func TestRoot_MalformedLatestTag(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.2.3")
	repo.Commit("next")
	repo.Tag("vnext")
	_, _, err := runRoot(t, "resolve", "-C", repo.Dir, "--write=false")
	if !apperr.IsKind(err, apperr.MalformedTag) {
		t.Fatalf("expected MalformedTag, got %v", err)
	}
}

func TestRoot_UnknownBackendIsInvalidInput(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.0.0")
	_, _, err := runRoot(t, "resolve", "-C", repo.Dir, "--backend", "svn")
	if !apperr.IsKind(err, apperr.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestRoot_NotARepository(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRoot(t, "resolve", "-C", dir, "--backend", "go-git")
	if err == nil {
		t.Fatalf("expected error outside a repository")
	}
	if exitCode(err) == 0 {
		t.Fatalf("expected non-zero exit code")
	}
}

func TestRoot_LogFileReceivesJSON(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "v0.3.1")
	logPath := filepath.Join(t.TempDir(), "verpack.log")
	if _, _, err := runRoot(t, "resolve", "-C", repo.Dir, "--log-file", logPath, "--log-level", "debug"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"run_id"`) || !strings.Contains(string(b), "settings_write") {
		t.Fatalf("log file missing expected entries: %s", b)
	}
}
