package cli

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/cli/clitest"
	"github.com/gcstr/verpack/internal/cli/common"
	"github.com/gcstr/verpack/internal/settings"
	"github.com/gcstr/verpack/internal/stage"
	"github.com/gcstr/verpack/internal/ui"
)

func readSettings(t *testing.T, dir string) settings.Values {
	t.Helper()
	v, err := settings.Read(filepath.Join(dir, settings.DefaultFileName))
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	return v
}

func TestResolve_TagOnHead(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.2.3")
	out, _, err := runRoot(t, "resolve", "-C", repo.Dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out = ui.StripANSI(out)
	for _, want := range []string{"version  1.2.3.0", "tag      v1.2.3", "dirty    false", "wrote "} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	got := readSettings(t, repo.Dir)
	if got != (settings.Values{Major: 1, Minor: 2, Patch: 3}) {
		t.Fatalf("settings = %+v", got)
	}
}

func TestResolve_CommitsSinceTagAndDirty(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "v0.4.1")
	repo.Commits(3)
	repo.WriteFile("scratch.txt", "wip\n")

	out, _, err := runRoot(t, "resolve", "-C", repo.Dir, "--json")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var doc common.VersionDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if doc.Version != "0.4.1.3-dirty" || doc.SemVer != "0.4.1+3.dirty" || doc.Tweak != 3 || !doc.Dirty || doc.Tag != "v0.4.1" {
		t.Fatalf("unexpected doc: %+v", doc)
	}
	if doc.SettingsFile != filepath.Join(repo.Dir, settings.DefaultFileName) {
		t.Fatalf("settings_file = %q", doc.SettingsFile)
	}
	got := readSettings(t, repo.Dir)
	if got != (settings.Values{Major: 0, Minor: 4, Patch: 1, Tweak: 3, Dirty: true}) {
		t.Fatalf("settings = %+v", got)
	}
}

func TestResolve_NoWriteLeavesNoFile(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.0.0")
	out, _, err := runRoot(t, "resolve", "-C", repo.Dir, "--write=false", "--json")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.Contains(out, "settings_file") {
		t.Fatalf("unexpected settings_file in %s", out)
	}
	if _, err := os.Stat(filepath.Join(repo.Dir, settings.DefaultFileName)); !os.IsNotExist(err) {
		t.Fatalf("settings file should not exist, stat err: %v", err)
	}
}

func TestResolve_WritingSettingsKeepsTreeClean(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.0.0")
	for i := 0; i < 2; i++ {
		if _, _, err := runRoot(t, "resolve", "-C", repo.Dir); err != nil {
			t.Fatalf("resolve #%d: %v", i, err)
		}
	}
	if readSettings(t, repo.Dir).Dirty {
		t.Fatalf("ignored settings file made the tree dirty")
	}
}

func TestResolve_RecipeFlagAndCustomSettingsFile(t *testing.T) {
	recipe := clitest.BasicRecipe + "version:\n  settings_file: cmake/version.cmake\n"
	repo := clitest.Project(t, recipe, "v2.0.1")
	repo.WriteFile("cmake/.gitignore", "version.cmake\n")
	repo.Commit("ignore generated settings")

	if _, _, err := runRoot(t, "resolve", "-r", filepath.Join(repo.Dir, "verpack.yml")); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, err := settings.Read(filepath.Join(repo.Dir, "cmake", "version.cmake"))
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if got != (settings.Values{Major: 2, Minor: 0, Patch: 1, Tweak: 1}) {
		t.Fatalf("settings = %+v", got)
	}
}

func TestResolve_ExecBackend(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not on PATH")
	}
	repo := clitest.Project(t, clitest.BasicRecipe, "v3.1.4")
	repo.Commits(2)
	out, _, err := runRoot(t, "resolve", "-C", repo.Dir, "--backend", "exec", "--json", "--write=false")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var doc common.VersionDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if doc.Version != "3.1.4.2" {
		t.Fatalf("version = %q", doc.Version)
	}
}

func TestResolve_TagNotInHistory(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "")
	trunk := repo.Branch()
	repo.Checkout("release", true)
	repo.Commit("release only")
	repo.Tag("v1.0.0")
	repo.Checkout(trunk, false)
	repo.Commit("mainline")

	_, _, err := runRoot(t, "resolve", "-C", repo.Dir, "--write=false")
	if !apperr.IsKind(err, apperr.InvalidTopology) {
		t.Fatalf("expected InvalidTopology, got %v", err)
	}
}

func TestShow_PrintsWrittenSettings(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.2.3")
	repo.Commit("fix")
	if _, _, err := runRoot(t, "resolve", "-C", repo.Dir); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out, _, err := runRoot(t, "show", "-C", repo.Dir)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	out = ui.StripANSI(out)
	if !strings.Contains(out, filepath.Join(repo.Dir, settings.DefaultFileName)) {
		t.Fatalf("show should print the settings path:\n%s", out)
	}
	for _, want := range []string{"VERSION_MAJOR        1", "VERSION_PATCH        3", "VERSION_TWEAK        1", "VERSION_TWEAK_DIRTY  0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestShow_MissingFile(t *testing.T) {
	_, _, err := runRoot(t, "show", "-f", filepath.Join(t.TempDir(), "version.cmake"))
	if !apperr.IsKind(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestInfo_TableAndJSON(t *testing.T) {
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.2.3")
	repo.Commit("more")

	out, _, err := runRoot(t, "info", "-C", repo.Dir)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	out = ui.StripANSI(out)
	for _, want := range []string{"name        demo", "version     1.2.3", "options     shared=false", "os          Linux"} {
		if !strings.Contains(out, want) {
			t.Fatalf("info output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "fpic") {
		t.Fatalf("fpic must not be listed on Linux:\n%s", out)
	}

	out, _, err = runRoot(t, "info", "-C", repo.Dir, "--json")
	if err != nil {
		t.Fatalf("info --json: %v", err)
	}
	var doc common.InfoDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if doc.Name != "demo" || doc.Version != "1.2.3" || len(doc.Libs) != 1 || doc.Libs[0] != "demo" || doc.Settings["build_type"] != "Release" {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}

func TestBuild_ConfiguresAndBuilds(t *testing.T) {
	log := clitest.WithStubCMake(t)
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.2.3")

	out, _, err := runRoot(t, "build", "-C", repo.Dir)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(out, "built demo 1.2.3.0 (Release)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	calls := clitest.CMakeCalls(t, log)
	if len(calls) != 2 {
		t.Fatalf("expected configure and build calls, got %q", calls)
	}
	build := filepath.Join(repo.Dir, "build")
	if !strings.HasPrefix(calls[0], "-S "+repo.Dir+" -B "+build) || !strings.Contains(calls[0], "-DCMAKE_BUILD_TYPE=Release") {
		t.Fatalf("configure args: %q", calls[0])
	}
	if calls[1] != "--build "+build+" --config Release" {
		t.Fatalf("build args: %q", calls[1])
	}
	if readSettings(t, repo.Dir).Major != 1 {
		t.Fatalf("build should write the settings file first")
	}
}

func TestBuild_ConfigureOnlyAndFailure(t *testing.T) {
	log := clitest.WithStubCMake(t)
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.0.0")

	if _, _, err := runRoot(t, "build", "-C", repo.Dir, "--configure-only"); err != nil {
		t.Fatalf("build --configure-only: %v", err)
	}
	if calls := clitest.CMakeCalls(t, log); len(calls) != 1 {
		t.Fatalf("expected only the configure call, got %q", calls)
	}

	t.Setenv(clitest.CMakeFailEnv, "--build")
	_, _, err := runRoot(t, "build", "-C", repo.Dir)
	if !apperr.IsKind(err, apperr.External) {
		t.Fatalf("expected External error, got %v", err)
	}
	if exitCode(err) != 70 {
		t.Fatalf("exit code = %d, want 70", exitCode(err))
	}
}

func TestPackage_InstallsStagesAndArchives(t *testing.T) {
	log := clitest.WithStubCMake(t)
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.2.3")
	repo.Commits(2)

	out, _, err := runRoot(t, "package", "-C", repo.Dir, "--archive")
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	calls := clitest.CMakeCalls(t, log)
	wantInstall := "--install " + filepath.Join(repo.Dir, "build") + " --prefix " + filepath.Join(repo.Dir, "build", "install") + " --config Release"
	if len(calls) != 1 || calls[0] != wantInstall {
		t.Fatalf("install calls = %q, want %q", calls, wantInstall)
	}
	if !strings.Contains(out, "staged 2 files") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	pkg := filepath.Join(repo.Dir, "package")
	for _, rel := range []string{"lib/libdemo.a", "include/demo/demo.h", stage.ManifestFileName} {
		if _, err := os.Stat(filepath.Join(pkg, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("expected %s in package dir: %v", rel, err)
		}
	}
	m, err := stage.ReadManifest(pkg)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if m.Package != "demo" || m.Release != "1.2.3.2" || len(m.Files) != 2 {
		t.Fatalf("unexpected manifest: %+v", m)
	}

	names := archiveEntries(t, filepath.Join(repo.Dir, "build", "demo-1.2.3.tar.gz"))
	if !names["demo-1.2.3/lib/libdemo.a"] || !names["demo-1.2.3/include/demo/demo.h"] {
		t.Fatalf("archive entries: %v", names)
	}
}

func TestPackage_SkipInstallAndStaleFiles(t *testing.T) {
	log := clitest.WithStubCMake(t)
	repo := clitest.Project(t, clitest.BasicRecipe, "v0.1.0")
	install := filepath.Join(repo.Dir, "build", "install")
	if err := os.MkdirAll(filepath.Join(install, "lib"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(install, "lib", "libdemo.so"), []byte("so"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(repo.Dir, "package", "stale.txt")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runRoot(t, "package", "-C", repo.Dir, "--skip-install", "--keep"); err != nil {
		t.Fatalf("package --keep: %v", err)
	}
	if calls := clitest.CMakeCalls(t, log); len(calls) != 0 {
		t.Fatalf("--skip-install ran cmake: %q", calls)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("--keep removed existing files: %v", err)
	}

	if _, _, err := runRoot(t, "package", "-C", repo.Dir, "--skip-install"); err != nil {
		t.Fatalf("package: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale file should be cleaned, stat err: %v", err)
	}
	if _, err := os.Stat(filepath.Join(repo.Dir, "package", "lib", "libdemo.so")); err != nil {
		t.Fatalf("expected staged library: %v", err)
	}
}

func TestPackage_RefusesProjectDir(t *testing.T) {
	recipe := clitest.BasicRecipe + "package:\n  dir: .\n"
	repo := clitest.Project(t, recipe, "v1.0.0")
	_, _, err := runRoot(t, "package", "-C", repo.Dir, "--skip-install")
	if !apperr.IsKind(err, apperr.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestPackage_ArchiveKeepsTreeClean(t *testing.T) {
	clitest.WithStubCMake(t)
	repo := clitest.Project(t, clitest.BasicRecipe, "v1.0.0")
	repo.WriteFile(".gitignore", "version.cmake\nbuild/\npackage/\n")
	repo.Commit("stop ignoring archives")
	repo.Tag("v1.0.1")

	if _, _, err := runRoot(t, "package", "-C", repo.Dir, "--archive"); err != nil {
		t.Fatalf("package --archive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(repo.Dir, "build", "demo-1.0.1.tar.gz")); err != nil {
		t.Fatalf("expected archive in build dir: %v", err)
	}
	out, _, err := runRoot(t, "resolve", "-C", repo.Dir, "--json", "--write=false")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var doc common.VersionDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if doc.Dirty {
		t.Fatalf("archive left the tree dirty: %+v", doc)
	}
}

func TestPackage_RefusesUnmanagedDir(t *testing.T) {
	clitest.WithStubCMake(t)
	repo := clitest.Project(t, clitest.BasicRecipe+"package:\n  dir: src\n", "")
	repo.WriteFile("src/parser.cpp", "int parse();\n")
	repo.Commit("add parser")
	repo.Tag("v1.0.0")

	_, _, err := runRoot(t, "package", "-C", repo.Dir)
	if !apperr.IsKind(err, apperr.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(repo.Dir, "src", "parser.cpp")); err != nil {
		t.Fatalf("tracked source removed: %v", err)
	}
}

func TestPackage_RefusesCMakeDirs(t *testing.T) {
	for _, dir := range []string{"build", "build/install", "build/install/pkg"} {
		t.Run(dir, func(t *testing.T) {
			repo := clitest.Project(t, clitest.BasicRecipe+"package:\n  dir: "+dir+"\n", "v1.0.0")
			_, _, err := runRoot(t, "package", "-C", repo.Dir, "--skip-install")
			if !apperr.IsKind(err, apperr.InvalidInput) {
				t.Fatalf("expected InvalidInput for %s, got %v", dir, err)
			}
		})
	}
}

func archiveEntries(t *testing.T, path string) map[string]bool {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = f.Close() }()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	tr := tar.NewReader(gz)
	names := map[string]bool{}
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		names[h.Name] = true
	}
	return names
}
