package clitest

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/gcstr/verpack/internal/gitfixture"
)

// CMakeLogEnv names the file the cmake stub appends its argument lists to.
const CMakeLogEnv = "VERPACK_TEST_CMAKE_LOG"

// CMakeFailEnv makes the cmake stub fail when its first argument equals the value.
const CMakeFailEnv = "VERPACK_TEST_CMAKE_FAIL"

const cmakeStub = `#!/bin/sh
if [ -n "$VERPACK_TEST_CMAKE_LOG" ]; then
  echo "$*" >> "$VERPACK_TEST_CMAKE_LOG"
fi
if [ -n "$VERPACK_TEST_CMAKE_FAIL" ] && [ "$1" = "$VERPACK_TEST_CMAKE_FAIL" ]; then
  echo "CMake Error: stub failure in $1" >&2
  exit 1
fi
if [ "$1" = "--install" ]; then
  prefix=""
  prev=""
  for a in "$@"; do
    [ "$prev" = "--prefix" ] && prefix="$a"
    prev="$a"
  done
  [ -z "$prefix" ] && exit 0
  mkdir -p "$prefix/lib" "$prefix/include/demo"
  echo "lib" > "$prefix/lib/libdemo.a"
  echo "#pragma once" > "$prefix/include/demo/demo.h"
fi
exit 0
`

// WithStubCMake prepends PATH with a cmake stub and returns the path of the
// log it writes each invocation to.
func WithStubCMake(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("cmake stub is a shell script; skipping on Windows")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cmake"), []byte(cmakeStub), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	log := filepath.Join(dir, "cmake.log")
	t.Setenv(CMakeLogEnv, log)
	t.Setenv(CMakeFailEnv, "")
	return log
}

// CMakeCalls returns the argument lists recorded by the stub, one per call.
func CMakeCalls(t *testing.T, log string) []string {
	t.Helper()
	b, err := os.ReadFile(log)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read cmake log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

// BasicRecipe is a recipe for the demo library used across CLI tests.
const BasicRecipe = `name: demo
settings:
  os: Linux
  build_type: Release
git:
  backend: go-git
`

// Project creates a git checkout holding recipe, with generated outputs
// ignored, committed and tagged tag.
func Project(t *testing.T, recipe, tag string) *gitfixture.Repo {
	t.Helper()
	repo := gitfixture.Init(t)
	repo.WriteFile(".gitignore", "version.cmake\nbuild/\npackage/\n*.tar.gz\n")
	repo.WriteFile("verpack.yml", recipe)
	repo.Commit("initial import")
	if tag != "" {
		repo.Tag(tag)
	}
	return repo
}
