package cmake

import (
	"context"
	"sort"
	"strings"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/logger"
	"github.com/gcstr/verpack/internal/toolexec"
)

// Driver provides typed helpers around the cmake CLI.
type Driver struct {
	exec      toolexec.Exec
	generator string
}

// New returns a Driver running cmake from dir.
func New(dir string) *Driver {
	return &Driver{exec: toolexec.New("cmake", dir)}
}

// NewWithExec returns a Driver backed by a custom Exec.
func NewWithExec(e toolexec.Exec) *Driver {
	return &Driver{exec: e}
}

// WithGenerator sets the generator passed to configure. Empty uses cmake's default.
func (d *Driver) WithGenerator(g string) *Driver {
	d.generator = g
	return d
}

// Configure generates the build tree in buildDir from sourceDir.
func (d *Driver) Configure(ctx context.Context, sourceDir, buildDir string, defines map[string]string) error {
	if sourceDir == "" || buildDir == "" {
		return apperr.New("cmake.Configure", apperr.InvalidInput, "source and build directories required")
	}
	args := ConfigureArgs(sourceDir, buildDir, d.generator, defines)
	st := logger.StartStep(log(ctx), "cmake_configure", buildDir, "source", sourceDir)
	if _, err := d.exec.Run(ctx, args...); err != nil {
		return st.Fail(err)
	}
	st.OK("defines", len(defines))
	return nil
}

// Build compiles the configured tree for the given configuration.
func (d *Driver) Build(ctx context.Context, buildDir, config string) error {
	if buildDir == "" {
		return apperr.New("cmake.Build", apperr.InvalidInput, "build directory required")
	}
	args := []string{"--build", buildDir}
	if config != "" {
		args = append(args, "--config", config)
	}
	st := logger.StartStep(log(ctx), "cmake_build", buildDir, "config", config)
	if _, err := d.exec.Run(ctx, args...); err != nil {
		return st.Fail(err)
	}
	st.OK()
	return nil
}

// Install copies build outputs into prefix.
func (d *Driver) Install(ctx context.Context, buildDir, prefix, config string) error {
	if buildDir == "" {
		return apperr.New("cmake.Install", apperr.InvalidInput, "build directory required")
	}
	args := []string{"--install", buildDir}
	if prefix != "" {
		args = append(args, "--prefix", prefix)
	}
	if config != "" {
		args = append(args, "--config", config)
	}
	st := logger.StartStep(log(ctx), "cmake_install", prefix, "build", buildDir)
	if _, err := d.exec.Run(ctx, args...); err != nil {
		return st.Fail(err)
	}
	st.OK()
	return nil
}

// ConfigureArgs renders the configure invocation with -D entries in key order.
func ConfigureArgs(sourceDir, buildDir, generator string, defines map[string]string) []string {
	args := []string{"-S", sourceDir, "-B", buildDir}
	if strings.TrimSpace(generator) != "" {
		args = append(args, "-G", generator)
	}
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-D"+k+"="+defines[k])
	}
	return args
}

func log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx).With("component", "cmake")
}
