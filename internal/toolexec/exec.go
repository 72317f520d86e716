package toolexec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gcstr/verpack/internal/apperr"
	"github.com/gcstr/verpack/internal/logger"
)

// Exec abstracts external command execution for ease of testing.
type Exec interface {
	Run(ctx context.Context, args ...string) (string, error)
	RunDetailed(ctx context.Context, opts Options, args ...string) (Result, error)
}

// SystemExec runs a binary found on PATH.
type SystemExec struct {
	Binary         string
	Dir            string
	Env            []string
	DefaultTimeout time.Duration
	Logger         LoggerHook
}

// Options controls execution behavior per call.
type Options struct {
	Dir     string
	Env     []string
	Timeout time.Duration
}

// Result contains structured outcome of a command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// LoggerHook receives start and finish events for command execution.
type LoggerHook func(event ExecEvent)

// ExecEvent describes a loggable moment in command execution.
type ExecEvent struct {
	Phase    string // "start" or "finish"
	Binary   string
	Args     []string
	Dir      string
	Duration time.Duration
	ExitCode int
	Err      error
}

// New returns a SystemExec for binary rooted at dir.
func New(binary, dir string) *SystemExec {
	return &SystemExec{Binary: binary, Dir: dir}
}

// WithDefaultTimeout sets a default timeout for all runs when Options.Timeout is not provided.
func (s *SystemExec) WithDefaultTimeout(d time.Duration) *SystemExec { s.DefaultTimeout = d; return s }

// WithLogger sets a logger hook to observe command execution.
func (s *SystemExec) WithLogger(h LoggerHook) *SystemExec { s.Logger = h; return s }

// WithEnv appends KEY=VALUE pairs to the environment of every run.
func (s *SystemExec) WithEnv(env ...string) *SystemExec {
	s.Env = append(s.Env, env...)
	return s
}

// RunDetailed runs the binary and returns its captured output. A non-zero
// exit is returned as an apperr.External error carrying stderr; the Result is
// populated either way so callers can inspect ExitCode.
func (s SystemExec) RunDetailed(ctx context.Context, opts Options, args ...string) (Result, error) {
	if opts.Timeout <= 0 && s.DefaultTimeout > 0 {
		opts.Timeout = s.DefaultTimeout
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	dir := opts.Dir
	if dir == "" {
		dir = s.Dir
	}

	if s.Logger != nil {
		s.Logger(ExecEvent{Phase: "start", Binary: s.Binary, Args: args, Dir: dir})
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, s.Binary, args...)
	env := os.Environ()
	env = append(env, s.Env...)
	env = append(env, opts.Env...)
	cmd.Env = env
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	dur := time.Since(start)

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	} else if runErr != nil {
		// never started (binary missing, bad dir)
		exitCode = -1
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode, Duration: dur}

	if s.Logger != nil {
		s.Logger(ExecEvent{Phase: "finish", Binary: s.Binary, Args: args, Dir: dir, Duration: dur, ExitCode: exitCode, Err: runErr})
	}

	if runErr != nil {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = runErr.Error()
		}
		return res, apperr.Wrap(s.Binary+" "+firstArg(args), apperr.External, runErr, "%s", msg)
	}
	return res, nil
}

func (s SystemExec) Run(ctx context.Context, args ...string) (string, error) {
	res, err := s.RunDetailed(ctx, Options{}, args...)
	return res.Stdout, err
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// LogHook forwards exec events to l at debug level.
func LogHook(l logger.Logger) LoggerHook {
	return func(ev ExecEvent) {
		switch ev.Phase {
		case "start":
			l.Debug("exec_start", "binary", ev.Binary, "args", strings.Join(ev.Args, " "), "dir", ev.Dir)
		case "finish":
			kv := []any{"binary", ev.Binary, "args", strings.Join(ev.Args, " "), "exit_code", ev.ExitCode, "duration_ms", ev.Duration.Milliseconds()}
			if ev.Err != nil {
				kv = append(kv, "error", ev.Err.Error())
			}
			l.Debug("exec_finish", kv...)
		}
	}
}
