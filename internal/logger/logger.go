// Package logger is the structured logging facade used across verpack.
// Events are snake_case names with key/value fields; steps that touch git,
// cmake or the file system emit started/ok/failed triples through Step.
package logger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	clog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Logger is a small facade over the underlying logging backend.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

// Options controls logger construction.
type Options struct {
	// Out is the primary destination. Defaults to os.Stderr.
	Out io.Writer
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// Format is auto, pretty or json. Auto picks pretty on a terminal.
	Format string
	// LogFile, when set, also appends JSON records to this path.
	LogFile string
	// ReportTimestamp toggles timestamps on the primary sink. Default: true.
	ReportTimestamp *bool
}

// Levels and Formats list the accepted option values.
var (
	Levels  = []string{"debug", "info", "warn", "error"}
	Formats = []string{"auto", "pretty", "json"}
)

// New constructs a Logger according to opts. The returned closer is non-nil
// only when a file sink was opened. Unknown levels or formats are rejected.
func New(opts Options) (Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	format, err := formatterFor(out, opts.Format)
	if err != nil {
		return nil, nil, err
	}

	primary := newSink(out, lvl, format, opts.ReportTimestamp == nil || *opts.ReportTimestamp)
	if strings.TrimSpace(opts.LogFile) == "" {
		return primary, nil, nil
	}
	f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	// the file sink is always machine readable
	file := newSink(f, lvl, clog.JSONFormatter, true)
	return fanout{primary, file}, f, nil
}

func newSink(w io.Writer, lvl clog.Level, f clog.Formatter, ts bool) Logger {
	cl := clog.NewWithOptions(w, clog.Options{Level: lvl, Formatter: f, ReportTimestamp: ts})
	return &charmLogger{l: cl}
}

// ParseLevel maps a level name to the backend level. Empty means info.
func ParseLevel(s string) (clog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return clog.InfoLevel, nil
	case "debug":
		return clog.DebugLevel, nil
	case "warn", "warning":
		return clog.WarnLevel, nil
	case "error":
		return clog.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want one of %s)", s, strings.Join(Levels, ", "))
	}
}

func formatterFor(w io.Writer, format string) (clog.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return clog.JSONFormatter, nil
	case "pretty", "text":
		return clog.TextFormatter, nil
	case "", "auto":
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			return clog.TextFormatter, nil
		}
		return clog.JSONFormatter, nil
	default:
		return 0, fmt.Errorf("unknown log format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

type charmLogger struct{ l *clog.Logger }

func (c *charmLogger) Debug(msg string, keyvals ...any) { c.l.Debug(msg, redactPairs(keyvals)...) }
func (c *charmLogger) Info(msg string, keyvals ...any)  { c.l.Info(msg, redactPairs(keyvals)...) }
func (c *charmLogger) Warn(msg string, keyvals ...any)  { c.l.Warn(msg, redactPairs(keyvals)...) }
func (c *charmLogger) Error(msg string, keyvals ...any) { c.l.Error(msg, redactPairs(keyvals)...) }
func (c *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{l: c.l.With(redactPairs(keyvals)...)}
}

// fanout writes every record to each sink in order.
type fanout []Logger

func (f fanout) Debug(msg string, keyvals ...any) { f.each(func(l Logger) { l.Debug(msg, keyvals...) }) }
func (f fanout) Info(msg string, keyvals ...any)  { f.each(func(l Logger) { l.Info(msg, keyvals...) }) }
func (f fanout) Warn(msg string, keyvals ...any)  { f.each(func(l Logger) { l.Warn(msg, keyvals...) }) }
func (f fanout) Error(msg string, keyvals ...any) { f.each(func(l Logger) { l.Error(msg, keyvals...) }) }

func (f fanout) With(keyvals ...any) Logger {
	next := make(fanout, len(f))
	for i, l := range f {
		next[i] = l.With(keyvals...)
	}
	return next
}

func (f fanout) each(fn func(Logger)) {
	for _, l := range f {
		fn(l)
	}
}

// Nop returns a Logger that discards all logs.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) With(...any) Logger   { return nopLogger{} }

// NewRunID generates a random 12-hex-character run identifier.
func NewRunID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "000000000000"
	}
	return hex.EncodeToString(b[:])
}
