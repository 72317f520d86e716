package ui

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerStartStopEnabled(t *testing.T) {
	var buf syncBuffer
	sp := NewSpinner(&buf, "configuring")
	// Force-enable for test environment (not a real TTY).
	sp.enabled = true
	sp.frames = []string{"-"}
	sp.delay = time.Millisecond

	sp.Start()
	sp.Start()
	time.Sleep(5 * time.Millisecond)
	sp.SetLabel("building")
	time.Sleep(5 * time.Millisecond)
	sp.Stop()
	sp.Stop()

	out := buf.String()
	if !strings.Contains(out, "configuring") || !strings.Contains(out, "building") {
		t.Fatalf("expected both labels in output, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\x1b[2K") {
		t.Fatalf("expected spinner line cleared on stop, got %q", out)
	}
}

func TestRun_ReturnsFnError(t *testing.T) {
	var buf bytes.Buffer
	want := errors.New("boom")
	got := Run(&buf, "installing", func(*Spinner) error { return want })
	if !errors.Is(got, want) {
		t.Fatalf("expected fn error, got %v", got)
	}
}

func TestSpinnerHiddenViaEnv(t *testing.T) {
	master, slave := openPTYOrSkip(t)
	discardPTY(master)
	t.Cleanup(func() { _ = master.Close() })
	t.Cleanup(func() { _ = slave.Close() })

	t.Setenv(SpinnerHiddenEnv, "")
	visible := NewSpinner(slave, "visible")
	if !visible.enabled {
		t.Fatalf("expected spinner to be enabled on tty")
	}
	t.Setenv(SpinnerHiddenEnv, "1")
	hidden := NewSpinner(slave, "hidden")
	if hidden.enabled {
		t.Fatalf("expected spinner to be disabled when env requests hiding")
	}
}

func TestSpinner_NoTTY_NoOutput(t *testing.T) {
	var out bytes.Buffer
	err := Run(&out, "Configuring...", func(s *Spinner) error {
		s.SetLabel("Building...")
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no spinner output when not a TTY, got: %q", out.String())
	}
}
