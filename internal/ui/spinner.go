package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// SpinnerHiddenEnv disables the spinner when set to a non-empty value.
const SpinnerHiddenEnv = "VERPACK_SPINNER_HIDDEN"

// Spinner renders a TTY spinner next to a label while a long step runs
// (cmake configure/build/install). It is a no-op unless out is a terminal.
type Spinner struct {
	out     io.Writer
	label   string
	style   lipgloss.Style
	frames  []string
	delay   time.Duration
	enabled bool

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
}

// NewSpinner returns a spinner writing to out.
func NewSpinner(out io.Writer, label string) *Spinner {
	enabled := false
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		enabled = os.Getenv(SpinnerHiddenEnv) == ""
	}
	return &Spinner{
		out:     out,
		label:   label,
		style:   lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		delay:   100 * time.Millisecond,
		enabled: enabled,
	}
}

// SetLabel changes the text shown next to the spinner.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	s.label = label
	s.mu.Unlock()
}

func (s *Spinner) currentLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// Start begins rendering. Starting a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		ticker := time.NewTicker(s.delay)
		defer func() {
			ticker.Stop()
			_, _ = fmt.Fprint(s.out, "\r\x1b[2K")
			close(done)
		}()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				frame := s.frames[i%len(s.frames)]
				_, _ = fmt.Fprintf(s.out, "\r %s %s", s.style.Render(frame), s.currentLabel())
			}
		}
	}(s.stopCh, s.doneCh)
}

// Stop halts rendering and clears the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stop)
	<-done
}

// Run shows a spinner with label on out while fn runs.
func Run(out io.Writer, label string, fn func(*Spinner) error) error {
	sp := NewSpinner(out, label)
	sp.Start()
	defer sp.Stop()
	return fn(sp)
}
