package ui

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	styleFile = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleLink = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	styleNote = lipgloss.NewStyle().Faint(true)

	styleInfoPrefix  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	styleWarnPrefix  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleErrorPrefix = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	styleSectionTitle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#3478F6", Dark: "#4A9EFF"})

	styleKey    = lipgloss.NewStyle().Bold(true)
	styleDirty  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleItalic = lipgloss.NewStyle().Italic(true)
)

// Italic renders s in italic, used for paths.
func Italic(s string) string { return styleItalic.Render(s) }

// Dirty highlights a dirty-tree marker.
func Dirty(s string) string { return styleDirty.Render(s) }

// Mark selects the icon in front of a list item.
type Mark int

const (
	MarkNone Mark = iota
	MarkFile
	MarkLink
)

// Item is one entry of a Section. Note is rendered faint after the text.
type Item struct {
	Mark Mark
	Text string
	Note string
}

// Section is a header and its list of items.
type Section struct {
	Title string
	Items []Item
}

// RenderSections renders each non-empty section as a title followed by its
// items indented by two spaces.
func RenderSections(sections []Section) string {
	var b strings.Builder
	for _, section := range sections {
		if len(section.Items) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styleSectionTitle.Render(section.Title))
		b.WriteString("\n")
		for _, item := range section.Items {
			b.WriteString("  ")
			if icon := iconFor(item.Mark); icon != "" {
				b.WriteString(icon)
				b.WriteString(" ")
			}
			b.WriteString(item.Text)
			if item.Note != "" {
				b.WriteString(" ")
				b.WriteString(styleNote.Render(item.Note))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func iconFor(m Mark) string {
	switch m {
	case MarkFile:
		return styleFile.Render("+")
	case MarkLink:
		return styleLink.Render("→")
	default:
		return ""
	}
}

// KV is one row of a key/value table.
type KV struct {
	Key   string
	Value string
}

// RenderKeyValues renders rows as an aligned two-column table, keys in bold.
func RenderKeyValues(rows []KV) string {
	width := 0
	for _, r := range rows {
		if w := lipgloss.Width(r.Key); w > width {
			width = w
		}
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(styleKey.Render(r.Key))
		b.WriteString(strings.Repeat(" ", width-lipgloss.Width(r.Key)+2))
		b.WriteString(r.Value)
		b.WriteString("\n")
	}
	return b.String()
}

var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI color codes for snapshot testing when needed.
func StripANSI(s string) string {
	return ansiRegexp.ReplaceAllString(s, "")
}

// clearCurrentLineIfTTY clears the current terminal line when writing to a TTY.
func clearCurrentLineIfTTY(w io.Writer) {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		_, _ = fmt.Fprint(w, "\r\x1b[2K")
	}
}

// Printer centralizes user-facing output. It routes informational messages to
// stdout and warnings/errors to stderr.
type Printer interface {
	// Plain writes to stdout without any prefix or styling.
	Plain(format string, a ...any)
	// Info writes to stdout with an [info] prefix.
	Info(format string, a ...any)
	// Warn writes to stderr with a [warn] prefix.
	Warn(format string, a ...any)
	// Error writes to stderr with an [error] prefix.
	Error(format string, a ...any)
}

// StdPrinter writes Info to Out and Warn/Error to Err.
type StdPrinter struct {
	Out io.Writer
	Err io.Writer
}

func (p StdPrinter) Plain(format string, a ...any) {
	if p.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(p.Out, format+"\n", a...)
}

func (p StdPrinter) Info(format string, a ...any) {
	if p.Out == nil {
		return
	}
	// Avoid mixing with any active spinner on TTY
	clearCurrentLineIfTTY(p.Out)
	prefix := styleInfoPrefix.Render("[info]")
	_, _ = fmt.Fprintf(p.Out, "%s "+format+"\n", append([]any{prefix}, a...)...)
}

func (p StdPrinter) Warn(format string, a ...any) {
	if p.Err == nil {
		return
	}
	clearCurrentLineIfTTY(p.Err)
	prefix := styleWarnPrefix.Render("[warn]")
	_, _ = fmt.Fprintf(p.Err, "%s "+format+"\n", append([]any{prefix}, a...)...)
}

func (p StdPrinter) Error(format string, a ...any) {
	if p.Err == nil {
		return
	}
	clearCurrentLineIfTTY(p.Err)
	prefix := styleErrorPrefix.Render("[error]")
	_, _ = fmt.Fprintf(p.Err, "%s "+format+"\n", append([]any{prefix}, a...)...)
}

// NoopPrinter discards all output; useful as a default or in tests.
type NoopPrinter struct{}

func (NoopPrinter) Plain(string, ...any) {}
func (NoopPrinter) Info(string, ...any)  {}
func (NoopPrinter) Warn(string, ...any)  {}
func (NoopPrinter) Error(string, ...any) {}

// SectionTitle renders a bold section header for grouped output.
func SectionTitle(title string) string {
	return styleSectionTitle.Render(title)
}
