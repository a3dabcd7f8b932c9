package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/adamancini/betterfox-updater/internal/types"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// StatusStyle returns the style used for a status label.
func StatusStyle(s types.Status) lipgloss.Style {
	switch {
	case s.IsError():
		return errorStyle
	case s.IsSuccess():
		return successStyle
	case s.IsBusy():
		return busyStyle
	default:
		return dimStyle
	}
}

// Status renders a status label, colored when color is true.
func Status(s types.Status, color bool) string {
	label := "[" + s.String() + "]"
	if !color {
		return label
	}
	return StatusStyle(s).Render(label)
}

// LogLine renders a workflow log line, coloring its marker.
func LogLine(line string, color bool) string {
	if !color {
		return line
	}
	switch {
	case strings.HasPrefix(line, "[err]"):
		return errorStyle.Render(line)
	case strings.HasPrefix(line, "[ok]"):
		return successStyle.Render(line)
	case strings.HasPrefix(line, "[warn]"), strings.HasPrefix(line, "[!]"):
		return busyStyle.Render(line)
	default:
		return line
	}
}

// Progress renders download progress. On a terminal it redraws one line;
// elsewhere it only reports the final size.
type Progress struct {
	w        io.Writer
	tty      bool
	label    string
	received int64
	total    int64
	lastPct  int
	drawn    bool
}

// NewProgress creates a progress renderer.
func NewProgress(w io.Writer, tty bool, label string) *Progress {
	return &Progress{w: w, tty: tty, label: label, lastPct: -1}
}

// Add records a received chunk. A zero total means the size is unknown.
func (p *Progress) Add(chunk, total int64) {
	p.received += chunk
	p.total = total
	if !p.tty {
		return
	}

	if total > 0 {
		pct := int(p.received * 100 / total)
		if pct > 100 {
			pct = 100
		}
		if pct == p.lastPct {
			return
		}
		p.lastPct = pct
		_, _ = fmt.Fprintf(p.w, "\r%s %3d%% (%s / %s)", p.label, pct, humanize.Bytes(uint64(p.received)), humanize.Bytes(uint64(total)))
	} else {
		_, _ = fmt.Fprintf(p.w, "\r%s %s", p.label, humanize.Bytes(uint64(p.received)))
	}
	p.drawn = true
}

// Received returns the bytes seen so far.
func (p *Progress) Received() int64 {
	return p.received
}

// Done finishes the progress line.
func (p *Progress) Done() {
	if p.received == 0 {
		return
	}
	if p.drawn {
		_, _ = fmt.Fprintln(p.w)
		return
	}
	_, _ = fmt.Fprintf(p.w, "%s %s\n", p.label, humanize.Bytes(uint64(p.received)))
}

// Size formats a byte count for humans.
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
