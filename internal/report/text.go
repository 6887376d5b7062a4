package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/phobologic/japicheck/internal/model"
)

// Text writes one line per finding: the padded severity label, then the
// message. Labels are coloured when color is true and w is a terminal.
type Text struct {
	w      io.Writer
	color  bool
	styles map[model.Severity]lipgloss.Style
	err    error
}

// NewText returns a text sink writing to w.
func NewText(w io.Writer, color bool) *Text {
	r := lipgloss.NewRenderer(w)
	return &Text{
		w:     w,
		color: color,
		styles: map[model.Severity]lipgloss.Style{
			model.Info:    r.NewStyle().Foreground(lipgloss.Color("#2CD7C7")),
			model.Warning: r.NewStyle().Foreground(lipgloss.Color("#F4D03F")).Bold(true),
			model.Error:   r.NewStyle().Foreground(lipgloss.Color("#E74C3C")).Bold(true),
		},
	}
}

func (t *Text) Report(f model.Finding) {
	if t.err != nil {
		return
	}
	label := fmt.Sprintf("%-7s", f.Severity)
	if t.color {
		label = t.styles[f.Severity].Render(label)
	}
	_, t.err = fmt.Fprintf(t.w, "%s %s\n", label, f.Message)
}

// Err returns the first write error, if any.
func (t *Text) Err() error { return t.err }
