// Package reportview renders the status/result side-channel files for a
// human watching a long-running agent task.
package reportview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"goose-tools/internal/adapter/tui/theme"
	"goose-tools/internal/usecase/report"
)

// Renderer turns a report.Snapshot into styled terminal text.
type Renderer struct {
	width int
	md    *glamour.TermRenderer
}

// NewRenderer creates a renderer for the given terminal width.
func NewRenderer(width int) *Renderer {
	return &Renderer{width: theme.Clamp(width, 20, theme.MaxContentWidth)}
}

// Width returns the effective render width.
func (r *Renderer) Width() int { return r.width }

// Render draws the status card followed by the result markdown.
func (r *Renderer) Render(s report.Snapshot, now time.Time) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("goose status"))
	b.WriteString("\n")

	status := theme.TextMuted.Render(theme.SymbolPending + " no status yet")
	if s.Status != "" {
		status = theme.TextInfo.Render(theme.SymbolBullet+" ") + theme.Bold.Render(strings.TrimSpace(s.Status))
		if ts := RelativeTime(s.StatusUpdated, now); ts != "" {
			status += "  " + theme.Timestamp.Render(ts)
		}
	}
	b.WriteString(theme.Card.Width(r.width - 2).Render(status))
	b.WriteString("\n\n")

	if s.Result == "" {
		b.WriteString(theme.TextMuted.Render("No result written yet."))
		b.WriteString("\n")
		return b.String()
	}

	header := theme.TextSuccess.Render(theme.SymbolSuccess + " Result")
	if ts := RelativeTime(s.ResultUpdated, now); ts != "" {
		header += "  " + theme.Timestamp.Render(ts)
	}
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(r.markdown(s.Result))
	return b.String()
}

// RenderError draws a read failure.
func (r *Renderer) RenderError(err error) string {
	return theme.TextError.Render(theme.SymbolError+" ") + lipgloss.NewStyle().Width(r.width).Render(err.Error())
}

func (r *Renderer) markdown(content string) string {
	if r.md == nil {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return content + "\n"
		}
		r.md = md
	}
	out, err := r.md.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

// RelativeTime returns a short human-readable age of t relative to now.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 2 15:04")
	}
}
