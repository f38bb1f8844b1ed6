package reportview

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"goose-tools/internal/adapter/tui/theme"
	"goose-tools/internal/usecase/report"
)

// Ensure *Model satisfies tea.Model.
var _ tea.Model = (*Model)(nil)

// Source reads the current report snapshot.
type Source interface {
	Read() (report.Snapshot, error)
}

// Model is the Bubble Tea model behind `goose-tools watch`. It re-reads the
// report files every interval.
type Model struct {
	source   Source
	interval time.Duration
	renderer *Renderer
	now      func() time.Time

	snap   report.Snapshot
	err    error
	loaded bool
}

// NewModel creates a watch model refreshing from src every interval.
func NewModel(src Source, interval time.Duration) *Model {
	if interval <= 0 {
		interval = time.Second
	}
	return &Model{
		source:   src,
		interval: interval,
		renderer: NewRenderer(theme.MaxContentWidth),
		now:      time.Now,
	}
}

// Init reads the snapshot and starts the refresh ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(readSnapshotCmd(m.source), tickCmd(m.interval))
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width != m.renderer.Width() {
			m.renderer = NewRenderer(msg.Width)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			return m, readSnapshotCmd(m.source)
		}
		return m, nil

	case TickMsg:
		return m, tea.Batch(readSnapshotCmd(m.source), tickCmd(m.interval))

	case SnapshotMsg:
		m.loaded = true
		m.err = msg.Err
		if msg.Err == nil {
			m.snap = msg.Snapshot
		}
		return m, nil
	}
	return m, nil
}

// View renders the current snapshot.
func (m *Model) View() string {
	if !m.loaded {
		return theme.TextMuted.Render("loading...")
	}
	body := m.renderer.Render(m.snap, m.now())
	if m.err != nil {
		body += "\n" + m.renderer.RenderError(m.err)
	}
	return body + "\n" + theme.StatusBar.Render("q quit  r refresh")
}
