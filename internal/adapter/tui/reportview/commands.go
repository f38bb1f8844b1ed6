package reportview

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func readSnapshotCmd(src Source) tea.Cmd {
	return func() tea.Msg {
		s, err := src.Read()
		return SnapshotMsg{Snapshot: s, Err: err}
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}
