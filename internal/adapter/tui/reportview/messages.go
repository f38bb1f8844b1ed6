package reportview

import (
	"time"

	"goose-tools/internal/usecase/report"
)

// SnapshotMsg carries a fresh read of the report files.
type SnapshotMsg struct {
	Snapshot report.Snapshot
	Err      error
}

// TickMsg triggers the next refresh.
type TickMsg time.Time
