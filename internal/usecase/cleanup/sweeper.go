// Package cleanup removes stale screenshot captures from the working
// temp directory.
package cleanup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep hourly.
const DefaultSchedule = "@every 1h"

// Sweeper deletes *.png files in Dir whose modification time is older
// than MaxAge.
type Sweeper struct {
	Dir    string
	MaxAge time.Duration
	Logger *slog.Logger
	Now    func() time.Time // nil = time.Now
}

// Sweep removes stale captures and returns how many were deleted.
// A missing directory is created; per-file failures are logged and skipped.
func (s *Sweeper) Sweep() (int, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return 0, fmt.Errorf("create sweep dir: %w", err)
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, fmt.Errorf("read sweep dir: %w", err)
	}

	cutoff := now().Add(-s.MaxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			logger.Warn("stat capture failed", "file", e.Name(), "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(s.Dir, e.Name())
		if err := os.Remove(p); err != nil {
			logger.Warn("remove capture failed", "file", p, "error", err)
			continue
		}
		logger.Info("removed old file", "file", p)
		removed++
	}
	return removed, nil
}

// Schedule registers the sweep on c. An empty spec uses DefaultSchedule.
func (s *Sweeper) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	id, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(); err != nil && s.Logger != nil {
			s.Logger.Error("scheduled sweep failed", "error", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule sweep %q: %w", spec, err)
	}
	return id, nil
}
