// Package report maintains the status and result side-channel files read by
// the mobile front end.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the current content of both side-channel files.
type Snapshot struct {
	Status        string    `json:"status"`
	StatusUpdated time.Time `json:"status_updated"`
	Result        string    `json:"result"`
	ResultUpdated time.Time `json:"result_updated"`
}

// Writer overwrites the status and result files.
type Writer struct {
	StatusPath string
	ResultPath string
}

// NewWriter creates a Writer for the given file paths.
func NewWriter(statusPath, resultPath string) *Writer {
	return &Writer{StatusPath: statusPath, ResultPath: resultPath}
}

// WriteStatus replaces the status file with text.
func (w *Writer) WriteStatus(text string) error {
	if err := overwrite(w.StatusPath, text); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// WriteResult replaces the result file with markdown.
func (w *Writer) WriteResult(markdown string) error {
	if err := overwrite(w.ResultPath, markdown); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// Read returns both files. Missing files read as empty.
func (w *Writer) Read() (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Status, snap.StatusUpdated, err = readFile(w.StatusPath); err != nil {
		return snap, err
	}
	if snap.Result, snap.ResultUpdated, err = readFile(w.ResultPath); err != nil {
		return snap, err
	}
	return snap, nil
}

func overwrite(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func readFile(path string) (string, time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), fi.ModTime(), nil
}
