package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"goose-tools/internal/adapter/tui/reportview"
	"goose-tools/internal/infra/config"
	"goose-tools/internal/infra/logger"
	"goose-tools/internal/usecase/report"
)

func loadReportWriter() (*report.Writer, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	return report.NewWriter(cfg.Status.StatusFile, cfg.Status.ResultFile), nil
}

func runStatus() error {
	w, err := loadReportWriter()
	if err != nil {
		return err
	}
	snap, err := w.Read()
	if err != nil {
		return err
	}

	width := 80
	if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && tw > 0 {
		width = tw
	}
	fmt.Print(reportview.NewRenderer(width).Render(snap, time.Now()))
	return nil
}

func runWatch() error {
	w, err := loadReportWriter()
	if err != nil {
		return err
	}
	p := tea.NewProgram(reportview.NewModel(w, time.Second), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

func runCleanup() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	log, closeLog, err := logger.New(cfg.Logger, "cleanup")
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	n, err := newSweeper(cfg, log).Sweep()
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d stale screenshot(s) from %s\n", n, cfg.Cleanup.Dir)
	return nil
}
