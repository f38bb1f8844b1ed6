package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"goose-tools/internal/adapter/tool"
	"goose-tools/internal/infra/config"
	"goose-tools/internal/infra/logger"
)

// CheckStatus represents the result of a self-test check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named self-test function.
type Check struct {
	Name string
	Fn   func(ctx context.Context, cfg *config.Config) CheckResult
}

// shopperToolNames are the tools the shopper server must expose.
var shopperToolNames = []string{
	"shop_helper", "shopper_profile", "take_screenshot",
	"update_status", "web_search", "what_apps", "write_result",
}

func runSelftest() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfgPath := configPath()
	cfg, cfgErr := config.Load(cfgPath)
	if cfgErr != nil {
		cfg = config.Defaults()
	}

	logCfg := cfg.Logger
	logCfg.Level = "warn"
	log, closeLog, err := logger.New(logCfg, "selftest")
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "ADB binary", Fn: checkADBBinary},
		{Name: "Device connection", Fn: checkDevice(log)},
		{Name: "Status files", Fn: checkStatusFiles},
		{Name: "Apps root", Fn: checkAppsRoot},
		{Name: "Shopper tools", Fn: checkShopperTools(log)},
		{Name: "Apps tools", Fn: checkAppsTools(log)},
	}

	fmt.Println("goose-tools selftest")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	pass, warn, fail := runChecks(ctx, cfg, checks)

	fmt.Println()
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if hasFlag("--live") {
		return runLive(ctx, cfg, log)
	}
	return nil
}

func runChecks(ctx context.Context, cfg *config.Config, checks []Check) (pass, warn, fail int) {
	for _, check := range checks {
		result := check.Fn(ctx, cfg)
		result.Name = check.Name

		fmt.Printf("  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Printf("      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}
	return pass, warn, fail
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

func checkConfigFile(cfgPath string, cfgErr error) func(context.Context, *config.Config) CheckResult {
	return func(context.Context, *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: cfgErr.Error(),
				Fix:     "Fix " + cfgPath + " or unset the offending GOOSETOOLS_* variables",
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{Status: StatusPass, Message: "no " + cfgPath + ", using defaults"}
		}
		return CheckResult{Status: StatusPass, Message: cfgPath + " is valid"}
	}
}

func checkADBBinary(_ context.Context, cfg *config.Config) CheckResult {
	path, err := exec.LookPath(cfg.Device.ADBPath)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s not found in PATH", cfg.Device.ADBPath),
			Fix:     "Install Android platform-tools or set device.adb_path",
		}
	}
	return CheckResult{Status: StatusPass, Message: path}
}

func checkDevice(log *slog.Logger) func(context.Context, *config.Config) CheckResult {
	return func(ctx context.Context, cfg *config.Config) CheckResult {
		status := buildShopper(cfg, log).relay.Connection(ctx)
		if !status.Connected {
			return CheckResult{
				Status:  StatusWarn,
				Message: status.Reason,
				Fix:     "Connect the phone with USB debugging enabled and accept the RSA prompt",
			}
		}
		return CheckResult{Status: StatusPass, Message: status.Reason}
	}
}

func checkStatusFiles(_ context.Context, cfg *config.Config) CheckResult {
	for _, p := range []string{cfg.Status.StatusFile, cfg.Status.ResultFile} {
		if err := dirWritable(filepath.Dir(p)); err != nil {
			return CheckResult{Status: StatusFail, Message: err.Error(), Fix: "Point status.status_file and status.result_file at a writable directory"}
		}
	}
	return CheckResult{Status: StatusPass, Message: "status and result directories are writable"}
}

func checkAppsRoot(_ context.Context, cfg *config.Config) CheckResult {
	if err := os.MkdirAll(cfg.Apps.Root, 0o755); err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error(), Fix: "Set apps.root to a writable directory"}
	}
	if err := dirWritable(cfg.Apps.Root); err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error(), Fix: "Set apps.root to a writable directory"}
	}
	return CheckResult{Status: StatusPass, Message: cfg.Apps.Root}
}

func dirWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".goose-tools-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func checkShopperTools(log *slog.Logger) func(context.Context, *config.Config) CheckResult {
	return func(ctx context.Context, cfg *config.Config) CheckResult {
		srv := tool.NewMCPServer("Personal Shopper", version, shopperInstructions, buildShopper(cfg, log).registry, log)
		return checkToolListing(ctx, srv, shopperToolNames)
	}
}

func checkAppsTools(log *slog.Logger) func(context.Context, *config.Config) CheckResult {
	return func(ctx context.Context, cfg *config.Config) CheckResult {
		stack, err := buildApps(cfg, log)
		if err != nil {
			return CheckResult{Status: StatusFail, Message: err.Error()}
		}
		defer stack.close(ctx, log)
		srv := tool.NewMCPServer("Goose Apps", version, appsInstructions, stack.registry, log)
		return checkToolListing(ctx, srv, []string{"apps"})
	}
}

// checkToolListing lists tools through an in-process MCP client.
func checkToolListing(ctx context.Context, srv *tool.MCPServer, want []string) CheckResult {
	client, err := tool.NewLocalClient(ctx, srv, "goose-tools-selftest")
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}
	defer client.Close()

	names, err := client.ListTools(ctx)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}
	if missing := missingNames(names, want); len(missing) > 0 {
		return CheckResult{Status: StatusFail, Message: "missing tools: " + strings.Join(missing, ", ")}
	}
	return CheckResult{Status: StatusPass, Message: strings.Join(names, ", ")}
}

func missingNames(have, want []string) []string {
	set := make(map[string]bool, len(have))
	for _, n := range have {
		set[n] = true
	}
	var missing []string
	for _, n := range want {
		if !set[n] {
			missing = append(missing, n)
		}
	}
	return missing
}

// runLive drives the shopper tools against the attached device.
func runLive(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	srv := tool.NewMCPServer("Personal Shopper", version, shopperInstructions, buildShopper(cfg, log).registry, log)
	client, err := tool.NewLocalClient(ctx, srv, "goose-tools-selftest")
	if err != nil {
		return err
	}
	defer client.Close()

	calls := []struct {
		name string
		args map[string]any
	}{
		{"shop_helper", map[string]any{"command": "help"}},
		{"update_status", map[string]any{"status": "Testing status update"}},
		{"take_screenshot", nil},
	}

	fmt.Println()
	fmt.Println("Live calls")
	fmt.Println(strings.Repeat("-", 50))
	var failed int
	for _, c := range calls {
		res, err := client.Call(ctx, c.name, c.args)
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		status := StatusPass
		if res.IsError {
			status = StatusFail
			failed++
		}
		fmt.Printf("  %s %s: %s\n", statusIcon(status), c.name, res.Content)
	}
	if failed > 0 {
		return fmt.Errorf("%d live call(s) failed", failed)
	}
	return nil
}
