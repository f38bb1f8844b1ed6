// Package device drives the on-device automation agent through adb.
package device

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"goose-tools/internal/adapter/shell"
	"goose-tools/internal/domain"
	"goose-tools/internal/infra/config"
)

// Connection reasons reported by CheckConnection.
const (
	ReasonConnected   = "ADB device connected"
	ReasonNoDevices   = "No devices connected via ADB"
	ReasonADBNotFound = "ADB not found in PATH"
)

// ADB is a synchronous client for the device bridge executable.
type ADB struct {
	backend shell.Backend
	cfg     config.DeviceConfig
	logger  *slog.Logger
}

// NewADB creates an ADB client that runs adb through backend.
func NewADB(backend shell.Backend, cfg config.DeviceConfig, logger *slog.Logger) *ADB {
	if logger == nil {
		logger = slog.Default()
	}
	return &ADB{backend: backend, cfg: cfg, logger: logger}
}

// ResultPath is the on-device file the agent writes its answer to.
func (a *ADB) ResultPath() string { return a.cfg.ResultPath }

func (a *ADB) run(ctx context.Context, args ...string) (string, string, error) {
	full := args
	if a.cfg.Serial != "" {
		full = append([]string{"-s", a.cfg.Serial}, args...)
	}
	a.logger.Debug("adb exec", "args", full, "command_id", domain.CommandIDFromContext(ctx))
	return a.backend.Execute(ctx, a.cfg.ADBPath, full, "")
}

func (a *ADB) fail(kind error, args []string, stderr string, err error) error {
	return &domain.CommandError{
		Args:     args,
		Stderr:   stderr,
		ExitCode: shell.ExitCode(err),
		Kind:     kind,
		Err:      err,
	}
}

// CheckConnection lists attached devices. It never fails: problems are
// reported through the Reason field.
func (a *ADB) CheckConnection(ctx context.Context) domain.ConnectionStatus {
	// Listing always covers every device, so -s is not applied here.
	stdout, stderr, err := a.backend.Execute(ctx, a.cfg.ADBPath, []string{"devices"}, "")
	if err != nil {
		if shell.IsNotFound(err) {
			return domain.ConnectionStatus{Reason: ReasonADBNotFound}
		}
		msg := err.Error()
		if s := strings.TrimSpace(stderr); s != "" {
			msg += ": " + s
		}
		return domain.ConnectionStatus{Reason: "ADB error: " + msg}
	}

	devices := ParseDevices(stdout)
	status := domain.ConnectionStatus{Devices: devices, Reason: ReasonNoDevices}
	for _, d := range devices {
		if d.State != domain.DeviceStateOnline {
			continue
		}
		if a.cfg.Serial == "" || d.Serial == a.cfg.Serial {
			status.Connected = true
			status.Reason = ReasonConnected
			break
		}
	}
	return status
}

// ParseDevices parses `adb devices` output. The header line, daemon notices
// and blank lines are skipped.
func ParseDevices(out string) []domain.Device {
	var devices []domain.Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, domain.Device{Serial: fields[0], State: domain.DeviceState(fields[1])})
	}
	return devices
}

// ClearResult removes a stale result file. Failures are only logged.
func (a *ADB) ClearResult(ctx context.Context) {
	if _, stderr, err := a.run(ctx, "shell", "rm", "-f", a.cfg.ResultPath); err != nil {
		a.logger.Debug("clear result file failed", "error", err, "stderr", stderr)
	}
}

// StartCommand launches the agent activity with instruction as the intent extra.
func (a *ADB) StartCommand(ctx context.Context, instruction string) error {
	args := []string{
		"shell", "am", "start",
		"-a", a.cfg.Action,
		"-n", a.cfg.Component,
		"--es", a.cfg.ExtraKey, ShellQuote(instruction),
	}
	if _, stderr, err := a.run(ctx, args...); err != nil {
		return a.fail(domain.ErrDispatch, args, stderr, err)
	}
	return nil
}

// ResultExists probes once for the result file.
func (a *ADB) ResultExists(ctx context.Context) (bool, error) {
	script := "[ -f " + ShellQuote(a.cfg.ResultPath) + " ] && echo exists"
	stdout, stderr, err := a.run(ctx, "shell", script)
	if strings.Contains(stdout, "exists") {
		return true, nil
	}
	// A failing test exits 1 on newer adb versions.
	if err == nil || shell.ExitCode(err) == 1 {
		return false, nil
	}
	return false, a.fail(domain.ErrTransfer, []string{"shell", script}, stderr, err)
}

// PollResult waits for the result file using w.
func (a *ADB) PollResult(ctx context.Context, w domain.Waiter) (bool, error) {
	return w.Wait(ctx, a.ResultExists)
}

// ReadResult returns the result file content exactly as stored.
func (a *ADB) ReadResult(ctx context.Context) (string, error) {
	args := []string{"shell", "cat", a.cfg.ResultPath}
	stdout, stderr, err := a.run(ctx, args...)
	if err != nil {
		return "", a.fail(domain.ErrTransfer, args, stderr, err)
	}
	return stdout, nil
}

// CaptureScreenshot grabs the device screen and pulls it to the local path,
// overwriting any earlier capture. It returns the absolute local path.
func (a *ADB) CaptureScreenshot(ctx context.Context) (string, error) {
	capArgs := []string{"shell", "screencap", "-p", a.cfg.ScreenshotDevicePath}
	if _, stderr, err := a.run(ctx, capArgs...); err != nil {
		return "", a.fail(domain.ErrTransfer, capArgs, stderr, err)
	}

	local, err := filepath.Abs(a.cfg.ScreenshotLocalPath)
	if err != nil {
		return "", domain.WrapOp("resolve screenshot path", err)
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", domain.WrapOp("create screenshot dir", err)
	}

	pullArgs := []string{"pull", a.cfg.ScreenshotDevicePath, local}
	if _, stderr, err := a.run(ctx, pullArgs...); err != nil {
		return "", a.fail(domain.ErrTransfer, pullArgs, stderr, err)
	}
	return local, nil
}

// ShellQuote wraps s in single quotes for the device shell. Embedded single
// quotes become '\''.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
