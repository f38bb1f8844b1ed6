package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateDevice(cfg, ve)
	validateStatus(cfg, ve)
	validateCleanup(cfg, ve)
	validateApps(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want debug, info, warn, error)", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json", "":
	default:
		ve.Add("logger.format %q is invalid (want text or json)", cfg.Logger.Format)
	}
	// stdout carries the MCP stdio stream.
	if strings.EqualFold(cfg.Logger.Output, "stdout") {
		ve.Add("logger.output must not be stdout (reserved for the MCP stdio transport)")
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is invalid (want stdout or noop)", cfg.Tracer.Exporter)
	}
}

func validateDevice(cfg *Config, ve *ValidationError) {
	d := cfg.Device
	if d.ADBPath == "" {
		ve.Add("device.adb_path must not be empty")
	}
	if d.Action == "" {
		ve.Add("device.action must not be empty")
	}
	if d.Component == "" {
		ve.Add("device.component must not be empty")
	}
	if d.ExtraKey == "" {
		ve.Add("device.extra_key must not be empty")
	}
	if d.ResultPath == "" {
		ve.Add("device.result_path must not be empty")
	}
	if d.PollInterval <= 0 {
		ve.Add("device.poll_interval must be > 0")
	}
	if d.MaxWait < d.PollInterval {
		ve.Add("device.max_wait must be >= device.poll_interval")
	}
	if d.CommandTimeout <= 0 {
		ve.Add("device.command_timeout must be > 0")
	}
	if d.ScreenshotDevicePath == "" || d.ScreenshotLocalPath == "" {
		ve.Add("device.screenshot_device_path and device.screenshot_local_path must be set")
	}
}

func validateStatus(cfg *Config, ve *ValidationError) {
	if cfg.Status.StatusFile == "" {
		ve.Add("status.status_file must not be empty")
	}
	if cfg.Status.ResultFile == "" {
		ve.Add("status.result_file must not be empty")
	}
}

func validateCleanup(cfg *Config, ve *ValidationError) {
	if !cfg.Cleanup.Enabled {
		return
	}
	if cfg.Cleanup.Dir == "" {
		ve.Add("cleanup.dir must not be empty when cleanup is enabled")
	}
	if cfg.Cleanup.MaxAge <= 0 {
		ve.Add("cleanup.max_age must be > 0")
	}
	if cfg.Cleanup.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Cleanup.Schedule); err != nil {
			ve.Add("cleanup.schedule %q is invalid: %v", cfg.Cleanup.Schedule, err)
		}
	}
}

var validBrowsers = map[string]bool{"system": true, "chrome": true, "none": true}

func validateApps(cfg *Config, ve *ValidationError) {
	a := cfg.Apps
	if a.Root == "" {
		ve.Add("apps.root must not be empty")
	}
	if a.DefaultPort < 0 || a.DefaultPort > 65535 {
		ve.Add("apps.default_port %d out of range", a.DefaultPort)
	}
	if a.StartTimeout <= 0 {
		ve.Add("apps.start_timeout must be > 0")
	}
	if a.ShutdownTimeout <= 0 {
		ve.Add("apps.shutdown_timeout must be > 0")
	}
	if a.PortEnv == "" || a.SecretEnv == "" {
		ve.Add("apps.port_env and apps.secret_env must be set")
	}
	if !validBrowsers[a.Browser] {
		ve.Add("apps.browser %q is invalid (want system, chrome, none)", a.Browser)
	}
	if a.RateLimitPerMin < 0 {
		ve.Add("apps.rate_limit_per_min must be >= 0")
	}
}
