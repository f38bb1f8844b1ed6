package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
	Device  DeviceConfig  `yaml:"device"`
	Status  StatusConfig  `yaml:"status"`
	Cleanup CleanupConfig `yaml:"cleanup"`
	Apps    AppsConfig    `yaml:"apps"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// DeviceConfig describes how to reach the on-device automation agent over ADB.
type DeviceConfig struct {
	ADBPath        string        `yaml:"adb_path"`
	Serial         string        `yaml:"serial,omitempty"` // empty = the only attached device
	Action         string        `yaml:"action"`
	Component      string        `yaml:"component"`
	ExtraKey       string        `yaml:"extra_key"`
	ResultPath     string        `yaml:"result_path"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	MaxWait        time.Duration `yaml:"max_wait"`
	CommandTimeout time.Duration `yaml:"command_timeout"` // per adb invocation
	Breaker        BreakerConfig `yaml:"breaker"`

	ScreenshotDevicePath string `yaml:"screenshot_device_path"`
	ScreenshotLocalPath  string `yaml:"screenshot_local_path"`
}

// BreakerConfig trips the adb circuit after repeated launch failures.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// StatusConfig holds the paths of the status/result side-channel files.
type StatusConfig struct {
	StatusFile string `yaml:"status_file"`
	ResultFile string `yaml:"result_file"`
}

// CleanupConfig controls removal of stale screenshot captures.
type CleanupConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir"`
	MaxAge   time.Duration `yaml:"max_age"`
	Schedule string        `yaml:"schedule"` // cron expression or @every descriptor
}

// AppsConfig holds app store and static server settings.
type AppsConfig struct {
	Root            string        `yaml:"root"`
	Host            string        `yaml:"host"`
	DefaultPort     int           `yaml:"default_port"`
	StartTimeout    time.Duration `yaml:"start_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PortEnv         string        `yaml:"port_env"`
	PortFallback    string        `yaml:"port_fallback"`
	SecretEnv       string        `yaml:"secret_env"`
	Browser         string        `yaml:"browser"` // "system", "chrome", "none"
	RateLimitPerMin int           `yaml:"rate_limit_per_min"` // 0 = disabled
}

// defaultDataDir returns the persistent data directory under $HOME/.goose-tools.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".goose-tools")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	tmp := os.TempDir()
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Device: DeviceConfig{
			ADBPath:              "adb",
			Action:               "xyz.block.gosling.EXECUTE_COMMAND",
			Component:            "xyz.block.gosling/.features.agent.DebugActivity",
			ExtraKey:             "command",
			ResultPath:           "/storage/emulated/0/Android/data/xyz.block.gosling/files/latest_command_result.txt",
			PollInterval:         time.Second,
			MaxWait:              90 * time.Second,
			CommandTimeout:       30 * time.Second,
			Breaker:              BreakerConfig{MaxFailures: 3, Cooldown: 30 * time.Second},
			ScreenshotDevicePath: "/sdcard/latest_command_result.png",
			ScreenshotLocalPath:  "/tmp/latest_command_result.png",
		},
		Status: StatusConfig{
			StatusFile: "/tmp/goose-status",
			ResultFile: "/tmp/result.md",
		},
		Cleanup: CleanupConfig{
			Enabled:  true,
			Dir:      filepath.Join(tmp, "personal_shopper"),
			MaxAge:   24 * time.Hour,
			Schedule: "@every 1h",
		},
		Apps: AppsConfig{
			Root:            filepath.Join(defaultDataDir(), "apps"),
			Host:            "localhost",
			DefaultPort:     8000,
			StartTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			PortEnv:         "GOOSE_PORT",
			PortFallback:    "3000",
			SecretEnv:       "GOOSE_SERVER__SECRET_KEY",
			Browser:         "system",
		},
	}
}

// Load reads a YAML config file, applies env var overrides and validates.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := validatePermissions(path); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps GOOSETOOLS_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOOSETOOLS_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("GOOSETOOLS_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("GOOSETOOLS_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("GOOSETOOLS_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("GOOSETOOLS_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("GOOSETOOLS_DEVICE_ADB_PATH"); v != "" {
		cfg.Device.ADBPath = v
	}
	if v := os.Getenv("GOOSETOOLS_DEVICE_SERIAL"); v != "" {
		cfg.Device.Serial = v
	}
	if v := os.Getenv("GOOSETOOLS_DEVICE_RESULT_PATH"); v != "" {
		cfg.Device.ResultPath = v
	}
	if v := os.Getenv("GOOSETOOLS_DEVICE_MAX_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Device.MaxWait = d
		}
	}
	if v := os.Getenv("GOOSETOOLS_DEVICE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Device.PollInterval = d
		}
	}
	if v := os.Getenv("GOOSETOOLS_STATUS_FILE"); v != "" {
		cfg.Status.StatusFile = v
	}
	if v := os.Getenv("GOOSETOOLS_RESULT_FILE"); v != "" {
		cfg.Status.ResultFile = v
	}
	if v := os.Getenv("GOOSETOOLS_CLEANUP_ENABLED"); v == "false" {
		cfg.Cleanup.Enabled = false
	}
	if v := os.Getenv("GOOSETOOLS_APPS_ROOT"); v != "" {
		cfg.Apps.Root = v
	}
	if v := os.Getenv("GOOSETOOLS_APPS_DEFAULT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Apps.DefaultPort = n
		}
	}
	if v := os.Getenv("GOOSETOOLS_APPS_BROWSER"); v != "" {
		cfg.Apps.Browser = v
	}
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
