package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"goose-tools/internal/infra/config"
	"goose-tools/internal/infra/logger"
	"goose-tools/internal/infra/tracer"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "--help", "-h", "help":
		showUsage()
		return
	case "shopper":
		err = runShopper()
	case "apps":
		err = runApps()
	case "selftest":
		err = runSelftest()
	case "status":
		err = runStatus()
	case "watch":
		err = runWatch()
	case "cleanup":
		err = runCleanup()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'goose-tools --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`goose-tools - MCP tool servers for a phone agent and local web apps

USAGE:
    goose-tools COMMAND [FLAGS]

COMMANDS:
    shopper     Serve the Personal Shopper tools over MCP stdio
    apps        Serve the web app manager tool over MCP stdio
    selftest    Check device, paths and tool wiring
                Flags: --live (also relay a real command to the device)
    status      Print the current status and result files
    watch       Follow the status and result files in the terminal
    cleanup     Remove stale screenshot captures now

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./goose-tools.yaml)

CONFIGURATION:
    Config file: ./goose-tools.yaml (or $GOOSETOOLS_CONFIG)
    Environment: GOOSETOOLS_* variables override config

EXAMPLES:
    goose-tools shopper                          # Run as an MCP extension
    goose-tools apps --config ~/apps.yaml        # Custom config
    goose-tools selftest --live                  # Talk to the attached phone
    goose-tools watch                            # Follow agent progress`)
}

// configPath returns the config file path from --config, $GOOSETOOLS_CONFIG
// or the default.
func configPath() string {
	return configPathFrom(os.Args, os.Getenv("GOOSETOOLS_CONFIG"))
}

func configPathFrom(args []string, env string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if env != "" {
		return env
	}
	return "goose-tools.yaml"
}

func hasFlag(name string) bool {
	for _, arg := range os.Args[2:] {
		if arg == name {
			return true
		}
	}
	return false
}

// session holds what every long-running subcommand sets up first.
type session struct {
	cfg      *config.Config
	log      *slog.Logger
	shutdown func()
}

// bootstrap loads config and initialises logging and tracing for service.
func bootstrap(ctx context.Context, service string) (*session, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Logger, service)
	if err != nil {
		return nil, err
	}

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer, service)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("tracer: %w", err)
	}

	return &session{
		cfg: cfg,
		log: log,
		shutdown: func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Warn("tracer shutdown failed", "error", err)
			}
			_ = closeLog()
		},
	}, nil
}
