package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"goose-tools/internal/adapter/browser"
	"goose-tools/internal/adapter/shell"
	"goose-tools/internal/adapter/tool"
	"goose-tools/internal/infra/config"
	"goose-tools/internal/usecase/apps"
)

const appsInstructions = `Manage small static web apps stored on this machine.

Use the apps tool with an action:
- list, create, update_file, view_file, delete to work on app files
- serve, stop, open, status to run one app at a time on a local port

New apps start from an HTML/CSS/JS template. Scripts may use the placeholders
$GOOSE_PORT and $GOOSE_SERVER__SECRET_KEY; they are replaced with real values when served.`

// appsStack is the wired apps object graph.
type appsStack struct {
	registry   *tool.Registry
	controller *apps.Controller
	closers    []func() error
}

func newOpener(cfg config.AppsConfig, log *slog.Logger) (apps.Opener, func() error) {
	switch cfg.Browser {
	case "chrome":
		o := browser.NewChromeOpener(0, log)
		return o, o.Close
	case "none":
		return nil, nil
	default:
		return browser.NewSystemOpener(shell.NewLocalBackend(cfg.StartTimeout)), nil
	}
}

func buildApps(cfg *config.Config, log *slog.Logger) (*appsStack, error) {
	store, err := apps.NewStore(cfg.Apps.Root, log)
	if err != nil {
		return nil, err
	}

	opener, closeOpener := newOpener(cfg.Apps, log)
	ctrl := apps.NewController(store, opener, apps.ControllerConfig{
		Host:            cfg.Apps.Host,
		DefaultPort:     cfg.Apps.DefaultPort,
		StartTimeout:    cfg.Apps.StartTimeout,
		ShutdownTimeout: cfg.Apps.ShutdownTimeout,
		Handler: apps.HandlerConfig{
			Env: apps.EnvConfig{
				PortEnv:      cfg.Apps.PortEnv,
				PortFallback: cfg.Apps.PortFallback,
				SecretEnv:    cfg.Apps.SecretEnv,
			},
			RateLimitPerMin: cfg.Apps.RateLimitPerMin,
		},
	}, log)

	reg := tool.NewRegistry(log)
	reg.MustRegister(tool.NewAppsTool(store, ctrl, log))

	stack := &appsStack{registry: reg, controller: ctrl}
	if closeOpener != nil {
		stack.closers = append(stack.closers, closeOpener)
	}
	return stack, nil
}

// close stops the app server and releases the browser.
func (s *appsStack) close(ctx context.Context, log *slog.Logger) {
	if _, err := s.controller.Stop(ctx); err != nil {
		log.Warn("stop app server", "error", err)
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Warn("close browser", "error", err)
		}
	}
}

func runApps() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, "apps")
	if err != nil {
		return err
	}
	defer rt.shutdown()

	stack, err := buildApps(rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer stack.close(context.Background(), rt.log)

	srv := tool.NewMCPServer("Goose Apps", version, appsInstructions, stack.registry, rt.log)
	rt.log.Info("apps server starting", "version", version, "root", rt.cfg.Apps.Root)
	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
