package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"goose-tools/internal/adapter/device"
	"goose-tools/internal/adapter/shell"
	"goose-tools/internal/adapter/tool"
	"goose-tools/internal/infra/config"
	"goose-tools/internal/usecase/cleanup"
	"goose-tools/internal/usecase/relay"
	"goose-tools/internal/usecase/report"
)

const shopperInstructions = `You are a personal shopping assistant driving an agent on the user's phone.
The phone agent can open shopping apps, search the web, read reviews, add items to carts
and look at calendars, notes, messages and email.

Keep replies very short: the user reads them on a phone screen.

How to work:
- Start with what_apps and shopper_profile to learn what is installed and what the user likes.
- Use shop_helper with clear, specific instructions (which app, what to search, what to compare).
  If an instruction does not work, rephrase it and try again.
- Use web_search to cross-check prices and reviews outside a single app.
- Call update_status often so the user can see what stage you are at.
- Use take_screenshot when a product or screen is worth showing.
- Before finishing, check the cart matches the original request, then call write_result
  with a brief markdown summary of what you found and did.

Do not overdo research: be efficient and get to the point.`

// shopperStack is the wired shopper object graph.
type shopperStack struct {
	registry *tool.Registry
	relay    *relay.Relay
	writer   *report.Writer
}

func buildShopper(cfg *config.Config, log *slog.Logger) *shopperStack {
	backend := shell.NewBreakerBackend(shell.NewLocalBackend(cfg.Device.CommandTimeout), shell.BreakerConfig{
		MaxFailures: cfg.Device.Breaker.MaxFailures,
		Cooldown:    cfg.Device.Breaker.Cooldown,
	}, log)
	adb := device.NewADB(backend, cfg.Device, log)
	waiter := &relay.PollWaiter{Interval: cfg.Device.PollInterval, MaxWait: cfg.Device.MaxWait}
	r := relay.New(adb, waiter, cfg.Device.MaxWait, log)
	w := report.NewWriter(cfg.Status.StatusFile, cfg.Status.ResultFile)

	reg := tool.NewRegistry(log)
	reg.MustRegister(
		tool.NewShopHelperTool(r, log),
		tool.NewShopperProfileTool(r, log),
		tool.NewWhatAppsTool(r, log),
		tool.NewWebSearchTool(r, log),
		tool.NewScreenshotTool(r, log),
		tool.NewStatusTool(w, log),
		tool.NewResultTool(w, log),
	)
	return &shopperStack{registry: reg, relay: r, writer: w}
}

func newSweeper(cfg *config.Config, log *slog.Logger) *cleanup.Sweeper {
	return &cleanup.Sweeper{Dir: cfg.Cleanup.Dir, MaxAge: cfg.Cleanup.MaxAge, Logger: log}
}

func runShopper() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, "shopper")
	if err != nil {
		return err
	}
	defer rt.shutdown()
	cfg, log := rt.cfg, rt.log

	if cfg.Cleanup.Enabled {
		sw := newSweeper(cfg, log)
		if n, err := sw.Sweep(); err != nil {
			log.Warn("startup sweep failed", "error", err)
		} else if n > 0 {
			log.Info("removed stale screenshots", "count", n)
		}
		c := cron.New()
		if _, err := sw.Schedule(c, cfg.Cleanup.Schedule); err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
	}

	stack := buildShopper(cfg, log)
	if status := stack.relay.Connection(ctx); !status.Connected {
		log.Warn("device not ready, tools will report the failure", "reason", status.Reason)
	}

	srv := tool.NewMCPServer("Personal Shopper", version, shopperInstructions, stack.registry, log)
	log.Info("shopper server starting", "version", version, "tools", len(stack.registry.List()))
	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
