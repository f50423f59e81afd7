package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/do/v2"

	auditimpl "github.com/foxseedlab/kiosko/external/audit"
	configloader "github.com/foxseedlab/kiosko/external/config"
	"github.com/foxseedlab/kiosko/external/discord"
	ledgerimpl "github.com/foxseedlab/kiosko/external/ledger"
	providerimpl "github.com/foxseedlab/kiosko/external/provider"
	"github.com/foxseedlab/kiosko/internal/config"
	discordpkg "github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/media"
	"github.com/foxseedlab/kiosko/internal/presence"
	"github.com/foxseedlab/kiosko/internal/router"
	"github.com/foxseedlab/kiosko/internal/session"
	"github.com/foxseedlab/kiosko/internal/workflow"
)

const (
	discordConnectTimeout = 20 * time.Second
	shutdownTimeout       = 30 * time.Second
	orphanSweepSchedule   = "@every 10m"
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching discord bot")
	if err := runBot(cfg, injector); err != nil {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	ledgerimpl.RegisterDI(injector)
	auditimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	providerimpl.RegisterDI(injector)
	media.RegisterDI(injector)
	session.RegisterDI(injector)
	router.RegisterDI(injector)
	workflow.RegisterDI(injector)
	presence.RegisterDI(injector)

	return injector
}

func runBot(cfg *config.Config, injector do.Injector) error {
	dc, err := do.Invoke[discordpkg.Client](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve discord client: %w", err)
	}
	r, err := do.Invoke[*router.Router](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve router: %w", err)
	}
	w, err := do.Invoke[*workflow.Workflows](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve workflows: %w", err)
	}
	sessions := do.MustInvoke[*session.Manager](injector)
	pipeline := do.MustInvoke[*media.Pipeline](injector)
	rotator := do.MustInvoke[*presence.Rotator](injector)

	sweeper, err := startBot(cfg, bot{dc: dc, router: r, workflows: w, pipeline: pipeline, rotator: rotator})
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	shutdown(injector, dc, r, sessions, rotator, sweeper)
	return nil
}

type bot struct {
	dc        discordpkg.Client
	router    *router.Router
	workflows *workflow.Workflows
	pipeline  *media.Pipeline
	rotator   *presence.Rotator
}

// startBot clears stale artifacts, connects, publishes commands and starts the
// background jobs. The download dir is swept before any interaction can arrive.
func startBot(cfg *config.Config, b bot) (*cron.Cron, error) {
	if _, err := b.pipeline.SweepOrphans(0); err != nil {
		slog.Warn("startup orphan sweep failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancel()

	slog.Info("startup: connecting to discord gateway")
	if err := b.dc.Connect(ctx); err != nil {
		return nil, fmt.Errorf("discord connect failed: %w", err)
	}
	slog.Info("startup: discord connected")

	b.workflows.Register(b.router)
	defs := b.workflows.Commands()
	if err := b.dc.UpsertSlashCommands(cfg.DiscordGuildID, defs); err != nil {
		_ = b.dc.Close()
		return nil, fmt.Errorf("failed to upsert slash commands for guild %q: %w", cfg.DiscordGuildID, err)
	}
	b.dc.RegisterInteractionHandler(b.router.Dispatch)
	slog.Info("discord handlers registered", "guild_id", cfg.DiscordGuildID, "commands", len(defs))

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(orphanSweepSchedule, func() {
		if _, err := b.pipeline.SweepOrphans(cfg.CommandTimeout + cfg.MediaGrace); err != nil {
			slog.Warn("orphan sweep failed", "error", err)
		}
	}); err != nil {
		_ = b.dc.Close()
		return nil, fmt.Errorf("failed to schedule orphan sweep: %w", err)
	}
	if err := b.rotator.Start(); err != nil {
		_ = b.dc.Close()
		return nil, fmt.Errorf("failed to start presence rotation: %w", err)
	}
	sweeper.Start()
	return sweeper, nil
}

func shutdown(injector do.Injector, dc discordpkg.Client, r *router.Router, sessions *session.Manager, rotator *presence.Rotator, sweeper *cron.Cron) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := r.Shutdown(ctx); err != nil {
		slog.Warn("in-flight interactions did not finish", "error", err)
	}
	sessions.ExpireAll(ctx)
	rotator.Stop()
	<-sweeper.Stop().Done()
	if err := dc.Close(); err != nil {
		slog.Error("discord close failed", "error", err)
	}
	if report := injector.ShutdownWithContext(ctx); report != nil && !report.Succeed {
		slog.Warn("dependency shutdown reported errors", "error", report.Error())
	}
}
