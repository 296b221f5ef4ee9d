package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/mirrord/internal/config"
	"git.home.luguber.info/inful/mirrord/internal/fetch"
	"git.home.luguber.info/inful/mirrord/internal/mirror"
)

// SyncCmd implements the 'sync' command: one full pass, then exit.
type SyncCmd struct{}

func (s *SyncCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("Starting sync pass",
		slog.Int("categories", len(cfg.Mirrors)),
		slog.String("base_path", cfg.BasePath))

	engine := mirror.NewEngine(cfg.BasePath, fetch.NewFetcher(cfg.FetchTimeout.Std()))
	summary := engine.RunAll(ctx, cfg.Mirrors)

	if ctx.Err() != nil {
		slog.Info("Sync pass interrupted")
		return nil
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed to sync", summary.Failed, summary.Total())
	}
	return nil
}
