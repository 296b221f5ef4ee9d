package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/mirrord/internal/history"
	"git.home.luguber.info/inful/mirrord/internal/logfields"
)

// maintenanceScheduler runs periodic housekeeping (history pruning) on a
// gocron scheduler, independent of the sync loop.
type maintenanceScheduler struct {
	scheduler gocron.Scheduler
	store     *history.Store
	retention time.Duration
	interval  time.Duration
}

func newMaintenanceScheduler(store *history.Store, retention, interval time.Duration) *maintenanceScheduler {
	return &maintenanceScheduler{
		store:     store,
		retention: retention,
		interval:  interval,
	}
}

// Start schedules the prune job and begins the scheduler.
func (m *maintenanceScheduler) Start() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	m.scheduler = s

	if _, err := s.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(m.pruneHistory),
		gocron.WithName("history-prune"),
	); err != nil {
		return fmt.Errorf("failed to create prune job: %w", err)
	}

	s.Start()
	slog.Info("Maintenance scheduler started",
		slog.Duration("prune_interval", m.interval),
		slog.Duration("retention", m.retention))
	return nil
}

// Stop gracefully shuts down the scheduler.
func (m *maintenanceScheduler) Stop() error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Shutdown()
}

func (m *maintenanceScheduler) pruneHistory() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-m.retention)
	removed, err := m.store.Prune(ctx, cutoff)
	if err != nil {
		slog.Error("History prune failed", logfields.Error(err))
		return
	}
	if removed > 0 {
		slog.Info("Pruned pass history", slog.Int64("removed", removed))
	}
}
