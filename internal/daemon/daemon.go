// Package daemon wires the scheduler, sync engine, and supporting services
// into a long-running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mirrord/internal/config"
	"git.home.luguber.info/inful/mirrord/internal/events"
	"git.home.luguber.info/inful/mirrord/internal/fetch"
	"git.home.luguber.info/inful/mirrord/internal/history"
	"git.home.luguber.info/inful/mirrord/internal/logfields"
	"git.home.luguber.info/inful/mirrord/internal/metrics"
	"git.home.luguber.info/inful/mirrord/internal/mirror"
	"git.home.luguber.info/inful/mirrord/internal/schedule"
)

// Daemon owns the sync loop and its supporting services (admin server,
// history store, event publisher, config watcher, maintenance jobs).
type Daemon struct {
	mu  sync.RWMutex
	cfg *config.Config

	scheduler *schedule.Scheduler
	engine    *mirror.Engine
	recorder  metrics.Recorder
	registry  *prom.Registry
	store     *history.Store
	publisher events.Publisher

	configPath  string
	watcher     *ConfigWatcher
	maintenance *maintenanceScheduler
	httpServer  *adminServer

	stopChan  chan struct{}
	stopOnce  sync.Once
	startTime time.Time

	lastSummary *history.PassRecord
}

// NewDaemon creates a daemon from a validated configuration.
func NewDaemon(cfg *config.Config) (*Daemon, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, fmt.Errorf("parse schedules: %w", err)
	}

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	fetcher := fetch.NewFetcher(cfg.FetchTimeout.Std())
	engine := mirror.NewEngine(cfg.BasePath, fetcher).WithRecorder(recorder)

	scheduler := schedule.NewScheduler(rules)
	scheduler.SetNextRunHook(recorder.SetNextRun)

	d := &Daemon{
		cfg:       cfg,
		scheduler: scheduler,
		engine:    engine,
		recorder:  recorder,
		registry:  registry,
		publisher: events.NoopPublisher{},
		stopChan:  make(chan struct{}),
	}

	if cfg.History.Path != "" {
		store, err := history.NewStore(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		d.store = store
	}

	if cfg.Events.Enabled {
		publisher, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			if d.store != nil {
				_ = d.store.Close()
			}
			return nil, fmt.Errorf("create event publisher: %w", err)
		}
		d.publisher = publisher
	}

	return d, nil
}

// NewDaemonWithConfigFile creates a daemon that also watches configPath and
// hot-reloads schedules and the mirror spec on change.
func NewDaemonWithConfigFile(cfg *config.Config, configPath string) (*Daemon, error) {
	d, err := NewDaemon(cfg)
	if err != nil {
		return nil, err
	}
	d.configPath = configPath

	watcher, err := NewConfigWatcher(configPath, d)
	if err != nil {
		d.closeServices()
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	d.watcher = watcher
	return d, nil
}

// Start runs the daemon until ctx is cancelled or Stop is called. It blocks
// in the scheduling loop; supporting services run in their own goroutines.
func (d *Daemon) Start(ctx context.Context) error {
	d.startTime = time.Now()

	runCtx, cancel := d.stopAwareContext(ctx)
	defer cancel()

	if d.cfg.Admin.Listen != "" {
		srv, err := newAdminServer(d, d.cfg.Admin.Listen)
		if err != nil {
			return fmt.Errorf("start admin server: %w", err)
		}
		d.httpServer = srv
	}

	if d.store != nil {
		d.maintenance = newMaintenanceScheduler(d.store, d.cfg.History.Retention.Std(), d.cfg.History.PruneInterval.Std())
		if err := d.maintenance.Start(); err != nil {
			return fmt.Errorf("start maintenance scheduler: %w", err)
		}
	}

	// Log before the watcher starts: once it is running, Reload may mutate
	// the config fields concurrently.
	slog.Info("Daemon started",
		slog.Int("schedules", len(d.cfg.Schedules)),
		slog.Int("categories", len(d.cfg.Mirrors)),
		logfields.Path(d.cfg.BasePath))

	if d.watcher != nil {
		if err := d.watcher.Start(runCtx); err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
	}

	err := d.scheduler.Run(runCtx, d.runSyncPass)
	if errors.Is(err, context.Canceled) {
		// Clean shutdown, not a failure.
		return nil
	}
	return err
}

// Stop shuts the daemon down: the loop exits without starting a new cycle
// and supporting services are closed.
func (d *Daemon) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stopChan) })

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.maintenance != nil {
		if err := d.maintenance.Stop(); err != nil {
			slog.Error("Error stopping maintenance scheduler", logfields.Error(err))
		}
	}
	if d.httpServer != nil {
		if err := d.httpServer.Shutdown(ctx); err != nil {
			slog.Error("Error stopping admin server", logfields.Error(err))
		}
	}
	d.closeServices()

	slog.Info("Daemon stopped")
	return nil
}

func (d *Daemon) closeServices() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Error("Error closing history store", logfields.Error(err))
		}
	}
	d.publisher.Close()
}

// runSyncPass executes one full sync pass and records its summary.
func (d *Daemon) runSyncPass(ctx context.Context) {
	passID := uuid.NewString()
	started := time.Now()

	d.mu.RLock()
	spec := d.cfg.Mirrors
	d.mu.RUnlock()

	slog.Info("Starting sync pass",
		logfields.PassID(passID),
		slog.Int("categories", len(spec)))

	summary := d.engine.RunAll(ctx, spec)
	finished := time.Now()

	record := history.PassRecord{
		ID:         passID,
		StartedAt:  started,
		FinishedAt: finished,
		Updated:    summary.Updated,
		Unchanged:  summary.Unchanged,
		TimedOut:   summary.TimedOut,
		Failed:     summary.Failed,
		Duration:   summary.Duration,
	}

	d.mu.Lock()
	d.lastSummary = &record
	d.mu.Unlock()

	if d.store != nil {
		// Record with its own context so a shutdown mid-pass still persists
		// the truncated summary.
		recordCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.store.RecordPass(recordCtx, record); err != nil {
			slog.Error("Failed to record pass history", logfields.PassID(passID), logfields.Error(err))
		}
	}

	if err := d.publisher.PublishPassCompleted(events.PassCompleted{
		PassID:     passID,
		StartedAt:  started,
		FinishedAt: finished,
		Updated:    summary.Updated,
		Unchanged:  summary.Unchanged,
		TimedOut:   summary.TimedOut,
		Failed:     summary.Failed,
	}); err != nil {
		slog.Error("Failed to publish pass event", logfields.PassID(passID), logfields.Error(err))
	}
}

// Reload applies a changed configuration. Only schedules and the mirror spec
// are hot-swappable; base path, admin, history, and events settings require a
// restart.
func (d *Daemon) Reload(cfg *config.Config) error {
	rules, err := cfg.Rules()
	if err != nil {
		return fmt.Errorf("parse schedules: %w", err)
	}

	d.mu.Lock()
	d.cfg.Schedules = cfg.Schedules
	d.cfg.Mirrors = cfg.Mirrors
	d.mu.Unlock()

	d.scheduler.SetRules(rules)
	slog.Info("Configuration reloaded",
		slog.Int("schedules", len(cfg.Schedules)),
		slog.Int("categories", len(cfg.Mirrors)))
	return nil
}

// stopAwareContext returns a context cancelled when either the parent is done
// or the daemon stop channel is closed. This lets Stop unblock in-flight work
// even when Start was given context.Background().
func (d *Daemon) stopAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-d.stopChan:
			cancel()
		case <-ctx.Done():
			// parent cancelled; nothing else to do
		}
	}()
	return ctx, cancel
}
