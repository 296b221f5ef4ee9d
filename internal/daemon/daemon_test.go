package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mirrord/internal/config"
	"git.home.luguber.info/inful/mirrord/internal/mirror"
)

func testConfig(t *testing.T, mirrors mirror.Spec) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Schedules:    []string{"0 * * * *"},
		Mirrors:      mirrors,
		BasePath:     t.TempDir(),
		FetchTimeout: config.Duration(2 * time.Second),
		History: config.HistoryConfig{
			Path:          ":memory:",
			Retention:     config.Duration(time.Hour),
			PruneInterval: config.Duration(time.Hour),
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewDaemon(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		d, err := NewDaemon(testConfig(t, mirror.Spec{"images": {"logo.png": "https://example.com/logo.png"}}))
		require.NoError(t, err)
		t.Cleanup(func() { _ = d.Stop(context.Background()) })
		require.NotNil(t, d.store)
	})

	t.Run("malformed schedule rejected", func(t *testing.T) {
		cfg := testConfig(t, mirror.Spec{"images": {"logo.png": "https://example.com/logo.png"}})
		cfg.Schedules = []string{"not a cron"}
		_, err := NewDaemon(cfg)
		require.Error(t, err)
	})
}

func TestRunSyncPass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	cfg := testConfig(t, mirror.Spec{"data": {"a.txt": srv.URL + "/a", "b.txt": srv.URL + "/b"}})
	d, err := NewDaemon(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	d.runSyncPass(context.Background())

	d.mu.RLock()
	last := d.lastSummary
	d.mu.RUnlock()
	require.NotNil(t, last)
	require.NotEmpty(t, last.ID)
	require.Equal(t, 2, last.Updated)
	require.Zero(t, last.Failed)
	require.FileExists(t, filepath.Join(cfg.BasePath, "data", "a.txt"))

	records, err := d.store.RecentPasses(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, last.ID, records[0].ID)
}

func TestStatusHandlers(t *testing.T) {
	cfg := testConfig(t, mirror.Spec{"images": {"logo.png": "https://example.com/logo.png"}})
	d, err := NewDaemon(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Stop(context.Background()) })
	d.startTime = time.Now()

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		d.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"status":"healthy"`)
		require.Contains(t, rec.Body.String(), "next_run")
	})

	t.Run("status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		d.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "next_run")
	})
}

func TestReload(t *testing.T) {
	cfg := testConfig(t, mirror.Spec{"images": {"logo.png": "https://example.com/logo.png"}})
	d, err := NewDaemon(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	updated := testConfig(t, mirror.Spec{"data": {"feed.json": "https://example.com/feed.json"}})
	updated.Schedules = []string{"*/5 * * * *"}
	require.NoError(t, d.Reload(updated))

	d.mu.RLock()
	mirrors := d.cfg.Mirrors
	d.mu.RUnlock()
	require.Contains(t, mirrors, "data")
	require.NotContains(t, mirrors, "images")

	// */5 yields a nearer occurrence than the old hourly rule in most of the
	// hour; at minimum the next run stays in the future.
	now := time.Now()
	require.True(t, d.scheduler.NextRun(now).After(now))
}

func TestStartStop(t *testing.T) {
	cfg := testConfig(t, mirror.Spec{"images": {"logo.png": "https://example.com/logo.png"}})
	cfg.History.Path = "" // no store: exercise the nil-store path
	d, err := NewDaemon(cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Start(context.Background()) }()

	// Let the loop reach its first wait, then stop.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, d.Stop(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestConfigWatcherReload(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mirrord.yaml")
	base := t.TempDir()
	writeYAML := func(url string) {
		content := `
schedules:
  - "0 * * * *"
base_path: ` + base + `
mirrors:
  images:
    logo.png: ` + url + `
`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	}
	writeYAML("https://example.com/logo.png")

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	d, err := NewDaemonWithConfigFile(cfg, configPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	d.watcher.debounceTime = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.watcher.Start(ctx))

	writeYAML("https://example.com/new-logo.png")

	require.Eventually(t, func() bool {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return d.cfg.Mirrors["images"]["logo.png"] == "https://example.com/new-logo.png"
	}, 5*time.Second, 50*time.Millisecond)
}
