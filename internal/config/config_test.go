package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirrord.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
schedules:
  - "0 * * * *"
base_path: /tmp/mirror
mirrors:
  images:
    logo.png: https://example.com/logo.png
`

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, validConfig))
		require.NoError(t, err)
		require.Equal(t, []string{"0 * * * *"}, cfg.Schedules)
		require.Equal(t, "/tmp/mirror", cfg.BasePath)
		require.Equal(t, "https://example.com/logo.png", cfg.Mirrors["images"]["logo.png"])
	})

	t.Run("defaults applied", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, validConfig))
		require.NoError(t, err)
		require.Equal(t, 5*time.Second, cfg.FetchTimeout.Std())
		require.Equal(t, "mirrord.pass.completed", cfg.Events.Subject)
		require.Equal(t, 30*24*time.Hour, cfg.History.Retention.Std())
		require.Equal(t, time.Hour, cfg.History.PruneInterval.Std())
	})

	t.Run("duration strings parsed", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, validConfig+`
fetch_timeout: 250ms
history:
  retention: 72h
`))
		require.NoError(t, err)
		require.Equal(t, 250*time.Millisecond, cfg.FetchTimeout.Std())
		require.Equal(t, 72*time.Hour, cfg.History.Retention.Std())
	})

	t.Run("bad duration rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, validConfig+`
fetch_timeout: soon
`))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed cron is fatal", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
schedules:
  - "99 99 * * *"
mirrors:
  images:
    logo.png: https://example.com/logo.png
`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid schedule")
	})

	t.Run("no schedules rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
mirrors:
  images:
    logo.png: https://example.com/logo.png
`))
		require.Error(t, err)
	})

	t.Run("empty mirrors rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
schedules:
  - "0 * * * *"
mirrors: {}
`))
		require.Error(t, err)
	})

	t.Run("bad URL rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
schedules:
  - "0 * * * *"
mirrors:
  images:
    logo.png: "not a url"
`))
		require.Error(t, err)
	})

	t.Run("non-http scheme rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
schedules:
  - "0 * * * *"
mirrors:
  images:
    logo.png: "ftp://example.com/logo.png"
`))
		require.Error(t, err)
	})

	t.Run("env expansion", func(t *testing.T) {
		t.Setenv("MIRROR_HOST", "cdn.example.com")
		cfg, err := Load(writeConfig(t, `
schedules:
  - "0 * * * *"
mirrors:
  images:
    logo.png: https://${MIRROR_HOST}/logo.png
`))
		require.NoError(t, err)
		require.Equal(t, "https://cdn.example.com/logo.png", cfg.Mirrors["images"]["logo.png"])
	})

	t.Run("events enabled requires url", func(t *testing.T) {
		_, err := Load(writeConfig(t, validConfig+`
events:
  enabled: true
`))
		require.Error(t, err)
	})
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirrord.yaml")
	require.NoError(t, Init(path, false))

	// The sample must load cleanly.
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Schedules)

	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}
