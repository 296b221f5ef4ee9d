package config

import (
	"fmt"
	"os"
)

const sampleConfig = `# mirrord configuration

# Cron expressions (5-field) that trigger sync passes. The earliest next
# occurrence across all schedules wins.
schedules:
  - "0 * * * *"      # every hour
  - "30 6 * * 1"     # Mondays at 06:30

# Local directory the mirror tree is written into:
# {base_path}/{category}/{filename}
base_path: ./mirror

# Per-file download timeout.
fetch_timeout: 5s

# category -> local filename -> remote URL
mirrors:
  images:
    logo.png: https://example.com/assets/logo.png
  data:
    feed.json: https://example.com/api/feed.json

# Optional admin HTTP server (healthz, status, metrics). Empty disables it.
admin:
  listen: ":8085"

# Optional pass-summary history (serves /status; pruned periodically).
history:
  path: ./mirrord-history.db
  retention: 720h
  prune_interval: 1h

# Optional NATS pass-completed events.
events:
  enabled: false
  nats_url: nats://localhost:4222
  subject: mirrord.pass.completed
`

// Init writes a commented sample configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
