// Package config loads and validates the mirrord configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mirrord/internal/mirror"
	"git.home.luguber.info/inful/mirrord/internal/schedule"
)

// Duration accepts human-readable duration values in YAML ("5s", "12h").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the application configuration.
type Config struct {
	// Schedules is the set of cron expressions driving sync passes.
	Schedules []string `yaml:"schedules"`
	// Mirrors maps category -> local filename -> remote URL.
	Mirrors mirror.Spec `yaml:"mirrors"`
	// BasePath is the local directory files are mirrored into.
	BasePath string `yaml:"base_path"`
	// FetchTimeout bounds a single download attempt.
	FetchTimeout Duration `yaml:"fetch_timeout,omitempty"`

	Admin   AdminConfig   `yaml:"admin,omitempty"`
	Events  EventsConfig  `yaml:"events,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
}

// AdminConfig configures the daemon's admin HTTP server.
type AdminConfig struct {
	// Listen is the admin server address; empty disables the server.
	Listen string `yaml:"listen,omitempty"`
}

// EventsConfig configures optional NATS pass-completed events.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// HistoryConfig configures the pass-summary store.
type HistoryConfig struct {
	// Path is the SQLite database path; empty disables history.
	Path string `yaml:"path,omitempty"`
	// Retention is how long pass rows are kept before pruning.
	Retention Duration `yaml:"retention,omitempty"`
	// PruneInterval is how often the maintenance job runs.
	PruneInterval Duration `yaml:"prune_interval,omitempty"`
}

// Load loads configuration from the specified file. Environment variables
// referenced in the YAML (${VAR}) are expanded after .env files are applied.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		// .env files are optional; the process environment still applies.
		fmt.Fprintf(os.Stderr, "Note: no .env file loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasePath == "" {
		c.BasePath = "./mirror"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = Duration(5 * time.Second)
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "mirrord.pass.completed"
	}
	if c.History.Retention <= 0 {
		c.History.Retention = Duration(30 * 24 * time.Hour)
	}
	if c.History.PruneInterval <= 0 {
		c.History.PruneInterval = Duration(time.Hour)
	}
}

// Validate rejects configurations that must not reach the scheduler. A
// malformed cron expression is fatal here so it can never silently drop out
// of the schedule at runtime.
func (c *Config) Validate() error {
	if len(c.Schedules) == 0 {
		return fmt.Errorf("at least one schedule is required")
	}
	if _, err := schedule.ParseAll(c.Schedules); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	if len(c.Mirrors) == 0 {
		return fmt.Errorf("at least one mirror category is required")
	}
	if err := c.Mirrors.Validate(); err != nil {
		return fmt.Errorf("invalid mirror spec: %w", err)
	}
	for category, files := range c.Mirrors {
		for name, raw := range files {
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("file %s/%s: invalid URL %q", category, name, raw)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("file %s/%s: unsupported scheme %q", category, name, u.Scheme)
			}
		}
	}
	if c.Events.Enabled && c.Events.NATSURL == "" {
		return fmt.Errorf("events enabled but nats_url is empty")
	}
	return nil
}

// Rules parses the configured schedules. Validate has already run for loaded
// configs, so this cannot fail after Load.
func (c *Config) Rules() ([]schedule.Rule, error) {
	return schedule.ParseAll(c.Schedules)
}
