package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend names for the cache store.
const (
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
)

// Config represents <data-dir>/config.toml.
type Config struct {
	// BaseURL is the remote source serving /chats, /messages, /tasks
	// and /profile as JSON.
	BaseURL string `toml:"base_url"`

	// Backend selects the cache store: "sqlite" (default) or "pebble".
	Backend string `toml:"backend"`

	// FreshnessWindowMS is how long a persisted collection is trusted
	// before it is re-fetched. Defaults to one hour.
	FreshnessWindowMS int64 `toml:"freshness_window_ms"`

	// RefreshIntervalMS is the background refresher tick. Defaults to
	// one minute; zero disables the refresher.
	RefreshIntervalMS int64 `toml:"refresh_interval_ms"`

	// Listen optionally overrides the unix socket with a TCP address,
	// e.g. "127.0.0.1:8970".
	Listen string `toml:"listen"`
}

// Default returns a config with all defaults applied.
func Default() *Config {
	return &Config{
		Backend:           BackendSQLite,
		FreshnessWindowMS: time.Hour.Milliseconds(),
		RefreshIntervalMS: time.Minute.Milliseconds(),
	}
}

// Load reads config from the given path and applies defaults for unset
// fields. Returns an error if the file is missing or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendSQLite
	}
	if cfg.FreshnessWindowMS <= 0 {
		cfg.FreshnessWindowMS = time.Hour.Milliseconds()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate checks the fields a misconfigured daemon would trip over.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: base_url is required")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: base_url %q is not an absolute URL", c.BaseURL)
	}
	switch c.Backend {
	case BackendSQLite, BackendPebble:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	return nil
}

// FreshnessWindow returns the window as a duration.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowMS) * time.Millisecond
}

// RefreshInterval returns the refresher tick as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}
