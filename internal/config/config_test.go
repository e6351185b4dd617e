package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.BaseURL = "https://api.example.com"
	cfg.Backend = BackendPebble
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.BaseURL != "https://api.example.com" {
		t.Errorf("BaseURL = %q", loaded.BaseURL)
	}
	if loaded.Backend != BackendPebble {
		t.Errorf("Backend = %q, want pebble", loaded.Backend)
	}
	if loaded.FreshnessWindow() != time.Hour {
		t.Errorf("FreshnessWindow = %v, want 1h", loaded.FreshnessWindow())
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("base_url = \"http://localhost:3000\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("Backend = %q, want sqlite default", cfg.Backend)
	}
	if cfg.FreshnessWindowMS != 3_600_000 {
		t.Errorf("FreshnessWindowMS = %d, want 3600000", cfg.FreshnessWindowMS)
	}
	if cfg.RefreshInterval() != time.Minute {
		t.Errorf("RefreshInterval = %v, want 1m", cfg.RefreshInterval())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"missing base_url", func(c *Config) { c.BaseURL = "" }, true},
		{"relative base_url", func(c *Config) { c.BaseURL = "api.example.com/v1" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "leveldb" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.BaseURL = "https://api.example.com"
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.BaseURL = "https://api.example.com"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestStorePathPerBackend(t *testing.T) {
	if got := StorePath("/data", BackendSQLite); got != "/data/quicks.db" {
		t.Errorf("sqlite path = %q", got)
	}
	if got := StorePath("/data", BackendPebble); got != "/data/cache.pebble" {
		t.Errorf("pebble path = %q", got)
	}
}
