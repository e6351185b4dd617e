package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns ~/.quicks.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quicks")
}

// ConfigPath returns the config file path inside a data dir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// StorePath returns the cache store path for a backend. The sqlite
// backend uses a single file, pebble a directory.
func StorePath(dataDir, backend string) string {
	if backend == BackendPebble {
		return filepath.Join(dataDir, "cache.pebble")
	}
	return filepath.Join(dataDir, "quicks.db")
}

// SocketPath returns the daemon's unix socket path.
func SocketPath(dataDir string) string {
	return filepath.Join(dataDir, "quicksd.sock")
}

// LockPath returns the data-dir lock file path.
func LockPath(dataDir string) string {
	return filepath.Join(dataDir, "LOCK")
}

// LogDir returns the log directory inside a data dir.
func LogDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

// LogPath returns the daemon log file path.
func LogPath(dataDir string) string {
	return filepath.Join(LogDir(dataDir), "quicksd.log")
}

// EnsureDirs creates the data directory tree with owner-only permissions.
func EnsureDirs(dataDir string) error {
	for _, d := range []string{dataDir, LogDir(dataDir)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
