// Package config centralizes client configuration. The HTTP gateway is the
// only consumer of the backend base URL; no other component holds a literal
// endpoint.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults mirror the backend contract; everything is overridable via
// environment (a .env file in the working directory is honored).
const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultAPITimeout     = 30 * time.Second
	DefaultSessionTimeout = 2 * time.Hour
)

// Config is the resolved client configuration.
type Config struct {
	// BaseURL is the backend origin, no trailing slash.
	BaseURL string
	// APITimeout bounds each backend round-trip.
	APITimeout time.Duration
	// SessionTimeout is the inactivity window before forced logout.
	SessionTimeout time.Duration
	// StateDir holds persisted client state (credentials, histories, downloads).
	StateDir string
}

// Load resolves configuration from .env and the environment, falling back to
// defaults. It never fails: a missing .env or malformed value degrades to the
// default.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		BaseURL:        getString("EQUITERM_API_BASE_URL", DefaultBaseURL),
		APITimeout:     getMillis("EQUITERM_API_TIMEOUT_MS", DefaultAPITimeout),
		SessionTimeout: getMillis("EQUITERM_SESSION_TIMEOUT_MS", DefaultSessionTimeout),
		StateDir:       getString("EQUITERM_STATE_DIR", defaultStateDir()),
	}
}

// DownloadsDir is where viz images and exported workbooks are written.
func (c *Config) DownloadsDir() string {
	return filepath.Join(c.StateDir, "downloads")
}

func defaultStateDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "equiterm")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "equiterm")
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
