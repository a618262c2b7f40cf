// ABOUTME: Configuration loading from environment and XDG config file
// ABOUTME: Handles backend URL, OAuth credentials, db path, and install ID
package config

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
)

const appName = "skiff"

// Config stores backend endpoint and local settings. Environment variables
// override file values:
// - SKIFF_BACKEND_URL
// - SKIFF_BUS_ADDR
// - SKIFF_DB_PATH
// - GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET
type Config struct {
	BackendURL   string `json:"backend_url"`
	BusAddr      string `json:"bus_addr"`
	DBPath       string `json:"db_path,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	InstallID    string `json:"install_id"`
}

// ConfigDir returns the XDG-compliant directory for skiff configuration.
func ConfigDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// ConfigPath returns the XDG-compliant path of the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// DefaultDBPath returns the default SQLite database location.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, appName, "skiff.db")
}

// CachePath returns the directory for the ephemeral session cache.
func CachePath() string {
	return filepath.Join(xdg.CacheHome, appName, "session")
}

// Load reads configuration, creating defaults (including a fresh install ID)
// on first run. A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BackendURL: "http://localhost:9090",
		BusAddr:    "127.0.0.1:7313",
	}

	path := ConfigPath()
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
	} else {
		defer func() { _ = f.Close() }()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}

	if cfg.InstallID == "" {
		cfg.InstallID = GenerateInstallID()
		if err := Save(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes configuration to the XDG data directory.
func Save(cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("SKIFF_BACKEND_URL"); url != "" {
		cfg.BackendURL = url
	}
	if addr := os.Getenv("SKIFF_BUS_ADDR"); addr != "" {
		cfg.BusAddr = addr
	}
	if path := os.Getenv("SKIFF_DB_PATH"); path != "" {
		cfg.DBPath = path
	}
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		cfg.ClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		cfg.ClientSecret = secret
	}
}

// GenerateInstallID returns a new ULID identifying this install.
func GenerateInstallID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
