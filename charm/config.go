// ABOUTME: Mirror settings for the charm backend, derived from the app's mirror config
// ABOUTME: Tracks the last successful sync so stale local data is pulled before it is read

package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/charm/kv"

	"github.com/incial/crm/config"
)

// DefaultCharmHost is the self-hosted charm server.
const DefaultCharmHost = "charm.2389.dev"

// settingsFile holds the per-database sync state next to the other app data.
const settingsFile = "charm-mirror.json"

// Config holds the charm mirror settings for one key prefix.
type Config struct {
	Host string `json:"host,omitempty"`

	// AutoSync pushes after every mirror write.
	AutoSync bool `json:"auto_sync"`

	// StaleThreshold is how long after LastSync a pull is forced before reading.
	StaleThreshold time.Duration `json:"stale_threshold,omitempty"`

	// LastSync is when this device last completed a sync.
	LastSync time.Time `json:"last_sync,omitempty"`

	// Prefix names the charm kv database and prefixes the collection keys.
	Prefix string `json:"-"`

	path string
}

// DefaultConfig returns settings for the default key prefix.
func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
		Prefix:         config.AppName,
	}
}

// Database is the charm kv database the mirror opens.
func (c *Config) Database() string {
	if c.Prefix == "" {
		return config.AppName
	}
	return c.Prefix
}

// KeyPrefix is the prefix shared by every mirrored collection key.
func (c *Config) KeyPrefix() string {
	return c.Database() + "/"
}

// Stale reports whether local data should be pulled before it is read.
// A device that has never synced is always stale.
func (c *Config) Stale(now time.Time) bool {
	if c.LastSync.IsZero() {
		return true
	}
	return now.Sub(c.LastSync) >= c.StaleThreshold
}

// MarkSynced records a completed sync.
func (c *Config) MarkSynced(now time.Time) {
	c.LastSync = now.UTC()
}

// SettingsPath returns where settings for prefix are kept under XDG data home.
func SettingsPath(prefix string) string {
	if prefix == "" {
		prefix = config.AppName
	}
	return filepath.Join(xdg.DataHome, config.AppName, prefix+"-"+settingsFile)
}

// LoadMirrorConfig loads the settings for the mirror's key prefix.
func LoadMirrorConfig(m config.MirrorConfig) (*Config, error) {
	return LoadConfigFrom(SettingsPath(m.KeyPrefix), m.KeyPrefix)
}

// LoadConfigFrom reads settings from path. A missing file yields defaults.
func LoadConfigFrom(path, prefix string) (*Config, error) {
	cfg := DefaultConfig()
	if prefix != "" {
		cfg.Prefix = prefix
	}
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read charm settings: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid charm settings %s: %w", path, err)
	}
	if cfg.Host == "" {
		cfg.Host = DefaultCharmHost
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = kv.DefaultStaleThreshold
	}
	return cfg, nil
}

// Save writes the settings back to the file they were loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = SettingsPath(c.Prefix)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}
