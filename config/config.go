// ABOUTME: Application configuration loaded from defaults, YAML, .env and environment
// ABOUTME: Paths follow XDG; environment variables win over the file
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// AppName names the XDG directories.
const AppName = "incial"

// Mirror backends.
const (
	MirrorNone   = "none"
	MirrorMemory = "memory"
	MirrorSQLite = "sqlite"
	MirrorBadger = "badger"
	MirrorRedis  = "redis"
	MirrorCharm  = "charm"
)

var mirrorBackends = []string{MirrorNone, MirrorMemory, MirrorSQLite, MirrorBadger, MirrorRedis, MirrorCharm}

type Config struct {
	Actor    string          `yaml:"actor"`
	Role     string          `yaml:"role"`
	DataDir  string          `yaml:"data_dir"`
	Latency  LatencyConfig   `yaml:"latency"`
	Mirror   MirrorConfig    `yaml:"mirror"`
	Server   ServerConfig    `yaml:"server"`
	Remote   RemoteConfig    `yaml:"remote"`
	Users    []models.User   `yaml:"users"`
	Terminal views.Terminals `yaml:"terminal_statuses"`
	Log      LogConfig       `yaml:"log"`
	Jobs     JobsConfig      `yaml:"jobs"`
	Google   GoogleConfig    `yaml:"google"`
}

type LatencyConfig struct {
	Enabled bool `yaml:"enabled"`
}

type MirrorConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	RedisURL  string `yaml:"redis_url"`
	KeyPrefix string `yaml:"key_prefix"`
}

type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// RemoteConfig points the CLI at a running server instead of a local store.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// JobsConfig holds cron specs. An empty spec disables the job.
type JobsConfig struct {
	MirrorSync string `yaml:"mirror_sync"`
	Reminders  string `yaml:"reminders"`
}

type GoogleConfig struct {
	CalendarID   string `yaml:"calendar_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	return &Config{
		Role:    models.RoleEmployee,
		DataDir: dataDir,
		Latency: LatencyConfig{Enabled: false},
		Mirror: MirrorConfig{
			Backend:   MirrorSQLite,
			KeyPrefix: AppName,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			TokenTTL: 48 * time.Hour,
		},
		Users:    DefaultUsers(),
		Terminal: views.DefaultTerminals(),
		Log:      LogConfig{Level: "info"},
		Jobs: JobsConfig{
			MirrorSync: "@every 5m",
			Reminders:  "0 9 * * *",
		},
		Google: GoogleConfig{CalendarID: "primary"},
	}
}

// DefaultUsers is the team directory used until one is configured.
func DefaultUsers() []models.User {
	clientCompany := int64(1)
	return []models.User{
		{ID: 1, Name: "Super Admin", Email: "super@incial.com", Role: models.RoleSuperAdmin},
		{ID: 2, Name: "Vallapata", Email: "admin@incial.com", Role: models.RoleAdmin},
		{ID: 3, Name: "John Doe", Email: "employee@incial.com", Role: models.RoleEmployee},
		{ID: 4, Name: "Anil Michael", Email: "client@incial.com", Role: models.RoleClient, CompanyID: &clientCompany},
	}
}

// DefaultPath returns the config file location under XDG_CONFIG_HOME.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load reads configuration. An empty path uses DefaultPath; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// .env never overrides variables already set in the environment
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if cfg.Mirror.Path == "" {
		cfg.Mirror.Path = defaultMirrorPath(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Actor, "INCIAL_ACTOR")
	setString(&cfg.Role, "INCIAL_ROLE")
	setString(&cfg.DataDir, "INCIAL_DATA_DIR")
	setBool(&cfg.Latency.Enabled, "INCIAL_LATENCY")
	setString(&cfg.Mirror.Backend, "INCIAL_MIRROR_BACKEND")
	setString(&cfg.Mirror.Path, "INCIAL_MIRROR_PATH")
	setString(&cfg.Mirror.RedisURL, "INCIAL_REDIS_URL")
	setString(&cfg.Server.Addr, "INCIAL_ADDR")
	setString(&cfg.Server.JWTSecret, "INCIAL_JWT_SECRET")
	if v := os.Getenv("INCIAL_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.TokenTTL = d
		}
	}
	setString(&cfg.Remote.BaseURL, "INCIAL_REMOTE_URL")
	setString(&cfg.Remote.Token, "INCIAL_REMOTE_TOKEN")
	setString(&cfg.Log.Level, "INCIAL_LOG_LEVEL")
	setBool(&cfg.Log.Development, "INCIAL_LOG_DEV")
	setString(&cfg.Google.CalendarID, "INCIAL_CALENDAR_ID")
	setString(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func defaultMirrorPath(cfg *Config) string {
	switch cfg.Mirror.Backend {
	case MirrorSQLite:
		return filepath.Join(cfg.DataDir, "mirror.db")
	case MirrorBadger:
		return filepath.Join(cfg.DataDir, "mirror")
	}
	return ""
}

// Validate checks values that have a fixed vocabulary.
func (c *Config) Validate() error {
	if !models.Contains(mirrorBackends, c.Mirror.Backend) {
		return fmt.Errorf("invalid mirror backend: %s", c.Mirror.Backend)
	}
	if c.Mirror.Backend == MirrorRedis && c.Mirror.RedisURL == "" {
		return fmt.Errorf("mirror backend redis requires mirror.redis_url")
	}
	if !models.Contains(models.Roles, c.Role) {
		return fmt.Errorf("invalid role: %s", c.Role)
	}
	if c.Server.TokenTTL <= 0 {
		return fmt.Errorf("server.token_ttl must be positive")
	}
	return nil
}

// ActorName returns the configured actor, falling back to the OS user.
func (c *Config) ActorName() string {
	if c.Actor != "" {
		return c.Actor
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return ""
}
