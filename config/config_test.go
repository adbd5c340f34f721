// ABOUTME: Tests for configuration loading
// ABOUTME: Covers precedence of defaults, YAML file and environment
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incial/crm/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("INCIAL_MIRROR_BACKEND", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, MirrorSQLite, cfg.Mirror.Backend)
	assert.Equal(t, filepath.Join(cfg.DataDir, "mirror.db"), cfg.Mirror.Path)
	assert.Equal(t, 48*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, []string{models.TaskCompleted, models.TaskDone}, cfg.Terminal.Tasks)
	assert.Len(t, cfg.Users, 4)
	assert.False(t, cfg.Latency.Enabled)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
actor: Vallapata
role: ROLE_ADMIN
latency:
  enabled: true
mirror:
  backend: badger
  path: /tmp/incial-mirror
server:
  token_ttl: 12h
terminal_statuses:
  tasks: [Completed, Done, Posted]
users:
  - id: 9
    name: Asha
    email: asha@incial.com
    role: ROLE_EMPLOYEE
`)
	t.Setenv("INCIAL_ACTOR", "John Doe")
	t.Setenv("INCIAL_JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "John Doe", cfg.Actor, "environment wins over the file")
	assert.Equal(t, models.RoleAdmin, cfg.Role)
	assert.True(t, cfg.Latency.Enabled)
	assert.Equal(t, MirrorBadger, cfg.Mirror.Backend)
	assert.Equal(t, "/tmp/incial-mirror", cfg.Mirror.Path)
	assert.Equal(t, 12*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.Equal(t, []string{models.TaskCompleted, models.TaskDone, models.TaskPosted}, cfg.Terminal.Tasks)
	assert.Equal(t, []string{models.DealCompleted, models.DealDrop}, cfg.Terminal.Deals, "unset sets keep their defaults")
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, "Asha", cfg.Users[0].Name)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "mirror:\n  backend: dropbox\n"))
	assert.ErrorContains(t, err, "invalid mirror backend")

	_, err = Load(writeConfig(t, "mirror:\n  backend: redis\n"))
	assert.ErrorContains(t, err, "redis_url")

	_, err = Load(writeConfig(t, "role: ROLE_OWNER\n"))
	assert.ErrorContains(t, err, "invalid role")

	_, err = Load(writeConfig(t, "actor: [unterminated\n"))
	assert.Error(t, err)
}

func TestCredentialsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DataDir = dir

	require.NoError(t, cfg.ApplyCredentials(), "missing file is fine")
	assert.Empty(t, cfg.Remote.Token)

	require.NoError(t, SaveCredentials(dir, Credentials{BaseURL: "http://crm.local/api/v1", Token: "abc"}))
	info, err := os.Stat(CredentialsPath(dir))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg.Remote.BaseURL = "http://override"
	require.NoError(t, cfg.ApplyCredentials())
	assert.Equal(t, "http://override", cfg.Remote.BaseURL)
	assert.Equal(t, "abc", cfg.Remote.Token)
}
