// ABOUTME: Tests for the charm mirror settings
// ABOUTME: Covers prefix-derived naming, staleness and the settings round trip through sync commands
package charm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/charm/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incial/crm/config"
)

func TestConfigNamesFollowMirrorPrefix(t *testing.T) {
	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"), "team")
	require.NoError(t, err)

	assert.Equal(t, "team", cfg.Database())
	assert.Equal(t, "team/", cfg.KeyPrefix())
	assert.Equal(t, DefaultCharmHost, cfg.Host)
	assert.Equal(t, kv.DefaultStaleThreshold, cfg.StaleThreshold)

	assert.Equal(t, config.AppName, DefaultConfig().Database())
	assert.NotEqual(t, SettingsPath("team"), SettingsPath("other"))
}

func TestConfigStale(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	cfg := &Config{StaleThreshold: time.Hour}

	assert.True(t, cfg.Stale(now), "never synced")

	cfg.MarkSynced(now.Add(-30 * time.Minute))
	assert.False(t, cfg.Stale(now))

	cfg.MarkSynced(now.Add(-time.Hour))
	assert.True(t, cfg.Stale(now))
}

func TestConfigSaveKeepsLastSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	synced := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	cfg, err := LoadConfigFrom(path, "team")
	require.NoError(t, err)
	cfg.AutoSync = false
	cfg.MarkSynced(synced)
	require.NoError(t, cfg.Save())

	loaded, err := LoadConfigFrom(path, "team")
	require.NoError(t, err)
	assert.False(t, loaded.AutoSync)
	assert.True(t, synced.Equal(loaded.LastSync))
	assert.Equal(t, "team", loaded.Prefix)
}

func TestLoadConfigRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"host":`), 0600))

	_, err := LoadConfigFrom(path, "team")
	assert.Error(t, err)
}

func TestSyncNowRecordsLastSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	dir := t.TempDir()
	seed, err := OpenLocal(dir)
	require.NoError(t, err)
	require.NoError(t, seed.Set("team/deals", []byte(`[]`)))
	require.NoError(t, seed.Set("other/deals", []byte(`[]`)))
	require.NoError(t, seed.Close())

	load := func() (*Config, error) { return LoadConfigFrom(path, "team") }
	var out bytes.Buffer
	cmds := Commands{
		Out:  &out,
		Load: load,
		Open: func(cfg *Config) (*Client, error) {
			c, err := OpenLocal(dir)
			if err != nil {
				return nil, err
			}
			c.config = cfg
			return c, nil
		},
	}

	require.NoError(t, cmds.Run([]string{"now"}))
	saved, err := load()
	require.NoError(t, err)
	assert.False(t, saved.LastSync.IsZero())
	assert.False(t, saved.Stale(time.Now()))

	out.Reset()
	require.NoError(t, cmds.Run([]string{"status"}))
	assert.Contains(t, out.String(), "Database:  team")
	assert.Contains(t, out.String(), "team/deals")
	assert.NotContains(t, out.String(), "other/deals")
	assert.NotContains(t, out.String(), "stale")
}
