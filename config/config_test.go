package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "records.yaml", cfg.Records.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Console)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.Stats.CacheCleanup)
	assert.Equal(t, "periorec", cfg.Metrics.Namespace)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	contents := `records:
  path: /srv/clinic/records.yaml
log:
  level: debug
  console: false
stats:
  cache_ttl: 30s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "periorec.yaml"), []byte(contents), 0o644))
	chdir(t, dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/srv/clinic/records.yaml", cfg.Records.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Console)
	assert.Equal(t, 30*time.Second, cfg.Stats.CacheTTL)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Minute, cfg.Stats.CacheCleanup)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	contents := `records:
  path: /srv/clinic/records.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "periorec.yaml"), []byte(contents), 0o644))
	chdir(t, dir)

	t.Setenv("PERIOREC_RECORDS_PATH", "/tmp/override.yaml")
	t.Setenv("PERIOREC_LOG_LEVEL", "warn")
	t.Setenv("PERIOREC_LOG_CONSOLE", "false")
	t.Setenv("PERIOREC_STATS_CACHE_TTL", "90s")
	t.Setenv("PERIOREC_STATS_CACHE_CLEANUP", "3m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// environment wins over both file and defaults
	assert.Equal(t, "/tmp/override.yaml", cfg.Records.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Log.Console)
	assert.Equal(t, 90*time.Second, cfg.Stats.CacheTTL)
	assert.Equal(t, 3*time.Minute, cfg.Stats.CacheCleanup)
}

func TestLoadConfigIgnoresUnprefixedEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	// names matching the config fields but missing the PERIOREC_ prefix
	// must not be read; PATH in particular is set in every environment
	t.Setenv("PATH", "/usr/local/bin:/usr/bin")
	t.Setenv("LEVEL", "trace")
	t.Setenv("FILE", "/var/log/leak.log")
	t.Setenv("CONSOLE", "false")
	t.Setenv("CACHE_TTL", "1s")
	t.Setenv("NAMESPACE", "leaked")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "records.yaml", cfg.Records.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Log.File)
	assert.True(t, cfg.Log.Console)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, "periorec", cfg.Metrics.Namespace)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "periorec.yaml"), []byte("records: [not: closed"), 0o644))
	chdir(t, dir)

	_, err := LoadConfig()
	assert.Error(t, err)
}
