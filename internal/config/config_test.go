package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", cfg.Source.Driver)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "hittrax_local.duckdb", cfg.Analytics.Path)
	assert.Equal(t, 500, cfg.Sync.BatchInsertSize)
	assert.Equal(t, 50, cfg.Leaderboard.MinAtBats)
	assert.Equal(t, 10, cfg.Leaderboard.PlayerMinAtBats)
	assert.Equal(t, 5, cfg.Leaderboard.TopN)
	assert.Equal(t, 2025, cfg.Leaderboard.MinGradYear)
	assert.Equal(t, 2034, cfg.Leaderboard.MaxGradYear)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 15*time.Second, cfg.Server.GetReadTimeout())
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
source:
  driver: mysql
  host: 10.0.0.5
  port: 3306
  user: reader
  password: secret
  timeout: 5s
analytics:
  path: /tmp/ht.duckdb
sync:
  batch_insert_size: 50
  days_back: 30
scheduler:
  enabled: true
  interval: "0 3 * * *"
leaderboard:
  min_at_bats: 25
  overrides_file: overrides.yaml
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Source.Driver)
	assert.Equal(t, "10.0.0.5", cfg.Source.Host)
	assert.Equal(t, 3306, cfg.Source.Port)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "/tmp/ht.duckdb", cfg.Analytics.Path)
	assert.Equal(t, 50, cfg.Sync.BatchInsertSize)
	assert.Equal(t, 30, cfg.Sync.DaysBack)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.Interval)
	assert.Equal(t, 25, cfg.Leaderboard.MinAtBats)
	assert.Equal(t, "overrides.yaml", cfg.Leaderboard.OverridesFile)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("HTDASH_SOURCE_HOST", "db.internal")
	t.Setenv("HTDASH_LEADERBOARD_MIN_AT_BATS", "75")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Source.Host)
	assert.Equal(t, 75, cfg.Leaderboard.MinAtBats)
}

func TestLoadConfig_InvalidDriver(t *testing.T) {
	path := writeFile(t, "config.yaml", "source:\n  driver: oracle\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadGradYearOverrides(t *testing.T) {
	path := writeFile(t, "overrides.yaml", `
overrides:
  - name: Jane Doe
    graduation_year: 2027
  - name: John McSmith
    graduation_year: 2026
`)

	overrides, err := LoadGradYearOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Jane Doe": 2027, "John McSmith": 2026}, overrides)
}

func TestLoadGradYearOverrides_EmptyPath(t *testing.T) {
	overrides, err := LoadGradYearOverrides("")
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestLoadGradYearOverrides_Invalid(t *testing.T) {
	path := writeFile(t, "overrides.yaml", "overrides:\n  - name: Jane Doe\n")

	_, err := LoadGradYearOverrides(path)
	assert.Error(t, err)
}
