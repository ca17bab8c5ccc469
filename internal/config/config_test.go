package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/dpwh_flood_control_projects.csv", cfg.Data.Path)
	assert.Equal(t, ",", cfg.Data.Delimiter)
	assert.Equal(t, ',', cfg.Data.DelimiterRune())
	assert.Equal(t, []int{2018, 2019, 2020, 2021, 2025}, cfg.Prepare.ExcludedYears)
	assert.InDelta(t, 0.99, cfg.Prepare.SuspiciousThreshold, 0.0001)
	assert.Equal(t, 256, cfg.Cache.ViewEntries)
	assert.Equal(t, 60, cfg.Session.TTLMinutes)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 40, cfg.Server.RateBurst)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "floodaudit.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 60, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
data:
  path: /srv/projects.tsv
  delimiter: "\t"
store:
  driver: postgres
  database_url: postgres://localhost/flood
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/projects.tsv", cfg.Data.Path)
	assert.Equal(t, '\t', cfg.Data.DelimiterRune())
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 256, cfg.Cache.ViewEntries)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("FLOODAUDIT_STORE_DRIVER", "postgres")
	t.Setenv("FLOODAUDIT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FLOODAUDIT_SERVER_PORT=3000\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("FLOODAUDIT_SERVER_PORT") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("data: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Data.Path = "data/projects.csv"
	cfg.Data.Delimiter = ","
	cfg.Prepare.SuspiciousThreshold = 0.99
	cfg.Server.Port = 8080
	cfg.Server.RateLimit = 20
	cfg.Server.RateBurst = 40
	cfg.Cache.ViewEntries = 256
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "test.db"
	return cfg
}

func TestValidatePrepare(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("prepare"))

	cfg.Data.Path = ""
	cfg.Data.Delimiter = ";;"
	err := cfg.Validate("prepare")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.path is required")
	assert.Contains(t, err.Error(), "data.delimiter must be a single character")
}

func TestValidateThreshold(t *testing.T) {
	cfg := validDefaults()
	cfg.Prepare.SuspiciousThreshold = 1.5
	err := cfg.Validate("prepare")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suspicious_threshold")
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	cfg.Cache.ViewEntries = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
	assert.Contains(t, err.Error(), "cache.view_entries must be > 0")
}

func TestValidateSnapshot(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("snapshot"))

	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("snapshot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateFetch(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("fetch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.url is required")

	cfg.Fetch.URL = "https://example.com/projects.csv"
	assert.NoError(t, cfg.Validate("fetch"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
