package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: "0.0.0.0"
  port: 9090
database:
  host: "db.internal"
  port: 5432
  dbname: "tripwatch"
polling:
  workers: 4
logging:
  level: "debug"
`)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, 4, cfg.Polling.Workers)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeTempConfig(t, `
database:
  host: "db.internal"
  port: 5432
polling:
  workers: 4
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_HOST", "db.override")
	t.Setenv("POLLING_WORKERS", "16")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "db.override", cfg.Database.Host)
	require.Equal(t, 16, cfg.Polling.Workers)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	_, err := Load()
	require.Error(t, err)
}
