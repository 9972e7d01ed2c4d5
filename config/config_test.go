package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Analysis.FileWorkers)
	assert.Equal(t, "@daily", cfg.Uploads.PruneSchedule)
	assert.Zero(t, cfg.Uploads.Retention)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: sqlite
  path: /tmp/pnl.db
analysis:
  file_workers: 2
uploads:
  retention: 72h
`)
	t.Setenv("TRADEPNL_ANALYSIS_FILE_WORKERS", "4")
	t.Setenv("TRADEPNL_UPLOADS_PRUNE_SCHEDULE", "@hourly")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/pnl.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Analysis.FileWorkers)
	assert.Equal(t, 72*time.Hour, cfg.Uploads.Retention)
	assert.Equal(t, "@hourly", cfg.Uploads.PruneSchedule)
}

func TestLoadLegacyDatabaseEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "pnl")
	t.Setenv("FILE_WORKERS", "3")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "pnl", cfg.Database.Name)
	assert.Equal(t, 3, cfg.Analysis.FileWorkers)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
	assert.Contains(t, cfg.Database.DSN(), "dbname=pnl")
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  driver: mysql\n"))
	assert.ErrorContains(t, err, "database.driver")

	_, err = Load(writeConfig(t, "server:\n  port: 70000\n"))
	assert.ErrorContains(t, err, "server.port")

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.ErrorContains(t, err, "parse config")
}
