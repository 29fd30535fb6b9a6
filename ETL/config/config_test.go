package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "etl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigWithoutFileReturnsDefaults(t *testing.T) {
	t.Setenv("ETL_SOURCE_PASSWORD", "secret")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Source.Host)
	assert.Equal(t, "sakila", cfg.Source.DBName)
	assert.Equal(t, "secret", cfg.Source.Password)
	assert.Equal(t, time.Hour, cfg.Sync.RunInterval)
	assert.Equal(t, 30, cfg.Sync.ValidationLookbackDays)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMergesFileOverDefaults(t *testing.T) {
	t.Setenv("ETL_TARGET_PATH", "")
	path := writeConfig(t, `
source:
  host: db.internal
  user: etl
  dbname: sakila
target:
  path: /var/lib/etl/analytics.db
sync:
  run_interval: 15m
logging:
  verbose: false
server:
  addr: ":9090"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Source.Host)
	assert.Equal(t, 3306, cfg.Source.Port)
	assert.Equal(t, "etl", cfg.Source.User)
	assert.Equal(t, "/var/lib/etl/analytics.db", cfg.Target.Path)
	assert.Equal(t, 4, cfg.Target.MaxOpenConns)
	assert.Equal(t, 15*time.Minute, cfg.Sync.RunInterval)
	assert.Equal(t, 30, cfg.Sync.ValidationLookbackDays)
	assert.False(t, cfg.Logging.Verbose)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadConfigTargetPathFromEnv(t *testing.T) {
	t.Setenv("ETL_TARGET_PATH", "/tmp/override.db")
	path := writeConfig(t, "target:\n  path: analytics.db\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Target.Path)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "source: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ETLConfig)
	}{
		{"missing host", func(c *ETLConfig) { c.Source.Host = "" }},
		{"missing database", func(c *ETLConfig) { c.Source.DBName = "" }},
		{"missing target", func(c *ETLConfig) { c.Target.Path = "" }},
		{"no connections", func(c *ETLConfig) { c.Target.MaxOpenConns = 0 }},
		{"interval too short", func(c *ETLConfig) { c.Sync.RunInterval = 30 * time.Second }},
		{"no lookback", func(c *ETLConfig) { c.Sync.ValidationLookbackDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultETLConfig
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSourceDSN(t *testing.T) {
	dsn := SourceDSN(DatabaseConfig{Host: "db", Port: 3307, User: "etl", Password: "pw", DBName: "sakila"})

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "etl", cfg.User)
	assert.Equal(t, "pw", cfg.Passwd)
	assert.Equal(t, "db:3307", cfg.Addr)
	assert.Equal(t, "sakila", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
}

func TestTargetDSN(t *testing.T) {
	assert.Equal(t,
		"analytics.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite",
		TargetDSN("analytics.db"))
	assert.Equal(t,
		"analytics.db?mode=ro&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite",
		TargetDSN("analytics.db?mode=ro"))
	assert.Equal(t,
		":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite",
		TargetDSN(":memory:"))
}

func TestOpenTargetFileUsesWALPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.db")
	db, err := OpenTarget(context.Background(), TargetConfig{Path: path, MaxOpenConns: 4})
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
}

func TestOpenTargetInMemoryKeepsSingleConnection(t *testing.T) {
	db, err := OpenTarget(context.Background(), TargetConfig{Path: ":memory:", MaxOpenConns: 4})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpenTargetEnforcesForeignKeys(t *testing.T) {
	db, err := OpenTarget(context.Background(), TargetConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}
