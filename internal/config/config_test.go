package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "3000", cfg.ServerPort)
	assert.Equal(t, 6*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.AuthRequired)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "banking.yaml")
	data := []byte(`
db_host: db.internal
db_name: bank_test
server_port: "8080"
store_driver: memory
jwt_secret: from-file
token_ttl: 1h
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AUTH_REQUIRED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "bank_test", cfg.DBName)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.AuthRequired)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")

	t.Setenv("STORE_DRIVER", "sqlite")
	_, err = Load("")
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("AUTH_REQUIRED", "maybe")
	_, err := Load("")
	assert.ErrorContains(t, err, "AUTH_REQUIRED")
}

func TestAuthRequiredNeedsSecret(t *testing.T) {
	cfg := Default()
	cfg.AuthRequired = true
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "s3cret"
	assert.NoError(t, cfg.Validate())
}

func TestGetDBConnectionString(t *testing.T) {
	cfg := Default()
	cfg.DBHost = "localhost"
	cfg.DBPort = "55432"

	assert.Equal(t,
		"host=localhost port=55432 user=postgres password=password dbname=banking sslmode=disable",
		cfg.GetDBConnectionString())
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	} {
		cfg.LogLevel = in
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}
