package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shirt-ledger/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, config.DatabaseSQLite, cfg.Database.Type)
}

func TestLoadFile_OverlaysDefaults(t *testing.T) {
	// GIVEN: a file that sets only some keys
	path := writeFile(t, "ledger.yaml", `
server:
  port: 9090
  read_timeout: 5s
database:
  path: /var/lib/ledger/ledger.db
logger:
  mode: production
`)

	// WHEN
	cfg := config.Default()
	require.NoError(t, cfg.LoadFile(path))

	// THEN: set keys change, the rest keep their defaults
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "/var/lib/ledger/ledger.db", cfg.Database.Path)
	assert.Equal(t, config.DatabaseSQLite, cfg.Database.Type)
	assert.Equal(t, config.LogModeProduction, cfg.Logger.Mode)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeFile(t, "bad.yaml", "server: [not, a, map")

	err := config.Default().LoadFile(path)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LEDGER_PORT", "7000")
	t.Setenv("LEDGER_DB", "memory")
	t.Setenv("LEDGER_LOG_FILE", "/tmp/ledger.log")
	t.Setenv("LEDGER_CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg := config.Default()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, config.DatabaseMemory, cfg.Database.Type)
	assert.True(t, cfg.Logger.FileEnable)
	assert.Equal(t, "/tmp/ledger.log", cfg.Logger.Filename)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadFromEnv_BadPort(t *testing.T) {
	t.Setenv("LEDGER_PORT", "eighty")

	err := config.Default().LoadFromEnv()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeFile(t, "ledger.yml", "server:\n  port: 9090\n")
	t.Setenv("LEDGER_PORT", "9191")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port zero", func(c *config.Config) { c.Server.Port = 0 }},
		{"port too high", func(c *config.Config) { c.Server.Port = 70000 }},
		{"unknown database", func(c *config.Config) { c.Database.Type = "postgres" }},
		{"sqlite without path", func(c *config.Config) { c.Database.Path = "" }},
		{"unknown log mode", func(c *config.Config) { c.Logger.Mode = "verbose" }},
		{"file logging without name", func(c *config.Config) { c.Logger.FileEnable = true; c.Logger.Filename = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}
