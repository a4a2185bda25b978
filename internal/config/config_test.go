package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "sweep"

[game]
pack_size = 3

[sweep]
interval = "30s"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sweep", cfg.Mode)
	assert.Equal(t, 3, cfg.Game.PackSize)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Interval.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("POLYDRAFT_DATABASE_PASSWORD", "s3cret")
	t.Setenv("POLYDRAFT_GAME_PACK_SIZE", "7")
	t.Setenv("POLYDRAFT_SWEEP_INTERVAL", "45s")
	t.Setenv("POLYDRAFT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[game]
pack_size = 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, 7, cfg.Game.PackSize)
	assert.Equal(t, 45*time.Second, cfg.Sweep.Interval.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Redis.Addr = ""
	cfg.Game.PackSize = 0
	cfg.Payment.Enabled = true // without rpc_url/treasury

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "pack_size")
	assert.Contains(t, err.Error(), "payment: rpc_url")
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "hunter2"
	cfg.Server.APIKey = "key"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// Original untouched.
	assert.Equal(t, "hunter2", cfg.Database.Password)
}
