package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test inside an empty directory so no stray config or
// .env file is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	return dir
}

func TestInitConfig_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./stop-game-fe", cfg.StaticDir)
	assert.Equal(t, 16, cfg.RoomCodeRetries)
	assert.Equal(t, 5, cfg.DefaultRounds)
	assert.Equal(t, 15*time.Second, cfg.DisconnectGrace)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.InDelta(t, 10.0, cfg.RateLimit, 1e-9)
	assert.Equal(t, 20, cfg.RateBurst)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 45*time.Second, cfg.HeartbeatTimeout)
	assert.Len(t, cfg.TokenSecret, 64)
}

func TestInitConfig_FileAndEnv(t *testing.T) {
	dir := chdirTemp(t)

	file := `{"port": 9000, "log_level": "debug", "disconnect_grace": "5s"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app_config.json"), []byte(file), 0o644))

	t.Setenv("STOP_LOG_LEVEL", "warn")
	t.Setenv("STOP_TOKEN_SECRET", "from-env")

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.DisconnectGrace)
	assert.Equal(t, "from-env", cfg.TokenSecret)
}

func TestInitConfig_DotEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STOP_SEND_BUFFER=8\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("STOP_SEND_BUFFER") })

	cfg, err := InitConfig()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.SendBuffer)
}

func TestAppConfig_Validate(t *testing.T) {
	valid := func() AppConfig {
		return AppConfig{
			Port:              8080,
			RoomCodeRetries:   16,
			DefaultRounds:     5,
			TokenTTL:          time.Hour,
			SendBuffer:        64,
			RateLimit:         10,
			RateBurst:         20,
			HeartbeatInterval: 30 * time.Second,
			HeartbeatTimeout:  45 * time.Second,
		}
	}

	base := valid()
	require.NoError(t, base.Validate())

	testCases := []struct {
		desc   string
		mutate func(*AppConfig)
	}{
		{"port zero", func(c *AppConfig) { c.Port = 0 }},
		{"port too large", func(c *AppConfig) { c.Port = 70000 }},
		{"no send buffer", func(c *AppConfig) { c.SendBuffer = 0 }},
		{"negative grace", func(c *AppConfig) { c.DisconnectGrace = -time.Second }},
		{"rounds out of range", func(c *AppConfig) { c.DefaultRounds = 11 }},
		{"timeout below interval", func(c *AppConfig) { c.HeartbeatTimeout = 10 * time.Second }},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
