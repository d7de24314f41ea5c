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

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.AccountID = " "
	cfg.Mode = "turbo"
	cfg.Liquidity.Pairs = []string{"BTCUSD"}
	cfg.Breaker.FailureThreshold = 0
	cfg.Venues = []VenueConfig{
		{Name: "kraken"},
		{Name: "kraken"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account_id")
	assert.Contains(t, err.Error(), `unknown mode "turbo"`)
	assert.Contains(t, err.Error(), `malformed pair "BTCUSD"`)
	assert.Contains(t, err.Error(), "failure_threshold")
	assert.Contains(t, err.Error(), `duplicate name "kraken"`)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "monitor"
log_level = "debug"

[liquidity]
pairs = ["SOL/USD"]
min_profit_percent = "0.75"
monitor_interval = "10s"

[breaker]
cooldown = "45s"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"SOL/USD"}, cfg.Liquidity.Pairs)
	assert.Equal(t, "0.75", cfg.Liquidity.MinProfitPercent.String())
	assert.Equal(t, 10*time.Second, cfg.Liquidity.MonitorInterval.Duration)
	assert.Equal(t, 45*time.Second, cfg.Breaker.Cooldown.Duration)

	// Untouched sections keep defaults.
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LIQCORE_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("LIQCORE_REDIS_ENABLED", "false")
	t.Setenv("LIQCORE_BREAKER_COOLDOWN", "1m")
	t.Setenv("LIQCORE_LIQUIDITY_PAIRS", "BTC/USD, ETH/USD ,SOL/USD")
	t.Setenv("LIQCORE_LIQUIDITY_MIN_PROFIT_PERCENT", "1.25")
	t.Setenv("LIQCORE_ACCOUNT_ID", "desk-7")
	t.Setenv("LIQCORE_MODE", "monitor")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Breaker.Cooldown.Duration)
	assert.Equal(t, []string{"BTC/USD", "ETH/USD", "SOL/USD"}, cfg.Liquidity.Pairs)
	assert.Equal(t, "1.25", cfg.Liquidity.MinProfitPercent.String())
	assert.Equal(t, "desk-7", cfg.AccountID)
	assert.Equal(t, "monitor", cfg.Mode)
}

func TestEnvOverridesIgnoreInvalidValues(t *testing.T) {
	t.Setenv("LIQCORE_POSTGRES_PORT", "not-a-port")
	t.Setenv("LIQCORE_BREAKER_COOLDOWN", "soon")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Cooldown.Duration)
}
