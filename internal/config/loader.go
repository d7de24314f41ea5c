package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LIQCORE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LIQCORE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "LIQCORE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "LIQCORE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LIQCORE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LIQCORE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LIQCORE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LIQCORE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LIQCORE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "LIQCORE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "LIQCORE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "LIQCORE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "LIQCORE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LIQCORE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LIQCORE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LIQCORE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LIQCORE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LIQCORE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LIQCORE_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "LIQCORE_REDIS_KEY_PREFIX")

	// ── Breaker ──
	setInt(&cfg.Breaker.FailureThreshold, "LIQCORE_BREAKER_FAILURE_THRESHOLD")
	setInt(&cfg.Breaker.SuccessThreshold, "LIQCORE_BREAKER_SUCCESS_THRESHOLD")
	setDuration(&cfg.Breaker.Cooldown, "LIQCORE_BREAKER_COOLDOWN")
	setDuration(&cfg.Breaker.CallTimeout, "LIQCORE_BREAKER_CALL_TIMEOUT")

	// ── Liquidity ──
	setStringSlice(&cfg.Liquidity.Pairs, "LIQCORE_LIQUIDITY_PAIRS")
	setDecimal(&cfg.Liquidity.MinProfitPercent, "LIQCORE_LIQUIDITY_MIN_PROFIT_PERCENT")
	setDecimal(&cfg.Liquidity.DivergencePercent, "LIQCORE_LIQUIDITY_DIVERGENCE_PERCENT")
	setInt(&cfg.Liquidity.LadderLevels, "LIQCORE_LIQUIDITY_LADDER_LEVELS")
	setDecimal(&cfg.Liquidity.LadderStepPercent, "LIQCORE_LIQUIDITY_LADDER_STEP_PERCENT")
	setDecimal(&cfg.Liquidity.AlignOrderSize, "LIQCORE_LIQUIDITY_ALIGN_ORDER_SIZE")
	setDuration(&cfg.Liquidity.MonitorInterval, "LIQCORE_LIQUIDITY_MONITOR_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.AccountID, "LIQCORE_ACCOUNT_ID")
	setStr(&cfg.Mode, "LIQCORE_MODE")
	setStr(&cfg.LogLevel, "LIQCORE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setDecimal(dst *decimal.Decimal, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			*dst = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
