// Package config defines the top-level configuration for the liquidity core
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by LIQCORE_* environment
// variables.
type Config struct {
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Breaker   BreakerConfig   `toml:"breaker"`
	Liquidity LiquidityConfig `toml:"liquidity"`
	Venues    []VenueConfig   `toml:"venues"`
	AccountID string          `toml:"account_id"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When Enabled is false the
// process falls back to in-memory caches.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// BreakerConfig holds circuit breaker tuning for venue calls.
type BreakerConfig struct {
	FailureThreshold int      `toml:"failure_threshold"`
	SuccessThreshold int      `toml:"success_threshold"`
	Cooldown         duration `toml:"cooldown"`
	CallTimeout      duration `toml:"call_timeout"`
}

// LiquidityConfig holds coordinator parameters.
type LiquidityConfig struct {
	Pairs             []string        `toml:"pairs"`
	MinProfitPercent  decimal.Decimal `toml:"min_profit_percent"`
	DivergencePercent decimal.Decimal `toml:"divergence_percent"`
	LadderLevels      int             `toml:"ladder_levels"`
	LadderStepPercent decimal.Decimal `toml:"ladder_step_percent"`
	AlignOrderSize    decimal.Decimal `toml:"align_order_size"`
	MonitorInterval   duration        `toml:"monitor_interval"`
}

// VenueConfig identifies one external venue connector.
type VenueConfig struct {
	Name    string `toml:"name"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "liquiditycore",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			KeyPrefix:  "liqcore",
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Cooldown:         duration{30 * time.Second},
			CallTimeout:      duration{5 * time.Second},
		},
		Liquidity: LiquidityConfig{
			Pairs:             []string{"BTC/USD", "ETH/USD"},
			MinProfitPercent:  decimal.RequireFromString("0.5"),
			DivergencePercent: decimal.RequireFromString("1"),
			LadderLevels:      5,
			LadderStepPercent: decimal.RequireFromString("0.1"),
			AlignOrderSize:    decimal.RequireFromString("0.1"),
			MonitorInterval:   duration{30 * time.Second},
		},
		AccountID: "liqcore",
		Mode:      "full",
		LogLevel:  "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":    true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.AccountID) == "" {
		errs = append(errs, "account_id must not be empty")
	}
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Breaker.FailureThreshold < 1 {
		errs = append(errs, "breaker: failure_threshold must be >= 1")
	}
	if c.Breaker.SuccessThreshold < 1 {
		errs = append(errs, "breaker: success_threshold must be >= 1")
	}
	if c.Breaker.Cooldown.Duration <= 0 {
		errs = append(errs, "breaker: cooldown must be positive")
	}

	if len(c.Liquidity.Pairs) == 0 {
		errs = append(errs, "liquidity: at least one pair must be configured")
	}
	for _, pair := range c.Liquidity.Pairs {
		parts := strings.SplitN(pair, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			errs = append(errs, fmt.Sprintf("liquidity: malformed pair %q", pair))
		}
	}
	if c.Liquidity.MinProfitPercent.Sign() <= 0 {
		errs = append(errs, "liquidity: min_profit_percent must be > 0")
	}
	if c.Liquidity.DivergencePercent.Sign() <= 0 {
		errs = append(errs, "liquidity: divergence_percent must be > 0")
	}
	if c.Liquidity.LadderLevels < 1 {
		errs = append(errs, "liquidity: ladder_levels must be >= 1")
	}
	if c.Liquidity.LadderStepPercent.Sign() <= 0 {
		errs = append(errs, "liquidity: ladder_step_percent must be > 0")
	}
	if c.Liquidity.AlignOrderSize.Sign() <= 0 {
		errs = append(errs, "liquidity: align_order_size must be > 0")
	}

	seen := make(map[string]bool, len(c.Venues))
	for _, v := range c.Venues {
		if v.Name == "" {
			errs = append(errs, "venues: name must not be empty")
			continue
		}
		if seen[v.Name] {
			errs = append(errs, fmt.Sprintf("venues: duplicate name %q", v.Name))
		}
		seen[v.Name] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
