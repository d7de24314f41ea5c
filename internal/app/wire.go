package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/liquiditycore/internal/amm"
	"github.com/alanyoungcy/liquiditycore/internal/arbitrage"
	"github.com/alanyoungcy/liquiditycore/internal/book"
	"github.com/alanyoungcy/liquiditycore/internal/breaker"
	"github.com/alanyoungcy/liquiditycore/internal/cache/memory"
	"github.com/alanyoungcy/liquiditycore/internal/cache/redis"
	"github.com/alanyoungcy/liquiditycore/internal/domain"
	"github.com/alanyoungcy/liquiditycore/internal/fees"
	"github.com/alanyoungcy/liquiditycore/internal/liquidity"
	"github.com/alanyoungcy/liquiditycore/internal/pricing"
	"github.com/alanyoungcy/liquiditycore/internal/store/postgres"
	"github.com/alanyoungcy/liquiditycore/internal/venue"
	"github.com/alanyoungcy/liquiditycore/internal/venue/rest"
)

// Dependencies bundles every wired component the run modes operate on.
type Dependencies struct {
	Trades      domain.TradeHistory
	Ledger      domain.AssetTransfer
	Cache       domain.KVCache
	Breaker     *breaker.Breaker
	Venues      domain.VenueRegistry
	Prices      *pricing.Aggregator
	Fees        *fees.Calculator
	Pools       *amm.Engine
	Book        *book.Book
	Detector    *arbitrage.Detector
	Coordinator *liquidity.Coordinator
}

// Wire constructs the dependency graph from configuration: Postgres-backed
// trade history and ledger, the quote cache (Redis or in-memory), the venue
// breaker, and the pricing, fee, pool, arbitrage, and coordinator components
// layered on top. Close handlers for acquired resources are registered on the
// App so shutdown releases them in reverse order.
func (a *App) Wire(ctx context.Context) (*Dependencies, error) {
	clock := domain.SystemClock{}

	// Postgres: trade history and the double-entry asset ledger.
	pg, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      a.cfg.Postgres.DSN,
		Host:     a.cfg.Postgres.Host,
		Port:     a.cfg.Postgres.Port,
		Database: a.cfg.Postgres.Database,
		User:     a.cfg.Postgres.User,
		Password: a.cfg.Postgres.Password,
		SSLMode:  a.cfg.Postgres.SSLMode,
		MaxConns: a.cfg.Postgres.PoolMaxConns,
		MinConns: a.cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: postgres: %w", err)
	}
	a.addCloser(func() error {
		pg.Close()
		return nil
	})

	if a.cfg.Postgres.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("wire: migrations: %w", err)
		}
	}

	trades := postgres.NewTradeStore(pg.Pool())
	ledger := postgres.NewLedgerStore(pg.Pool())

	// Cache: Redis when enabled, otherwise a process-local fallback.
	var kv domain.KVCache
	if a.cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       a.cfg.Redis.Addr,
			Password:   a.cfg.Redis.Password,
			DB:         a.cfg.Redis.DB,
			PoolSize:   a.cfg.Redis.PoolSize,
			MaxRetries: a.cfg.Redis.MaxRetries,
			TLSEnabled: a.cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("wire: redis: %w", err)
		}
		a.addCloser(rc.Close)
		kv = redis.NewKV(rc, a.cfg.Redis.KeyPrefix)
	} else {
		a.logger.InfoContext(ctx, "redis disabled, using in-memory cache")
		kv = memory.New(clock)
	}

	brk := breaker.New(breaker.Options{
		FailureThreshold: a.cfg.Breaker.FailureThreshold,
		SuccessThreshold: a.cfg.Breaker.SuccessThreshold,
		Cooldown:         a.cfg.Breaker.Cooldown.Duration,
		CallTimeout:      a.cfg.Breaker.CallTimeout.Duration,
	}, clock, a.logger)

	registry := venue.NewRegistry()
	for _, vc := range a.cfg.Venues {
		registry.Register(rest.New(rest.Config{
			Name:    vc.Name,
			BaseURL: vc.BaseURL,
			APIKey:  vc.APIKey,
			Timeout: a.cfg.Breaker.CallTimeout.Duration,
		}))
		a.logger.InfoContext(ctx, "venue registered", slog.String("venue", vc.Name))
	}

	prices := pricing.NewAggregator(registry, brk, kv, clock, a.logger)
	feeCalc := fees.NewCalculator(trades, kv, clock, a.logger)
	pools := amm.NewEngine(ledger, clock, a.logger)
	internalBook := book.New(clock)
	detector := arbitrage.NewDetector(prices, registry, brk, trades, feeCalc, kv, clock, a.logger)
	coordinator := liquidity.NewCoordinator(liquidity.Config{
		Pairs:             a.cfg.Liquidity.Pairs,
		MinProfitPercent:  a.cfg.Liquidity.MinProfitPercent,
		DivergencePercent: a.cfg.Liquidity.DivergencePercent,
		LadderLevels:      a.cfg.Liquidity.LadderLevels,
		LadderStepPercent: a.cfg.Liquidity.LadderStepPercent,
		AlignOrderSize:    a.cfg.Liquidity.AlignOrderSize,
	}, internalBook, prices, trades, clock, a.logger)

	return &Dependencies{
		Trades:      trades,
		Ledger:      ledger,
		Cache:       kv,
		Breaker:     brk,
		Venues:      registry,
		Prices:      prices,
		Fees:        feeCalc,
		Pools:       pools,
		Book:        internalBook,
		Detector:    detector,
		Coordinator: coordinator,
	}, nil
}
