package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

// MonitorMode runs read-only loops: the cross-venue price divergence monitor
// and the arbitrage scanner. Opportunities are logged, never executed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.runDivergenceMonitor(ctx, deps)
	})
	g.Go(func() error {
		return a.runArbitrageScanner(ctx, deps, false)
	})

	return g.Wait()
}

// FullMode runs everything monitor mode does plus order placement: detected
// arbitrage opportunities are executed and internal prices are realigned to
// the external market when they diverge.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.runDivergenceMonitor(ctx, deps)
	})
	g.Go(func() error {
		return a.runArbitrageScanner(ctx, deps, true)
	})
	g.Go(func() error {
		return a.runPriceAlignment(ctx, deps)
	})

	return g.Wait()
}

func (a *App) monitorInterval() time.Duration {
	interval := a.cfg.Liquidity.MonitorInterval.Duration
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return interval
}

// runDivergenceMonitor periodically reports how far the internal book sits
// from the best external prices for every configured pair.
func (a *App) runDivergenceMonitor(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(a.monitorInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			divergences := deps.Coordinator.MonitorPriceDivergence(ctx)
			for pair, pct := range divergences {
				a.logger.InfoContext(ctx, "price divergence",
					slog.String("pair", pair),
					slog.String("percent", pct.String()),
				)
			}
		}
	}
}

// runArbitrageScanner scans every configured pair for cross-venue spreads.
// When execute is true profitable opportunities are acted on immediately.
func (a *App) runArbitrageScanner(ctx context.Context, deps *Dependencies, execute bool) error {
	ticker := time.NewTicker(a.monitorInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, pair := range a.cfg.Liquidity.Pairs {
				a.scanPair(ctx, deps, pair, execute)
			}
		}
	}
}

func (a *App) scanPair(ctx context.Context, deps *Dependencies, pair string, execute bool) {
	opps, err := deps.Detector.FindOpportunities(ctx, pair)
	if err != nil {
		if !errors.Is(err, domain.ErrNoMarketData) {
			a.logger.WarnContext(ctx, "arbitrage scan failed",
				slog.String("pair", pair),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	for _, opp := range opps {
		a.logger.InfoContext(ctx, "arbitrage opportunity",
			slog.String("pair", opp.Symbol),
			slog.String("buy_venue", opp.BuyVenue),
			slog.String("sell_venue", opp.SellVenue),
			slog.String("spread_percent", opp.SpreadPercent.String()),
			slog.String("estimated_profit", opp.EstimatedProfit.String()),
		)
		if !execute {
			continue
		}

		exec, err := deps.Detector.Execute(ctx, opp, a.cfg.AccountID, opp.EstimatedVolume)
		if err != nil {
			a.logger.WarnContext(ctx, "arbitrage execution skipped",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.logger.InfoContext(ctx, "arbitrage executed",
			slog.String("opportunity_id", exec.OpportunityID),
			slog.String("volume", exec.Volume.String()),
			slog.String("profit", exec.Profit.String()),
		)
	}
}

// runPriceAlignment nudges the internal book back toward the best external
// prices whenever either side diverges beyond the configured threshold.
func (a *App) runPriceAlignment(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(a.monitorInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, pair := range a.cfg.Liquidity.Pairs {
				order, err := deps.Coordinator.AlignPrices(ctx, pair)
				if err != nil {
					a.logger.WarnContext(ctx, "price alignment failed",
						slog.String("pair", pair),
						slog.String("error", err.Error()),
					)
					continue
				}
				if order != nil {
					a.logger.InfoContext(ctx, "alignment order placed",
						slog.String("pair", pair),
						slog.String("side", string(order.Side)),
						slog.String("price", order.Price.String()),
						slog.String("amount", order.Amount.String()),
					)
				}
			}
		}
	}
}
