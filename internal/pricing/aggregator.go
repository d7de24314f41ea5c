// Package pricing aggregates quotes across venues into cross-venue price
// summaries and best bid/ask lookups.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/liquiditycore/internal/breaker"
	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

const (
	aggregateTTL = 15 * time.Second
	bestQuoteTTL = 10 * time.Second
)

// Aggregator fans quote requests out to every registered venue, guards each
// venue behind its circuit breaker, and summarizes whatever survives.
// Unavailable venues are skipped, not failed.
type Aggregator struct {
	venues  domain.VenueRegistry
	breaker *breaker.Breaker
	cache   domain.KVCache
	clock   domain.Clock
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(venues domain.VenueRegistry, brk *breaker.Breaker, cache domain.KVCache, clock domain.Clock, logger *slog.Logger) *Aggregator {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Aggregator{
		venues:  venues,
		breaker: brk,
		cache:   cache,
		clock:   clock,
		logger:  logger.With(slog.String("component", "pricing")),
	}
}

func aggregateKey(pair string) string { return "pricing:aggregate:" + pair }

func bestKey(pair, side string) string {
	return fmt.Sprintf("pricing:best:%s:%s", side, pair)
}

// Quotes fetches one quote per responsive venue for the pair. A venue that
// is unavailable, circuit-open, or erroring contributes nothing; the slice
// is empty rather than nil only when at least one venue responds.
func (a *Aggregator) Quotes(ctx context.Context, pair string) ([]domain.Quote, error) {
	if _, _, err := domain.SplitPair(pair); err != nil {
		return nil, domain.NewValidationError("pair", err.Error())
	}

	venues := a.venues.All()
	results := make([]domain.Quote, len(venues))
	ok := make([]bool, len(venues))

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range venues {
		i, v := i, v
		g.Go(func() error {
			if !v.IsAvailable() {
				return nil
			}
			quote, err := breaker.Call(gctx, a.breaker, v.Name(), func(ctx context.Context) (domain.Quote, error) {
				return v.Ticker(ctx, pair)
			})
			if err != nil {
				a.logger.Warn("venue quote failed",
					slog.String("venue", v.Name()),
					slog.String("pair", pair),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = quote
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	quotes := make([]domain.Quote, 0, len(venues))
	for i := range venues {
		if ok[i] {
			quotes = append(quotes, results[i])
		}
	}
	return quotes, nil
}

// Aggregate returns the cross-venue price summary for the pair, cached for
// 15 seconds. It returns domain.ErrNoMarketData when no venue responds.
func (a *Aggregator) Aggregate(ctx context.Context, pair string) (domain.AggregatedPrice, error) {
	if raw, err := a.cache.Get(ctx, aggregateKey(pair)); err == nil {
		var cached domain.AggregatedPrice
		if uerr := json.Unmarshal(raw, &cached); uerr == nil {
			return cached, nil
		}
	}

	quotes, err := a.Quotes(ctx, pair)
	if err != nil {
		return domain.AggregatedPrice{}, err
	}
	if len(quotes) == 0 {
		return domain.AggregatedPrice{}, fmt.Errorf("pricing: aggregate %s: %w", pair, domain.ErrNoMarketData)
	}

	agg := summarize(pair, quotes, a.clock.Now())
	if raw, merr := json.Marshal(agg); merr == nil {
		if cerr := a.cache.Put(ctx, aggregateKey(pair), raw, aggregateTTL); cerr != nil {
			a.logger.Warn("aggregate cache write failed",
				slog.String("pair", pair),
				slog.String("error", cerr.Error()))
		}
	}
	return agg, nil
}

func summarize(pair string, quotes []domain.Quote, now time.Time) domain.AggregatedPrice {
	sum := decimal.Zero
	min := quotes[0].Price
	max := quotes[0].Price
	for _, q := range quotes {
		sum = sum.Add(q.Price)
		if q.Price.LessThan(min) {
			min = q.Price
		}
		if q.Price.GreaterThan(max) {
			max = q.Price
		}
	}
	return domain.AggregatedPrice{
		Pair:      pair,
		Average:   sum.Div(decimal.NewFromInt(int64(len(quotes)))),
		Min:       min,
		Max:       max,
		Spread:    max.Sub(min),
		Quotes:    quotes,
		UpdatedAt: now,
	}
}

// BestBid returns the venue quoting the highest bid, cached for 10 seconds.
func (a *Aggregator) BestBid(ctx context.Context, pair string) (domain.Quote, error) {
	return a.best(ctx, pair, "bid", func(best, q domain.Quote) bool {
		return q.Bid.GreaterThan(best.Bid)
	})
}

// BestAsk returns the venue quoting the lowest ask, cached for 10 seconds.
func (a *Aggregator) BestAsk(ctx context.Context, pair string) (domain.Quote, error) {
	return a.best(ctx, pair, "ask", func(best, q domain.Quote) bool {
		return q.Ask.LessThan(best.Ask)
	})
}

func (a *Aggregator) best(ctx context.Context, pair, side string, better func(best, q domain.Quote) bool) (domain.Quote, error) {
	key := bestKey(pair, side)
	if raw, err := a.cache.Get(ctx, key); err == nil {
		var cached domain.Quote
		if uerr := json.Unmarshal(raw, &cached); uerr == nil {
			return cached, nil
		}
	}

	quotes, err := a.Quotes(ctx, pair)
	if err != nil {
		return domain.Quote{}, err
	}
	if len(quotes) == 0 {
		return domain.Quote{}, fmt.Errorf("pricing: best %s %s: %w", side, pair, domain.ErrNoMarketData)
	}

	best := quotes[0]
	for _, q := range quotes[1:] {
		if better(best, q) {
			best = q
		}
	}

	if raw, merr := json.Marshal(best); merr == nil {
		if cerr := a.cache.Put(ctx, key, raw, bestQuoteTTL); cerr != nil {
			a.logger.Warn("best quote cache write failed",
				slog.String("pair", pair),
				slog.String("error", cerr.Error()))
		}
	}
	return best, nil
}
