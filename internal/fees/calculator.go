// Package fees resolves volume-tiered maker/taker fee rates and minimum
// order values.
package fees

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

const (
	rateCacheTTL = time.Hour
	volumeWindow = 30 * 24 * time.Hour
)

// tier maps a 30-day notional volume floor to maker/taker rates. Tiers are
// ordered descending; the first floor at or below the volume wins.
type tier struct {
	floor decimal.Decimal
	maker decimal.Decimal
	taker decimal.Decimal
}

var tiers = []tier{
	{floor: decimal.NewFromInt(1_000_000), maker: decimal.RequireFromString("0.0009"), taker: decimal.RequireFromString("0.0018")},
	{floor: decimal.NewFromInt(500_000), maker: decimal.RequireFromString("0.00095"), taker: decimal.RequireFromString("0.0019")},
	{floor: decimal.NewFromInt(100_000), maker: decimal.RequireFromString("0.001"), taker: decimal.RequireFromString("0.002")},
}

// defaultTier applies below every floor.
var defaultTier = tier{
	maker: decimal.RequireFromString("0.001"),
	taker: decimal.RequireFromString("0.002"),
}

var minimumOrderValues = map[string]decimal.Decimal{
	"BTC":  decimal.RequireFromString("0.0001"),
	"USD":  decimal.NewFromInt(10),
	"EUR":  decimal.NewFromInt(10),
	"GBP":  decimal.NewFromInt(10),
	"USDT": decimal.NewFromInt(10),
	"USDC": decimal.NewFromInt(10),
}

var defaultMinimumOrderValue = decimal.NewFromInt(1)

// Calculator resolves fee rates from trade history, caching resolved rates
// for an hour. Cache failures degrade to a direct volume lookup.
type Calculator struct {
	trades domain.TradeHistory
	cache  domain.KVCache
	clock  domain.Clock
	logger *slog.Logger
}

// NewCalculator creates a Calculator.
func NewCalculator(trades domain.TradeHistory, cache domain.KVCache, clock domain.Clock, logger *slog.Logger) *Calculator {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Calculator{
		trades: trades,
		cache:  cache,
		clock:  clock,
		logger: logger.With(slog.String("component", "fees")),
	}
}

func rateCacheKey(accountID string, side domain.FeeSide) string {
	return fmt.Sprintf("fees:rate:%s:%s", accountID, side)
}

// Rate returns the account's current rate for one side.
func (c *Calculator) Rate(ctx context.Context, accountID string, side domain.FeeSide) (domain.FeeRate, error) {
	if accountID == "" {
		return domain.FeeRate{}, domain.NewValidationError("account_id", "must not be empty")
	}
	if side != domain.FeeSideMaker && side != domain.FeeSideTaker {
		return domain.FeeRate{}, domain.NewValidationError("side", "must be maker or taker")
	}

	key := rateCacheKey(accountID, side)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		if rate, perr := decimal.NewFromString(string(raw)); perr == nil {
			return domain.FeeRate{AccountID: accountID, Side: side, Rate: rate}, nil
		}
	}

	volume, err := c.trades.NotionalVolume(ctx, accountID, c.clock.Now().Add(-volumeWindow))
	if err != nil {
		return domain.FeeRate{}, fmt.Errorf("fees: resolve volume for %s: %w", accountID, err)
	}

	rate := rateForVolume(volume, side)
	if err := c.cache.Put(ctx, key, []byte(rate.String()), rateCacheTTL); err != nil {
		c.logger.Warn("rate cache write failed",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()))
	}
	return domain.FeeRate{AccountID: accountID, Side: side, Rate: rate}, nil
}

func rateForVolume(volume decimal.Decimal, side domain.FeeSide) decimal.Decimal {
	resolved := defaultTier
	for _, t := range tiers {
		if volume.GreaterThanOrEqual(t.floor) {
			resolved = t
			break
		}
	}
	if side == domain.FeeSideMaker {
		return resolved.maker
	}
	return resolved.taker
}

// OrderFees computes both sides' fees for one fill. Fee amounts round down
// to 8 decimal places so fees never exceed the exact proportional charge.
func (c *Calculator) OrderFees(ctx context.Context, makerAccount, takerAccount string, price, volume decimal.Decimal) (domain.FeeBreakdown, error) {
	if price.Sign() <= 0 {
		return domain.FeeBreakdown{}, domain.NewValidationError("price", "must be positive")
	}
	if volume.Sign() <= 0 {
		return domain.FeeBreakdown{}, domain.NewValidationError("volume", "must be positive")
	}

	makerRate, err := c.Rate(ctx, makerAccount, domain.FeeSideMaker)
	if err != nil {
		return domain.FeeBreakdown{}, err
	}
	takerRate, err := c.Rate(ctx, takerAccount, domain.FeeSideTaker)
	if err != nil {
		return domain.FeeBreakdown{}, err
	}

	notional := price.Mul(volume)
	return domain.FeeBreakdown{
		MakerFee:  notional.Mul(makerRate.Rate).RoundDown(8),
		TakerFee:  notional.Mul(takerRate.Rate).RoundDown(8),
		MakerRate: makerRate.Rate,
		TakerRate: takerRate.Rate,
	}, nil
}

// MinimumOrderValue returns the smallest allowed order size for a pair,
// one floor per leg: base is denominated in the base asset and quote in
// the quote asset. Unknown assets fall back to the default minimum.
func MinimumOrderValue(baseAsset, quoteAsset string) (base, quote decimal.Decimal) {
	return minimumFor(baseAsset), minimumFor(quoteAsset)
}

func minimumFor(asset string) decimal.Decimal {
	if min, ok := minimumOrderValues[strings.ToUpper(asset)]; ok {
		return min
	}
	return defaultMinimumOrderValue
}

// Forget invalidates the account's cached rates after its volume changes.
func (c *Calculator) Forget(ctx context.Context, accountID string) {
	for _, side := range []domain.FeeSide{domain.FeeSideMaker, domain.FeeSideTaker} {
		if err := c.cache.Forget(ctx, rateCacheKey(accountID, side)); err != nil {
			c.logger.Warn("rate cache invalidation failed",
				slog.String("account_id", accountID),
				slog.String("error", err.Error()))
		}
	}
}
