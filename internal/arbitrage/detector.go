// Package arbitrage detects and executes cross-venue arbitrage.
package arbitrage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquiditycore/internal/breaker"
	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

const (
	scanCacheTTL      = 30 * time.Second
	opportunityExpiry = 5 * time.Minute
)

var (
	// minSpreadPercent is the detection threshold: the sell venue's bid
	// must exceed the buy venue's ask by at least this percentage.
	minSpreadPercent = decimal.RequireFromString("0.5")
	// roundTripFeeRate is the assumed taker rate paid across both legs.
	roundTripFeeRate = decimal.RequireFromString("0.002")
	// slippageRate haircuts the gross spread for execution drift.
	slippageRate = decimal.RequireFromString("0.0005")

	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// QuoteSource supplies per-venue quotes for a pair.
type QuoteSource interface {
	Quotes(ctx context.Context, pair string) ([]domain.Quote, error)
}

// FeeSource resolves the executing account's fee rate for one side.
type FeeSource interface {
	Rate(ctx context.Context, accountID string, side domain.FeeSide) (domain.FeeRate, error)
}

// Detector scans venue quotes for profitable spreads and executes them.
// Opportunities are advisory: execution revalidates live prices and refuses
// to fill when the spread has closed.
type Detector struct {
	quotes  QuoteSource
	venues  domain.VenueRegistry
	breaker *breaker.Breaker
	trades  domain.TradeHistory
	fees    FeeSource
	cache   domain.KVCache
	clock   domain.Clock
	logger  *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(quotes QuoteSource, venues domain.VenueRegistry, brk *breaker.Breaker, trades domain.TradeHistory, fees FeeSource, cache domain.KVCache, clock domain.Clock, logger *slog.Logger) *Detector {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Detector{
		quotes:  quotes,
		venues:  venues,
		breaker: brk,
		trades:  trades,
		fees:    fees,
		cache:   cache,
		clock:   clock,
		logger:  logger.With(slog.String("component", "arbitrage")),
	}
}

func scanKey(pair string) string { return "arbitrage:scan:" + pair }

// FindOpportunities scans every ordered venue pair for the symbol and
// returns opportunities sorted by estimated profit, best first. Results are
// cached for 30 seconds.
func (d *Detector) FindOpportunities(ctx context.Context, pair string) ([]domain.ArbitrageOpportunity, error) {
	if _, _, err := domain.SplitPair(pair); err != nil {
		return nil, domain.NewValidationError("pair", err.Error())
	}

	if raw, err := d.cache.Get(ctx, scanKey(pair)); err == nil {
		var cached []domain.ArbitrageOpportunity
		if uerr := json.Unmarshal(raw, &cached); uerr == nil {
			return cached, nil
		}
	}

	quotes, err := d.quotes.Quotes(ctx, pair)
	if err != nil {
		return nil, err
	}

	now := d.clock.Now()
	opportunities := make([]domain.ArbitrageOpportunity, 0)
	for _, buy := range quotes {
		for _, sell := range quotes {
			if buy.Venue == sell.Venue {
				continue
			}
			opp, ok := evaluate(buy, sell, now)
			if !ok {
				continue
			}
			opportunities = append(opportunities, opp)
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].EstimatedProfit.GreaterThan(opportunities[j].EstimatedProfit)
	})

	if raw, merr := json.Marshal(opportunities); merr == nil {
		if cerr := d.cache.Put(ctx, scanKey(pair), raw, scanCacheTTL); cerr != nil {
			d.logger.Warn("scan cache write failed",
				slog.String("pair", pair),
				slog.String("error", cerr.Error()))
		}
	}

	if len(opportunities) > 0 {
		d.logger.Info("opportunities detected",
			slog.String("pair", pair),
			slog.Int("count", len(opportunities)))
	}
	return opportunities, nil
}

// evaluate checks one buy/sell venue pairing. The spread is measured from
// executable prices: buying at the ask, selling at the bid.
func evaluate(buy, sell domain.Quote, now time.Time) (domain.ArbitrageOpportunity, bool) {
	if buy.Ask.Sign() <= 0 || sell.Bid.Sign() <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	spread := sell.Bid.Sub(buy.Ask)
	if spread.Sign() <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}
	spreadPercent := spread.Div(buy.Ask).Mul(hundred)
	if spreadPercent.LessThan(minSpreadPercent) {
		return domain.ArbitrageOpportunity{}, false
	}

	volume := decimal.Min(buy.Volume, sell.Volume)
	if volume.Sign() <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	profit := estimateProfit(buy.Ask, sell.Bid, volume)
	if profit.Sign() <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	return domain.ArbitrageOpportunity{
		ID:              uuid.NewString(),
		Symbol:          buy.Pair,
		BuyVenue:        buy.Venue,
		SellVenue:       sell.Venue,
		BuyPrice:        buy.Ask,
		SellPrice:       sell.Bid,
		Spread:          spread,
		SpreadPercent:   spreadPercent,
		EstimatedVolume: volume,
		EstimatedProfit: profit,
		DetectedAt:      now,
		ExpiresAt:       now.Add(opportunityExpiry),
	}, true
}

// estimateProfit nets taker fees on both legs and a slippage haircut out of
// the gross spread, truncated to 8 decimal places.
func estimateProfit(buyPrice, sellPrice, volume decimal.Decimal) decimal.Decimal {
	gross := sellPrice.Sub(buyPrice).Mul(volume)
	fees := buyPrice.Add(sellPrice).Mul(volume).Mul(roundTripFeeRate).Div(two)
	slippage := gross.Mul(slippageRate)
	return gross.Sub(fees).Sub(slippage).RoundDown(8)
}

// Execute fills an opportunity for the given account: it revalidates live
// prices on both venues, charges the account's actual taker rate on each
// leg, persists both legs atomically, and returns the realized execution.
// The requested volume may be below the opportunity's estimate but never
// above.
func (d *Detector) Execute(ctx context.Context, opp domain.ArbitrageOpportunity, accountID string, volume decimal.Decimal) (domain.ArbitrageExecution, error) {
	if err := validateOpportunity(opp); err != nil {
		return domain.ArbitrageExecution{}, err
	}
	if accountID == "" {
		return domain.ArbitrageExecution{}, domain.NewValidationError("account_id", "must not be empty")
	}
	if volume.Sign() <= 0 || volume.GreaterThan(opp.EstimatedVolume) {
		return domain.ArbitrageExecution{}, domain.NewValidationError("volume", "must be positive and within the opportunity estimate")
	}

	now := d.clock.Now()
	if now.After(opp.ExpiresAt) {
		return domain.ArbitrageExecution{}, fmt.Errorf("arbitrage: execute %s: %w", opp.ID, domain.ErrOpportunityExpired)
	}

	buyQuote, err := d.liveQuote(ctx, opp.BuyVenue, opp.Symbol)
	if err != nil {
		return domain.ArbitrageExecution{}, err
	}
	sellQuote, err := d.liveQuote(ctx, opp.SellVenue, opp.Symbol)
	if err != nil {
		return domain.ArbitrageExecution{}, err
	}

	spread := sellQuote.Bid.Sub(buyQuote.Ask)
	if spread.Sign() <= 0 || spread.Div(buyQuote.Ask).Mul(hundred).LessThan(minSpreadPercent) {
		return domain.ArbitrageExecution{}, fmt.Errorf("arbitrage: execute %s: %w", opp.ID, domain.ErrPriceChanged)
	}

	buyPrice := buyQuote.Ask
	sellPrice := sellQuote.Bid

	// Both legs cross the book, so both pay the account's taker rate.
	takerRate, err := d.fees.Rate(ctx, accountID, domain.FeeSideTaker)
	if err != nil {
		return domain.ArbitrageExecution{}, fmt.Errorf("arbitrage: resolve taker rate for %s: %w", accountID, err)
	}
	legFee := func(price decimal.Decimal) decimal.Decimal {
		return price.Mul(volume).Mul(takerRate.Rate).RoundDown(8)
	}
	buyFee := legFee(buyPrice)
	sellFee := legFee(sellPrice)
	gross := sellPrice.Sub(buyPrice).Mul(volume)
	profit := gross.Sub(buyFee).Sub(sellFee).Sub(gross.Mul(slippageRate)).RoundDown(8)

	executedAt := d.clock.Now()
	buyLeg := domain.Trade{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Venue:       opp.BuyVenue,
		Symbol:      opp.Symbol,
		Side:        domain.OrderSideBuy,
		Price:       buyPrice,
		Volume:      volume,
		Fee:         buyFee,
		ArbitrageID: opp.ID,
		ExecutedAt:  executedAt,
	}
	sellLeg := domain.Trade{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Venue:       opp.SellVenue,
		Symbol:      opp.Symbol,
		Side:        domain.OrderSideSell,
		Price:       sellPrice,
		Volume:      volume,
		Fee:         sellFee,
		ArbitrageID: opp.ID,
		ExecutedAt:  executedAt,
	}
	if err := d.trades.RecordArbitragePair(ctx, buyLeg, sellLeg); err != nil {
		return domain.ArbitrageExecution{}, fmt.Errorf("arbitrage: record execution %s: %w", opp.ID, err)
	}

	d.logger.Info("arbitrage executed",
		slog.String("opportunity_id", opp.ID),
		slog.String("symbol", opp.Symbol),
		slog.String("buy_venue", opp.BuyVenue),
		slog.String("sell_venue", opp.SellVenue),
		slog.String("profit", profit.String()))

	return domain.ArbitrageExecution{
		OpportunityID: opp.ID,
		Symbol:        opp.Symbol,
		BuyVenue:      opp.BuyVenue,
		SellVenue:     opp.SellVenue,
		BuyPrice:      buyPrice,
		SellPrice:     sellPrice,
		Volume:        volume,
		Fees:          buyLeg.Fee.Add(sellLeg.Fee),
		Profit:        profit,
		ExecutedAt:    executedAt,
	}, nil
}

func validateOpportunity(opp domain.ArbitrageOpportunity) error {
	switch {
	case opp.ID == "":
		return domain.NewValidationError("id", "must not be empty")
	case opp.Symbol == "":
		return domain.NewValidationError("symbol", "must not be empty")
	case opp.BuyVenue == "" || opp.SellVenue == "":
		return domain.NewValidationError("venue", "both venues must be set")
	case opp.BuyVenue == opp.SellVenue:
		return domain.NewValidationError("venue", "buy and sell venues must differ")
	case opp.ExpiresAt.IsZero():
		return domain.NewValidationError("expires_at", "must be set")
	}
	return nil
}

func (d *Detector) liveQuote(ctx context.Context, venueName, pair string) (domain.Quote, error) {
	conn, ok := d.venues.Get(venueName)
	if !ok {
		return domain.Quote{}, domain.NewValidationError("venue", "unknown venue "+venueName)
	}
	quote, err := breaker.Call(ctx, d.breaker, venueName, func(ctx context.Context) (domain.Quote, error) {
		return conn.Ticker(ctx, pair)
	})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("arbitrage: revalidate %s on %s: %w", pair, venueName, err)
	}
	return quote, nil
}
