// Package liquidity coordinates the internal order book with external
// venue prices: arbitrage discovery, laddered quoting, and price alignment.
package liquidity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

const internalVenue = "internal"

var hundred = decimal.NewFromInt(100)

// PriceSource is the slice of the aggregator the coordinator needs.
type PriceSource interface {
	BestBid(ctx context.Context, pair string) (domain.Quote, error)
	BestAsk(ctx context.Context, pair string) (domain.Quote, error)
}

// Config tunes the coordinator. Zero fields fall back to defaults.
type Config struct {
	// Pairs are the symbols MonitorPriceDivergence walks.
	Pairs []string
	// MinProfitPercent is the floor for reported opportunities.
	MinProfitPercent decimal.Decimal
	// DivergencePercent is the internal/external deviation beyond which
	// AlignPrices acts.
	DivergencePercent decimal.Decimal
	// LadderLevels is how many orders ProvideLiquidity spreads out.
	LadderLevels int
	// LadderStepPercent is the price distance between ladder levels.
	LadderStepPercent decimal.Decimal
	// AlignOrderSize is the size of a corrective alignment order.
	AlignOrderSize decimal.Decimal
}

func (c Config) withDefaults() Config {
	if c.MinProfitPercent.Sign() <= 0 {
		c.MinProfitPercent = decimal.RequireFromString("0.5")
	}
	if c.DivergencePercent.Sign() <= 0 {
		c.DivergencePercent = decimal.RequireFromString("1")
	}
	if c.LadderLevels <= 0 {
		c.LadderLevels = 5
	}
	if c.LadderStepPercent.Sign() <= 0 {
		c.LadderStepPercent = decimal.RequireFromString("0.1")
	}
	if c.AlignOrderSize.Sign() <= 0 {
		c.AlignOrderSize = decimal.RequireFromString("0.1")
	}
	return c
}

// Coordinator bridges the internal order book and external venue prices.
type Coordinator struct {
	cfg    Config
	book   domain.OrderBookService
	prices PriceSource
	trades domain.TradeHistory
	clock  domain.Clock
	logger *slog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg Config, book domain.OrderBookService, prices PriceSource, trades domain.TradeHistory, clock domain.Clock, logger *slog.Logger) *Coordinator {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Coordinator{
		cfg:    cfg.withDefaults(),
		book:   book,
		prices: prices,
		trades: trades,
		clock:  clock,
		logger: logger.With(slog.String("component", "liquidity")),
	}
}

// FindArbitrageOpportunities compares the internal book's top of book with
// the best external prices in both directions. Profit percentages are
// rounded half-up to six decimal places.
func (c *Coordinator) FindArbitrageOpportunities(ctx context.Context, pair string) ([]domain.ArbitrageOpportunity, error) {
	if _, _, err := domain.SplitPair(pair); err != nil {
		return nil, domain.NewValidationError("pair", err.Error())
	}

	book, err := c.book.OrderBook(ctx, pair, 1)
	if err != nil {
		return nil, fmt.Errorf("liquidity: internal book %s: %w", pair, err)
	}

	now := c.clock.Now()
	opportunities := make([]domain.ArbitrageOpportunity, 0, 2)

	// Buy internally, sell externally.
	if internalAsk, ok := book.BestAsk(); ok {
		extBid, err := c.prices.BestBid(ctx, pair)
		if err == nil {
			if opp, found := c.crossOpportunity(pair, internalVenue, extBid.Venue,
				internalAsk.Price, extBid.Bid, decimal.Min(internalAsk.Amount, extBid.Volume), now); found {
				opportunities = append(opportunities, opp)
			}
		}
	}

	// Buy externally, sell internally.
	if internalBid, ok := book.BestBid(); ok {
		extAsk, err := c.prices.BestAsk(ctx, pair)
		if err == nil {
			if opp, found := c.crossOpportunity(pair, extAsk.Venue, internalVenue,
				extAsk.Ask, internalBid.Price, decimal.Min(internalBid.Amount, extAsk.Volume), now); found {
				opportunities = append(opportunities, opp)
			}
		}
	}

	return opportunities, nil
}

func (c *Coordinator) crossOpportunity(pair, buyVenue, sellVenue string, buyPrice, sellPrice, volume decimal.Decimal, now time.Time) (domain.ArbitrageOpportunity, bool) {
	if buyPrice.Sign() <= 0 || volume.Sign() <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}
	spread := sellPrice.Sub(buyPrice)
	if spread.Sign() <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}
	profitPercent := spread.Mul(hundred).DivRound(buyPrice, 6)
	if profitPercent.LessThan(c.cfg.MinProfitPercent) {
		return domain.ArbitrageOpportunity{}, false
	}
	return domain.ArbitrageOpportunity{
		ID:              uuid.NewString(),
		Symbol:          pair,
		BuyVenue:        buyVenue,
		SellVenue:       sellVenue,
		BuyPrice:        buyPrice,
		SellPrice:       sellPrice,
		Spread:          spread,
		SpreadPercent:   profitPercent,
		EstimatedVolume: volume,
		EstimatedProfit: spread.Mul(volume).RoundDown(8),
		DetectedAt:      now,
		ExpiresAt:       now.Add(5 * time.Minute),
	}, true
}

// ProvideLiquidity ladders totalAmount across the configured number of
// levels around the external reference price: buys step down from it, sells
// step up. The per-level remainder lands on the level closest to the market.
func (c *Coordinator) ProvideLiquidity(ctx context.Context, pair string, side domain.OrderSide, totalAmount decimal.Decimal) ([]domain.Order, error) {
	if totalAmount.Sign() <= 0 {
		return nil, domain.NewValidationError("total_amount", "must be positive")
	}
	if side != domain.OrderSideBuy && side != domain.OrderSideSell {
		return nil, domain.NewValidationError("side", "must be buy or sell")
	}

	// Buys anchor to the best external bid, sells to the best external ask,
	// so the ladder brackets the side of the market it quotes on.
	var reference decimal.Decimal
	if side == domain.OrderSideBuy {
		quote, err := c.prices.BestBid(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf("liquidity: reference bid %s: %w", pair, err)
		}
		reference = quote.Bid
	} else {
		quote, err := c.prices.BestAsk(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf("liquidity: reference ask %s: %w", pair, err)
		}
		reference = quote.Ask
	}
	if reference.Sign() <= 0 {
		return nil, fmt.Errorf("liquidity: reference price %s: %w", pair, domain.ErrNoMarketData)
	}

	levels := int64(c.cfg.LadderLevels)
	slice := totalAmount.Div(decimal.NewFromInt(levels)).RoundDown(8)
	if slice.Sign() <= 0 {
		return nil, domain.NewValidationError("total_amount", "too small to ladder")
	}
	remainder := totalAmount.Sub(slice.Mul(decimal.NewFromInt(levels)))

	step := c.cfg.LadderStepPercent.Div(hundred)
	orders := make([]domain.Order, 0, c.cfg.LadderLevels)
	for i := 0; i < c.cfg.LadderLevels; i++ {
		offset := step.Mul(decimal.NewFromInt(int64(i + 1)))
		var price decimal.Decimal
		if side == domain.OrderSideBuy {
			price = reference.Mul(decimal.NewFromInt(1).Sub(offset))
		} else {
			price = reference.Mul(decimal.NewFromInt(1).Add(offset))
		}

		amount := slice
		if i == 0 {
			amount = amount.Add(remainder)
		}

		order, err := c.book.PlaceOrder(ctx, domain.OrderRequest{
			Pair:   pair,
			Side:   side,
			Price:  price.RoundDown(8),
			Amount: amount,
			Metadata: map[string]string{
				"source": "liquidity-coordinator",
				"level":  fmt.Sprintf("%d", i+1),
			},
		})
		if err != nil {
			return orders, fmt.Errorf("liquidity: place level %d: %w", i+1, err)
		}
		orders = append(orders, order)
	}

	c.logger.Info("liquidity provided",
		slog.String("pair", pair),
		slog.String("side", string(side)),
		slog.String("total", totalAmount.String()),
		slog.Int("levels", len(orders)))
	return orders, nil
}

// sideDeviation is one side of the internal top of book measured against
// its external reference price.
type sideDeviation struct {
	percent   decimal.Decimal
	reference decimal.Decimal
}

// AlignPrices corrects the internal book when either side's top of book
// drifts from the matching external best price beyond the configured
// threshold. The corrective order is placed at the external reference for
// the worse side: a buy when the book trades cheap, a sell when it trades
// rich. Within threshold it places nothing.
func (c *Coordinator) AlignPrices(ctx context.Context, pair string) (*domain.Order, error) {
	bidDev, askDev, err := c.sideDeviations(ctx, pair)
	if err != nil {
		return nil, err
	}

	worst := bidDev
	if askDev.percent.Abs().GreaterThan(bidDev.percent.Abs()) {
		worst = askDev
	}
	if worst.percent.Abs().LessThanOrEqual(c.cfg.DivergencePercent) {
		return nil, nil
	}

	side := domain.OrderSideBuy
	if worst.percent.Sign() > 0 {
		side = domain.OrderSideSell
	}

	order, err := c.book.PlaceOrder(ctx, domain.OrderRequest{
		Pair:   pair,
		Side:   side,
		Price:  worst.reference.RoundDown(8),
		Amount: c.cfg.AlignOrderSize,
		Metadata: map[string]string{
			"source":     "price-alignment",
			"divergence": worst.percent.StringFixed(6),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("liquidity: align %s: %w", pair, err)
	}

	c.logger.Info("alignment order placed",
		slog.String("pair", pair),
		slog.String("side", string(side)),
		slog.String("divergence_percent", worst.percent.StringFixed(6)))
	return &order, nil
}

// sideDeviations compares the internal best bid against the external best
// bid and the internal best ask against the external best ask, each as a
// percentage of the external price. Positive means the internal side trades
// rich. Comparing per side keeps a one-sided drift visible; a mid-based
// figure would halve it.
func (c *Coordinator) sideDeviations(ctx context.Context, pair string) (bidDev, askDev sideDeviation, err error) {
	book, err := c.book.OrderBook(ctx, pair, 1)
	if err != nil {
		return sideDeviation{}, sideDeviation{}, fmt.Errorf("liquidity: internal book %s: %w", pair, err)
	}
	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		return sideDeviation{}, sideDeviation{}, fmt.Errorf("liquidity: divergence %s: %w", pair, domain.ErrNoMarketData)
	}

	extBid, err := c.prices.BestBid(ctx, pair)
	if err != nil {
		return sideDeviation{}, sideDeviation{}, err
	}
	extAsk, err := c.prices.BestAsk(ctx, pair)
	if err != nil {
		return sideDeviation{}, sideDeviation{}, err
	}
	if extBid.Bid.Sign() <= 0 || extAsk.Ask.Sign() <= 0 {
		return sideDeviation{}, sideDeviation{}, fmt.Errorf("liquidity: divergence %s: %w", pair, domain.ErrNoMarketData)
	}

	bidDev = sideDeviation{
		percent:   bid.Price.Sub(extBid.Bid).Mul(hundred).DivRound(extBid.Bid, 6),
		reference: extBid.Bid,
	}
	askDev = sideDeviation{
		percent:   ask.Price.Sub(extAsk.Ask).Mul(hundred).DivRound(extAsk.Ask, 6),
		reference: extAsk.Ask,
	}
	return bidDev, askDev, nil
}

// MonitorPriceDivergence reports the worse of the two per-side deviations
// for every configured pair. Pairs that cannot be measured are logged and
// skipped.
func (c *Coordinator) MonitorPriceDivergence(ctx context.Context) map[string]decimal.Decimal {
	report := make(map[string]decimal.Decimal, len(c.cfg.Pairs))
	for _, pair := range c.cfg.Pairs {
		bidDev, askDev, err := c.sideDeviations(ctx, pair)
		if err != nil {
			c.logger.Warn("divergence check failed",
				slog.String("pair", pair),
				slog.String("error", err.Error()))
			continue
		}
		divergence := bidDev.percent
		if askDev.percent.Abs().GreaterThan(bidDev.percent.Abs()) {
			divergence = askDev.percent
		}
		report[pair] = divergence
		if divergence.Abs().GreaterThan(c.cfg.DivergencePercent) {
			c.logger.Warn("price divergence above threshold",
				slog.String("pair", pair),
				slog.String("divergence_percent", divergence.StringFixed(6)))
		}
	}
	return report
}

// ArbitrageStats aggregates realized arbitrage results executed in
// [from, to]. Volume is rolled up per venue (both legs) and per symbol;
// profit is attributed to the venue the position was sold on and to the
// traded symbol.
func (c *Coordinator) ArbitrageStats(ctx context.Context, from, to time.Time) (domain.ArbitrageStats, error) {
	if from.IsZero() || to.IsZero() {
		return domain.ArbitrageStats{}, domain.NewValidationError("range", "from and to must be set")
	}
	if !to.After(from) {
		return domain.ArbitrageStats{}, domain.NewValidationError("range", "to must be after from")
	}

	trades, err := c.trades.ArbitrageTrades(ctx, from, to)
	if err != nil {
		return domain.ArbitrageStats{}, fmt.Errorf("liquidity: load arbitrage trades: %w", err)
	}

	type legs struct {
		buy  *domain.Trade
		sell *domain.Trade
	}
	byID := make(map[string]*legs)
	for i := range trades {
		tr := &trades[i]
		if tr.ArbitrageID == "" {
			continue
		}
		pair, ok := byID[tr.ArbitrageID]
		if !ok {
			pair = &legs{}
			byID[tr.ArbitrageID] = pair
		}
		if tr.Side == domain.OrderSideBuy {
			pair.buy = tr
		} else {
			pair.sell = tr
		}
	}

	stats := domain.ArbitrageStats{
		From:           from,
		To:             to,
		TotalVolume:    decimal.Zero,
		TotalProfit:    decimal.Zero,
		VolumeByVenue:  make(map[string]decimal.Decimal),
		ProfitByVenue:  make(map[string]decimal.Decimal),
		VolumeBySymbol: make(map[string]decimal.Decimal),
		ProfitBySymbol: make(map[string]decimal.Decimal),
	}
	for _, pair := range byID {
		if pair.buy == nil || pair.sell == nil {
			continue
		}
		volume := pair.buy.Volume
		symbol := pair.buy.Symbol
		profit := pair.sell.Price.Sub(pair.buy.Price).Mul(volume).
			Sub(pair.buy.Fee).Sub(pair.sell.Fee)

		stats.ExecutionCount++
		stats.TotalVolume = stats.TotalVolume.Add(volume)
		stats.TotalProfit = stats.TotalProfit.Add(profit)
		stats.VolumeByVenue[pair.buy.Venue] = stats.VolumeByVenue[pair.buy.Venue].Add(volume)
		stats.VolumeByVenue[pair.sell.Venue] = stats.VolumeByVenue[pair.sell.Venue].Add(volume)
		venue := pair.sell.Venue
		stats.ProfitByVenue[venue] = stats.ProfitByVenue[venue].Add(profit)
		stats.VolumeBySymbol[symbol] = stats.VolumeBySymbol[symbol].Add(volume)
		stats.ProfitBySymbol[symbol] = stats.ProfitBySymbol[symbol].Add(profit)
	}
	return stats, nil
}
