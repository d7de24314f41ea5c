package liquidity

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquiditycore/internal/book"
	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type stubPrices struct {
	bestBid domain.Quote
	bestAsk domain.Quote
	err     error
}

func (s *stubPrices) BestBid(context.Context, string) (domain.Quote, error) {
	if s.err != nil {
		return domain.Quote{}, s.err
	}
	return s.bestBid, nil
}

func (s *stubPrices) BestAsk(context.Context, string) (domain.Quote, error) {
	if s.err != nil {
		return domain.Quote{}, s.err
	}
	return s.bestAsk, nil
}

type mockTradeHistory struct {
	mock.Mock
}

func (m *mockTradeHistory) Record(ctx context.Context, trade domain.Trade) error {
	return m.Called(ctx, trade).Error(0)
}

func (m *mockTradeHistory) RecordArbitragePair(ctx context.Context, buy, sell domain.Trade) error {
	return m.Called(ctx, buy, sell).Error(0)
}

func (m *mockTradeHistory) NotionalVolume(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockTradeHistory) ArbitrageTrades(ctx context.Context, from, to time.Time) ([]domain.Trade, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.Trade), args.Error(1)
}

func newTestCoordinator(t *testing.T, cfg Config, prices PriceSource, trades domain.TradeHistory) (*Coordinator, *book.Book) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := book.New(nil)
	return NewCoordinator(cfg, b, prices, trades, &fakeClock{now: time.Now()}, logger), b
}

func seedBook(t *testing.T, b *book.Book, pair, bid, ask, amount string) {
	t.Helper()
	ctx := context.Background()
	_, err := b.PlaceOrder(ctx, domain.OrderRequest{
		Pair: pair, Side: domain.OrderSideBuy, Price: dec(bid), Amount: dec(amount),
	})
	require.NoError(t, err)
	_, err = b.PlaceOrder(ctx, domain.OrderRequest{
		Pair: pair, Side: domain.OrderSideSell, Price: dec(ask), Amount: dec(amount),
	})
	require.NoError(t, err)
}

func TestFindArbitrageBuyInternalSellExternal(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("101"), Volume: dec("5")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("101.5"), Volume: dec("5")},
	}
	c, b := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})
	seedBook(t, b, "BTC/USD", "99.5", "100", "2")

	opps, err := c.FindArbitrageOpportunities(context.Background(), "BTC/USD")
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, "internal", opp.BuyVenue)
	assert.Equal(t, "kraken", opp.SellVenue)
	assert.True(t, dec("100").Equal(opp.BuyPrice))
	assert.True(t, dec("101").Equal(opp.SellPrice))
	// (101-100)/100 * 100 = 1.000000, six decimal places.
	assert.True(t, dec("1").Equal(opp.SpreadPercent), "profit percent %s", opp.SpreadPercent)
	assert.True(t, dec("2").Equal(opp.EstimatedVolume))
}

func TestFindArbitrageBuyExternalSellInternal(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("98.5"), Volume: dec("5")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("99"), Volume: dec("5")},
	}
	c, b := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})
	seedBook(t, b, "BTC/USD", "100", "100.5", "3")

	opps, err := c.FindArbitrageOpportunities(context.Background(), "BTC/USD")
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, "kraken", opp.BuyVenue)
	assert.Equal(t, "internal", opp.SellVenue)
	assert.True(t, dec("99").Equal(opp.BuyPrice))
	assert.True(t, dec("100").Equal(opp.SellPrice))
	assert.True(t, dec("3").Equal(opp.EstimatedVolume))
}

func TestFindArbitrageBelowThreshold(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("100.2"), Volume: dec("5")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("100.3"), Volume: dec("5")},
	}
	c, b := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})
	seedBook(t, b, "BTC/USD", "99.9", "100", "2")

	// 0.2% falls under the default 0.5% floor.
	opps, err := c.FindArbitrageOpportunities(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestFindArbitrageProfitPercentRounding(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("3.02"), Volume: dec("5")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("3.5"), Volume: dec("5")},
	}
	c, b := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})
	seedBook(t, b, "BTC/USD", "2.9", "3", "1")

	opps, err := c.FindArbitrageOpportunities(context.Background(), "BTC/USD")
	require.NoError(t, err)
	require.Len(t, opps, 1)
	// (0.02/3)*100 = 0.666666... rounds half-up at six places.
	assert.True(t, dec("0.666667").Equal(opps[0].SpreadPercent), "percent %s", opps[0].SpreadPercent)
}

func TestProvideLiquidityLadder(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("100")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("100")},
	}
	c, b := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})

	orders, err := c.ProvideLiquidity(context.Background(), "BTC/USD", domain.OrderSideBuy, dec("1"))
	require.NoError(t, err)
	require.Len(t, orders, 5)

	// 1/5 = 0.2 splits evenly; levels step 0.1% below the reference.
	wantPrices := []string{"99.9", "99.8", "99.7", "99.6", "99.5"}
	total := decimal.Zero
	for i, o := range orders {
		assert.Equal(t, domain.OrderSideBuy, o.Side)
		assert.True(t, dec(wantPrices[i]).Equal(o.Price), "level %d price %s", i+1, o.Price)
		assert.Equal(t, "liquidity-coordinator", o.Metadata["source"])
		total = total.Add(o.Amount)
	}
	assert.True(t, dec("1").Equal(total), "ladder total %s", total)

	// All five rest on the internal book.
	assert.Len(t, b.Orders("BTC/USD"), 5)
}

func TestProvideLiquidityAnchorsPerSide(t *testing.T) {
	// A wide external market: the buy ladder must hang off the bid and the
	// sell ladder off the ask, not off any blended figure.
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("90")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("110")},
	}
	c, _ := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})

	buys, err := c.ProvideLiquidity(context.Background(), "BTC/USD", domain.OrderSideBuy, dec("1"))
	require.NoError(t, err)
	require.Len(t, buys, 5)
	// 90 * (1 - 0.001) = 89.91.
	assert.True(t, dec("89.91").Equal(buys[0].Price), "first buy level %s", buys[0].Price)

	sells, err := c.ProvideLiquidity(context.Background(), "BTC/USD", domain.OrderSideSell, dec("1"))
	require.NoError(t, err)
	require.Len(t, sells, 5)
	// 110 * (1 + 0.001) = 110.11.
	assert.True(t, dec("110.11").Equal(sells[0].Price), "first sell level %s", sells[0].Price)
}

func TestProvideLiquidityRemainderOnFirstLevel(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("100")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("100")},
	}
	c, _ := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})

	// 1.00000001 / 5 truncates to 0.2; the leftover lands on level one.
	orders, err := c.ProvideLiquidity(context.Background(), "BTC/USD", domain.OrderSideSell, dec("1.00000001"))
	require.NoError(t, err)
	require.Len(t, orders, 5)

	assert.True(t, dec("0.20000001").Equal(orders[0].Amount), "first level %s", orders[0].Amount)
	for _, o := range orders[1:] {
		assert.True(t, dec("0.2").Equal(o.Amount))
	}
	// Sells step upward.
	assert.True(t, dec("100.1").Equal(orders[0].Price))
}

func TestAlignPricesSellWhenRich(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("100")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("101")},
	}
	c, b := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})
	// Internal bid 102.5 is 2.5% above the external bid; the ask is close.
	seedBook(t, b, "BTC/USD", "102.5", "101.2", "1")

	order, err := c.AlignPrices(context.Background(), "BTC/USD")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, domain.OrderSideSell, order.Side)
	assert.True(t, dec("100").Equal(order.Price))
	assert.Equal(t, "price-alignment", order.Metadata["source"])
}

func TestAlignPricesBuyWhenBidLags(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("100")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("101")},
	}
	c, b := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})
	// Internal bid lags the external bid by 2% while the ask is within
	// tolerance (0.495%). The lagging bid alone must trigger a corrective buy
	// at the external bid.
	seedBook(t, b, "BTC/USD", "98", "101.5", "1")

	order, err := c.AlignPrices(context.Background(), "BTC/USD")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, domain.OrderSideBuy, order.Side)
	assert.True(t, dec("100").Equal(order.Price), "corrective price %s", order.Price)
}

func TestAlignPricesWithinThresholdNoOp(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("100")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("100.5")},
	}
	c, b := newTestCoordinator(t, Config{}, prices, &mockTradeHistory{})
	// Both sides sit inside the default 1% tolerance.
	seedBook(t, b, "BTC/USD", "99.8", "100.4", "1")

	order, err := c.AlignPrices(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Nil(t, order)
	// The seeded orders are the only thing on the book.
	assert.Len(t, b.Orders("BTC/USD"), 2)
}

func TestMonitorPriceDivergence(t *testing.T) {
	prices := &stubPrices{
		bestBid: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Bid: dec("100")},
		bestAsk: domain.Quote{Venue: "kraken", Pair: "BTC/USD", Ask: dec("100")},
	}
	cfg := Config{Pairs: []string{"BTC/USD", "ETH/USD"}}
	c, b := newTestCoordinator(t, cfg, prices, &mockTradeHistory{})
	seedBook(t, b, "BTC/USD", "101.5", "102.5", "1")
	// ETH/USD has no internal book and is skipped.

	report := c.MonitorPriceDivergence(context.Background())
	require.Len(t, report, 1)
	// Bid is 1.5% rich, ask 2.5%; the worse side is reported.
	assert.True(t, dec("2.5").Equal(report["BTC/USD"]), "divergence %s", report["BTC/USD"])
}

func TestArbitrageStats(t *testing.T) {
	now := time.Now()
	from := now.Add(-time.Hour)
	to := now.Add(time.Minute)
	trades := &mockTradeHistory{}
	trades.On("ArbitrageTrades", mock.Anything, from, to).Return([]domain.Trade{
		{ID: "t1", ArbitrageID: "a1", Venue: "internal", Symbol: "BTC/USD", Side: domain.OrderSideBuy,
			Price: dec("100"), Volume: dec("2"), Fee: dec("0.1"), ExecutedAt: now},
		{ID: "t2", ArbitrageID: "a1", Venue: "kraken", Symbol: "BTC/USD", Side: domain.OrderSideSell,
			Price: dec("101"), Volume: dec("2"), Fee: dec("0.1"), ExecutedAt: now},
		{ID: "t3", ArbitrageID: "a2", Venue: "kraken", Symbol: "ETH/USD", Side: domain.OrderSideBuy,
			Price: dec("50"), Volume: dec("1"), Fee: dec("0.05"), ExecutedAt: now},
		{ID: "t4", ArbitrageID: "a2", Venue: "internal", Symbol: "ETH/USD", Side: domain.OrderSideSell,
			Price: dec("50.5"), Volume: dec("1"), Fee: dec("0.05"), ExecutedAt: now},
		// An orphaned leg contributes nothing.
		{ID: "t5", ArbitrageID: "a3", Venue: "kraken", Symbol: "BTC/USD", Side: domain.OrderSideBuy,
			Price: dec("10"), Volume: dec("1"), Fee: dec("0.01"), ExecutedAt: now},
	}, nil).Once()

	c, _ := newTestCoordinator(t, Config{}, &stubPrices{}, trades)
	stats, err := c.ArbitrageStats(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, from, stats.From)
	assert.Equal(t, to, stats.To)
	assert.Equal(t, 2, stats.ExecutionCount)
	assert.True(t, dec("3").Equal(stats.TotalVolume), "volume %s", stats.TotalVolume)
	// a1: (101-100)*2 - 0.2 = 1.8; a2: (50.5-50)*1 - 0.1 = 0.4.
	assert.True(t, dec("2.2").Equal(stats.TotalProfit), "profit %s", stats.TotalProfit)

	// Volume counts on both legs' venues; profit lands on the selling venue.
	assert.True(t, dec("3").Equal(stats.VolumeByVenue["internal"]))
	assert.True(t, dec("3").Equal(stats.VolumeByVenue["kraken"]))
	assert.True(t, dec("1.8").Equal(stats.ProfitByVenue["kraken"]))
	assert.True(t, dec("0.4").Equal(stats.ProfitByVenue["internal"]))

	assert.True(t, dec("2").Equal(stats.VolumeBySymbol["BTC/USD"]))
	assert.True(t, dec("1").Equal(stats.VolumeBySymbol["ETH/USD"]))
	assert.True(t, dec("1.8").Equal(stats.ProfitBySymbol["BTC/USD"]))
	assert.True(t, dec("0.4").Equal(stats.ProfitBySymbol["ETH/USD"]))
	trades.AssertExpectations(t)
}

func TestArbitrageStatsValidation(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{}, &stubPrices{}, &mockTradeHistory{})
	now := time.Now()

	_, err := c.ArbitrageStats(context.Background(), time.Time{}, now)
	assert.True(t, domain.IsValidation(err))

	_, err = c.ArbitrageStats(context.Background(), now, now.Add(-time.Hour))
	assert.True(t, domain.IsValidation(err))
}
