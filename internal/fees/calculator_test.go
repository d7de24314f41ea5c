package fees

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

	"github.com/alanyoungcy/liquiditycore/internal/cache/memory"
	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

type mockTradeHistory struct {
	mock.Mock
}

func (m *mockTradeHistory) Record(ctx context.Context, trade domain.Trade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

func (m *mockTradeHistory) RecordArbitragePair(ctx context.Context, buy, sell domain.Trade) error {
	args := m.Called(ctx, buy, sell)
	return args.Error(0)
}

func (m *mockTradeHistory) NotionalVolume(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockTradeHistory) ArbitrageTrades(ctx context.Context, from, to time.Time) ([]domain.Trade, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.Trade), args.Error(1)
}

func newTestCalculator(t *testing.T, trades domain.TradeHistory) *Calculator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCalculator(trades, memory.New(nil), nil, logger)
}

func TestRateTiers(t *testing.T) {
	cases := []struct {
		name   string
		volume string
		side   domain.FeeSide
		want   string
	}{
		{"zero volume taker", "0", domain.FeeSideTaker, "0.002"},
		{"zero volume maker", "0", domain.FeeSideMaker, "0.001"},
		{"just below first tier", "99999.99", domain.FeeSideTaker, "0.002"},
		{"first tier boundary", "100000", domain.FeeSideTaker, "0.002"},
		{"mid tier maker", "500000", domain.FeeSideMaker, "0.00095"},
		{"mid tier taker", "750000", domain.FeeSideTaker, "0.0019"},
		{"top tier maker", "1000000", domain.FeeSideMaker, "0.0009"},
		{"top tier taker", "2500000", domain.FeeSideTaker, "0.0018"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trades := &mockTradeHistory{}
			trades.On("NotionalVolume", mock.Anything, "acct", mock.Anything).
				Return(decimal.RequireFromString(tc.volume), nil).Once()

			calc := newTestCalculator(t, trades)
			rate, err := calc.Rate(context.Background(), "acct", tc.side)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(rate.Rate),
				"want %s got %s", tc.want, rate.Rate)
			trades.AssertExpectations(t)
		})
	}
}

func TestRateMonotonicNonIncreasing(t *testing.T) {
	volumes := []string{"0", "50000", "100000", "250000", "500000", "1000000", "10000000"}
	for _, side := range []domain.FeeSide{domain.FeeSideMaker, domain.FeeSideTaker} {
		prev := decimal.NewFromInt(1)
		for _, v := range volumes {
			rate := rateForVolume(decimal.RequireFromString(v), side)
			assert.True(t, rate.LessThanOrEqual(prev),
				"%s rate at volume %s increased: %s > %s", side, v, rate, prev)
			prev = rate
		}
	}
}

func TestRateCachedAfterFirstLookup(t *testing.T) {
	trades := &mockTradeHistory{}
	trades.On("NotionalVolume", mock.Anything, "acct", mock.Anything).
		Return(decimal.NewFromInt(600_000), nil).Once()

	calc := newTestCalculator(t, trades)
	ctx := context.Background()

	first, err := calc.Rate(ctx, "acct", domain.FeeSideTaker)
	require.NoError(t, err)
	second, err := calc.Rate(ctx, "acct", domain.FeeSideTaker)
	require.NoError(t, err)

	assert.True(t, first.Rate.Equal(second.Rate))
	trades.AssertNumberOfCalls(t, "NotionalVolume", 1)
}

func TestRateCacheIsPerSide(t *testing.T) {
	trades := &mockTradeHistory{}
	trades.On("NotionalVolume", mock.Anything, "acct", mock.Anything).
		Return(decimal.NewFromInt(600_000), nil).Twice()

	calc := newTestCalculator(t, trades)
	ctx := context.Background()

	maker, err := calc.Rate(ctx, "acct", domain.FeeSideMaker)
	require.NoError(t, err)
	taker, err := calc.Rate(ctx, "acct", domain.FeeSideTaker)
	require.NoError(t, err)

	assert.True(t, maker.Rate.LessThan(taker.Rate))
	trades.AssertExpectations(t)
}

func TestRateValidation(t *testing.T) {
	calc := newTestCalculator(t, &mockTradeHistory{})
	ctx := context.Background()

	_, err := calc.Rate(ctx, "", domain.FeeSideTaker)
	assert.True(t, domain.IsValidation(err))

	_, err = calc.Rate(ctx, "acct", domain.FeeSide("other"))
	assert.True(t, domain.IsValidation(err))
}

func TestOrderFees(t *testing.T) {
	trades := &mockTradeHistory{}
	trades.On("NotionalVolume", mock.Anything, "maker", mock.Anything).
		Return(decimal.Zero, nil).Once()
	trades.On("NotionalVolume", mock.Anything, "taker", mock.Anything).
		Return(decimal.Zero, nil).Once()

	calc := newTestCalculator(t, trades)
	fees, err := calc.OrderFees(context.Background(), "maker", "taker",
		decimal.NewFromInt(50_000), decimal.RequireFromString("0.5"))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(25).Equal(fees.MakerFee), "maker fee %s", fees.MakerFee)
	assert.True(t, decimal.NewFromInt(50).Equal(fees.TakerFee), "taker fee %s", fees.TakerFee)
}

func TestOrderFeesRoundDown(t *testing.T) {
	trades := &mockTradeHistory{}
	trades.On("NotionalVolume", mock.Anything, mock.Anything, mock.Anything).
		Return(decimal.Zero, nil)

	calc := newTestCalculator(t, trades)
	// 0.00000001 * 3 notional at 0.2% is 0.00000000006, which truncates
	// to zero rather than rounding up against the account.
	fees, err := calc.OrderFees(context.Background(), "maker", "taker",
		decimal.RequireFromString("0.00000001"), decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.True(t, fees.TakerFee.IsZero(), "taker fee %s", fees.TakerFee)
}

func TestOrderFeesValidation(t *testing.T) {
	calc := newTestCalculator(t, &mockTradeHistory{})
	ctx := context.Background()

	_, err := calc.OrderFees(ctx, "m", "t", decimal.Zero, decimal.NewFromInt(1))
	assert.True(t, domain.IsValidation(err))

	_, err = calc.OrderFees(ctx, "m", "t", decimal.NewFromInt(1), decimal.NewFromInt(-2))
	assert.True(t, domain.IsValidation(err))
}

func TestMinimumOrderValue(t *testing.T) {
	base, quote := MinimumOrderValue("BTC", "usd")
	assert.True(t, decimal.RequireFromString("0.0001").Equal(base), "base floor %s", base)
	assert.True(t, decimal.NewFromInt(10).Equal(quote), "quote floor %s", quote)

	base, quote = MinimumOrderValue("DOGE", "USDT")
	// Unknown assets fall back to the default floor.
	assert.True(t, decimal.NewFromInt(1).Equal(base), "base floor %s", base)
	assert.True(t, decimal.NewFromInt(10).Equal(quote), "quote floor %s", quote)
}

func TestForgetInvalidatesCachedRate(t *testing.T) {
	trades := &mockTradeHistory{}
	trades.On("NotionalVolume", mock.Anything, "acct", mock.Anything).
		Return(decimal.NewFromInt(50_000), nil).Once()
	trades.On("NotionalVolume", mock.Anything, "acct", mock.Anything).
		Return(decimal.NewFromInt(1_500_000), nil).Once()

	calc := newTestCalculator(t, trades)
	ctx := context.Background()

	before, err := calc.Rate(ctx, "acct", domain.FeeSideTaker)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.002").Equal(before.Rate))

	calc.Forget(ctx, "acct")

	after, err := calc.Rate(ctx, "acct", domain.FeeSideTaker)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.0018").Equal(after.Rate))
}
