package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed fill, durably persisted. ArbitrageID links the two
// legs of an arbitrage pair; it is empty for ordinary trades.
type Trade struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Venue       string          `json:"venue"`
	Symbol      string          `json:"symbol"`
	Side        OrderSide       `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Volume      decimal.Decimal `json:"volume"`
	Fee         decimal.Decimal `json:"fee"`
	ArbitrageID string          `json:"arbitrage_id,omitempty"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// Notional returns price * volume for the trade.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Volume)
}

// TradeHistory is the durable record of executed trades. RecordArbitragePair
// persists both legs in one transaction so either both exist or neither does.
type TradeHistory interface {
	Record(ctx context.Context, trade Trade) error
	RecordArbitragePair(ctx context.Context, buy, sell Trade) error
	NotionalVolume(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error)
	ArbitrageTrades(ctx context.Context, from, to time.Time) ([]Trade, error)
}

// ArbitrageStats aggregates realized arbitrage performance over [From, To],
// broken down per venue and per symbol.
type ArbitrageStats struct {
	From           time.Time                  `json:"from"`
	To             time.Time                  `json:"to"`
	ExecutionCount int                        `json:"execution_count"`
	TotalVolume    decimal.Decimal            `json:"total_volume"`
	TotalProfit    decimal.Decimal            `json:"total_profit"`
	VolumeByVenue  map[string]decimal.Decimal `json:"volume_by_venue"`
	ProfitByVenue  map[string]decimal.Decimal `json:"profit_by_venue"`
	VolumeBySymbol map[string]decimal.Decimal `json:"volume_by_symbol"`
	ProfitBySymbol map[string]decimal.Decimal `json:"profit_by_symbol"`
}
