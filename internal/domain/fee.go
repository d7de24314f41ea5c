package domain

import "github.com/shopspring/decimal"

// FeeSide distinguishes the resting (maker) from the crossing (taker) order.
type FeeSide string

const (
	FeeSideMaker FeeSide = "maker"
	FeeSideTaker FeeSide = "taker"
)

// FeeRate is an account's resolved rate for one side, derived from its
// trailing 30-day notional volume. Cached rates are a performance
// optimization, not a correctness source.
type FeeRate struct {
	AccountID string          `json:"account_id"`
	Side      FeeSide         `json:"side"`
	Rate      decimal.Decimal `json:"rate"`
}

// FeeBreakdown is the result of fee calculation for one fill.
type FeeBreakdown struct {
	MakerFee  decimal.Decimal `json:"maker_fee"`
	TakerFee  decimal.Decimal `json:"taker_fee"`
	MakerRate decimal.Decimal `json:"maker_rate"`
	TakerRate decimal.Decimal `json:"taker_rate"`
}
