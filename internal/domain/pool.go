package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pool is the state of one constant-product liquidity pool. The invariant
// baseReserve * quoteReserve = k is non-decreasing across swaps because
// fees accrete into reserves; totalShares > 0 iff both reserves > 0.
// There is at most one pool per unordered asset pair.
type Pool struct {
	ID           string          `json:"id"`
	BaseAsset    string          `json:"base_asset"`
	QuoteAsset   string          `json:"quote_asset"`
	BaseReserve  decimal.Decimal `json:"base_reserve"`
	QuoteReserve decimal.Decimal `json:"quote_reserve"`
	TotalShares  decimal.Decimal `json:"total_shares"`
	FeeRate      decimal.Decimal `json:"fee_rate"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// K returns the current constant-product invariant value.
func (p Pool) K() decimal.Decimal {
	return p.BaseReserve.Mul(p.QuoteReserve)
}

// ProviderPosition tracks one liquidity provider's stake in a pool.
// Rewards accrue pro-rata to share ownership at distribution time only.
type ProviderPosition struct {
	PoolID         string                     `json:"pool_id"`
	ProviderID     string                     `json:"provider_id"`
	ShareBalance   decimal.Decimal            `json:"share_balance"`
	PendingRewards map[string]decimal.Decimal `json:"pending_rewards"`
}

// SwapResult is the computed outcome of a swap. It is a value, not an
// independently persisted record; the caller records the resulting trade.
type SwapResult struct {
	InputAsset   string          `json:"input_asset"`
	InputAmount  decimal.Decimal `json:"input_amount"`
	OutputAsset  string          `json:"output_asset"`
	OutputAmount decimal.Decimal `json:"output_amount"`
	FeeAmount    decimal.Decimal `json:"fee_amount"`
	PriceImpact  decimal.Decimal `json:"price_impact"`
}

// PoolMetrics summarizes a pool for monitoring.
type PoolMetrics struct {
	PoolID       string          `json:"pool_id"`
	SpotPrice    decimal.Decimal `json:"spot_price"`
	TVL          decimal.Decimal `json:"tvl"`
	Fees24h      decimal.Decimal `json:"fees_24h"`
	APY          decimal.Decimal `json:"apy"`
	TotalShares  decimal.Decimal `json:"total_shares"`
	BaseReserve  decimal.Decimal `json:"base_reserve"`
	QuoteReserve decimal.Decimal `json:"quote_reserve"`
}

// RebalanceResult describes the outcome of a pool rebalance. Adjusted is
// false when the pool was already within tolerance and nothing moved.
type RebalanceResult struct {
	PoolID      string          `json:"pool_id"`
	Adjusted    bool            `json:"adjusted"`
	OldRatio    decimal.Decimal `json:"old_ratio"`
	NewRatio    decimal.Decimal `json:"new_ratio"`
	SwapAsset   string          `json:"swap_asset,omitempty"`
	SwapAmount  decimal.Decimal `json:"swap_amount"`
	TargetRatio decimal.Decimal `json:"target_ratio"`
}
