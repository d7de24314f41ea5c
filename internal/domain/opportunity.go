package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageOpportunity is an advisory record of a detected cross-venue
// spread. It is a hint, never a price lock: execution always revalidates
// live prices, and the record unconditionally expires at ExpiresAt
// regardless of execution outcome.
type ArbitrageOpportunity struct {
	ID              string          `json:"id"`
	Symbol          string          `json:"symbol"`
	BuyVenue        string          `json:"buy_venue"`
	SellVenue       string          `json:"sell_venue"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	SellPrice       decimal.Decimal `json:"sell_price"`
	Spread          decimal.Decimal `json:"spread"`
	SpreadPercent   decimal.Decimal `json:"spread_percent"`
	EstimatedVolume decimal.Decimal `json:"estimated_volume"`
	EstimatedProfit decimal.Decimal `json:"estimated_profit"`
	DetectedAt      time.Time       `json:"detected_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
}

// ArbitrageExecution is the realized result of executing an opportunity.
// Both legs are recorded atomically before it is returned.
type ArbitrageExecution struct {
	OpportunityID string          `json:"opportunity_id"`
	Symbol        string          `json:"symbol"`
	BuyVenue      string          `json:"buy_venue"`
	SellVenue     string          `json:"sell_venue"`
	BuyPrice      decimal.Decimal `json:"buy_price"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	Volume        decimal.Decimal `json:"volume"`
	Fees          decimal.Decimal `json:"fees"`
	Profit        decimal.Decimal `json:"profit"`
	ExecutedAt    time.Time       `json:"executed_at"`
}
