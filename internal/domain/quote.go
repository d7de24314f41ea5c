package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a single venue's view of a trading pair. Quotes are ephemeral:
// they live in short-TTL caches and are never durably persisted.
type Quote struct {
	Venue     string          `json:"venue"`
	Pair      string          `json:"pair"`
	Price     decimal.Decimal `json:"price"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// AggregatedPrice is the cross-venue summary for a pair.
type AggregatedPrice struct {
	Pair      string          `json:"pair"`
	Average   decimal.Decimal `json:"average"`
	Min       decimal.Decimal `json:"min"`
	Max       decimal.Decimal `json:"max"`
	Spread    decimal.Decimal `json:"spread"`
	Quotes    []Quote         `json:"quotes"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SplitPair splits a "BASE/QUOTE" symbol into its assets.
func SplitPair(symbol string) (base, quote string, err error) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed pair %q", symbol)
	}
	return parts[0], parts[1], nil
}

// PairSymbol joins two assets into the canonical "BASE/QUOTE" form.
func PairSymbol(base, quote string) string {
	return base + "/" + quote
}
