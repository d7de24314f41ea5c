package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// PriceLevel is one rung of an order book ladder.
type PriceLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderBookSnapshot is a point-in-time view of one side-sorted book:
// bids descending, asks ascending.
type OrderBookSnapshot struct {
	Pair      string       `json:"pair"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// BestBid returns the top bid level, if any.
func (s OrderBookSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the top ask level, if any.
func (s OrderBookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// OrderRequest describes an order to place on the internal book. Metadata
// carries provenance tags that survive onto the placed order.
type OrderRequest struct {
	Pair     string            `json:"pair"`
	Side     OrderSide         `json:"side"`
	Price    decimal.Decimal   `json:"price"`
	Amount   decimal.Decimal   `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Order is a placed order.
type Order struct {
	ID        string            `json:"id"`
	Pair      string            `json:"pair"`
	Side      OrderSide         `json:"side"`
	Price     decimal.Decimal   `json:"price"`
	Amount    decimal.Decimal   `json:"amount"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderBookService is the internal venue's book. It is an optional
// capability: the coordinator is only wired when an implementation exists.
type OrderBookService interface {
	OrderBook(ctx context.Context, pair string, depth int) (OrderBookSnapshot, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Order, error)
}
