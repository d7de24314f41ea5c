// Package book is a minimal in-memory order book used as the internal
// venue. Orders rest; aggregation by price level happens on read. Matching
// against incoming flow is out of scope here.
package book

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

// Book holds resting orders per pair.
type Book struct {
	clock domain.Clock

	mu     sync.RWMutex
	orders map[string][]domain.Order
}

var _ domain.OrderBookService = (*Book)(nil)

// New creates an empty Book.
func New(clock domain.Clock) *Book {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Book{clock: clock, orders: make(map[string][]domain.Order)}
}

// PlaceOrder rests the order on the book.
func (b *Book) PlaceOrder(_ context.Context, req domain.OrderRequest) (domain.Order, error) {
	if _, _, err := domain.SplitPair(req.Pair); err != nil {
		return domain.Order{}, domain.NewValidationError("pair", err.Error())
	}
	if req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell {
		return domain.Order{}, domain.NewValidationError("side", "must be buy or sell")
	}
	if req.Price.Sign() <= 0 || req.Amount.Sign() <= 0 {
		return domain.Order{}, domain.NewValidationError("order", "price and amount must be positive")
	}

	order := domain.Order{
		ID:        uuid.NewString(),
		Pair:      req.Pair,
		Side:      req.Side,
		Price:     req.Price,
		Amount:    req.Amount,
		Metadata:  req.Metadata,
		CreatedAt: b.clock.Now(),
	}

	b.mu.Lock()
	b.orders[req.Pair] = append(b.orders[req.Pair], order)
	b.mu.Unlock()
	return order, nil
}

// OrderBook aggregates resting orders into price levels: bids descending,
// asks ascending, truncated to depth levels per side when depth > 0.
func (b *Book) OrderBook(_ context.Context, pair string, depth int) (domain.OrderBookSnapshot, error) {
	if _, _, err := domain.SplitPair(pair); err != nil {
		return domain.OrderBookSnapshot{}, domain.NewValidationError("pair", err.Error())
	}

	b.mu.RLock()
	orders := b.orders[pair]
	bidLevels := make(map[string]decimal.Decimal)
	askLevels := make(map[string]decimal.Decimal)
	bidPrices := make(map[string]decimal.Decimal)
	askPrices := make(map[string]decimal.Decimal)
	for _, o := range orders {
		key := o.Price.String()
		if o.Side == domain.OrderSideBuy {
			bidLevels[key] = bidLevels[key].Add(o.Amount)
			bidPrices[key] = o.Price
		} else {
			askLevels[key] = askLevels[key].Add(o.Amount)
			askPrices[key] = o.Price
		}
	}
	b.mu.RUnlock()

	bids := collect(bidLevels, bidPrices, func(a, b decimal.Decimal) bool { return a.GreaterThan(b) })
	asks := collect(askLevels, askPrices, func(a, b decimal.Decimal) bool { return a.LessThan(b) })
	if depth > 0 {
		if len(bids) > depth {
			bids = bids[:depth]
		}
		if len(asks) > depth {
			asks = asks[:depth]
		}
	}

	return domain.OrderBookSnapshot{
		Pair:      pair,
		Bids:      bids,
		Asks:      asks,
		Timestamp: b.clock.Now(),
	}, nil
}

func collect(levels, prices map[string]decimal.Decimal, before func(a, b decimal.Decimal) bool) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(levels))
	for key, amount := range levels {
		out = append(out, domain.PriceLevel{Price: prices[key], Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return before(out[i].Price, out[j].Price) })
	return out
}

// Orders returns a copy of every resting order for the pair, oldest first.
func (b *Book) Orders(pair string) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	orders := b.orders[pair]
	out := make([]domain.Order, len(orders))
	copy(out, orders)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
