// Package venuetest provides a scriptable venue connector for tests.
package venuetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

// Stub is an in-memory venue connector. Quotes and books are set by tests;
// an injected error makes every call fail until cleared.
type Stub struct {
	name string

	mu        sync.Mutex
	available bool
	err       error
	quotes    map[string]domain.Quote
	books     map[string]domain.OrderBookSnapshot
	orders    []domain.Order
}

var _ domain.VenueConnector = (*Stub)(nil)

// New creates an available Stub with no quotes.
func New(name string) *Stub {
	return &Stub{
		name:      name,
		available: true,
		quotes:    make(map[string]domain.Quote),
		books:     make(map[string]domain.OrderBookSnapshot),
	}
}

func (s *Stub) Name() string { return s.name }

func (s *Stub) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// SetAvailable toggles availability.
func (s *Stub) SetAvailable(v bool) {
	s.mu.Lock()
	s.available = v
	s.mu.Unlock()
}

// Fail makes every subsequent call return err; nil clears the injection.
func (s *Stub) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// SetQuote installs the pair's quote, defaulting bid/ask around price when
// they are unset.
func (s *Stub) SetQuote(q domain.Quote) {
	if q.Venue == "" {
		q.Venue = s.name
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.quotes[q.Pair] = q
	s.mu.Unlock()
}

// SetBook installs the pair's order book snapshot.
func (s *Stub) SetBook(book domain.OrderBookSnapshot) {
	s.mu.Lock()
	s.books[book.Pair] = book
	s.mu.Unlock()
}

func (s *Stub) Ticker(_ context.Context, pair string) (domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Quote{}, s.err
	}
	q, ok := s.quotes[pair]
	if !ok {
		return domain.Quote{}, fmt.Errorf("venuetest: %s: no quote for %s", s.name, pair)
	}
	return q, nil
}

func (s *Stub) OrderBook(_ context.Context, pair string, depth int) (domain.OrderBookSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.OrderBookSnapshot{}, s.err
	}
	book, ok := s.books[pair]
	if !ok {
		return domain.OrderBookSnapshot{}, fmt.Errorf("venuetest: %s: no book for %s", s.name, pair)
	}
	if depth > 0 {
		if len(book.Bids) > depth {
			book.Bids = book.Bids[:depth]
		}
		if len(book.Asks) > depth {
			book.Asks = book.Asks[:depth]
		}
	}
	return book, nil
}

func (s *Stub) PlaceOrder(_ context.Context, req domain.OrderRequest) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Order{}, s.err
	}
	order := domain.Order{
		ID:        uuid.NewString(),
		Pair:      req.Pair,
		Side:      req.Side,
		Price:     req.Price,
		Amount:    req.Amount,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
	}
	s.orders = append(s.orders, order)
	return order, nil
}

// Orders returns a copy of every order placed so far.
func (s *Stub) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// QuoteAt is a convenience constructor for a quote with a symmetric spread
// around price.
func QuoteAt(venue, pair string, price, halfSpread, volume decimal.Decimal) domain.Quote {
	return domain.Quote{
		Venue:     venue,
		Pair:      pair,
		Price:     price,
		Bid:       price.Sub(halfSpread),
		Ask:       price.Add(halfSpread),
		Volume:    volume,
		Timestamp: time.Now(),
	}
}
