package domain

import "context"

// VenueConnector is one external exchange the aggregator can read from and
// the coordinator can trade on. Implementations must be safe for concurrent
// use; availability is a cheap local check, not a network round trip.
type VenueConnector interface {
	Name() string
	IsAvailable() bool
	Ticker(ctx context.Context, pair string) (Quote, error)
	OrderBook(ctx context.Context, pair string, depth int) (OrderBookSnapshot, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Order, error)
}

// VenueRegistry resolves connectors by name. Registration happens during
// wiring; lookups after that are read-only.
type VenueRegistry interface {
	Register(conn VenueConnector)
	Get(name string) (VenueConnector, bool)
	All() []VenueConnector
}
