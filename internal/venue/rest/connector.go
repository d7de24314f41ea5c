// Package rest implements a venue connector for exchanges exposing the
// common gateway REST shape: /ticker, /orderbook, and /orders endpoints.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

// Config holds connection parameters for one venue gateway.
type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Connector talks to a venue gateway over HTTP.
type Connector struct {
	cfg    Config
	client *http.Client
}

var _ domain.VenueConnector = (*Connector)(nil)

// New creates a Connector. A zero timeout defaults to ten seconds.
func New(cfg Config) *Connector {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Connector{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Connector) Name() string { return c.cfg.Name }

// IsAvailable reports whether the connector is configured. Liveness is the
// circuit breaker's job, not a blocking network probe.
func (c *Connector) IsAvailable() bool {
	return c.cfg.BaseURL != ""
}

type tickerPayload struct {
	Pair   string `json:"pair"`
	Price  string `json:"price"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
	Volume string `json:"volume"`
}

// Ticker fetches the venue's current quote for the pair.
func (c *Connector) Ticker(ctx context.Context, pair string) (domain.Quote, error) {
	var payload tickerPayload
	if err := c.get(ctx, "/ticker", url.Values{"pair": {pair}}, &payload); err != nil {
		return domain.Quote{}, err
	}

	quote := domain.Quote{Venue: c.cfg.Name, Pair: pair, Timestamp: time.Now()}
	var err error
	if quote.Price, err = decimal.NewFromString(payload.Price); err != nil {
		return domain.Quote{}, fmt.Errorf("rest: %s: parse price %q: %w", c.cfg.Name, payload.Price, err)
	}
	if quote.Bid, err = decimal.NewFromString(payload.Bid); err != nil {
		return domain.Quote{}, fmt.Errorf("rest: %s: parse bid %q: %w", c.cfg.Name, payload.Bid, err)
	}
	if quote.Ask, err = decimal.NewFromString(payload.Ask); err != nil {
		return domain.Quote{}, fmt.Errorf("rest: %s: parse ask %q: %w", c.cfg.Name, payload.Ask, err)
	}
	if quote.Volume, err = decimal.NewFromString(payload.Volume); err != nil {
		return domain.Quote{}, fmt.Errorf("rest: %s: parse volume %q: %w", c.cfg.Name, payload.Volume, err)
	}
	return quote, nil
}

type bookPayload struct {
	Pair string      `json:"pair"`
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// OrderBook fetches the venue's book for the pair, depth levels per side.
func (c *Connector) OrderBook(ctx context.Context, pair string, depth int) (domain.OrderBookSnapshot, error) {
	query := url.Values{"pair": {pair}}
	if depth > 0 {
		query.Set("depth", strconv.Itoa(depth))
	}
	var payload bookPayload
	if err := c.get(ctx, "/orderbook", query, &payload); err != nil {
		return domain.OrderBookSnapshot{}, err
	}

	bids, err := parseLevels(payload.Bids)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("rest: %s: parse bids: %w", c.cfg.Name, err)
	}
	asks, err := parseLevels(payload.Asks)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("rest: %s: parse asks: %w", c.cfg.Name, err)
	}
	return domain.OrderBookSnapshot{
		Pair:      pair,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	}, nil
}

func parseLevels(raw [][2]string) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, entry := range raw {
		price, err := decimal.NewFromString(entry[0])
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", entry[0], err)
		}
		amount, err := decimal.NewFromString(entry[1])
		if err != nil {
			return nil, fmt.Errorf("amount %q: %w", entry[1], err)
		}
		levels = append(levels, domain.PriceLevel{Price: price, Amount: amount})
	}
	return levels, nil
}

type orderPayload struct {
	ID string `json:"id"`
}

// PlaceOrder submits a limit order to the venue.
func (c *Connector) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	body, err := json.Marshal(map[string]any{
		"pair":   req.Pair,
		"side":   string(req.Side),
		"price":  req.Price.String(),
		"amount": req.Amount.String(),
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("rest: %s: encode order: %w", c.cfg.Name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return domain.Order{}, fmt.Errorf("rest: %s: build request: %w", c.cfg.Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domain.Order{}, fmt.Errorf("rest: %s: place order: %w", c.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.Order{}, fmt.Errorf("rest: %s: place order: status %d", c.cfg.Name, resp.StatusCode)
	}

	var payload orderPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return domain.Order{}, fmt.Errorf("rest: %s: decode order response: %w", c.cfg.Name, err)
	}

	return domain.Order{
		ID:        payload.ID,
		Pair:      req.Pair,
		Side:      req.Side,
		Price:     req.Price,
		Amount:    req.Amount,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
	}, nil
}

func (c *Connector) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("rest: %s: build request: %w", c.cfg.Name, err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s: get %s: %w", c.cfg.Name, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rest: %s: get %s: status %d", c.cfg.Name, path, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("rest: %s: decode %s: %w", c.cfg.Name, path, err)
	}
	return nil
}

func (c *Connector) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}
