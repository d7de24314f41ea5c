package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

// TradeStore implements domain.TradeHistory using PostgreSQL. Monetary
// columns are NUMERIC and travel as text so no float conversion ever
// touches them.
type TradeStore struct {
	pool *pgxpool.Pool
}

var _ domain.TradeHistory = (*TradeStore)(nil)

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, account_id, venue, symbol, side,
	price::text, volume::text, fee::text, arbitrage_id, executed_at`

const tradeInsert = `
	INSERT INTO trades (
		id, account_id, venue, symbol, side,
		price, volume, fee, arbitrage_id, executed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func tradeArgs(t domain.Trade) []any {
	return []any{
		t.ID, t.AccountID, t.Venue, t.Symbol, string(t.Side),
		t.Price.String(), t.Volume.String(), t.Fee.String(),
		t.ArbitrageID, t.ExecutedAt,
	}
}

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, price, volume, fee string
		if err := rows.Scan(
			&t.ID, &t.AccountID, &t.Venue, &t.Symbol, &side,
			&price, &volume, &fee, &t.ArbitrageID, &t.ExecutedAt,
		); err != nil {
			return nil, err
		}
		t.Side = domain.OrderSide(side)
		var err error
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		if t.Volume, err = decimal.NewFromString(volume); err != nil {
			return nil, fmt.Errorf("parse volume %q: %w", volume, err)
		}
		if t.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("parse fee %q: %w", fee, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Record persists one trade.
func (s *TradeStore) Record(ctx context.Context, trade domain.Trade) error {
	if _, err := s.pool.Exec(ctx, tradeInsert, tradeArgs(trade)...); err != nil {
		return fmt.Errorf("postgres: record trade %s: %w", trade.ID, err)
	}
	return nil
}

// RecordArbitragePair persists both legs of an arbitrage execution in one
// transaction so either both exist or neither does.
func (s *TradeStore) RecordArbitragePair(ctx context.Context, buy, sell domain.Trade) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin arbitrage pair: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, tradeInsert, tradeArgs(buy)...); err != nil {
		return fmt.Errorf("postgres: record buy leg %s: %w", buy.ID, err)
	}
	if _, err := tx.Exec(ctx, tradeInsert, tradeArgs(sell)...); err != nil {
		return fmt.Errorf("postgres: record sell leg %s: %w", sell.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit arbitrage pair: %w", err)
	}
	return nil
}

// NotionalVolume sums price*volume for the account's trades since the given
// time.
func (s *TradeStore) NotionalVolume(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	var total string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(price * volume), 0)::text
		 FROM trades
		 WHERE account_id = $1 AND executed_at >= $2`,
		accountID, since,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: notional volume for %s: %w", accountID, err)
	}

	volume, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: parse notional volume %q: %w", total, err)
	}
	return volume, nil
}

// ArbitrageTrades returns every arbitrage leg executed in [from, to],
// oldest first.
func (s *TradeStore) ArbitrageTrades(ctx context.Context, from, to time.Time) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+`
		 FROM trades
		 WHERE arbitrage_id <> '' AND executed_at >= $1 AND executed_at <= $2
		 ORDER BY executed_at ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list arbitrage trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan arbitrage trades: %w", err)
	}
	return trades, nil
}

// InsertBatch inserts multiple trades efficiently using pgx Batch.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(tradeInsert, tradeArgs(t)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}
