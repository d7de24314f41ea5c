package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

// LedgerStore implements domain.AssetTransfer as a double-entry ledger:
// every transfer debits one balance row, credits another, and appends an
// immutable transfer record, all in one transaction.
type LedgerStore struct {
	pool *pgxpool.Pool
}

var _ domain.AssetTransfer = (*LedgerStore)(nil)

// NewLedgerStore creates a LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

const upsertBalance = `
	INSERT INTO balances (account_id, asset, amount, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (account_id, asset)
	DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()`

// Transfer moves amount of asset between accounts.
func (s *LedgerStore) Transfer(ctx context.Context, from, to, asset string, amount decimal.Decimal) error {
	if from == "" || to == "" {
		return domain.NewValidationError("account", "both accounts must be set")
	}
	if amount.Sign() <= 0 {
		return domain.NewValidationError("amount", "must be positive")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin transfer: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertBalance, from, asset, amount.Neg().String()); err != nil {
		return fmt.Errorf("postgres: debit %s: %w", from, err)
	}
	if _, err := tx.Exec(ctx, upsertBalance, to, asset, amount.String()); err != nil {
		return fmt.Errorf("postgres: credit %s: %w", to, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO transfers (id, from_account, to_account, asset, amount)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), from, to, asset, amount.String(),
	); err != nil {
		return fmt.Errorf("postgres: record transfer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit transfer: %w", err)
	}
	return nil
}

// Balance returns the account's balance in the asset; absent rows are zero.
func (s *LedgerStore) Balance(ctx context.Context, accountID, asset string) (decimal.Decimal, error) {
	var amount string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(
			(SELECT amount FROM balances WHERE account_id = $1 AND asset = $2), 0
		)::text`,
		accountID, asset,
	).Scan(&amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: balance %s/%s: %w", accountID, asset, err)
	}

	balance, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: parse balance %q: %w", amount, err)
	}
	return balance, nil
}
