package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned when a dependency's circuit breaker is open
	// and the cooldown has not yet elapsed.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrHalfOpenLimit is returned when a half-open circuit already has a
	// trial call in flight.
	ErrHalfOpenLimit = errors.New("half-open trial in flight")

	// ErrOpportunityExpired is returned when an arbitrage opportunity is
	// executed after its expiry window. The caller must re-scan.
	ErrOpportunityExpired = errors.New("opportunity expired")
	// ErrPriceChanged is returned when revalidation shows the spread has
	// closed since detection. The caller must re-scan.
	ErrPriceChanged = errors.New("price changed since detection")

	ErrSlippageExceeded      = errors.New("slippage exceeded")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNoMarketData          = errors.New("no market data")

	ErrPoolExists        = errors.New("pool already exists for pair")
	ErrPoolNotFound      = errors.New("pool not found")
	ErrPoolInactive      = errors.New("pool is not active")
	ErrPositionNotFound  = errors.New("provider position not found")
	ErrNoRewardsToClaim  = errors.New("no rewards to claim")
	ErrInsufficientShare = errors.New("insufficient share balance")

	// ErrCacheMiss is returned by KVCache.Get for absent or expired keys.
	ErrCacheMiss = errors.New("cache miss")
)

// ValidationError reports malformed or missing input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
