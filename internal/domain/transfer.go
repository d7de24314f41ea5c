package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AssetTransfer moves assets between accounts and pools during swap and
// liquidity settlement. Transfers into a pool happen before the outbound
// transfer; a failed outbound leg is compensated by refunding the inbound.
type AssetTransfer interface {
	Transfer(ctx context.Context, from, to, asset string, amount decimal.Decimal) error
}
