package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"paperbroker/types"
)

type accountStore interface {
	GetOrCreate(ctx context.Context, username string) (types.Account, error)
	// Update runs fn against the stored account inside a single transaction
	// holding the account row lock, so concurrent trades for one user cannot
	// lose updates. Trades returned by fn are journaled in the same
	// transaction.
	Update(ctx context.Context, username string, fn func(types.Account) (types.Account, []types.Trade, error)) (types.Account, error)
	ListTrades(ctx context.Context, username string) ([]types.Trade, error)
}

type quoteResolver interface {
	Resolve(ctx context.Context, symbol string, mode types.QuoteMode) (decimal.Decimal, error)
}
