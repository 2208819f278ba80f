package quotes

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"paperbroker/types"
)

// ErrUnavailable collapses every lookup failure: provider errors, unknown
// symbols and non-positive prices all read the same to callers. Retrying is
// deliberately left to the collaborator owning the request.
var ErrUnavailable = errors.New("quote unavailable")

type priceSource interface {
	Quote(ctx context.Context, lookupSymbol string) (decimal.Decimal, error)
}

// Resolver maps a raw symbol to a normalized lookup key and obtains a
// current price. It holds no state between calls and issues exactly one
// lookup per call.
type Resolver struct {
	source        priceSource
	defaultSuffix string
}

func NewResolver(source priceSource, defaultSuffix string) *Resolver {
	return &Resolver{
		source:        source,
		defaultSuffix: defaultSuffix,
	}
}

func (r *Resolver) Resolve(ctx context.Context, rawSymbol string, mode types.QuoteMode) (decimal.Decimal, error) {
	price, err := r.source.Quote(ctx, LookupSymbol(rawSymbol, mode, r.defaultSuffix))
	if err != nil {
		return decimal.Zero, ErrUnavailable
	}
	if !price.IsPositive() {
		return decimal.Zero, ErrUnavailable
	}
	return price, nil
}
