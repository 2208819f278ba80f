package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"paperbroker/types"
)

var hundred = decimal.NewFromInt(100)

// quoteLookup maps a held symbol to its current price. A failed lookup must
// not abort the whole snapshot; the valuator falls back to the position's
// entry price for that line.
type quoteLookup func(ctx context.Context, symbol string) (decimal.Decimal, error)

// Valuate re-prices every held position and folds the results into a net
// worth snapshot. It never mutates the account.
func Valuate(ctx context.Context, acct types.Account, lookup quoteLookup) types.Snapshot {
	snap := types.Snapshot{
		Balance:        acct.Balance,
		PortfolioValue: decimal.Zero,
		Positions:      make([]types.PositionValuation, 0, len(acct.Positions)),
	}

	for _, pos := range acct.Positions {
		current, err := lookup(ctx, pos.Symbol)
		stale := err != nil || !current.IsPositive()
		if stale {
			current = pos.AvgPrice
		}

		qty := decimal.NewFromInt(pos.Quantity)
		currentValue := current.Mul(qty)
		investedValue := pos.AvgPrice.Mul(qty)
		pl := currentValue.Sub(investedValue)

		plPercent := decimal.Zero
		if !investedValue.IsZero() {
			plPercent = pl.Div(investedValue).Mul(hundred)
		}

		snap.PortfolioValue = snap.PortfolioValue.Add(currentValue)
		snap.Positions = append(snap.Positions, types.PositionValuation{
			Symbol:        pos.Symbol,
			Quantity:      pos.Quantity,
			AvgPrice:      pos.AvgPrice,
			CurrentPrice:  current,
			CurrentValue:  currentValue,
			InvestedValue: investedValue,
			PL:            pl,
			PLPercent:     plPercent,
			PriceStale:    stale,
		})
	}

	snap.NetWorth = acct.Balance.Add(snap.PortfolioValue)
	return snap
}
