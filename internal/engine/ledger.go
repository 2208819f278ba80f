package engine

import (
	"errors"

	"github.com/shopspring/decimal"

	"paperbroker/types"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds to cover order cost")
	ErrNotOwned           = errors.New("symbol not held in portfolio")
	ErrInsufficientShares = errors.New("not enough shares to sell")
)

// ApplyBuy debits price*quantity from the balance and folds the purchase into
// the position for symbol, blending the average entry price over the
// pre-update quantity. The input account is left untouched on failure.
func ApplyBuy(acct types.Account, symbol string, quantity int64, price decimal.Decimal) (types.Account, error) {
	cost := price.Mul(decimal.NewFromInt(quantity))
	if acct.Balance.LessThan(cost) {
		return acct, ErrInsufficientFunds
	}

	out := acct.Clone()
	out.Balance = out.Balance.Sub(cost)

	if i := out.FindPosition(symbol); i >= 0 {
		pos := &out.Positions[i]
		oldQty := decimal.NewFromInt(pos.Quantity)
		pos.AvgPrice = weightedAvg(pos.AvgPrice, oldQty, price, decimal.NewFromInt(quantity))
		pos.Quantity += quantity
	} else {
		out.Positions = append(out.Positions, types.Position{
			Symbol:   symbol,
			Quantity: quantity,
			AvgPrice: price,
		})
	}
	return out, nil
}

// ApplySell credits price*quantity to the balance and reduces the position.
// The average entry price of the remaining shares does not change on a sell.
// Selling down to exactly zero removes the position entirely.
func ApplySell(acct types.Account, symbol string, quantity int64, price decimal.Decimal) (types.Account, error) {
	i := acct.FindPosition(symbol)
	if i < 0 {
		return acct, ErrNotOwned
	}
	if acct.Positions[i].Quantity < quantity {
		return acct, ErrInsufficientShares
	}

	out := acct.Clone()
	out.Balance = out.Balance.Add(price.Mul(decimal.NewFromInt(quantity)))
	out.Positions[i].Quantity -= quantity

	if out.Positions[i].Quantity == 0 {
		out.Positions = append(out.Positions[:i], out.Positions[i+1:]...)
	}
	return out, nil
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
