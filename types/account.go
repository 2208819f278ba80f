package types

import (
	"github.com/shopspring/decimal"
)

// Account is a user's cash balance plus holdings. Positions are ordered by
// first purchase and unique by symbol.
type Account struct {
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	Positions []Position      `json:"portfolio"`
}

type Position struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
}

func NewAccount(username string, openingBalance decimal.Decimal) Account {
	return Account{
		Username: username,
		Balance:  openingBalance,
	}
}

// FindPosition returns the index of the position holding symbol, or -1.
func (a Account) FindPosition(symbol string) int {
	for i, pos := range a.Positions {
		if pos.Symbol == symbol {
			return i
		}
	}
	return -1
}

// Clone deep-copies the account so ledger operations can work on a scratch
// copy and leave the caller's account untouched on failure.
func (a Account) Clone() Account {
	out := a
	out.Positions = append([]Position(nil), a.Positions...)
	return out
}
