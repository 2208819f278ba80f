package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"
)

// Trade is one executed order, recorded in the journal at the price the
// market quoted when the order went through.
type Trade struct {
	ID         string          `json:"id"`
	Username   string          `json:"username"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"executedAt"`
}
