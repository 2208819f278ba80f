package types

import (
	"github.com/shopspring/decimal"
)

// QuoteMode controls symbol normalization before a price lookup.
type QuoteMode string

const (
	// QuoteStrict sends the symbol to the price source exactly as given.
	// Used for the curated market list, where symbols already name their
	// market or asset class.
	QuoteStrict QuoteMode = "STRICT"
	// QuoteInferred appends the default market suffix when the symbol does
	// not already name a market or asset class.
	QuoteInferred QuoteMode = "INFERRED"
)

type MarketQuote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}
