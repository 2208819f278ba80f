package types

import (
	"github.com/shopspring/decimal"
)

// PositionValuation is one held position re-priced at the current market
// quote. PriceStale marks positions where no quote was available and the
// entry price was used instead, so the P/L reads as zero for that line.
type PositionValuation struct {
	Symbol        string          `json:"symbol"`
	Quantity      int64           `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avgPrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	CurrentValue  decimal.Decimal `json:"currentValue"`
	InvestedValue decimal.Decimal `json:"investedValue"`
	PL            decimal.Decimal `json:"pl"`
	PLPercent     decimal.Decimal `json:"plPercent"`
	PriceStale    bool            `json:"priceStale"`
}

// Snapshot is a read-only valuation of an account at a point in time. It is
// never written back to the account.
type Snapshot struct {
	Balance        decimal.Decimal     `json:"balance"`
	PortfolioValue decimal.Decimal     `json:"portfolioValue"`
	NetWorth       decimal.Decimal     `json:"netWorth"`
	Positions      []PositionValuation `json:"portfolio"`
}
