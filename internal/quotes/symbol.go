// Package quotes resolves user-entered instrument symbols to current market
// prices from an external price source.
package quotes

import (
	"strings"

	"paperbroker/types"
)

// LookupSymbol builds the identifier sent to the price source. In inferred
// mode a bare symbol gets the default market suffix appended; a symbol that
// already names a market or asset class (contains '.', ':' or '-') passes
// through unchanged, as does everything in strict mode.
func LookupSymbol(raw string, mode types.QuoteMode, defaultSuffix string) string {
	if mode == types.QuoteStrict {
		return raw
	}
	if strings.ContainsAny(raw, ".:-") {
		return raw
	}
	return raw + defaultSuffix
}

// DisplaySymbol strips the default suffix back off for presentation.
func DisplaySymbol(symbol, defaultSuffix string) string {
	if defaultSuffix == "" {
		return symbol
	}
	return strings.TrimSuffix(symbol, defaultSuffix)
}
