package engine

type CuratedSymbol struct {
	Symbol string
	Name   string
}

type Config struct {
	DefaultSuffix string
	TopSymbols    []CuratedSymbol
}

func NewConfig(defaultSuffix string, topSymbols []CuratedSymbol) Config {
	return Config{
		DefaultSuffix: defaultSuffix,
		TopSymbols:    topSymbols,
	}
}
