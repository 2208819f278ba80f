package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server struct {
		Addr string `toml:"addr"`
	} `toml:"server"`

	Database struct {
		URL string `toml:"url"`
	} `toml:"database"`

	Quotes struct {
		BaseURL        string `toml:"base_url"`
		TimeoutSeconds int    `toml:"timeout_seconds"`
		RateLimit      int    `toml:"rate_limit"`
	} `toml:"quotes"`

	Broker struct {
		OpeningBalance string      `toml:"opening_balance"`
		DefaultSuffix  string      `toml:"default_suffix"`
		TopSymbols     []TopSymbol `toml:"top_symbols"`
	} `toml:"broker"`
}

type TopSymbol struct {
	Symbol string `toml:"symbol"`
	Name   string `toml:"name"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Quotes.TimeoutSeconds <= 0 {
		cfg.Quotes.TimeoutSeconds = 10
	}
	if cfg.Quotes.RateLimit <= 0 {
		cfg.Quotes.RateLimit = 5
	}
	if cfg.Broker.OpeningBalance == "" {
		cfg.Broker.OpeningBalance = "2000000"
	}
	if cfg.Broker.DefaultSuffix == "" {
		cfg.Broker.DefaultSuffix = ".NS"
	}
	if len(cfg.Broker.TopSymbols) == 0 {
		cfg.Broker.TopSymbols = []TopSymbol{
			{Symbol: "AAPL", Name: "Apple Inc"},
			{Symbol: "MSFT", Name: "Microsoft"},
			{Symbol: "TSLA", Name: "Tesla Inc"},
			{Symbol: "AMZN", Name: "Amazon"},
			{Symbol: "BTC-USD", Name: "Bitcoin"},
			{Symbol: "ETH-USD", Name: "Ethereum"},
			{Symbol: "RELIANCE.NS", Name: "Reliance"},
		}
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return errors.New("database.url is empty")
	}
	if _, err := decimal.NewFromString(cfg.Broker.OpeningBalance); err != nil {
		return fmt.Errorf("broker.opening_balance: %w", err)
	}

	cfg.Broker.TopSymbols = normalizeTopSymbols(cfg.Broker.TopSymbols)
	if len(cfg.Broker.TopSymbols) == 0 {
		return errors.New("broker.top_symbols is empty")
	}
	return nil
}

// OpeningBalance returns the parsed opening balance. Load guarantees the
// value parses.
func (c *Config) OpeningBalance() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Broker.OpeningBalance)
	return d
}

func normalizeTopSymbols(in []TopSymbol) []TopSymbol {
	out := make([]TopSymbol, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		sym := strings.ToUpper(strings.TrimSpace(s.Symbol))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, TopSymbol{Symbol: sym, Name: strings.TrimSpace(s.Name)})
	}
	return out
}
