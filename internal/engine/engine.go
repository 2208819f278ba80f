package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paperbroker/internal/quotes"
	"paperbroker/types"
)

var (
	ErrMarketUnavailable = errors.New("market unavailable")
	ErrSymbolRequired    = errors.New("symbol is required")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
)

// Engine composes the quote resolver and the position ledger behind the
// public trade and valuation operations. It holds no per-account state; the
// store is the single source of truth.
type Engine struct {
	store  accountStore
	quotes quoteResolver
	cfg    Config
	log    zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewEngine(store accountStore, resolver quoteResolver, cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		quotes: resolver,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ExecuteBuy quotes the symbol, debits the cost and grows the position. The
// quote is fetched before the account row lock is taken so the lock is never
// held across a network call.
func (e *Engine) ExecuteBuy(ctx context.Context, username, symbol string, quantity int64) (types.Account, error) {
	symbol, err := validateOrder(symbol, quantity)
	if err != nil {
		return types.Account{}, err
	}

	price, err := e.quotes.Resolve(ctx, symbol, types.QuoteInferred)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("buy quote failed")
		return types.Account{}, ErrMarketUnavailable
	}

	updated, err := e.store.Update(ctx, username, func(acct types.Account) (types.Account, []types.Trade, error) {
		next, err := ApplyBuy(acct, symbol, quantity, price)
		if err != nil {
			return acct, nil, err
		}
		return next, []types.Trade{e.newTrade(username, symbol, types.SideTypeBuy, quantity, price)}, nil
	})
	if err != nil {
		return types.Account{}, err
	}

	e.log.Info().
		Str("user", username).
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Str("price", price.String()).
		Msg("buy executed")
	return updated, nil
}

// ExecuteSell quotes the symbol and credits proceeds at the current market
// price, independent of the stored entry price.
func (e *Engine) ExecuteSell(ctx context.Context, username, symbol string, quantity int64) (types.Account, error) {
	symbol, err := validateOrder(symbol, quantity)
	if err != nil {
		return types.Account{}, err
	}

	price, err := e.quotes.Resolve(ctx, symbol, types.QuoteInferred)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("sell quote failed")
		return types.Account{}, ErrMarketUnavailable
	}

	updated, err := e.store.Update(ctx, username, func(acct types.Account) (types.Account, []types.Trade, error) {
		next, err := ApplySell(acct, symbol, quantity, price)
		if err != nil {
			return acct, nil, err
		}
		return next, []types.Trade{e.newTrade(username, symbol, types.SideTypeSell, quantity, price)}, nil
	})
	if err != nil {
		return types.Account{}, err
	}

	e.log.Info().
		Str("user", username).
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Str("price", price.String()).
		Msg("sell executed")
	return updated, nil
}

// Account resolves the user, creating it with the opening balance on first
// access.
func (e *Engine) Account(ctx context.Context, username string) (types.Account, error) {
	return e.store.GetOrCreate(ctx, username)
}

// Dashboard re-prices the user's holdings into a net worth snapshot.
// Valuation uses the same suffix inference the buy path used, so a position
// bought through inference is priced the same way on read.
func (e *Engine) Dashboard(ctx context.Context, username string) (types.Snapshot, error) {
	acct, err := e.store.GetOrCreate(ctx, username)
	if err != nil {
		return types.Snapshot{}, err
	}

	snap := Valuate(ctx, acct, func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		return e.quotes.Resolve(ctx, symbol, types.QuoteInferred)
	})
	return snap, nil
}

// TopStocks quotes the curated market list in strict mode; auto-suffixing
// would corrupt these lookups since the list spans several markets. A symbol
// with no usable quote is listed at price zero rather than dropped.
func (e *Engine) TopStocks(ctx context.Context) []types.MarketQuote {
	out := make([]types.MarketQuote, 0, len(e.cfg.TopSymbols))
	for _, top := range e.cfg.TopSymbols {
		price, err := e.quotes.Resolve(ctx, top.Symbol, types.QuoteStrict)
		if err != nil {
			e.log.Warn().Err(err).Str("symbol", top.Symbol).Msg("top stock quote failed")
			price = decimal.Zero
		}
		out = append(out, types.MarketQuote{
			Symbol: quotes.DisplaySymbol(top.Symbol, e.cfg.DefaultSuffix),
			Name:   top.Name,
			Price:  price,
		})
	}
	return out
}

// History returns the user's persisted trade journal.
func (e *Engine) History(ctx context.Context, username string) ([]types.Trade, error) {
	return e.store.ListTrades(ctx, username)
}

func (e *Engine) newTrade(username, symbol string, side types.Side, quantity int64, price decimal.Decimal) types.Trade {
	return types.Trade{
		ID:         e.newID(),
		Username:   username,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		ExecutedAt: e.now().UTC(),
	}
}

func validateOrder(symbol string, quantity int64) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", ErrSymbolRequired
	}
	if quantity <= 0 {
		return "", ErrInvalidQuantity
	}
	return symbol, nil
}
