package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paperbroker/types"
)

type fakeStore struct {
	mu       sync.Mutex
	opening  decimal.Decimal
	accounts map[string]types.Account
	journal  []types.Trade
	updates  int
}

func newFakeStore(opening decimal.Decimal) *fakeStore {
	return &fakeStore{
		opening:  opening,
		accounts: make(map[string]types.Account),
	}
}

func (s *fakeStore) GetOrCreate(_ context.Context, username string) (types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(username), nil
}

func (s *fakeStore) Update(_ context.Context, username string, fn func(types.Account) (types.Account, []types.Trade, error)) (types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++

	acct := s.getOrCreateLocked(username)
	next, trades, err := fn(acct)
	if err != nil {
		return types.Account{}, err
	}
	s.accounts[username] = next.Clone()
	s.journal = append(s.journal, trades...)
	return next, nil
}

func (s *fakeStore) ListTrades(_ context.Context, username string) ([]types.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Trade
	for _, t := range s.journal {
		if t.Username == username {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) getOrCreateLocked(username string) types.Account {
	if acct, ok := s.accounts[username]; ok {
		return acct.Clone()
	}
	acct := types.NewAccount(username, s.opening)
	s.accounts[username] = acct
	return acct.Clone()
}

type resolveCall struct {
	symbol string
	mode   types.QuoteMode
}

type fakeResolver struct {
	prices map[string]decimal.Decimal
	calls  []resolveCall
}

func (r *fakeResolver) Resolve(_ context.Context, symbol string, mode types.QuoteMode) (decimal.Decimal, error) {
	r.calls = append(r.calls, resolveCall{symbol: symbol, mode: mode})
	price, ok := r.prices[symbol]
	if !ok {
		return decimal.Zero, errors.New("quote unavailable")
	}
	return price, nil
}

func newTestEngine(store *fakeStore, resolver *fakeResolver) *Engine {
	cfg := NewConfig(".NS", []CuratedSymbol{
		{Symbol: "AAPL", Name: "Apple Inc"},
		{Symbol: "RELIANCE.NS", Name: "Reliance"},
	})
	return NewEngine(store, resolver, cfg, zerolog.Nop())
}

func TestExecuteBuy(t *testing.T) {
	store := newFakeStore(decimal.NewFromInt(2000000))
	resolver := &fakeResolver{prices: map[string]decimal.Decimal{"X": decimal.NewFromInt(100)}}
	eng := newTestEngine(store, resolver)

	acct, err := eng.ExecuteBuy(context.Background(), "ravi", "X", 10)
	if err != nil {
		t.Fatalf("ExecuteBuy() error: %v", err)
	}

	assertAccountEqual(t, acct, types.Account{
		Username: "ravi",
		Balance:  decimal.NewFromInt(1999000),
		Positions: []types.Position{
			{Symbol: "X", Quantity: 10, AvgPrice: decimal.NewFromInt(100)},
		},
	})

	if len(resolver.calls) != 1 || resolver.calls[0].mode != types.QuoteInferred {
		t.Errorf("resolver calls = %+v, want one inferred lookup", resolver.calls)
	}

	if len(store.journal) != 1 {
		t.Fatalf("journal = %v, want one trade", store.journal)
	}
	trade := store.journal[0]
	if trade.Side != types.SideTypeBuy || trade.Symbol != "X" || trade.Quantity != 10 || !trade.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("journaled trade = %+v", trade)
	}
	if trade.ID == "" || trade.ExecutedAt.IsZero() {
		t.Errorf("trade missing id or timestamp: %+v", trade)
	}
}

func TestExecuteBuyQuoteFailure(t *testing.T) {
	store := newFakeStore(decimal.NewFromInt(2000000))
	resolver := &fakeResolver{prices: map[string]decimal.Decimal{}}
	eng := newTestEngine(store, resolver)

	_, err := eng.ExecuteBuy(context.Background(), "ravi", "X", 10)
	if !errors.Is(err, ErrMarketUnavailable) {
		t.Fatalf("error = %v, want ErrMarketUnavailable", err)
	}
	if store.updates != 0 {
		t.Error("store updated despite quote failure")
	}
}

func TestExecuteBuyInsufficientFundsPersistsNothing(t *testing.T) {
	store := newFakeStore(decimal.NewFromInt(500))
	resolver := &fakeResolver{prices: map[string]decimal.Decimal{"X": decimal.NewFromInt(100)}}
	eng := newTestEngine(store, resolver)

	_, err := eng.ExecuteBuy(context.Background(), "ravi", "X", 10)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}

	acct, _ := store.GetOrCreate(context.Background(), "ravi")
	if !acct.Balance.Equal(decimal.NewFromInt(500)) || len(acct.Positions) != 0 {
		t.Errorf("account mutated on failed buy: %+v", acct)
	}
	if len(store.journal) != 0 {
		t.Errorf("journal = %v, want empty", store.journal)
	}
}

func TestExecuteSellFailures(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		quantity int64
		wantErr  error
	}{
		{"not owned", "Y", 1, ErrNotOwned},
		{"oversell", "X", 11, ErrInsufficientShares},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(decimal.NewFromInt(2000000))
			resolver := &fakeResolver{prices: map[string]decimal.Decimal{
				"X": decimal.NewFromInt(100),
				"Y": decimal.NewFromInt(50),
			}}
			eng := newTestEngine(store, resolver)
			if _, err := eng.ExecuteBuy(context.Background(), "ravi", "X", 10); err != nil {
				t.Fatal(err)
			}

			_, err := eng.ExecuteSell(context.Background(), "ravi", tt.symbol, tt.quantity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// The sell credits cash at the price quoted at sell time, not the stored
// entry price.
func TestExecuteSellUsesCurrentQuote(t *testing.T) {
	store := newFakeStore(decimal.NewFromInt(1997000))
	resolver := &fakeResolver{prices: map[string]decimal.Decimal{"X": decimal.NewFromInt(180)}}
	eng := newTestEngine(store, resolver)

	store.accounts["ravi"] = types.Account{
		Username: "ravi",
		Balance:  decimal.NewFromInt(1997000),
		Positions: []types.Position{
			{Symbol: "X", Quantity: 20, AvgPrice: decimal.NewFromInt(150)},
		},
	}

	acct, err := eng.ExecuteSell(context.Background(), "ravi", "X", 15)
	if err != nil {
		t.Fatalf("ExecuteSell() error: %v", err)
	}

	assertAccountEqual(t, acct, types.Account{
		Username: "ravi",
		Balance:  decimal.NewFromInt(1999700),
		Positions: []types.Position{
			{Symbol: "X", Quantity: 5, AvgPrice: decimal.NewFromInt(150)},
		},
	})
}

func TestExecuteBuySellSymmetry(t *testing.T) {
	store := newFakeStore(decimal.NewFromInt(2000000))
	resolver := &fakeResolver{prices: map[string]decimal.Decimal{"X": decimal.NewFromFloat(123.45)}}
	eng := newTestEngine(store, resolver)

	if _, err := eng.ExecuteBuy(context.Background(), "ravi", "X", 7); err != nil {
		t.Fatal(err)
	}
	acct, err := eng.ExecuteSell(context.Background(), "ravi", "X", 7)
	if err != nil {
		t.Fatal(err)
	}

	if !acct.Balance.Equal(decimal.NewFromInt(2000000)) {
		t.Errorf("balance after round trip = %s, want 2000000", acct.Balance)
	}
	if len(acct.Positions) != 0 {
		t.Errorf("positions after round trip = %v", acct.Positions)
	}
}

func TestOrderValidation(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		quantity int64
		wantErr  error
	}{
		{"empty symbol", "", 1, ErrSymbolRequired},
		{"blank symbol", "   ", 1, ErrSymbolRequired},
		{"zero quantity", "X", 0, ErrInvalidQuantity},
		{"negative quantity", "X", -3, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(decimal.NewFromInt(2000000))
			resolver := &fakeResolver{prices: map[string]decimal.Decimal{}}
			eng := newTestEngine(store, resolver)

			if _, err := eng.ExecuteBuy(context.Background(), "ravi", tt.symbol, tt.quantity); !errors.Is(err, tt.wantErr) {
				t.Errorf("buy error = %v, want %v", err, tt.wantErr)
			}
			if _, err := eng.ExecuteSell(context.Background(), "ravi", tt.symbol, tt.quantity); !errors.Is(err, tt.wantErr) {
				t.Errorf("sell error = %v, want %v", err, tt.wantErr)
			}
			if len(resolver.calls) != 0 {
				t.Error("invalid order still hit the quote resolver")
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	store := newFakeStore(decimal.NewFromInt(2000000))
	resolver := &fakeResolver{prices: map[string]decimal.Decimal{"X": decimal.NewFromInt(110)}}
	eng := newTestEngine(store, resolver)

	store.accounts["ravi"] = types.Account{
		Username: "ravi",
		Balance:  decimal.NewFromInt(1000),
		Positions: []types.Position{
			{Symbol: "X", Quantity: 10, AvgPrice: decimal.NewFromInt(100)},
			{Symbol: "GONE", Quantity: 4, AvgPrice: decimal.NewFromInt(25)},
		},
	}

	snap, err := eng.Dashboard(context.Background(), "ravi")
	if err != nil {
		t.Fatalf("Dashboard() error: %v", err)
	}

	for _, call := range resolver.calls {
		if call.mode != types.QuoteInferred {
			t.Errorf("dashboard lookup for %s used mode %s, want inferred", call.symbol, call.mode)
		}
	}

	// 10*110 + 4*25 (fallback) = 1200
	if want := decimal.NewFromInt(1200); !snap.PortfolioValue.Equal(want) {
		t.Errorf("portfolio value = %s, want %s", snap.PortfolioValue, want)
	}
	if !snap.Positions[1].PriceStale {
		t.Error("expected fallback position to be marked stale")
	}
}

func TestDashboardAutoCreates(t *testing.T) {
	store := newFakeStore(decimal.NewFromInt(2000000))
	eng := newTestEngine(store, &fakeResolver{})

	snap, err := eng.Dashboard(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("Dashboard() error: %v", err)
	}
	if !snap.Balance.Equal(decimal.NewFromInt(2000000)) {
		t.Errorf("new account balance = %s, want opening balance", snap.Balance)
	}
}

func TestTopStocks(t *testing.T) {
	store := newFakeStore(decimal.NewFromInt(2000000))
	resolver := &fakeResolver{prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromFloat(187.5),
		// RELIANCE.NS deliberately missing
	}}
	eng := newTestEngine(store, resolver)

	out := eng.TopStocks(context.Background())
	if len(out) != 2 {
		t.Fatalf("top stocks = %v, want 2 entries", out)
	}

	for _, call := range resolver.calls {
		if call.mode != types.QuoteStrict {
			t.Errorf("top-stocks lookup for %s used mode %s, want strict", call.symbol, call.mode)
		}
	}

	if out[0].Symbol != "AAPL" || !out[0].Price.Equal(decimal.NewFromFloat(187.5)) {
		t.Errorf("AAPL entry = %+v", out[0])
	}
	// Unavailable quote lists at zero; display symbol loses the suffix.
	if out[1].Symbol != "RELIANCE" {
		t.Errorf("display symbol = %q, want RELIANCE", out[1].Symbol)
	}
	if !out[1].Price.IsZero() {
		t.Errorf("unavailable top stock price = %s, want 0", out[1].Price)
	}
}

func TestHistory(t *testing.T) {
	store := newFakeStore(decimal.NewFromInt(2000000))
	resolver := &fakeResolver{prices: map[string]decimal.Decimal{"X": decimal.NewFromInt(100)}}
	eng := newTestEngine(store, resolver)

	if _, err := eng.ExecuteBuy(context.Background(), "ravi", "X", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.ExecuteSell(context.Background(), "ravi", "X", 2); err != nil {
		t.Fatal(err)
	}

	trades, err := eng.History(context.Background(), "ravi")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("history = %v, want 2 trades", trades)
	}
	if trades[0].Side != types.SideTypeBuy || trades[1].Side != types.SideTypeSell {
		t.Errorf("history order = %v", trades)
	}
}
