// Package server exposes the brokerage engine over the JSON API the web
// client consumes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"paperbroker/internal/engine"
	"paperbroker/internal/repository"
	"paperbroker/types"
)

type broker interface {
	ExecuteBuy(ctx context.Context, username, symbol string, quantity int64) (types.Account, error)
	ExecuteSell(ctx context.Context, username, symbol string, quantity int64) (types.Account, error)
	Account(ctx context.Context, username string) (types.Account, error)
	Dashboard(ctx context.Context, username string) (types.Snapshot, error)
	TopStocks(ctx context.Context) []types.MarketQuote
	History(ctx context.Context, username string) ([]types.Trade, error)
}

type Server struct {
	broker broker
	log    zerolog.Logger
}

func New(b broker, log zerolog.Logger) *Server {
	return &Server{broker: b, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user/{username}", s.handleUser)
	mux.HandleFunc("GET /api/dashboard/{username}", s.handleDashboard)
	mux.HandleFunc("GET /api/top-stocks", s.handleTopStocks)
	mux.HandleFunc("GET /api/history/{username}", s.handleHistory)
	mux.HandleFunc("POST /api/buy", s.handleBuy)
	mux.HandleFunc("POST /api/sell", s.handleSell)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}

type orderRequest struct {
	Username string      `json:"username"`
	Symbol   string      `json:"symbol"`
	Quantity json.Number `json:"quantity"`
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	acct, err := s.broker.Account(r.Context(), r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.broker.Dashboard(r.Context(), r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTopStocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.broker.TopStocks(r.Context()))
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeOrder(w, r)
	if !ok {
		return
	}
	qty, _ := req.Quantity.Int64()
	acct, err := s.broker.ExecuteBuy(r.Context(), req.Username, req.Symbol, qty)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeOrder(w, r)
	if !ok {
		return
	}
	qty, _ := req.Quantity.Int64()
	acct, err := s.broker.ExecuteSell(r.Context(), req.Username, req.Symbol, qty)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"msg": "Sold", "user": acct})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	trades, err := s.broker.History(r.Context(), r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := engine.WriteTradesCSV(w, trades); err != nil {
			s.log.Error().Err(err).Msg("write trades csv")
		}
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) decodeOrder(w http.ResponseWriter, r *http.Request) (orderRequest, bool) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Missing fields"})
		return orderRequest{}, false
	}
	if req.Username == "" || req.Symbol == "" || req.Quantity == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Missing fields"})
		return orderRequest{}, false
	}
	if _, err := req.Quantity.Int64(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Missing fields"})
		return orderRequest{}, false
	}
	return req, true
}

// writeError maps engine failures to the API's user-facing outcomes. Every
// failure terminates only the single request.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrSymbolRequired), errors.Is(err, engine.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Missing fields"})
	case errors.Is(err, engine.ErrMarketUnavailable):
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Market Unavailable"})
	case errors.Is(err, engine.ErrInsufficientFunds):
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Insufficient Funds"})
	case errors.Is(err, engine.ErrNotOwned):
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Not owned"})
	case errors.Is(err, engine.ErrInsufficientShares):
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Not enough shares"})
	case errors.Is(err, repository.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "User not found"})
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"msg": "Server Error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers already sent; nothing left to do
		return
	}
}
