// Package api provides the REST surface of the market server: quotes,
// candles, depth, the player's portfolio, trade history and orders.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jornvale/salaryman/go-market/internal/engine"
	"github.com/jornvale/salaryman/go-market/internal/feed"
	"github.com/jornvale/salaryman/go-market/internal/persist"
	"github.com/jornvale/salaryman/go-market/internal/portfolio"
)

// Server provides REST API endpoints for the market.
type Server struct {
	market *engine.Engine
	ledger *portfolio.Ledger
	exec   *portfolio.Executor
	reader persist.TradeReader // nil when persistence is disabled
	mgr    *feed.Manager

	bookMu    sync.Mutex
	bookRNG   *engine.RNG
	priceTick float64
	lotSize   int64

	startAt time.Time
}

// NewServer creates a new API server. bookRNG must be dedicated to the
// server; depth synthesis draws from it under an internal lock.
func NewServer(market *engine.Engine, ledger *portfolio.Ledger, exec *portfolio.Executor, reader persist.TradeReader, mgr *feed.Manager, bookRNG *engine.RNG, priceTick float64, lotSize int64) *Server {
	return &Server{
		market:    market,
		ledger:    ledger,
		exec:      exec,
		reader:    reader,
		mgr:       mgr,
		bookRNG:   bookRNG,
		priceTick: priceTick,
		lotSize:   lotSize,
		startAt:   time.Now(),
	}
}

// Register attaches API routes to the given mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stocks", s.handleStocks)
	mux.HandleFunc("GET /api/stocks/{symbol}", s.handleStockDetail)
	mux.HandleFunc("GET /api/stocks/{symbol}/candles", s.handleCandles)
	mux.HandleFunc("GET /api/stocks/{symbol}/book", s.handleBookDepth)
	mux.HandleFunc("GET /api/portfolio/positions", s.handlePositions)
	mux.HandleFunc("GET /api/portfolio/account", s.handleAccount)
	mux.HandleFunc("GET /api/trades", s.handleTrades)
	mux.HandleFunc("POST /api/orders", s.handleOrder)
	mux.HandleFunc("GET /api/stats", s.handleStats)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolveSymbol looks up a live quote, writing a 404 if not found.
func (s *Server) resolveSymbol(w http.ResponseWriter, symbol string) (engine.Stock, bool) {
	st, ok := s.market.GetStock(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "symbol not found: "+symbol)
		return engine.Stock{}, false
	}
	return st, true
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// parseTimeParam parses an RFC3339 query parameter.
func parseTimeParam(r *http.Request, key string) *time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}
