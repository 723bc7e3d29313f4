package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jornvale/salaryman/go-market/internal/candle"
	"github.com/jornvale/salaryman/go-market/internal/orderbook"
	"github.com/jornvale/salaryman/go-market/internal/persist"
	"github.com/jornvale/salaryman/go-market/internal/portfolio"
)

// handleStocks returns the full roster with live quotes.
func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.market.Snapshot())
}

// handleStockDetail returns a single live quote.
func (s *Server) handleStockDetail(w http.ResponseWriter, r *http.Request) {
	st, ok := s.resolveSymbol(w, r.PathValue("symbol"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCandles returns the candle series for a symbol. The period query
// parameter selects day, week or month bars; day is the default.
func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if _, ok := s.resolveSymbol(w, symbol); !ok {
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "day"
	}
	p, err := candle.ParsePeriod(period)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	candles := s.market.Candles(symbol, p)
	if limit := parseIntParam(r, "limit", 0); limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	if candles == nil {
		candles = []candle.Candle{}
	}
	writeJSON(w, http.StatusOK, candles)
}

// handleBookDepth returns a synthetic five-level depth ladder around the
// symbol's current price.
func (s *Server) handleBookDepth(w http.ResponseWriter, r *http.Request) {
	st, ok := s.resolveSymbol(w, r.PathValue("symbol"))
	if !ok {
		return
	}

	s.bookMu.Lock()
	depth := orderbook.Synthesize(s.bookRNG, st, s.priceTick, s.lotSize)
	s.bookMu.Unlock()

	writeJSON(w, http.StatusOK, depth)
}

// handlePositions returns the player's holdings.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.ledger.Positions()
	if positions == nil {
		positions = []portfolio.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// handleAccount returns the portfolio-wide aggregates.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Account())
}

// handleTrades returns the paginated trade journal. Requires persistence.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "trade history requires persistence")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trades, err := s.reader.QueryTrades(ctx, persist.TradeFilter{
		Symbol: r.URL.Query().Get("symbol"),
		Side:   r.URL.Query().Get("side"),
		Limit:  parseIntParam(r, "limit", 100),
		Offset: parseIntParam(r, "offset", 0),
		From:   parseTimeParam(r, "from"),
		To:     parseTimeParam(r, "to"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, trades)
}

type orderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// handleOrder executes a buy or sell order. Rejections come back as a
// 400 with the result body explaining why.
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order body: "+err.Error())
		return
	}

	var res portfolio.Result
	switch req.Side {
	case portfolio.SideBuy:
		res = s.exec.Buy(req.Symbol, req.Price, req.Quantity)
	case portfolio.SideSell:
		res = s.exec.Sell(req.Symbol, req.Price, req.Quantity)
	default:
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

type statsResponse struct {
	Uptime      string    `json:"uptime"`
	Clients     int       `json:"clients"`
	Instruments int       `json:"instruments"`
	SimDate     string    `json:"simDate"`
	TotalTrades int64     `json:"totalTrades"`
	TotalVolume int64     `json:"totalVolume"`
	StartedAt   time.Time `json:"startedAt"`
}

// handleStats returns runtime and aggregate statistics. Journal totals
// are zero when persistence is disabled.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Uptime:      time.Since(s.startAt).Truncate(time.Second).String(),
		Clients:     s.mgr.ClientCount(),
		Instruments: len(s.market.Snapshot()),
		SimDate:     s.market.SimDate().Format(time.DateOnly),
		StartedAt:   s.startAt,
	}

	if s.reader != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ts, err := s.reader.QueryTradeStats(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.TotalTrades = ts.TotalTrades
		resp.TotalVolume = ts.TotalVolume
	}

	writeJSON(w, http.StatusOK, resp)
}
