// Package portfolio is the player's trading ledger: cash, per-symbol
// positions with weighted-average cost, and realized/unrealized profit
// tracking. One Ledger exists per game session and is owned by the
// composition root, never a package global.
package portfolio

import (
	"errors"
	"math"
	"sync"
)

// cashEpsilon absorbs float drift in affordability checks on amounts
// already rounded to 2 decimals.
const cashEpsilon = 1e-9

var (
	ErrInvalidQuantity    = errors.New("quantity must be a positive multiple of the lot size")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrPriceOutOfBounds   = errors.New("price outside the daily limit band")
	ErrUnknownSymbol      = errors.New("unknown symbol")
)

// Position is one holding. Quantity is always a positive multiple of the
// lot size; the position disappears when it reaches zero.
type Position struct {
	Symbol       string  `json:"symbol" bson:"symbol"`
	Name         string  `json:"name" bson:"name"`
	Quantity     int64   `json:"quantity" bson:"quantity"`
	CostPrice    float64 `json:"costPrice" bson:"costPrice"`
	CurrentPrice float64 `json:"currentPrice" bson:"currentPrice"`
	Profit       float64 `json:"profit" bson:"profit"`
	ProfitRate   float64 `json:"profitRate" bson:"profitRate"`
}

func (p *Position) recalc() {
	p.Profit = round2((p.CurrentPrice - p.CostPrice) * float64(p.Quantity))
	basis := p.CostPrice * float64(p.Quantity)
	if basis > 0 {
		p.ProfitRate = round4(p.Profit / basis)
	} else {
		p.ProfitRate = 0
	}
}

// Account is the portfolio-wide aggregate view, derived on read.
type Account struct {
	Cash        float64 `json:"cash"`
	StockValue  float64 `json:"stockValue"`
	TotalAssets float64 `json:"totalAssets"`
	TodayProfit float64 `json:"todayProfit"`
	TotalProfit float64 `json:"totalProfit"`
}

// Config holds the trading rules for a session.
type Config struct {
	StartingCash float64
	LotSize      int64
	BuyFeeRate   float64 // proportional commission on buys
	SellFeeRate  float64 // proportional commission + stamp duty on sells
}

// Ledger tracks cash and positions. All methods are safe for concurrent
// use; each mutation is atomic, so readers never see a half-settled trade.
type Ledger struct {
	mu  sync.Mutex
	cfg Config

	cash      float64
	positions map[string]*Position
	order     []string // insertion order for stable listings

	todayRealized float64
	totalRealized float64
	todayMark     float64 // mark-to-market deltas since day start
}

// NewLedger creates a ledger with the session's starting cash.
func NewLedger(cfg Config) *Ledger {
	if cfg.LotSize <= 0 {
		cfg.LotSize = 100
	}
	return &Ledger{
		cfg:       cfg,
		cash:      cfg.StartingCash,
		positions: make(map[string]*Position),
	}
}

// LotSize returns the session lot size.
func (l *Ledger) LotSize() int64 {
	return l.cfg.LotSize
}

// CheckQuantity validates a requested share quantity against the lot size.
func (l *Ledger) CheckQuantity(qty int64) error {
	if qty <= 0 || qty%l.cfg.LotSize != 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// CheckSell reports whether a sell of qty shares could settle right now.
func (l *Ledger) CheckSell(symbol string, qty int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok || p.Quantity < qty {
		return ErrInsufficientShares
	}
	return nil
}

// Buy settles a purchase: cash is debited by price*qty*(1+buyFeeRate) and
// the position's weighted-average cost is recomputed. On any error the
// ledger is untouched.
func (l *Ledger) Buy(symbol, name string, price float64, qty int64) (Trade, error) {
	if err := l.CheckQuantity(qty); err != nil {
		return Trade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	notional := price * float64(qty)
	fee := round2(notional * l.cfg.BuyFeeRate)
	cost := round2(notional + fee)
	if cost > l.cash+cashEpsilon {
		return Trade{}, ErrInsufficientFunds
	}

	l.cash = round2(l.cash - cost)

	p, ok := l.positions[symbol]
	if !ok {
		p = &Position{
			Symbol:       symbol,
			Name:         name,
			Quantity:     qty,
			CostPrice:    price,
			CurrentPrice: price,
		}
		l.positions[symbol] = p
		l.order = append(l.order, symbol)
	} else {
		total := p.CostPrice*float64(p.Quantity) + notional
		p.Quantity += qty
		p.CostPrice = total / float64(p.Quantity)
	}
	p.recalc()

	return newTrade(symbol, SideBuy, price, qty, fee, 0), nil
}

// Sell settles a sale: cash is credited by price*qty*(1-sellFeeRate) and
// realized profit (price - costPrice)*qty - fee rolls into today's and
// total profit. Cost basis never changes on sells; the position is
// removed when its quantity reaches zero.
func (l *Ledger) Sell(symbol string, price float64, qty int64) (Trade, error) {
	if err := l.CheckQuantity(qty); err != nil {
		return Trade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[symbol]
	if !ok || p.Quantity < qty {
		return Trade{}, ErrInsufficientShares
	}

	notional := price * float64(qty)
	fee := round2(notional * l.cfg.SellFeeRate)
	proceeds := round2(notional - fee)
	realized := round2((price-p.CostPrice)*float64(qty) - fee)

	l.cash = round2(l.cash + proceeds)
	l.todayRealized = round2(l.todayRealized + realized)
	l.totalRealized = round2(l.totalRealized + realized)

	p.Quantity -= qty
	if p.Quantity == 0 {
		delete(l.positions, symbol)
		l.removeFromOrder(symbol)
	} else {
		p.recalc()
	}

	return newTrade(symbol, SideSell, price, qty, fee, realized), nil
}

// UpdatePrice re-marks one position to the latest market price, rolling
// the unrealized delta into today's profit. Symbols without a position
// are ignored.
func (l *Ledger) UpdatePrice(symbol string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return
	}
	delta := (price - p.CurrentPrice) * float64(p.Quantity)
	l.todayMark = round2(l.todayMark + delta)
	p.CurrentPrice = price
	p.recalc()
}

// Positions returns copies of all holdings in first-buy order.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, 0, len(l.order))
	for _, sym := range l.order {
		out = append(out, *l.positions[sym])
	}
	return out
}

// Position returns a copy of one holding.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Account derives the aggregate view from cash and current marks.
func (l *Ledger) Account() Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	var stockValue, unrealized float64
	for _, p := range l.positions {
		stockValue += p.CurrentPrice * float64(p.Quantity)
		unrealized += p.Profit
	}
	return Account{
		Cash:        round2(l.cash),
		StockValue:  round2(stockValue),
		TotalAssets: round2(l.cash + stockValue),
		TodayProfit: round2(l.todayRealized + l.todayMark),
		TotalProfit: round2(l.totalRealized + unrealized),
	}
}

// ResetDay zeroes today's profit accumulators at the day rollover.
func (l *Ledger) ResetDay() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.todayRealized = 0
	l.todayMark = 0
}

// State is the persistable part of a ledger.
type State struct {
	Cash          float64    `bson:"cash"`
	TodayRealized float64    `bson:"todayRealized"`
	TotalRealized float64    `bson:"totalRealized"`
	TodayMark     float64    `bson:"todayMark"`
	Positions     []Position `bson:"positions"`
}

// State returns a copy of everything a game save needs to rebuild the ledger.
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := State{
		Cash:          l.cash,
		TodayRealized: l.todayRealized,
		TotalRealized: l.totalRealized,
		TodayMark:     l.todayMark,
		Positions:     make([]Position, 0, len(l.order)),
	}
	for _, sym := range l.order {
		st.Positions = append(st.Positions, *l.positions[sym])
	}
	return st
}

// Restore replaces ledger state from a save.
func (l *Ledger) Restore(st State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cash = st.Cash
	l.todayRealized = st.TodayRealized
	l.totalRealized = st.TotalRealized
	l.todayMark = st.TodayMark
	l.positions = make(map[string]*Position, len(st.Positions))
	l.order = l.order[:0]
	for _, p := range st.Positions {
		cp := p
		cp.recalc()
		l.positions[cp.Symbol] = &cp
		l.order = append(l.order, cp.Symbol)
	}
}

func (l *Ledger) removeFromOrder(symbol string) {
	for i, s := range l.order {
		if s == symbol {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
