package portfolio

import (
	"errors"
	"fmt"

	"github.com/jornvale/salaryman/go-market/internal/engine"
)

// priceEpsilon tolerates float noise when comparing an order price
// against the band edges.
const priceEpsilon = 1e-6

// Result is the order outcome reported back to the player.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Trade   *Trade `json:"trade,omitempty"`
}

// Executor validates player orders against the live market, settles them
// on the ledger, and forwards executed trades to the journal channel.
// A nil journal disables recording.
type Executor struct {
	market  *engine.Engine
	ledger  *Ledger
	journal chan<- Trade
}

func NewExecutor(market *engine.Engine, ledger *Ledger, journal chan<- Trade) *Executor {
	return &Executor{market: market, ledger: ledger, journal: journal}
}

// Buy validates and settles a buy order. Checks run in a fixed order:
// quantity, symbol, band, then funds. The first failure wins and leaves
// the ledger untouched.
func (x *Executor) Buy(symbol string, price float64, qty int64) Result {
	if err := x.ledger.CheckQuantity(qty); err != nil {
		return x.fail(symbol, err)
	}
	st, ok := x.market.GetStock(symbol)
	if !ok {
		return x.fail(symbol, ErrUnknownSymbol)
	}
	if err := checkBand(st, price); err != nil {
		return x.fail(symbol, err)
	}
	tr, err := x.ledger.Buy(symbol, st.Name, price, qty)
	if err != nil {
		return x.fail(symbol, err)
	}
	x.record(tr)
	return Result{
		Success: true,
		Message: fmt.Sprintf("bought %d %s at %.2f", qty, symbol, price),
		Trade:   &tr,
	}
}

// Sell validates and settles a sell order: quantity, symbol, shares,
// then band.
func (x *Executor) Sell(symbol string, price float64, qty int64) Result {
	if err := x.ledger.CheckQuantity(qty); err != nil {
		return x.fail(symbol, err)
	}
	st, ok := x.market.GetStock(symbol)
	if !ok {
		return x.fail(symbol, ErrUnknownSymbol)
	}
	if err := x.ledger.CheckSell(symbol, qty); err != nil {
		return x.fail(symbol, err)
	}
	if err := checkBand(st, price); err != nil {
		return x.fail(symbol, err)
	}
	tr, err := x.ledger.Sell(symbol, price, qty)
	if err != nil {
		return x.fail(symbol, err)
	}
	x.record(tr)
	return Result{
		Success: true,
		Message: fmt.Sprintf("sold %d %s at %.2f", qty, symbol, price),
		Trade:   &tr,
	}
}

// OnTick re-marks every held position to the latest tick prices. Wire it
// to the engine with Subscribe.
func (x *Executor) OnTick(stocks []engine.Stock) {
	for _, s := range stocks {
		x.ledger.UpdatePrice(s.Symbol, s.Price)
	}
}

func checkBand(st engine.Stock, price float64) error {
	if price < st.LimitDown-priceEpsilon || price > st.LimitUp+priceEpsilon {
		return ErrPriceOutOfBounds
	}
	return nil
}

func (x *Executor) fail(symbol string, err error) Result {
	var msg string
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		msg = fmt.Sprintf("quantity must be a positive multiple of %d", x.ledger.LotSize())
	case errors.Is(err, ErrUnknownSymbol):
		msg = fmt.Sprintf("unknown symbol %s", symbol)
	case errors.Is(err, ErrPriceOutOfBounds):
		msg = fmt.Sprintf("price outside the daily limit band for %s", symbol)
	default:
		msg = err.Error()
	}
	return Result{Success: false, Message: msg}
}

// record forwards a trade to the journal without ever blocking order
// settlement. If the writer is behind, the trade is dropped.
func (x *Executor) record(tr Trade) {
	if x.journal == nil {
		return
	}
	select {
	case x.journal <- tr:
	default:
	}
}
