package portfolio

import (
	"time"

	"github.com/google/uuid"
)

// Trade sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade is one executed order, recorded in the trade journal. Realized
// is zero for buys.
type Trade struct {
	ID       string    `json:"id"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"`
	Price    float64   `json:"price"`
	Quantity int64     `json:"quantity"`
	Fee      float64   `json:"fee"`
	Realized float64   `json:"realized"`
	At       time.Time `json:"at"`
}

func newTrade(symbol, side string, price float64, qty int64, fee, realized float64) Trade {
	return Trade{
		ID:       uuid.NewString(),
		Symbol:   symbol,
		Side:     side,
		Price:    price,
		Quantity: qty,
		Fee:      fee,
		Realized: realized,
		At:       time.Now().UTC(),
	}
}
