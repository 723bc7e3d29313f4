// Package orderbook synthesizes five-level bid/ask depth around the live
// price. The ladder is a derived view: regenerated from the current quote
// on every call and never mutated by trades.
package orderbook

import (
	"math"

	"github.com/jornvale/salaryman/go-market/internal/engine"
)

// Levels per side of the ladder.
const Levels = 5

// Level is one rung of the depth ladder.
type Level struct {
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// Depth is a five-level snapshot for one instrument. Asks[0]/Bids[0] are
// the levels closest to the market.
type Depth struct {
	Symbol string        `json:"symbol"`
	Asks   [Levels]Level `json:"asks"`
	Bids   [Levels]Level `json:"bids"`
}

// Synthesize builds a ladder at fixed tick offsets from the current
// price, clipped to the limit band. Volumes are random, lot-sized, and
// larger near the market. A level whose offset would cross the band is
// pinned at the band edge with no size, which is what a one-sided
// limit-locked tape looks like.
func Synthesize(r *engine.RNG, s engine.Stock, priceTick float64, lotSize int64) Depth {
	d := Depth{Symbol: s.Symbol}

	for i := 0; i < Levels; i++ {
		offset := float64(i+1) * priceTick

		ask := snapPrice(s.Price+offset, priceTick)
		if ask > s.LimitUp {
			d.Asks[i] = Level{Price: s.LimitUp}
		} else {
			d.Asks[i] = Level{Price: ask, Volume: levelVolume(r, i, lotSize)}
		}

		bid := snapPrice(s.Price-offset, priceTick)
		if bid < s.LimitDown {
			d.Bids[i] = Level{Price: s.LimitDown}
		} else {
			d.Bids[i] = Level{Price: bid, Volume: levelVolume(r, i, lotSize)}
		}
	}
	return d
}

// levelVolume draws lot-sized volume, biased so rungs near the market
// carry more size.
func levelVolume(r *engine.RNG, level int, lotSize int64) int64 {
	maxLots := 12 * (Levels - level)
	lots := r.IntRange(1, maxLots)
	return int64(lots) * lotSize
}

func snapPrice(price, tick float64) float64 {
	return math.Round(price/tick) * tick
}
