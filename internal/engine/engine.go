package engine

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/jornvale/salaryman/go-market/internal/candle"
	"github.com/jornvale/salaryman/go-market/internal/instrument"
)

// priceEpsilon absorbs float drift when comparing prices already rounded
// to 2 decimals.
const priceEpsilon = 1e-6

// Stock is one instrument's live quote. The engine hands out copies only;
// a Stock in a caller's hands never mutates.
type Stock struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prevClose"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
	Volume    int64   `json:"volume"`
	Turnover  float64 `json:"turnover"`

	LimitUp     float64 `json:"limitUp"`
	LimitDown   float64 `json:"limitDown"`
	IsLimitUp   bool    `json:"isLimitUp"`
	IsLimitDown bool    `json:"isLimitDown"`
}

// Params configures the market engine.
type Params struct {
	BandRatio    float64       // daily limit band around prev close, e.g. 0.10
	LotSize      int64         // shares per lot for synthetic volume
	TickInterval time.Duration // scheduler cadence while running
	StartDate    time.Time     // first simulated trading day
}

// Engine owns the instrument roster and drives price movement on a fixed
// tick schedule. All state behind the mutex; every accessor returns copies.
type Engine struct {
	mu     sync.Mutex
	rng    *RNG
	model  Model
	params Params

	stocks   map[string]*Stock
	order    []string // roster order for stable snapshots
	volMults map[string]float64
	days     map[string][]candle.Candle
	date     time.Time

	subs    map[int]func([]Stock)
	nextSub int

	running  bool
	done     chan struct{}
	loopDone chan struct{}
}

// New creates an engine over the given roster. Each instrument opens flat
// at its previous close with the limit band derived from it.
func New(rng *RNG, model Model, roster []instrument.Instrument, params Params) *Engine {
	e := &Engine{
		rng:      rng,
		model:    model,
		params:   params,
		stocks:   make(map[string]*Stock, len(roster)),
		volMults: make(map[string]float64, len(roster)),
		days:     make(map[string][]candle.Candle),
		subs:     make(map[int]func([]Stock)),
		date:     params.StartDate,
	}
	if e.date.IsZero() {
		e.date = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	}
	for _, inst := range roster {
		st := &Stock{
			Symbol:    inst.Symbol,
			Name:      inst.Name,
			Price:     inst.PrevClose,
			PrevClose: inst.PrevClose,
			Open:      inst.PrevClose,
			High:      inst.PrevClose,
			Low:       inst.PrevClose,
		}
		e.applyBands(st)
		e.stocks[inst.Symbol] = st
		e.order = append(e.order, inst.Symbol)
		e.volMults[inst.Symbol] = inst.VolatilityMultiplier
	}
	return e
}

// Start begins the tick loop. Idempotent: starting a running engine is a
// no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.done = make(chan struct{})
	e.loopDone = make(chan struct{})
	go e.loop(e.done, e.loopDone)
	log.Printf("market engine started (interval=%v, %d instruments)", e.params.TickInterval, len(e.order))
}

// Stop halts the tick loop and waits for it to exit, so no tick runs
// after Stop returns. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	done, loopDone := e.done, e.loopDone
	e.mu.Unlock()

	close(done)
	<-loopDone
	log.Printf("market engine stopped")
}

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) loop(done <-chan struct{}, loopDone chan<- struct{}) {
	defer close(loopDone)

	ticker := time.NewTicker(e.params.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick advances every instrument one step and fans the fresh snapshot out
// to subscribers. Exposed so tests and alternative schedulers can drive
// the engine directly.
func (e *Engine) Tick() {
	e.mu.Lock()
	e.model.Advance(e.rng)
	for _, sym := range e.order {
		e.tickStock(e.stocks[sym])
	}
	snap := e.snapshotLocked()
	subs := make([]func([]Stock), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	// Callbacks run outside the lock against an immutable snapshot, so a
	// slow subscriber cannot stall reads or trades.
	for _, fn := range subs {
		fn(snap)
	}
}

func (e *Engine) tickStock(st *Stock) {
	next := e.model.NextPrice(e.rng, st.Price, e.volMults[st.Symbol])
	if math.IsNaN(next) || math.IsInf(next, 0) || next <= 0 {
		// A misbehaving model never reaches the tape.
		next = st.Price
	}
	next = round2(next)
	if next > st.LimitUp {
		next = st.LimitUp
	}
	if next < st.LimitDown {
		next = st.LimitDown
	}

	st.Price = next
	if next > st.High {
		st.High = next
	}
	if next < st.Low {
		st.Low = next
	}

	lots := e.rng.IntRange(1, 50)
	shares := int64(lots) * e.params.LotSize
	st.Volume += shares
	st.Turnover = round2(st.Turnover + next*float64(shares))

	e.applyDerived(st)
}

// applyDerived recomputes change, changePercent and the limit flags.
func (e *Engine) applyDerived(st *Stock) {
	st.Change = round2(st.Price - st.PrevClose)
	if st.PrevClose > 0 {
		st.ChangePct = round2((st.Price - st.PrevClose) / st.PrevClose * 100)
	} else {
		st.ChangePct = 0
	}
	st.IsLimitUp = math.Abs(st.Price-st.LimitUp) < priceEpsilon
	st.IsLimitDown = math.Abs(st.Price-st.LimitDown) < priceEpsilon
}

func (e *Engine) applyBands(st *Stock) {
	st.LimitUp = round2(st.PrevClose * (1 + e.params.BandRatio))
	st.LimitDown = round2(st.PrevClose * (1 - e.params.BandRatio))
}

// EndDay closes the current trading day: the day candle is finalized into
// history, the close becomes the new previous close, the limit band is
// recomputed and the session fields reset. The caller (the game's day
// clock) decides when days end.
func (e *Engine) EndDay() {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.date.AddDate(0, 0, 1)
	for _, sym := range e.order {
		st := e.stocks[sym]
		if st.Volume > 0 {
			e.days[sym] = append(e.days[sym], candle.Candle{
				Date:   e.date,
				Open:   st.Open,
				High:   st.High,
				Low:    st.Low,
				Close:  st.Price,
				Volume: st.Volume,
			})
		}

		st.PrevClose = st.Price
		e.applyBands(st)
		st.Open = st.Price
		st.High = st.Price
		st.Low = st.Price
		st.Volume = 0
		st.Turnover = 0
		e.applyDerived(st)
	}
	e.date = next
	log.Printf("trading day rolled over to %s", next.Format(time.DateOnly))
}

// Subscribe registers a callback invoked after every tick with a snapshot
// of the full roster. The returned func detaches the subscriber; calling
// it more than once, or after Stop, is a no-op.
func (e *Engine) Subscribe(fn func([]Stock)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Snapshot returns a copy of every instrument's current quote, in roster
// order.
func (e *Engine) Snapshot() []Stock {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() []Stock {
	out := make([]Stock, 0, len(e.order))
	for _, sym := range e.order {
		out = append(out, *e.stocks[sym])
	}
	return out
}

// GetStock returns a copy of one instrument's quote.
func (e *Engine) GetStock(symbol string) (Stock, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.stocks[symbol]
	if !ok {
		return Stock{}, false
	}
	return *st, true
}

// Candles returns the candle series for a symbol at the given period,
// ascending. The in-progress day joins as the trailing, still-growing
// candle once it has traded.
func (e *Engine) Candles(symbol string, period candle.Period) []candle.Candle {
	e.mu.Lock()
	st, ok := e.stocks[symbol]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	days := make([]candle.Candle, len(e.days[symbol]))
	copy(days, e.days[symbol])
	if st.Volume > 0 {
		days = append(days, candle.Candle{
			Date:   e.date,
			Open:   st.Open,
			High:   st.High,
			Low:    st.Low,
			Close:  st.Price,
			Volume: st.Volume,
		})
	}
	e.mu.Unlock()

	return candle.Aggregate(days, period)
}

// SimDate returns the current simulated trading day.
func (e *Engine) SimDate() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.date
}

// SetSimDate restores the simulated day from a save.
func (e *Engine) SetSimDate(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.date = t
}

// RestoreStock overwrites one instrument's session state from a save.
// Bands and derived fields are recomputed from the restored prev close.
func (e *Engine) RestoreStock(s Stock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.stocks[s.Symbol]
	if !ok {
		return
	}
	st.Price = s.Price
	st.PrevClose = s.PrevClose
	st.Open = s.Open
	st.High = s.High
	st.Low = s.Low
	st.Volume = s.Volume
	st.Turnover = s.Turnover
	e.applyBands(st)
	e.applyDerived(st)
}

// RestoreHistory replaces a symbol's closed day-candle history from a save.
func (e *Engine) RestoreHistory(symbol string, days []candle.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.stocks[symbol]; !ok {
		return
	}
	cp := make([]candle.Candle, len(days))
	copy(cp, days)
	e.days[symbol] = cp
}

// History returns a copy of the closed day candles for a symbol.
func (e *Engine) History(symbol string) []candle.Candle {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]candle.Candle, len(e.days[symbol]))
	copy(cp, e.days[symbol])
	return cp
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
