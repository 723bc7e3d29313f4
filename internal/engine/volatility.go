package engine

import "math"

// Model proposes price movement for instruments. Implementations must be
// cheap and side-effect free apart from their own regime state: the engine
// calls Advance once per tick cycle and NextPrice once per instrument.
type Model interface {
	// Advance moves model-wide state (e.g. the market regime) one tick.
	Advance(r *RNG)
	// NextPrice proposes the next price given the current price and the
	// instrument's volatility multiplier. The engine clamps the result to
	// the limit band, so proposals may overshoot it.
	NextPrice(r *RNG, price, volMult float64) float64
}

// Market regimes bias the per-tick drift so the tape trends instead of
// pure noise. Switching is random with a small per-tick probability.
type regime int

const (
	regimeNeutral regime = iota
	regimeBull
	regimeBear
)

func (g regime) drift() float64 {
	switch g {
	case regimeBull:
		return 0.0004
	case regimeBear:
		return -0.0004
	default:
		return 0
	}
}

func (g regime) String() string {
	switch g {
	case regimeBull:
		return "bull"
	case regimeBear:
		return "bear"
	default:
		return "neutral"
	}
}

// RandomWalk is the default volatility model: a geometric random walk
// with regime drift, scaled so DailyVol is realized over TicksPerDay
// ticks. Single-tick returns are bounded by MaxStepPct in either
// direction.
type RandomWalk struct {
	DailyVol         float64 // e.g. 0.02 for 2% daily volatility
	TicksPerDay      float64
	MaxStepPct       float64 // bound on |log-return| per tick
	RegimeSwitchProb float64

	regime regime
}

// NewRandomWalk returns a RandomWalk with the given parameters, starting
// in the neutral regime.
func NewRandomWalk(dailyVol, ticksPerDay, maxStepPct, regimeSwitchProb float64) *RandomWalk {
	return &RandomWalk{
		DailyVol:         dailyVol,
		TicksPerDay:      ticksPerDay,
		MaxStepPct:       maxStepPct,
		RegimeSwitchProb: regimeSwitchProb,
	}
}

// Advance rolls the regime switch, once per tick cycle.
func (m *RandomWalk) Advance(r *RNG) {
	if r.Float64() >= m.RegimeSwitchProb {
		return
	}
	switch seed := r.Float64(); {
	case seed < 0.33:
		m.regime = regimeBear
	case seed < 0.66:
		m.regime = regimeNeutral
	default:
		m.regime = regimeBull
	}
}

// Regime reports the current regime name, for logging.
func (m *RandomWalk) Regime() string {
	return m.regime.String()
}

// NextPrice proposes the next price: S(t+1) = S(t) * exp(drift + vol * Z).
func (m *RandomWalk) NextPrice(r *RNG, price, volMult float64) float64 {
	ticks := m.TicksPerDay
	if ticks <= 0 {
		ticks = 1
	}
	tickVol := m.DailyVol / math.Sqrt(ticks) * volMult

	ret := m.regime.drift() + tickVol*r.Gaussian()
	if ret > m.MaxStepPct {
		ret = m.MaxStepPct
	}
	if ret < -m.MaxStepPct {
		ret = -m.MaxStepPct
	}
	return price * math.Exp(ret)
}
