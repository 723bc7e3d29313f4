package engine

import (
	"math"
	"testing"
)

func TestNextPricePositive(t *testing.T) {
	r := NewRNG(42)
	m := NewRandomWalk(0.02, 200, 0.02, 0.02)
	price := 100.0
	for i := 0; i < 100000; i++ {
		price = m.NextPrice(r, price, 1.0)
		if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			t.Fatalf("price went bad at step %d: %v", i, price)
		}
	}
}

func TestNextPriceStepBound(t *testing.T) {
	r := NewRNG(42)
	m := NewRandomWalk(0.5, 1, 0.02, 0) // absurd vol, tight clamp
	maxRatio := math.Exp(0.02)
	for i := 0; i < 10000; i++ {
		next := m.NextPrice(r, 100.0, 3.0)
		ratio := next / 100.0
		if ratio > maxRatio+1e-12 || ratio < 1/maxRatio-1e-12 {
			t.Fatalf("step ratio %v exceeds clamp at iteration %d", ratio, i)
		}
	}
}

func TestVolatilityMultiplierScalesSpread(t *testing.T) {
	spread := func(volMult float64) float64 {
		r := NewRNG(42)
		m := NewRandomWalk(0.02, 200, 0.5, 0)
		sumSq := 0.0
		n := 20000
		for i := 0; i < n; i++ {
			ret := math.Log(m.NextPrice(r, 100.0, volMult) / 100.0)
			sumSq += ret * ret
		}
		return sumSq / float64(n)
	}

	calm := spread(0.5)
	wild := spread(2.0)
	if wild <= calm*4 { // variance scales with the square of the multiplier
		t.Errorf("variance at multiplier 2.0 (%e) should dwarf 0.5 (%e)", wild, calm)
	}
}

func TestRegimeSwitching(t *testing.T) {
	r := NewRNG(42)
	m := NewRandomWalk(0.02, 200, 0.02, 0.5)
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		m.Advance(r)
		seen[m.Regime()] = true
	}
	for _, want := range []string{"neutral", "bull", "bear"} {
		if !seen[want] {
			t.Errorf("regime %q never reached in 1000 switch rolls", want)
		}
	}
}

func TestRegimeStableWithZeroProbability(t *testing.T) {
	r := NewRNG(42)
	m := NewRandomWalk(0.02, 200, 0.02, 0)
	for i := 0; i < 1000; i++ {
		m.Advance(r)
		if m.Regime() != "neutral" {
			t.Fatal("regime moved despite zero switch probability")
		}
	}
}

func TestRegimeDriftDirection(t *testing.T) {
	drift := func(g regime) float64 {
		r := NewRNG(42)
		m := &RandomWalk{DailyVol: 0.02, TicksPerDay: 200, MaxStepPct: 0.02, regime: g}
		sum := 0.0
		n := 50000
		for i := 0; i < n; i++ {
			sum += math.Log(m.NextPrice(r, 100.0, 1.0) / 100.0)
		}
		return sum / float64(n)
	}

	bull := drift(regimeBull)
	bear := drift(regimeBear)
	if bull <= 0 {
		t.Errorf("bull mean log-return = %e, want positive", bull)
	}
	if bear >= 0 {
		t.Errorf("bear mean log-return = %e, want negative", bear)
	}
	if bull <= bear {
		t.Errorf("bull drift (%e) should exceed bear drift (%e)", bull, bear)
	}
}
