package portfolio

import (
	"strings"
	"testing"
	"time"

	"github.com/jornvale/salaryman/go-market/internal/engine"
	"github.com/jornvale/salaryman/go-market/internal/instrument"
)

// holdModel keeps every price where it is, so tests control prices via
// the roster's previous close.
type holdModel struct{}

func (holdModel) Advance(*engine.RNG) {}

func (holdModel) NextPrice(_ *engine.RNG, price, _ float64) float64 { return price }

func testMarket(t *testing.T) *engine.Engine {
	t.Helper()
	roster := []instrument.Instrument{
		{Symbol: "600106", Name: "Test Co", PrevClose: 10.00, VolatilityMultiplier: 1},
	}
	return engine.New(engine.NewRNG(7), holdModel{}, roster, engine.Params{
		BandRatio:    0.10,
		LotSize:      100,
		TickInterval: time.Second,
	})
}

func TestExecutorBuySell(t *testing.T) {
	mkt := testMarket(t)
	led := NewLedger(Config{StartingCash: 10000, LotSize: 100, BuyFeeRate: 0.0003, SellFeeRate: 0.0013})
	ex := NewExecutor(mkt, led, nil)

	res := ex.Buy("600106", 10.00, 100)
	if !res.Success {
		t.Fatalf("buy rejected: %s", res.Message)
	}
	if res.Trade == nil || res.Trade.Side != SideBuy {
		t.Fatalf("buy trade = %+v", res.Trade)
	}
	if res.Trade.ID == "" {
		t.Error("trade missing id")
	}

	res = ex.Sell("600106", 10.50, 100)
	if !res.Success {
		t.Fatalf("sell rejected: %s", res.Message)
	}
	if res.Trade.Realized <= 0 {
		t.Errorf("realized = %v, want > 0", res.Trade.Realized)
	}
}

func TestExecutorRejectsUnknownSymbol(t *testing.T) {
	mkt := testMarket(t)
	led := NewLedger(Config{StartingCash: 10000, LotSize: 100})
	ex := NewExecutor(mkt, led, nil)

	res := ex.Buy("999999", 10.00, 100)
	if res.Success {
		t.Fatal("buy of unknown symbol accepted")
	}
	if !strings.Contains(res.Message, "999999") {
		t.Errorf("message %q does not name the symbol", res.Message)
	}
}

func TestExecutorRejectsOutOfBandPrices(t *testing.T) {
	mkt := testMarket(t)
	led := NewLedger(Config{StartingCash: 100000, LotSize: 100})
	ex := NewExecutor(mkt, led, nil)

	// prevClose 10.00 puts the band at [9.00, 11.00].
	if res := ex.Buy("600106", 11.01, 100); res.Success {
		t.Error("buy above limit up accepted")
	}
	if res := ex.Buy("600106", 8.99, 100); res.Success {
		t.Error("buy below limit down accepted")
	}
	if res := ex.Buy("600106", 11.00, 100); !res.Success {
		t.Errorf("buy at limit up rejected: %s", res.Message)
	}
	if res := ex.Buy("600106", 9.00, 100); !res.Success {
		t.Errorf("buy at limit down rejected: %s", res.Message)
	}

	ex.Buy("600106", 10.00, 100)
	if res := ex.Sell("600106", 11.01, 100); res.Success {
		t.Error("sell above limit up accepted")
	}
	if res := ex.Sell("600106", 11.00, 100); !res.Success {
		t.Errorf("sell at limit up rejected: %s", res.Message)
	}
}

func TestExecutorValidatesBeforeSettling(t *testing.T) {
	mkt := testMarket(t)
	led := NewLedger(Config{StartingCash: 10000, LotSize: 100})
	ex := NewExecutor(mkt, led, nil)

	// Both quantity and band are wrong; the quantity check wins.
	res := ex.Buy("600106", 20.00, 150)
	if res.Success {
		t.Fatal("invalid order accepted")
	}
	if !strings.Contains(res.Message, "multiple of 100") {
		t.Errorf("message = %q, want the lot-size complaint first", res.Message)
	}

	// Selling with no position reports missing shares before the band.
	res = ex.Sell("600106", 20.00, 100)
	if res.Success {
		t.Fatal("sell with no position accepted")
	}
	if res.Message != ErrInsufficientShares.Error() {
		t.Errorf("message = %q, want %q", res.Message, ErrInsufficientShares.Error())
	}

	if acct := led.Account(); acct.Cash != 10000 {
		t.Errorf("rejected orders moved cash: %v", acct.Cash)
	}
}

func TestExecutorJournalsTrades(t *testing.T) {
	mkt := testMarket(t)
	led := NewLedger(Config{StartingCash: 10000, LotSize: 100, BuyFeeRate: 0.0003, SellFeeRate: 0.0013})
	journal := make(chan Trade, 4)
	ex := NewExecutor(mkt, led, journal)

	ex.Buy("600106", 10.00, 100)
	ex.Sell("600106", 10.00, 100)
	ex.Buy("600106", 10.00, 999) // rejected, never journaled

	if got := len(journal); got != 2 {
		t.Fatalf("journal has %d trades, want 2", got)
	}
	first := <-journal
	if first.Side != SideBuy || first.Symbol != "600106" {
		t.Errorf("first journal entry = %+v", first)
	}
}

func TestExecutorJournalNeverBlocks(t *testing.T) {
	mkt := testMarket(t)
	led := NewLedger(Config{StartingCash: 100000, LotSize: 100, BuyFeeRate: 0.0003, SellFeeRate: 0.0013})
	journal := make(chan Trade, 1)
	ex := NewExecutor(mkt, led, journal)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			ex.Buy("600106", 10.00, 100)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("executor blocked on a full journal")
	}
}

func TestExecutorOnTick(t *testing.T) {
	mkt := testMarket(t)
	led := NewLedger(Config{StartingCash: 10000, LotSize: 100, BuyFeeRate: 0.0003, SellFeeRate: 0.0013})
	ex := NewExecutor(mkt, led, nil)

	ex.Buy("600106", 10.00, 100)
	ex.OnTick([]engine.Stock{{Symbol: "600106", Price: 10.80}})

	p, _ := led.Position("600106")
	if p.CurrentPrice != 10.80 {
		t.Errorf("currentPrice = %v, want 10.80", p.CurrentPrice)
	}
}
