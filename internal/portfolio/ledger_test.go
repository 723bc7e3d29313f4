package portfolio

import (
	"errors"
	"math"
	"testing"
)

func testConfig() Config {
	return Config{
		StartingCash: 10000,
		LotSize:      100,
		BuyFeeRate:   0.0003,
		SellFeeRate:  0.0013,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuyDebitsCashWithFee(t *testing.T) {
	l := NewLedger(testConfig())

	tr, err := l.Buy("600106", "Test Co", 10.00, 100)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !almostEqual(tr.Fee, 0.30) {
		t.Errorf("fee = %v, want 0.30", tr.Fee)
	}

	acct := l.Account()
	if !almostEqual(acct.Cash, 8999.70) {
		t.Errorf("cash = %v, want 8999.70", acct.Cash)
	}

	p, ok := l.Position("600106")
	if !ok {
		t.Fatal("position not created")
	}
	if p.Quantity != 100 {
		t.Errorf("quantity = %d, want 100", p.Quantity)
	}
	if !almostEqual(p.CostPrice, 10.00) {
		t.Errorf("costPrice = %v, want 10.00", p.CostPrice)
	}
	if !almostEqual(p.CurrentPrice, 10.00) {
		t.Errorf("currentPrice = %v, want 10.00", p.CurrentPrice)
	}
}

func TestBuyAveragesCost(t *testing.T) {
	l := NewLedger(Config{StartingCash: 100000, LotSize: 100, BuyFeeRate: 0.0003, SellFeeRate: 0.0013})

	if _, err := l.Buy("600106", "Test Co", 10.00, 100); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if _, err := l.Buy("600106", "Test Co", 12.00, 100); err != nil {
		t.Fatalf("second buy: %v", err)
	}

	p, _ := l.Position("600106")
	if p.Quantity != 200 {
		t.Errorf("quantity = %d, want 200", p.Quantity)
	}
	if !almostEqual(p.CostPrice, 11.00) {
		t.Errorf("costPrice = %v, want 11.00", p.CostPrice)
	}
}

func TestSellRealizesProfit(t *testing.T) {
	l := NewLedger(Config{StartingCash: 100000, LotSize: 100, BuyFeeRate: 0.0003, SellFeeRate: 0.0013})

	l.Buy("600106", "Test Co", 10.00, 100)
	l.Buy("600106", "Test Co", 12.00, 100)

	tr, err := l.Sell("600106", 13.00, 100)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}

	// (13 - 11) * 100 minus the sell-side fee on 1300 notional.
	fee := math.Round(1300*0.0013*100) / 100
	want := math.Round((200-fee)*100) / 100
	if !almostEqual(tr.Realized, want) {
		t.Errorf("realized = %v, want %v", tr.Realized, want)
	}

	p, ok := l.Position("600106")
	if !ok {
		t.Fatal("remaining position missing")
	}
	if p.Quantity != 100 {
		t.Errorf("quantity = %d, want 100", p.Quantity)
	}
	if !almostEqual(p.CostPrice, 11.00) {
		t.Errorf("sell changed costPrice: %v", p.CostPrice)
	}

	// No re-marks happened, so today's profit is exactly the realized leg.
	acct := l.Account()
	if !almostEqual(acct.TodayProfit, want) {
		t.Errorf("todayProfit = %v, want %v", acct.TodayProfit, want)
	}
}

func TestSellAllRemovesPosition(t *testing.T) {
	l := NewLedger(testConfig())

	l.Buy("600106", "Test Co", 10.00, 100)
	if _, err := l.Sell("600106", 10.50, 100); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if _, ok := l.Position("600106"); ok {
		t.Error("position should be gone at zero quantity")
	}
	if got := len(l.Positions()); got != 0 {
		t.Errorf("positions = %d, want 0", got)
	}
}

func TestBuyRejections(t *testing.T) {
	l := NewLedger(testConfig())

	if _, err := l.Buy("600106", "Test Co", 10.00, 150); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("odd lot: err = %v, want ErrInvalidQuantity", err)
	}
	if _, err := l.Buy("600106", "Test Co", 10.00, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero qty: err = %v, want ErrInvalidQuantity", err)
	}
	if _, err := l.Buy("600106", "Test Co", 10.00, -100); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("negative qty: err = %v, want ErrInvalidQuantity", err)
	}
	if _, err := l.Buy("600106", "Test Co", 150.00, 100); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("too expensive: err = %v, want ErrInsufficientFunds", err)
	}

	acct := l.Account()
	if !almostEqual(acct.Cash, 10000) {
		t.Errorf("rejected buys moved cash: %v", acct.Cash)
	}
	if len(l.Positions()) != 0 {
		t.Error("rejected buys created a position")
	}
}

func TestBuySpendsExactlyAllCash(t *testing.T) {
	// cost = 1000 * (1 + 0.0003) rounds to exactly the starting cash.
	l := NewLedger(Config{StartingCash: 1000.30, LotSize: 100, BuyFeeRate: 0.0003})
	if _, err := l.Buy("600106", "Test Co", 10.00, 100); err != nil {
		t.Fatalf("exact-cash buy rejected: %v", err)
	}
	if acct := l.Account(); !almostEqual(acct.Cash, 0) {
		t.Errorf("cash = %v, want 0", acct.Cash)
	}
}

func TestSellRejections(t *testing.T) {
	l := NewLedger(testConfig())
	l.Buy("600106", "Test Co", 10.00, 100)

	if _, err := l.Sell("600106", 10.00, 150); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("odd lot: err = %v, want ErrInvalidQuantity", err)
	}
	if _, err := l.Sell("600106", 10.00, 200); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("oversell: err = %v, want ErrInsufficientShares", err)
	}
	if _, err := l.Sell("000001", 10.00, 100); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("no position: err = %v, want ErrInsufficientShares", err)
	}

	p, _ := l.Position("600106")
	if p.Quantity != 100 {
		t.Errorf("rejected sells changed quantity: %d", p.Quantity)
	}
}

func TestUpdatePriceMarksPosition(t *testing.T) {
	l := NewLedger(testConfig())
	l.Buy("600106", "Test Co", 10.00, 100)

	l.UpdatePrice("600106", 10.50)

	p, _ := l.Position("600106")
	if !almostEqual(p.CurrentPrice, 10.50) {
		t.Errorf("currentPrice = %v, want 10.50", p.CurrentPrice)
	}
	if !almostEqual(p.Profit, 50.00) {
		t.Errorf("profit = %v, want 50.00", p.Profit)
	}
	if !almostEqual(p.ProfitRate, 0.05) {
		t.Errorf("profitRate = %v, want 0.05", p.ProfitRate)
	}

	acct := l.Account()
	if !almostEqual(acct.TodayProfit, 50.00) {
		t.Errorf("todayProfit = %v, want 50.00", acct.TodayProfit)
	}
	if !almostEqual(acct.StockValue, 1050.00) {
		t.Errorf("stockValue = %v, want 1050.00", acct.StockValue)
	}

	// Marks on symbols the player does not hold are ignored.
	l.UpdatePrice("000001", 99.00)
	if got := l.Account(); !almostEqual(got.TodayProfit, 50.00) {
		t.Errorf("foreign mark moved todayProfit: %v", got.TodayProfit)
	}
}

func TestAccountAggregates(t *testing.T) {
	l := NewLedger(Config{StartingCash: 100000, LotSize: 100, BuyFeeRate: 0.0003, SellFeeRate: 0.0013})

	l.Buy("600106", "Alpha", 10.00, 200)
	l.Buy("000858", "Beta", 50.00, 100)
	l.UpdatePrice("600106", 11.00)
	l.UpdatePrice("000858", 48.00)

	acct := l.Account()
	wantStock := 11.00*200 + 48.00*100
	if !almostEqual(acct.StockValue, wantStock) {
		t.Errorf("stockValue = %v, want %v", acct.StockValue, wantStock)
	}
	if !almostEqual(acct.TotalAssets, acct.Cash+acct.StockValue) {
		t.Errorf("totalAssets = %v, want cash+stock = %v", acct.TotalAssets, acct.Cash+acct.StockValue)
	}
	// No sells yet, so total profit is pure unrealized.
	if !almostEqual(acct.TotalProfit, 200-200) {
		t.Errorf("totalProfit = %v, want 0", acct.TotalProfit)
	}
}

func TestResetDayClearsTodayProfit(t *testing.T) {
	l := NewLedger(testConfig())
	l.Buy("600106", "Test Co", 10.00, 100)
	l.UpdatePrice("600106", 11.00)

	before := l.Account()
	if almostEqual(before.TodayProfit, 0) {
		t.Fatal("expected nonzero todayProfit before rollover")
	}

	l.ResetDay()

	after := l.Account()
	if !almostEqual(after.TodayProfit, 0) {
		t.Errorf("todayProfit = %v after reset, want 0", after.TodayProfit)
	}
	if !almostEqual(after.TotalProfit, before.TotalProfit) {
		t.Errorf("reset changed totalProfit: %v -> %v", before.TotalProfit, after.TotalProfit)
	}
}

func TestStateRoundTrip(t *testing.T) {
	l := NewLedger(Config{StartingCash: 100000, LotSize: 100, BuyFeeRate: 0.0003, SellFeeRate: 0.0013})
	l.Buy("600106", "Alpha", 10.00, 200)
	l.Buy("000858", "Beta", 50.00, 100)
	l.Sell("600106", 12.00, 100)
	l.UpdatePrice("000858", 51.00)

	st := l.State()

	restored := NewLedger(Config{StartingCash: 1, LotSize: 100, BuyFeeRate: 0.0003, SellFeeRate: 0.0013})
	restored.Restore(st)

	want := l.Account()
	got := restored.Account()
	if got != want {
		t.Errorf("account after restore = %+v, want %+v", got, want)
	}

	wantPos := l.Positions()
	gotPos := restored.Positions()
	if len(gotPos) != len(wantPos) {
		t.Fatalf("positions = %d, want %d", len(gotPos), len(wantPos))
	}
	for i := range wantPos {
		if gotPos[i] != wantPos[i] {
			t.Errorf("position %d = %+v, want %+v", i, gotPos[i], wantPos[i])
		}
	}
}
