package candle

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int, o, h, l, c float64, v int64) Candle {
	return Candle{
		Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: v,
	}
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"day", "week", "month"} {
		if _, err := ParsePeriod(s); err != nil {
			t.Fatalf("ParsePeriod(%q): %v", s, err)
		}
	}
	if _, err := ParsePeriod("year"); err == nil {
		t.Fatal("ParsePeriod should reject unsupported periods")
	}
}

func TestAggregateDayReturnsCopy(t *testing.T) {
	days := []Candle{day(2024, 1, 2, 10, 11, 9, 10.5, 100)}
	got := Aggregate(days, PeriodDay)
	if len(got) != 1 {
		t.Fatalf("got %d candles, want 1", len(got))
	}
	got[0].Close = 999
	if days[0].Close == 999 {
		t.Fatal("Aggregate(day) must not alias the input slice")
	}
}

func TestWeekAggregation(t *testing.T) {
	// 2024-01-02..05 are Tue..Fri of ISO week 1; 2024-01-08 is the next Monday.
	days := []Candle{
		day(2024, 1, 2, 10.0, 10.8, 9.9, 10.5, 100),
		day(2024, 1, 3, 10.5, 11.2, 10.4, 11.0, 200),
		day(2024, 1, 4, 11.0, 11.1, 10.2, 10.4, 150),
		day(2024, 1, 5, 10.4, 10.6, 10.0, 10.2, 50),
		day(2024, 1, 8, 10.2, 10.9, 10.1, 10.7, 300),
	}
	weeks := Weeks(days)
	if len(weeks) != 2 {
		t.Fatalf("got %d week candles, want 2", len(weeks))
	}

	w := weeks[0]
	if w.Open != 10.0 {
		t.Errorf("week open = %f, want first day's open 10.0", w.Open)
	}
	if w.Close != 10.2 {
		t.Errorf("week close = %f, want last day's close 10.2", w.Close)
	}
	if w.High != 11.2 {
		t.Errorf("week high = %f, want 11.2", w.High)
	}
	if w.Low != 9.9 {
		t.Errorf("week low = %f, want 9.9", w.Low)
	}
	if w.Volume != 500 {
		t.Errorf("week volume = %d, want 500", w.Volume)
	}
	if !w.Date.Equal(days[0].Date) {
		t.Errorf("week date = %v, want first constituent's date", w.Date)
	}

	// Trailing partial bucket: a single Monday still yields a candle.
	if weeks[1].Volume != 300 || weeks[1].Open != 10.2 {
		t.Errorf("partial week candle wrong: %+v", weeks[1])
	}
}

func TestMonthAggregation(t *testing.T) {
	days := []Candle{
		day(2024, 1, 30, 10, 12, 9, 11, 100),
		day(2024, 1, 31, 11, 13, 10, 12, 100),
		day(2024, 2, 1, 12, 12.5, 11.5, 12.2, 100),
	}
	months := Months(days)
	if len(months) != 2 {
		t.Fatalf("got %d month candles, want 2", len(months))
	}
	if months[0].Open != 10 || months[0].Close != 12 || months[0].High != 13 || months[0].Low != 9 {
		t.Errorf("january candle wrong: %+v", months[0])
	}
	if months[0].Volume != 200 {
		t.Errorf("january volume = %d, want 200", months[0].Volume)
	}
}

func TestEmptyBucketsAbsent(t *testing.T) {
	// Weeks apart: no zero-filled candles in between.
	days := []Candle{
		day(2024, 1, 2, 10, 11, 9, 10, 100),
		day(2024, 2, 6, 12, 13, 11, 12, 100),
	}
	weeks := Weeks(days)
	if len(weeks) != 2 {
		t.Fatalf("got %d week candles, want 2 (gaps must not be zero-filled)", len(weeks))
	}
}

func TestAggregateEmpty(t *testing.T) {
	if got := Weeks(nil); len(got) != 0 {
		t.Fatalf("Weeks(nil) = %v, want empty", got)
	}
}

func TestOHLCInvariant(t *testing.T) {
	days := []Candle{
		day(2024, 3, 4, 10, 11, 9.5, 10.8, 100),
		day(2024, 3, 5, 10.8, 12, 10.7, 11.9, 100),
		day(2024, 3, 6, 11.9, 12.1, 11.0, 11.2, 100),
	}
	for _, p := range []Period{PeriodDay, PeriodWeek, PeriodMonth} {
		for _, c := range Aggregate(days, p) {
			lo, hi := c.Open, c.Open
			if c.Close < lo {
				lo = c.Close
			}
			if c.Close > hi {
				hi = c.Close
			}
			if c.Low > lo {
				t.Errorf("%s candle low %f above min(open,close) %f", p, c.Low, lo)
			}
			if c.High < hi {
				t.Errorf("%s candle high %f below max(open,close) %f", p, c.High, hi)
			}
		}
	}
}
