// Package candle holds OHLCV bars and derives week/month series from the
// day-candle history. Aggregates are views: they are recomputed from day
// candles on demand and never stored.
package candle

import (
	"fmt"
	"time"
)

// Period selects the candle timeframe.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period string from an external caller.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	}
	return "", fmt.Errorf("unsupported period: %q", s)
}

// Candle is one OHLCV bar. Date is the bar's first simulated trading day
// (midnight UTC); for day candles that is the day itself.
type Candle struct {
	Date   time.Time `json:"date" bson:"date"`
	Open   float64   `json:"open" bson:"open"`
	High   float64   `json:"high" bson:"high"`
	Low    float64   `json:"low" bson:"low"`
	Close  float64   `json:"close" bson:"close"`
	Volume int64     `json:"volume" bson:"volume"`
}

// Aggregate derives the series for a period from ascending day candles.
// For PeriodDay the input is returned as a copy. Buckets with no
// constituent days simply do not appear.
func Aggregate(days []Candle, p Period) []Candle {
	switch p {
	case PeriodWeek:
		return bucket(days, weekKey)
	case PeriodMonth:
		return bucket(days, monthKey)
	default:
		out := make([]Candle, len(days))
		copy(out, days)
		return out
	}
}

// Weeks groups ascending day candles by ISO week.
func Weeks(days []Candle) []Candle {
	return bucket(days, weekKey)
}

// Months groups ascending day candles by calendar month.
func Months(days []Candle) []Candle {
	return bucket(days, monthKey)
}

func weekKey(t time.Time) int {
	y, w := t.ISOWeek()
	return y*100 + w
}

func monthKey(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// bucket merges consecutive day candles sharing a key. Input must be
// ascending by date, which makes each bucket a contiguous run.
func bucket(days []Candle, key func(time.Time) int) []Candle {
	var out []Candle
	for _, d := range days {
		if len(out) > 0 && key(out[len(out)-1].Date) == key(d.Date) {
			merge(&out[len(out)-1], d)
			continue
		}
		out = append(out, d)
	}
	return out
}

// merge folds day candle d into aggregate a: first open, last close,
// extreme high/low, summed volume.
func merge(a *Candle, d Candle) {
	if d.High > a.High {
		a.High = d.High
	}
	if d.Low < a.Low {
		a.Low = d.Low
	}
	a.Close = d.Close
	a.Volume += d.Volume
}
