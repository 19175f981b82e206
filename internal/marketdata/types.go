package marketdata

import (
	"context"
	"math"
	"sort"
	"time"
)

// Interval is the bar size of a price series.
type Interval string

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
)

// Intervals lists every interval a backtest loads, finest first.
var Intervals = []Interval{Daily, Weekly, Monthly}

// DateLayout formats bar dates.
const DateLayout = "2006-01-02"

// Bar is one OHLCV record.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Row is a bar together with the indicators computed for it. Indicators that
// could not be computed for the row are absent from the map.
type Row struct {
	Bar
	Indicators map[string]float64
}

// Indicator returns the named indicator, if present and finite.
func (r Row) Indicator(name string) (float64, bool) {
	v, ok := r.Indicators[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Values flattens the row into named columns. Non-finite values are dropped.
func (r Row) Values() map[string]any {
	out := map[string]any{"Date": r.Date.Format(DateLayout)}
	for name, v := range map[string]float64{
		"Open": r.Open, "High": r.High, "Low": r.Low, "Close": r.Close, "Volume": r.Volume,
	} {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[name] = v
		}
	}
	for name := range r.Indicators {
		if v, ok := r.Indicator(name); ok {
			out[name] = v
		}
	}
	return out
}

// Source retrieves price history. An empty series means the symbol has no
// data for the interval; callers skip it.
type Source interface {
	FetchSeries(ctx context.Context, symbol string, start time.Time, interval Interval) ([]Bar, error)
}

// SortBars orders bars by date and keeps the last bar of each date.
func SortBars(bars []Bar) []Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && sameDay(out[n-1].Date, b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
