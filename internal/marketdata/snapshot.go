package marketdata

import (
	"sort"
	"time"
)

// Series holds the indicator rows of one symbol for every interval, each in
// ascending date order.
type Series struct {
	Daily   []Row
	Weekly  []Row
	Monthly []Row
}

// Frames is what the classifier sees of one symbol on one day: that day's
// daily row and the latest weekly and monthly rows not after it.
type Frames struct {
	Daily   Row
	Weekly  *Row
	Monthly *Row
}

// Snapshot maps symbols to their frames for one day.
type Snapshot map[string]Frames

// Symbols returns the snapshot's symbols in sorted order.
func (s Snapshot) Symbols() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Close returns the daily close of symbol, if the snapshot has it.
func (s Snapshot) Close(symbol string) (float64, bool) {
	f, ok := s[symbol]
	if !ok || f.Daily.Close <= 0 {
		return 0, false
	}
	return f.Daily.Close, true
}

// At returns the frames for day. It reports false when there is no daily row
// dated day.
func (s Series) At(day time.Time) (Frames, bool) {
	day = Day(day)
	i := sort.Search(len(s.Daily), func(i int) bool { return !Day(s.Daily[i].Date).Before(day) })
	if i == len(s.Daily) || !Day(s.Daily[i].Date).Equal(day) {
		return Frames{}, false
	}
	return Frames{
		Daily:   s.Daily[i],
		Weekly:  latestAtOrBefore(s.Weekly, day),
		Monthly: latestAtOrBefore(s.Monthly, day),
	}, true
}

func latestAtOrBefore(rows []Row, day time.Time) *Row {
	i := sort.Search(len(rows), func(i int) bool { return Day(rows[i].Date).After(day) })
	if i == 0 {
		return nil
	}
	r := rows[i-1]
	return &r
}

// TradingDays returns the sorted union of daily dates across series, clipped
// to [start, end]. A zero start or end leaves that side open.
func TradingDays(series map[string]Series, start, end time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, s := range series {
		for _, r := range s.Daily {
			d := Day(r.Date)
			if !start.IsZero() && d.Before(Day(start)) {
				continue
			}
			if !end.IsZero() && d.After(Day(end)) {
				continue
			}
			seen[d] = struct{}{}
		}
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
