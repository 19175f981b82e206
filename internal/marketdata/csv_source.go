package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
}

// CSVSource reads price series from {dir}/{symbol}_{interval}.csv files, or
// their preprocessed {symbol}_{interval}_clean.csv variants. Columns are
// matched by header name; unknown columns are ignored.
type CSVSource struct {
	dir    string
	logger *zap.Logger
}

var _ Source = (*CSVSource)(nil)

// NewCSVSource creates a CSVSource over dir.
func NewCSVSource(dir string, logger *zap.Logger) *CSVSource {
	return &CSVSource{dir: dir, logger: logger}
}

// FetchSeries implements Source. A missing file yields an empty series.
func (s *CSVSource) FetchSeries(_ context.Context, symbol string, start time.Time, interval Interval) ([]Bar, error) {
	path, ok := s.find(symbol, interval)
	if !ok {
		s.logger.Warn("No price file found", zap.String("symbol", symbol), zap.String("interval", string(interval)))
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	bars, skipped, err := readBars(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if skipped > 0 {
		s.logger.Warn("Skipped unreadable price rows", zap.String("path", path), zap.Int("rows", skipped))
	}

	out := bars[:0]
	for _, b := range bars {
		if start.IsZero() || !Day(b.Date).Before(Day(start)) {
			out = append(out, b)
		}
	}
	return SortBars(out), nil
}

func (s *CSVSource) find(symbol string, interval Interval) (string, bool) {
	for _, sym := range []string{symbol, strings.ToLower(symbol), strings.ToUpper(symbol)} {
		for _, suffix := range []string{"_clean.csv", ".csv"} {
			path := filepath.Join(s.dir, fmt.Sprintf("%s_%s%s", sym, interval, suffix))
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
		}
	}
	return "", false
}

// readBars parses OHLCV rows. Rows without a parseable date or close are
// skipped and counted.
func readBars(r io.Reader) ([]Bar, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		dateCol = 0
	}
	closeCol, ok := cols["close"]
	if !ok {
		return nil, 0, errors.New("no Close column")
	}

	field := func(rec []string, name string) float64 {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return 0
		}
		return cast.ToFloat64(strings.TrimSpace(rec[i]))
	}

	var (
		bars    []Bar
		skipped int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		if dateCol >= len(rec) || closeCol >= len(rec) {
			skipped++
			continue
		}
		date, ok := parseDate(rec[dateCol])
		if !ok {
			skipped++
			continue
		}
		closePrice, err := cast.ToFloat64E(strings.TrimSpace(rec[closeCol]))
		if err != nil || closePrice <= 0 {
			skipped++
			continue
		}
		bars = append(bars, Bar{
			Date:   date,
			Open:   field(rec, "open"),
			High:   field(rec, "high"),
			Low:    field(rec, "low"),
			Close:  closePrice,
			Volume: field(rec, "volume"),
		})
	}
	return bars, skipped, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}
