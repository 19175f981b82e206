package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"paper-trade-bot-go/internal/restclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCSVSource_FetchSeries(t *testing.T) {
	dir := t.TempDir()
	body := "Date,Close,High,Low,Open,Volume,EMA20\n" +
		"2025-10-02,102.5,103,101,101.5,1200,\n" +
		"2025-09-30,100,101,99,99.5,1000,\n" +
		"not-a-date,1,1,1,1,1,\n" +
		"2025-10-01 00:00:00-04:00,101,102,100,100.5,1100,\n" +
		"2025-10-02,103,104,102,102.5,1300,\n" +
		"2025-10-03,,1,1,1,1,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nvda_daily_clean.csv"), []byte(body), 0o644))

	src := NewCSVSource(dir, zap.NewNop())
	bars, err := src.FetchSeries(context.Background(), "NVDA", date("2025-10-01"), Daily)
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, date("2025-10-01"), bars[0].Date)
	assert.Equal(t, 101.0, bars[0].Close)
	// The later row for a repeated date wins.
	assert.Equal(t, 103.0, bars[1].Close)
	assert.Equal(t, 1300.0, bars[1].Volume)
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := NewCSVSource(t.TempDir(), zap.NewNop())

	bars, err := src.FetchSeries(context.Background(), "AAPL", time.Time{}, Weekly)
	assert.NoError(t, err)
	assert.Empty(t, bars)
}

func TestCSVSource_NoCloseColumn(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL_daily.csv"), []byte("Date,Open\n2025-10-01,1\n"), 0o644))

	_, err := NewCSVSource(dir, zap.NewNop()).FetchSeries(context.Background(), "AAPL", time.Time{}, Daily)
	assert.ErrorContains(t, err, "no Close column")
}

func TestYahooSource_FetchSeries(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
			assert.Equal(t, "1wk", r.URL.Query().Get("interval"))
			assert.Equal(t, "1759276800", r.URL.Query().Get("period1"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"chart": {"result": [{
				"timestamp": [1759363200, 1759276800, 1759449600],
				"indicators": {"quote": [{
					"open": [101, 100, null],
					"high": [102, 101, null],
					"low": [100, 99, null],
					"close": [101.5, 100.5, null],
					"volume": [2000, 1000, null]
				}]}
			}], "error": null}}`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		src := NewYahooSource(restclient.New(restclient.Options{BaseURL: server.URL}, zap.NewNop()), zap.NewNop())
		bars, err := src.FetchSeries(context.Background(), "AAPL", date("2025-10-01"), Weekly)

		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, date("2025-10-01"), bars[0].Date)
		assert.Equal(t, 100.5, bars[0].Close)
		assert.Equal(t, date("2025-10-02"), bars[1].Date)
		assert.Equal(t, 2000.0, bars[1].Volume)
	})

	t.Run("ChartError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		src := NewYahooSource(restclient.New(restclient.Options{BaseURL: server.URL}, zap.NewNop()), zap.NewNop())
		_, err := src.FetchSeries(context.Background(), "ZZZZ", date("2025-10-01"), Daily)

		assert.ErrorContains(t, err, "No data found")
	})
}

func TestSeries_At(t *testing.T) {
	s := Series{
		Daily: []Row{
			{Bar: Bar{Date: date("2025-10-01"), Close: 10}},
			{Bar: Bar{Date: date("2025-10-02"), Close: 11}},
			{Bar: Bar{Date: date("2025-10-06"), Close: 12}},
		},
		Weekly: []Row{
			{Bar: Bar{Date: date("2025-09-29"), Close: 20}},
			{Bar: Bar{Date: date("2025-10-06"), Close: 21}},
		},
	}

	f, ok := s.At(date("2025-10-02"))
	require.True(t, ok)
	assert.Equal(t, 11.0, f.Daily.Close)
	require.NotNil(t, f.Weekly)
	assert.Equal(t, 20.0, f.Weekly.Close)
	assert.Nil(t, f.Monthly)

	f, ok = s.At(date("2025-10-06"))
	require.True(t, ok)
	assert.Equal(t, 21.0, f.Weekly.Close)

	_, ok = s.At(date("2025-10-03"))
	assert.False(t, ok)
}

func TestTradingDays(t *testing.T) {
	series := map[string]Series{
		"AAPL": {Daily: []Row{{Bar: Bar{Date: date("2025-09-30")}}, {Bar: Bar{Date: date("2025-10-01")}}, {Bar: Bar{Date: date("2025-10-03")}}}},
		"MSFT": {Daily: []Row{{Bar: Bar{Date: date("2025-10-01")}}, {Bar: Bar{Date: date("2025-10-02")}}, {Bar: Bar{Date: date("2025-10-09")}}}},
	}

	days := TradingDays(series, date("2025-10-01"), date("2025-10-05"))

	assert.Equal(t, []time.Time{date("2025-10-01"), date("2025-10-02"), date("2025-10-03")}, days)
	assert.Len(t, TradingDays(series, time.Time{}, time.Time{}), 5)
}

func TestRow_Values(t *testing.T) {
	r := Row{
		Bar:        Bar{Date: date("2025-10-01"), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		Indicators: map[string]float64{"RSI": 55},
	}

	v := r.Values()

	assert.Equal(t, "2025-10-01", v["Date"])
	assert.Equal(t, 1.5, v["Close"])
	assert.Equal(t, 55.0, v["RSI"])
	_, ok := r.Indicator("EMA20")
	assert.False(t, ok)
}
