package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paper-trade-bot-go/internal/database"
	"paper-trade-bot-go/internal/models"
	"paper-trade-bot-go/internal/portfolio"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// seedRun trades through a real ledger so the rows match what a backtest writes.
func seedRun(t *testing.T, db *gorm.DB, runID string, trade func(l *portfolio.Ledger)) {
	t.Helper()
	ts := time.Date(2025, 10, 2, 16, 0, 0, 0, time.Local)
	l, err := portfolio.NewLedger(decimal.NewFromInt(10000), database.NewJournal(db, runID), zap.NewNop(),
		portfolio.WithClock(func() time.Time { return ts }))
	require.NoError(t, err)
	trade(l)
}

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	srv := httptest.NewServer(newMux(NewAPIHandler(zap.NewNop(), db)))
	t.Cleanup(srv.Close)
	return srv, db
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestAPI_EmptyDatabase(t *testing.T) {
	srv, _ := newTestServer(t)

	var trades []models.Trade
	getJSON(t, srv.URL+"/api/trades", &trades)
	assert.NotNil(t, trades)
	assert.Empty(t, trades)

	var rows []models.PositionSnapshot
	getJSON(t, srv.URL+"/api/positions", &rows)
	assert.Empty(t, rows)

	var stats StatisticsResponse
	getJSON(t, srv.URL+"/api/statistics", &stats)
	assert.Empty(t, stats.RunID)
	assert.Zero(t, stats.Run.TotalTrades)
}

func TestAPI_TradesAndStatistics(t *testing.T) {
	srv, db := newTestServer(t)

	seedRun(t, db, "old", func(l *portfolio.Ledger) {
		require.NoError(t, l.Buy("TSLA", 100, 1))
	})
	seedRun(t, db, "new", func(l *portfolio.Ledger) {
		require.NoError(t, l.Buy("AAPL", 100, 10))
		require.NoError(t, l.Buy("MSFT", 200, 5))
		require.NoError(t, l.Sell("AAPL", 120, 10))
	})

	var all []models.Trade
	getJSON(t, srv.URL+"/api/trades", &all)
	require.Len(t, all, 4)
	assert.Equal(t, "AAPL", all[0].Symbol)
	assert.Equal(t, portfolio.ActionSell, all[0].Action)

	var old []models.Trade
	getJSON(t, srv.URL+"/api/trades?run=old", &old)
	require.Len(t, old, 1)
	assert.Equal(t, "TSLA", old[0].Symbol)

	var rows []models.PositionSnapshot
	getJSON(t, srv.URL+"/api/positions", &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "MSFT", rows[0].Symbol)
	assert.Equal(t, int64(5), rows[0].Quantity)

	var stats StatisticsResponse
	getJSON(t, srv.URL+"/api/statistics", &stats)
	assert.Equal(t, "new", stats.RunID)
	assert.Equal(t, int64(3), stats.Run.TotalTrades)
	assert.Equal(t, int64(2), stats.Run.Buys)
	assert.Equal(t, int64(1), stats.Run.Sells)
	assert.True(t, stats.Run.Bought.Equal(decimal.NewFromInt(2000)), "bought %s", stats.Run.Bought)
	assert.True(t, stats.Run.Sold.Equal(decimal.NewFromInt(1200)), "sold %s", stats.Run.Sold)
	// 10000 - 1000 - 1000 + 1200 cash plus MSFT 5 @ 200.
	assert.True(t, stats.Run.Cash.Equal(decimal.NewFromInt(9200)), "cash %s", stats.Run.Cash)
	assert.True(t, stats.Run.TotalValue.Equal(decimal.NewFromInt(10200)), "total %s", stats.Run.TotalValue)

	getJSON(t, srv.URL+"/api/statistics?run=old", &stats)
	assert.Equal(t, "old", stats.RunID)
	assert.Equal(t, int64(1), stats.Run.TotalTrades)
	assert.True(t, stats.Run.TotalValue.Equal(decimal.NewFromInt(10000)))
}

func TestTradeStats_AllCash(t *testing.T) {
	trades := []models.Trade{
		{Action: portfolio.ActionSell, Amount: decimal.NewFromInt(1100), CashBalance: decimal.NewFromInt(10100)},
		{Action: portfolio.ActionBuy, Amount: decimal.NewFromInt(1000), CashBalance: decimal.NewFromInt(9000)},
	}

	s := tradeStats(trades, nil)
	assert.Equal(t, int64(2), s.TotalTrades)
	assert.True(t, s.Cash.Equal(decimal.NewFromInt(10100)))
	assert.True(t, s.TotalValue.Equal(s.Cash))
}

func TestAPI_StatusAndHealth(t *testing.T) {
	srv, db := newTestServer(t)
	seedRun(t, db, "r1", func(l *portfolio.Ledger) {
		require.NoError(t, l.Buy("AAPL", 10, 1))
	})

	var status struct {
		LatestRun string `json:"latest_run"`
		StartTime string `json:"start_time"`
		Uptime    string `json:"uptime"`
	}
	getJSON(t, srv.URL+"/api/status", &status)
	assert.Equal(t, "r1", status.LatestRun)
	_, err := time.Parse(time.RFC3339, status.StartTime)
	assert.NoError(t, err)
	assert.NotEmpty(t, status.Uptime)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
