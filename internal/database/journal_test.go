package database

import (
	"path/filepath"
	"testing"
	"time"

	"paper-trade-bot-go/internal/models"
	"paper-trade-bot-go/internal/portfolio"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase("file::memory:")
	require.NoError(t, err)
	return db
}

func TestNewDatabase_KeepsExistingRows(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "trader.db")

	db, err := NewDatabase(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Trade{RunID: "r1", Symbol: "AAPL", Action: portfolio.ActionBuy}).Error)

	db, err = NewDatabase(dsn)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&models.Trade{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestJournal_RecordsLedgerTrades(t *testing.T) {
	db := newTestDB(t)
	ts := time.Date(2025, 10, 1, 16, 0, 0, 0, time.UTC)

	l, err := portfolio.NewLedger(decimal.NewFromInt(10000), NewJournal(db, "run-1"), zap.NewNop(),
		portfolio.WithClock(func() time.Time { return ts }))
	require.NoError(t, err)

	require.NoError(t, l.Buy("AAPL", 100, 10))
	require.NoError(t, l.Buy("MSFT", 250.5, 4))
	require.NoError(t, l.Sell("AAPL", 120, 10))

	trades, err := Trades(db, "run-1")
	require.NoError(t, err)
	require.Len(t, trades, 3)
	// Most recent first.
	assert.Equal(t, portfolio.ActionSell, trades[0].Action)
	assert.True(t, trades[0].Amount.Equal(decimal.NewFromInt(1200)))
	assert.True(t, trades[1].Price.Equal(decimal.RequireFromString("250.5")))
	assert.True(t, trades[0].CashBalance.Equal(l.Cash()))
	assert.Equal(t, "run-1", trades[2].RunID)

	snap, err := LatestSnapshot(db, "")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "MSFT", snap[0].Symbol)
	assert.Equal(t, trades[0].ID, snap[0].TradeID)
	assert.True(t, snap[0].TotalValue.Equal(l.Summary()))

	runID, err := LatestRunID(db)
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	other, err := Trades(db, "run-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestQueries_EmptyLog(t *testing.T) {
	db := newTestDB(t)

	snap, err := LatestSnapshot(db, "")
	require.NoError(t, err)
	assert.Empty(t, snap)

	runID, err := LatestRunID(db)
	require.NoError(t, err)
	assert.Empty(t, runID)
}

func TestJournal_FailureLeavesLedgerUnchanged(t *testing.T) {
	db := newTestDB(t)
	l, err := portfolio.NewLedger(decimal.NewFromInt(1000), NewJournal(db, "run-1"), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, db.Migrator().DropTable(&models.PositionSnapshot{}))

	err = l.Buy("AAPL", 10, 5)
	assert.ErrorIs(t, err, portfolio.ErrJournal)
	assert.True(t, l.Cash().Equal(decimal.NewFromInt(1000)))

	// The trade row was rolled back with the failed snapshot insert.
	var count int64
	require.NoError(t, db.Model(&models.Trade{}).Count(&count).Error)
	assert.Zero(t, count)
}
