package signals

import (
	"testing"

	"paper-trade-bot-go/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	return NewStore(db, "run-1")
}

func TestStore_SaveAndForDate(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save([]Executable{
		{Symbol: "AAPL", Action: ActionBuy, Price: 100, Confidence: 0.8, Date: "2025-10-01"},
		{Symbol: "MSFT", Action: ActionSell, Price: 400, Confidence: 0.7, Date: "2025-10-01"},
		{Symbol: "NVDA", Action: ActionBuy, Price: 180, Confidence: 0.9, Date: "2025-10-02"},
	}))

	got, err := s.ForDate("2025-10-01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Executable{Symbol: "AAPL", Action: ActionBuy, Price: 100, Confidence: 0.8, Date: "2025-10-01"}, got[0])
	assert.Equal(t, "MSFT", got[1].Symbol)

	got, err = s.ForDate("2025-10-03")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_DedupeKeepsLatestWrite(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save([]Executable{
		{Symbol: "AAPL", Action: ActionBuy, Price: 100, Confidence: 0.7, Reason: "first", Date: "2025-10-01"},
		{Symbol: "MSFT", Action: ActionBuy, Price: 400, Confidence: 0.7, Date: "2025-10-01"},
	}))
	require.NoError(t, s.Save([]Executable{
		{Symbol: "AAPL", Action: ActionBuy, Price: 101, Confidence: 0.9, Reason: "second", Date: "2025-10-01"},
		// Same symbol and date with another action is a distinct signal.
		{Symbol: "AAPL", Action: ActionSell, Price: 101, Confidence: 0.9, Date: "2025-10-01"},
	}))

	got, err := s.ForDate("2025-10-01")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "MSFT", got[0].Symbol)
	assert.Equal(t, "second", got[1].Reason)
	assert.Equal(t, 101.0, got[1].Price)
	assert.Equal(t, ActionSell, got[2].Action)
}

func TestStore_ReadsOnlyItsOwnRun(t *testing.T) {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	first := NewStore(db, "run-1")
	second := NewStore(db, "run-2")

	require.NoError(t, first.Save([]Executable{
		{Symbol: "AAPL", Action: ActionBuy, Price: 100, Date: "2025-10-01"},
		{Symbol: "MSFT", Action: ActionBuy, Price: 400, Date: "2025-10-01"},
	}))
	require.NoError(t, second.Save([]Executable{
		{Symbol: "AAPL", Action: ActionBuy, Price: 105, Date: "2025-10-01"},
	}))

	got, err := second.ForDate("2025-10-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 105.0, got[0].Price)

	// The later write took over the AAPL signal.
	got, err = first.ForDate("2025-10-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MSFT", got[0].Symbol)
}

func TestStore_SaveEmptyBatch(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Save(nil))
}
