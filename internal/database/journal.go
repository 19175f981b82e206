package database

import (
	"fmt"

	"paper-trade-bot-go/internal/models"
	"paper-trade-bot-go/internal/portfolio"

	"gorm.io/gorm"
)

// Journal records ledger mutations in the database. The trade row and its
// snapshot rows are written in one transaction.
type Journal struct {
	db    *gorm.DB
	runID string
}

var _ portfolio.Journal = (*Journal)(nil)

// NewJournal creates a Journal that tags every row with runID.
func NewJournal(db *gorm.DB, runID string) *Journal {
	return &Journal{db: db, runID: runID}
}

// Record implements portfolio.Journal.
func (j *Journal) Record(trade portfolio.TradeLogEntry, snapshot []portfolio.ValuationSnapshotEntry) error {
	return j.db.Transaction(func(tx *gorm.DB) error {
		row := models.Trade{
			RunID:       j.runID,
			Time:        trade.Time,
			Symbol:      trade.Symbol,
			Action:      trade.Action,
			Price:       trade.Price,
			Quantity:    trade.Quantity,
			Amount:      trade.Amount,
			CashBalance: trade.CashBalance,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to save trade: %w", err)
		}

		if len(snapshot) == 0 {
			return nil
		}
		rows := make([]models.PositionSnapshot, 0, len(snapshot))
		for _, s := range snapshot {
			rows = append(rows, models.PositionSnapshot{
				RunID:        j.runID,
				TradeID:      row.ID,
				Time:         s.Time,
				Symbol:       s.Symbol,
				Quantity:     s.Quantity,
				AveragePrice: s.AveragePrice,
				MarketPrice:  s.MarketPrice,
				MarketValue:  s.MarketValue,
				Cash:         s.Cash,
				TotalValue:   s.TotalValue,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save position snapshot: %w", err)
		}
		return nil
	})
}
