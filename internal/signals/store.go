package signals

import (
	"fmt"

	"paper-trade-bot-go/internal/models"

	"gorm.io/gorm"
)

// Store persists executable signals. It is the batch source the executor
// reads from. Writes are tagged with the run that made them and reads only see
// that run's signals.
type Store struct {
	db    *gorm.DB
	runID string
}

// NewStore creates a Store on db for runID. The signals table must already
// exist.
func NewStore(db *gorm.DB, runID string) *Store {
	return &Store{db: db, runID: runID}
}

// Save merges batch into the store. A signal with the same symbol, action and
// date as a stored one, from any run, replaces it and moves to the end of the
// write order.
func (s *Store) Save(batch []Executable) error {
	if len(batch) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, sig := range batch {
			err := tx.Unscoped().
				Where("symbol = ? AND action = ? AND date = ?", sig.Symbol, string(sig.Action), sig.Date).
				Delete(&models.Signal{}).Error
			if err != nil {
				return fmt.Errorf("failed to replace signal %s %s %s: %w", sig.Date, sig.Action, sig.Symbol, err)
			}
			row := models.Signal{
				RunID:      s.runID,
				Date:       sig.Date,
				Symbol:     sig.Symbol,
				Action:     string(sig.Action),
				Confidence: sig.Confidence,
				Reason:     sig.Reason,
				Price:      sig.Price,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to save signal %s %s %s: %w", sig.Date, sig.Action, sig.Symbol, err)
			}
		}
		return nil
	})
}

// ForDate returns the signals this run stored for date, in write order.
func (s *Store) ForDate(date string) ([]Executable, error) {
	var rows []models.Signal
	err := s.db.Where("run_id = ? AND date = ?", s.runID, date).Order("id asc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load signals for %s: %w", date, err)
	}
	out := make([]Executable, 0, len(rows))
	for _, r := range rows {
		out = append(out, Executable{
			Symbol:     r.Symbol,
			Action:     Action(r.Action),
			Price:      r.Price,
			Confidence: r.Confidence,
			Reason:     r.Reason,
			Date:       r.Date,
		})
	}
	return out, nil
}
