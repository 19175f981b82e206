package database

import (
	"errors"
	"fmt"

	"paper-trade-bot-go/internal/models"

	"gorm.io/gorm"
)

// Trades returns the trade log, most recent first. An empty runID selects
// every run.
func Trades(db *gorm.DB, runID string) ([]models.Trade, error) {
	q := db.Order("id desc")
	if runID != "" {
		q = q.Where("run_id = ?", runID)
	}
	var trades []models.Trade
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	return trades, nil
}

// LatestSnapshot returns the valuation rows written with the most recent
// trade of runID (or of any run when runID is empty). It returns no rows when
// nothing has been traded or when the last trade closed the last position.
func LatestSnapshot(db *gorm.DB, runID string) ([]models.PositionSnapshot, error) {
	q := db.Order("id desc")
	if runID != "" {
		q = q.Where("run_id = ?", runID)
	}
	var last models.Trade
	if err := q.First(&last).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest trade: %w", err)
	}

	var rows []models.PositionSnapshot
	if err := db.Where("trade_id = ?", last.ID).Order("symbol asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load position snapshot: %w", err)
	}
	return rows, nil
}

// LatestRunID returns the run that wrote the most recent trade, or "" when
// the trade log is empty.
func LatestRunID(db *gorm.DB) (string, error) {
	var last models.Trade
	if err := db.Order("id desc").First(&last).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load latest trade: %w", err)
	}
	return last.RunID, nil
}
