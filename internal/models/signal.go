package models

import "gorm.io/gorm"

// Signal is a validated, priced model signal waiting to be executed.
// (Symbol, Action, Date) identifies a signal; a later write replaces an
// earlier one, whichever run made it.
type Signal struct {
	gorm.Model
	RunID      string  `gorm:"index" json:"run_id"`
	Date       string  `gorm:"index:idx_signal_key" json:"date"`
	Symbol     string  `gorm:"index:idx_signal_key" json:"symbol"`
	Action     string  `gorm:"index:idx_signal_key" json:"action"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Price      float64 `json:"price"`
}
