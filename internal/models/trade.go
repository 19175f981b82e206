package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade represents one executed trade in the append-only trade log.
type Trade struct {
	gorm.Model
	RunID       string          `gorm:"index" json:"run_id"`
	Time        time.Time       `gorm:"index" json:"time"`
	Symbol      string          `gorm:"index" json:"symbol"`
	Action      string          `json:"action"` // "BUY" or "SELL"
	Price       decimal.Decimal `gorm:"type:text" json:"price"`
	Quantity    int64           `json:"quantity"`
	Amount      decimal.Decimal `gorm:"type:text" json:"amount"` // cost or proceeds
	CashBalance decimal.Decimal `gorm:"type:text" json:"cash_balance"`
}
