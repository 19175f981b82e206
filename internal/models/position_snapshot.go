package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PositionSnapshot is one held symbol's valuation written right after a trade.
// All rows written for the same trade share TradeID.
type PositionSnapshot struct {
	gorm.Model
	RunID        string          `gorm:"index" json:"run_id"`
	TradeID      uint            `gorm:"index" json:"trade_id"`
	Time         time.Time       `json:"time"`
	Symbol       string          `json:"symbol"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `gorm:"type:text" json:"average_price"`
	MarketPrice  decimal.Decimal `gorm:"type:text" json:"market_price"`
	MarketValue  decimal.Decimal `gorm:"type:text" json:"market_value"`
	Cash         decimal.Decimal `gorm:"type:text" json:"cash"`
	TotalValue   decimal.Decimal `gorm:"type:text" json:"total_value"`
}
