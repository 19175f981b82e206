package trader

import (
	"math"

	"paper-trade-bot-go/internal/signals"

	"github.com/shopspring/decimal"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// Sizer turns a signal into an order quantity under a fixed allocation rule.
type Sizer struct {
	// AllocationFraction is the share of current cash committed to one BUY.
	AllocationFraction decimal.Decimal
}

// NewSizer creates a Sizer committing fraction of cash per BUY.
func NewSizer(fraction float64) Sizer {
	return Sizer{AllocationFraction: decimal.NewFromFloat(fraction)}
}

// SizeOrder returns the quantity to trade. A BUY spends at most
// AllocationFraction of cash, rounded down to whole shares and capped at
// math.MaxInt64; a SELL liquidates the whole position. Zero means there is
// nothing to do.
func (s Sizer) SizeOrder(action signals.Action, cash decimal.Decimal, price float64, existingQty int64) int64 {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0
	}

	switch action {
	case signals.ActionBuy:
		if !cash.IsPositive() || !s.AllocationFraction.IsPositive() {
			return 0
		}
		budget := cash.Mul(s.AllocationFraction)
		if budget.GreaterThan(cash) {
			budget = cash
		}
		qty := budget.Div(decimal.NewFromFloat(price)).Floor()
		if !qty.IsPositive() {
			return 0
		}
		if qty.GreaterThan(maxQuantity) {
			return math.MaxInt64
		}
		return qty.IntPart()
	case signals.ActionSell:
		if existingQty < 0 {
			return 0
		}
		return existingQty
	default:
		return 0
	}
}
