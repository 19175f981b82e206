package trader

import (
	"math"
	"testing"

	"paper-trade-bot-go/internal/signals"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSizer_SizeOrder(t *testing.T) {
	testCases := []struct {
		name     string
		fraction float64
		action   signals.Action
		cash     float64
		price    float64
		held     int64
		want     int64
	}{
		{name: "buy uses a fifth of cash", fraction: 0.2, action: signals.ActionBuy, cash: 100000, price: 100, want: 200},
		{name: "small account", fraction: 0.2, action: signals.ActionBuy, cash: 500, price: 100, want: 1},
		{name: "rounds down", fraction: 0.2, action: signals.ActionBuy, cash: 1000, price: 33, want: 6},
		{name: "budget below one share", fraction: 0.2, action: signals.ActionBuy, cash: 400, price: 100, want: 0},
		{name: "whole cash", fraction: 1, action: signals.ActionBuy, cash: 1000, price: 100, want: 10},
		{name: "fractional price", fraction: 0.5, action: signals.ActionBuy, cash: 1000, price: 0.3, want: 1666},
		{name: "no cash", fraction: 0.2, action: signals.ActionBuy, cash: 0, price: 100, want: 0},
		{name: "negative cash", fraction: 0.2, action: signals.ActionBuy, cash: -10, price: 100, want: 0},
		{name: "zero price", fraction: 0.2, action: signals.ActionBuy, cash: 1000, price: 0, want: 0},
		{name: "negative price", fraction: 0.2, action: signals.ActionSell, cash: 1000, price: -1, held: 5, want: 0},
		{name: "NaN price", fraction: 0.2, action: signals.ActionBuy, cash: 1000, price: math.NaN(), want: 0},
		{name: "sell liquidates", fraction: 0.2, action: signals.ActionSell, cash: 1000, price: 10, held: 37, want: 37},
		{name: "sell with no position", fraction: 0.2, action: signals.ActionSell, cash: 1000, price: 10, want: 0},
		{name: "sell ignores cash", fraction: 0.2, action: signals.ActionSell, cash: 0, price: 10, held: 4, want: 4},
		{name: "quantity beyond int64 is capped", fraction: 0.2, action: signals.ActionBuy, cash: 100000, price: 1e-15, want: math.MaxInt64},
		{name: "capped quantity stays positive", fraction: 0.2, action: signals.ActionBuy, cash: 100000, price: 1.1e-15, want: math.MaxInt64},
		{name: "hold", fraction: 0.2, action: signals.ActionHold, cash: 1000, price: 10, held: 4, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSizer(tc.fraction)
			got := s.SizeOrder(tc.action, decimal.NewFromFloat(tc.cash), tc.price, tc.held)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSizer_NeverExceedsCash(t *testing.T) {
	s := NewSizer(1)
	for _, price := range []float64{1e-15, 0.01, 0.07, 1.1, 3.3, 99.99, 1234.5} {
		cash := decimal.RequireFromString("1000.03")
		qty := s.SizeOrder(signals.ActionBuy, cash, price, 0)
		cost := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty))
		assert.False(t, cost.GreaterThan(cash), "price %v qty %d", price, qty)
	}
}
