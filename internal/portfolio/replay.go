package portfolio

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrReplayMismatch reports a trade log that does not reproduce its own
// recorded cash balances.
var ErrReplayMismatch = errors.New("trade log does not replay")

// Replay rebuilds a ledger from a trade log, starting from initialCash. Every
// entry must apply cleanly and leave exactly the recorded cash balance.
func Replay(initialCash decimal.Decimal, entries []TradeLogEntry, logger *zap.Logger) (*Ledger, error) {
	l, err := NewLedger(initialCash, Discard, logger)
	if err != nil {
		return nil, err
	}

	for i, e := range entries {
		sym := NormalizeSymbol(e.Symbol)
		if sym == "" || !e.Price.IsPositive() || e.Quantity <= 0 {
			return nil, fmt.Errorf("%w: entry %d is malformed", ErrReplayMismatch, i)
		}

		switch e.Action {
		case ActionBuy:
			err = l.buy(sym, e.Price, e.Quantity)
		case ActionSell:
			err = l.sell(sym, e.Price, e.Quantity)
		default:
			err = fmt.Errorf("unknown action %q", e.Action)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s %s): %w", ErrReplayMismatch, i, e.Action, sym, err)
		}
		if !l.cash.Equal(e.CashBalance) {
			return nil, fmt.Errorf("%w: entry %d (%s %s) leaves cash %s, log says %s",
				ErrReplayMismatch, i, e.Action, sym, l.cash, e.CashBalance)
		}
	}
	return l, nil
}
