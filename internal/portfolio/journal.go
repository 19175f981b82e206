package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// TradeLogEntry is one executed trade. Entries are append-only.
type TradeLogEntry struct {
	Time        time.Time
	Symbol      string
	Action      string // "BUY" or "SELL"
	Price       decimal.Decimal
	Quantity    int64
	Amount      decimal.Decimal // cost for a BUY, proceeds for a SELL
	CashBalance decimal.Decimal // cash after the trade
}

// ValuationSnapshotEntry is one held symbol's valuation right after a trade.
type ValuationSnapshotEntry struct {
	Time         time.Time
	Symbol       string
	Quantity     int64
	AveragePrice decimal.Decimal
	MarketPrice  decimal.Decimal
	MarketValue  decimal.Decimal
	Cash         decimal.Decimal
	TotalValue   decimal.Decimal
}

// Journal durably records ledger mutations. Record must either persist the
// trade entry and its snapshot rows or return an error; the ledger does not
// apply a mutation whose record failed.
type Journal interface {
	Record(trade TradeLogEntry, snapshot []ValuationSnapshotEntry) error
}

// MultiJournal records to every journal in order and stops at the first error.
type MultiJournal []Journal

// Record implements Journal.
func (m MultiJournal) Record(trade TradeLogEntry, snapshot []ValuationSnapshotEntry) error {
	for _, j := range m {
		if err := j.Record(trade, snapshot); err != nil {
			return err
		}
	}
	return nil
}

type discardJournal struct{}

func (discardJournal) Record(TradeLogEntry, []ValuationSnapshotEntry) error { return nil }

// Discard is a Journal that records nothing. It is used when replaying an
// existing log, which is already durable.
var Discard Journal = discardJournal{}
