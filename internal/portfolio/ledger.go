package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrRejected is the parent of every recoverable trade rejection. A
	// rejected trade leaves the ledger unchanged and writes nothing.
	ErrRejected = errors.New("trade rejected")

	ErrInvalidSymbol      = fmt.Errorf("%w: invalid symbol", ErrRejected)
	ErrInvalidPrice       = fmt.Errorf("%w: invalid price", ErrRejected)
	ErrInvalidQuantity    = fmt.Errorf("%w: invalid quantity", ErrRejected)
	ErrInsufficientCash   = fmt.Errorf("%w: insufficient cash", ErrRejected)
	ErrUnknownPosition    = fmt.Errorf("%w: no position held", ErrRejected)
	ErrInsufficientShares = fmt.Errorf("%w: insufficient shares", ErrRejected)

	// ErrJournal marks a failure to durably record a trade. It is not a
	// rejection: the caller must stop the run.
	ErrJournal = errors.New("journal write failed")
)

// Position is the holding record for one symbol.
type Position struct {
	Symbol      string
	Quantity    int64
	AverageCost decimal.Decimal
}

// MarketValue values the position at its average cost.
func (p Position) MarketValue() decimal.Decimal {
	return p.AverageCost.Mul(decimal.NewFromInt(p.Quantity))
}

// Ledger owns the cash balance and open positions of the simulated account.
// Positions with a zero quantity are never kept. It is not safe for
// concurrent use.
type Ledger struct {
	cash      decimal.Decimal
	positions map[string]Position
	journal   Journal
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to stamp journal entries.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger holding initialCash and no positions.
func NewLedger(initialCash decimal.Decimal, journal Journal, logger *zap.Logger, opts ...Option) (*Ledger, error) {
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("initial cash must not be negative, got %s", initialCash)
	}
	if journal == nil {
		journal = Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		cash:      initialCash,
		positions: make(map[string]Position),
		journal:   journal,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// NormalizeSymbol trims and uppercases a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// Position returns the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (Position, bool) {
	pos, ok := l.positions[NormalizeSymbol(symbol)]
	return pos, ok
}

// Positions returns a copy of the open positions keyed by symbol.
func (l *Ledger) Positions() map[string]Position {
	out := make(map[string]Position, len(l.positions))
	for sym, pos := range l.positions {
		out[sym] = pos
	}
	return out
}

// Holdings returns the open positions sorted by symbol.
func (l *Ledger) Holdings() []Position {
	return sortedPositions(l.positions)
}

// Buy purchases quantity shares of symbol at price. The whole order is
// rejected if it costs more than the available cash.
func (l *Ledger) Buy(symbol string, price float64, quantity int64) error {
	sym, p, err := checkOrder(symbol, price, quantity)
	if err != nil {
		l.reject(ActionBuy, symbol, price, quantity, err)
		return err
	}
	if err := l.buy(sym, p, quantity); err != nil {
		if errors.Is(err, ErrRejected) {
			l.reject(ActionBuy, sym, price, quantity, err)
		}
		return err
	}
	return nil
}

// Sell sells quantity shares of symbol at price. Selling more than is held
// is rejected; there are no partial fills and no short positions.
func (l *Ledger) Sell(symbol string, price float64, quantity int64) error {
	sym, p, err := checkOrder(symbol, price, quantity)
	if err != nil {
		l.reject(ActionSell, symbol, price, quantity, err)
		return err
	}
	if err := l.sell(sym, p, quantity); err != nil {
		if errors.Is(err, ErrRejected) {
			l.reject(ActionSell, sym, price, quantity, err)
		}
		return err
	}
	return nil
}

func (l *Ledger) buy(sym string, price decimal.Decimal, quantity int64) error {
	old := l.positions[sym]
	if quantity > math.MaxInt64-old.Quantity {
		return fmt.Errorf("%w: holding %d of %s, cannot add %d", ErrInvalidQuantity, old.Quantity, sym, quantity)
	}

	qty := decimal.NewFromInt(quantity)
	cost := price.Mul(qty)
	if cost.GreaterThan(l.cash) {
		return fmt.Errorf("%w: cost %s exceeds cash %s", ErrInsufficientCash, cost.StringFixed(2), l.cash.StringFixed(2))
	}

	newQty := old.Quantity + quantity
	avg := old.AverageCost.Mul(decimal.NewFromInt(old.Quantity)).Add(cost).Div(decimal.NewFromInt(newQty))
	next := Position{Symbol: sym, Quantity: newQty, AverageCost: avg}

	return l.commit(ActionBuy, sym, price, quantity, cost, l.cash.Sub(cost), &next)
}

func (l *Ledger) sell(sym string, price decimal.Decimal, quantity int64) error {
	old, ok := l.positions[sym]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPosition, sym)
	}
	if old.Quantity < quantity {
		return fmt.Errorf("%w: holding %d of %s, asked to sell %d", ErrInsufficientShares, old.Quantity, sym, quantity)
	}

	proceeds := price.Mul(decimal.NewFromInt(quantity))
	var next *Position
	if remaining := old.Quantity - quantity; remaining > 0 {
		next = &Position{Symbol: sym, Quantity: remaining, AverageCost: old.AverageCost}
	}

	return l.commit(ActionSell, sym, price, quantity, proceeds, l.cash.Add(proceeds), next)
}

// commit journals the prospective state and applies it once the journal
// accepted it. A nil next removes the position.
func (l *Ledger) commit(action, sym string, price decimal.Decimal, quantity int64, amount, cash decimal.Decimal, next *Position) error {
	positions := l.Positions()
	if next != nil {
		positions[sym] = *next
	} else {
		delete(positions, sym)
	}

	ts := l.now()
	entry := TradeLogEntry{
		Time:        ts,
		Symbol:      sym,
		Action:      action,
		Price:       price,
		Quantity:    quantity,
		Amount:      amount,
		CashBalance: cash,
	}
	snapshot := valuationSnapshot(ts, positions, cash, sym, price)

	if err := l.journal.Record(entry, snapshot); err != nil {
		l.logger.Error("Failed to record trade, ledger left unchanged",
			zap.String("symbol", sym), zap.String("action", action), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrJournal, err)
	}

	l.positions = positions
	l.cash = cash
	l.logger.Info("Trade executed",
		zap.String("symbol", sym),
		zap.String("action", action),
		zap.Int64("quantity", quantity),
		zap.String("price", price.StringFixed(2)),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("cash", cash.StringFixed(2)),
	)
	return nil
}

// Summary returns cash plus every position valued at its average cost. It is
// not a mark-to-market valuation.
func (l *Ledger) Summary() decimal.Decimal {
	total := l.cash
	for _, pos := range sortedPositions(l.positions) {
		value := pos.MarketValue()
		total = total.Add(value)
		l.logger.Info("Holding",
			zap.String("symbol", pos.Symbol),
			zap.Int64("quantity", pos.Quantity),
			zap.String("avg_price", pos.AverageCost.StringFixed(2)),
			zap.String("value", value.StringFixed(2)),
		)
	}
	l.logger.Info("Portfolio summary",
		zap.String("cash", l.cash.StringFixed(2)),
		zap.String("total_value", total.StringFixed(2)),
		zap.Int("positions", len(l.positions)),
	)
	return total
}

func (l *Ledger) reject(action, symbol string, price float64, quantity int64, err error) {
	l.logger.Warn("Trade rejected",
		zap.String("symbol", symbol),
		zap.String("action", action),
		zap.Float64("price", price),
		zap.Int64("quantity", quantity),
		zap.Error(err),
	)
}

func checkOrder(symbol string, price float64, quantity int64) (string, decimal.Decimal, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return "", decimal.Zero, ErrInvalidSymbol
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return "", decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	if quantity <= 0 {
		return "", decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	return sym, decimal.NewFromFloat(price), nil
}

// valuationSnapshot builds one row per held symbol. The traded symbol is
// valued at the trade price, every other symbol at its average cost.
func valuationSnapshot(ts time.Time, positions map[string]Position, cash decimal.Decimal, traded string, price decimal.Decimal) []ValuationSnapshotEntry {
	held := sortedPositions(positions)
	rows := make([]ValuationSnapshotEntry, 0, len(held))
	total := cash
	for _, pos := range held {
		mkt := pos.AverageCost
		if pos.Symbol == traded {
			mkt = price
		}
		value := mkt.Mul(decimal.NewFromInt(pos.Quantity))
		total = total.Add(value)
		rows = append(rows, ValuationSnapshotEntry{
			Time:         ts,
			Symbol:       pos.Symbol,
			Quantity:     pos.Quantity,
			AveragePrice: pos.AverageCost,
			MarketPrice:  mkt,
			MarketValue:  value,
			Cash:         cash,
		})
	}
	for i := range rows {
		rows[i].TotalValue = total
	}
	return rows
}

func sortedPositions(positions map[string]Position) []Position {
	out := make([]Position, 0, len(positions))
	for _, pos := range positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
