package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"paper-trade-bot-go/internal/indicators"
	"paper-trade-bot-go/internal/marketdata"
	"paper-trade-bot-go/internal/portfolio"
	"paper-trade-bot-go/internal/signals"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Classifier returns a model's raw answer for one trading day.
type Classifier interface {
	Classify(ctx context.Context, day time.Time, snapshot marketdata.Snapshot, positions []portfolio.Position) (string, error)
}

// SimClock is the ledger's time source during a backtest. It reports the
// market close of the simulated day.
type SimClock struct {
	mu  sync.Mutex
	day time.Time
}

// Set moves the clock to day.
func (c *SimClock) Set(day time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	y, m, d := day.Date()
	c.day = time.Date(y, m, d, 16, 0, 0, 0, time.Local)
}

// Now returns the current simulated time, or the wall clock before the first
// Set.
func (c *SimClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.day.IsZero() {
		return time.Now()
	}
	return c.day
}

// BacktestOptions selects the symbols and the date range of a backtest.
type BacktestOptions struct {
	RunID        string
	Symbols      []string
	HistoryStart time.Time // first date fetched, for indicator warm-up
	Start        time.Time // first trading day, zero for the first available
	End          time.Time // last trading day, zero for the last available
}

// Backtest drives the pipeline one trading day at a time:
// snapshot, classify, parse, validate, price, store, execute.
type Backtest struct {
	opts       BacktestOptions
	source     marketdata.Source
	classifier Classifier
	validator  *signals.Validator
	store      *signals.Store
	ledger     *portfolio.Ledger
	executor   *Executor
	clock      *SimClock
	logger     *zap.Logger
}

// NewBacktest creates a Backtest. clock may be nil when the ledger does not
// use simulated time.
func NewBacktest(
	opts BacktestOptions,
	source marketdata.Source,
	classifier Classifier,
	validator *signals.Validator,
	store *signals.Store,
	ledger *portfolio.Ledger,
	executor *Executor,
	clock *SimClock,
	logger *zap.Logger,
) *Backtest {
	if clock == nil {
		clock = &SimClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtest{
		opts:       opts,
		source:     source,
		classifier: classifier,
		validator:  validator,
		store:      store,
		ledger:     ledger,
		executor:   executor,
		clock:      clock,
		logger:     logger.With(zap.String("run_id", opts.RunID)),
	}
}

// DayReport summarizes one trading day.
type DayReport struct {
	Day       time.Time
	Symbols   int
	Raw       int
	Validated int
	Rejected  int
	Execution Report
}

// FinalReport summarizes a whole backtest.
type FinalReport struct {
	RunID      string
	Days       int
	Trades     int
	Cash       decimal.Decimal
	TotalValue decimal.Decimal
	Holdings   []portfolio.Position
}

// Run executes every trading day in range. It stops early only when ctx is
// done or a trade cannot be recorded.
func (b *Backtest) Run(ctx context.Context) (FinalReport, error) {
	b.logger.Info("Starting backtest",
		zap.Strings("symbols", b.opts.Symbols),
		zap.Time("start", b.opts.Start),
		zap.Time("end", b.opts.End),
	)

	series, err := b.LoadSeries(ctx)
	if err != nil {
		return FinalReport{}, err
	}
	days := marketdata.TradingDays(series, b.opts.Start, b.opts.End)
	b.logger.Info("Loaded price history", zap.Int("symbols", len(series)), zap.Int("trading_days", len(days)))

	report := FinalReport{RunID: b.opts.RunID}
	for _, day := range days {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping backtest...")
			return b.finish(report), ctx.Err()
		default:
		}

		dr, err := b.RunDay(ctx, day, series)
		report.Days++
		report.Trades += dr.Execution.Count(OutcomeExecuted)
		if err != nil {
			b.logger.Error("Backtest aborted", zap.Time("day", day), zap.Error(err))
			return b.finish(report), err
		}
	}

	report = b.finish(report)
	b.logger.Info("Backtest complete",
		zap.Int("days", report.Days),
		zap.Int("trades", report.Trades),
		zap.String("final_cash", report.Cash.StringFixed(2)),
		zap.String("total_value", report.TotalValue.StringFixed(2)),
	)
	return report, nil
}

func (b *Backtest) finish(report FinalReport) FinalReport {
	report.Cash = b.ledger.Cash()
	report.TotalValue = b.ledger.Summary()
	report.Holdings = b.ledger.Holdings()
	return report
}

// LoadSeries fetches and enriches the history of every symbol. Symbols
// without daily data are left out.
func (b *Backtest) LoadSeries(ctx context.Context) (map[string]marketdata.Series, error) {
	out := make(map[string]marketdata.Series, len(b.opts.Symbols))
	for _, raw := range b.opts.Symbols {
		sym := portfolio.NormalizeSymbol(raw)
		if sym == "" {
			continue
		}

		var s marketdata.Series
		for _, interval := range marketdata.Intervals {
			bars, err := b.source.FetchSeries(ctx, sym, b.opts.HistoryStart, interval)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				b.logger.Warn("Failed to fetch price series",
					zap.String("symbol", sym), zap.String("interval", string(interval)), zap.Error(err))
				continue
			}
			rows := indicators.Compute(bars)
			switch interval {
			case marketdata.Daily:
				s.Daily = rows
			case marketdata.Weekly:
				s.Weekly = rows
			case marketdata.Monthly:
				s.Monthly = rows
			}
		}

		if len(s.Daily) == 0 {
			b.logger.Warn("No daily data, skipping symbol", zap.String("symbol", sym))
			continue
		}
		out[sym] = s
	}
	return out, nil
}

// RunDay runs the pipeline for one day. Classifier and parse failures leave
// the day without trades; only persistence failures are returned.
func (b *Backtest) RunDay(ctx context.Context, day time.Time, series map[string]marketdata.Series) (DayReport, error) {
	date := day.Format(signals.DateLayout)
	l := b.logger.With(zap.String("date", date))
	report := DayReport{Day: day}
	b.clock.Set(day)

	snapshot := make(marketdata.Snapshot, len(series))
	for sym, s := range series {
		if f, ok := s.At(day); ok {
			snapshot[sym] = f
		}
	}
	report.Symbols = len(snapshot)
	if len(snapshot) == 0 {
		l.Info("No market data for day, skipping")
		return report, nil
	}

	text, err := b.classifier.Classify(ctx, day, snapshot, b.ledger.Holdings())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		l.Warn("Classifier failed, no signals today", zap.Error(err))
		return report, nil
	}

	raw, err := signals.ParseRawSignals(text, date)
	if err != nil {
		l.Warn("Model output could not be parsed, no signals today", zap.Error(err))
		return report, nil
	}
	report.Raw = len(raw)

	valid, rejected := b.validator.Validate(raw, b.ledger.Positions())
	report.Validated = len(valid)
	report.Rejected = len(rejected)
	if len(valid) == 0 {
		l.Info("No actionable signals today")
		return report, nil
	}

	priced := make([]signals.Executable, 0, len(valid))
	for _, v := range valid {
		price, ok := snapshot.Close(v.Symbol)
		if !ok {
			l.Warn("No close price for signal", zap.String("symbol", v.Symbol))
		}
		priced = append(priced, v.WithPrice(price))
	}

	if err := b.store.Save(priced); err != nil {
		return report, fmt.Errorf("failed to store signals for %s: %w", date, err)
	}
	batch, err := b.store.ForDate(date)
	if err != nil {
		return report, err
	}

	report.Execution, err = b.executor.Run(batch)
	if err != nil {
		return report, err
	}

	b.ledger.Summary()
	return report, nil
}
