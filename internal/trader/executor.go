package trader

import (
	"errors"
	"fmt"
	"math"

	"paper-trade-bot-go/internal/portfolio"
	"paper-trade-bot-go/internal/signals"

	"go.uber.org/zap"
)

// Outcome is what happened to one signal during an execution pass.
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeSkipped  Outcome = "skipped"  // sized to zero
	OutcomeRejected Outcome = "rejected" // refused by the ledger
	OutcomeInvalid  Outcome = "invalid"  // not an executable signal
)

// ErrNotExecutable is reported for signals lacking the shape of a validated,
// priced signal, including those below the executor's confidence floor.
var ErrNotExecutable = errors.New("signal is not executable")

// Result reports the handling of one signal.
type Result struct {
	Signal   signals.Executable
	Quantity int64
	Outcome  Outcome
	Err      error
}

// Report is the outcome of one execution pass, in input order.
type Report struct {
	Results []Result
}

// Count returns how many signals ended with outcome.
func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Executor applies a batch of signals to a ledger, one at a time in input
// order. Cash is checked per order, so earlier BUYs are funded first.
type Executor struct {
	ledger        *portfolio.Ledger
	sizer         Sizer
	minConfidence float64
	logger        *zap.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMinConfidence makes the executor refuse signals whose confidence is
// below floor, the same floor the validator applies.
func WithMinConfidence(floor float64) ExecutorOption {
	return func(e *Executor) { e.minConfidence = floor }
}

// NewExecutor creates an Executor. Without WithMinConfidence any confidence
// in [0,1] is accepted.
func NewExecutor(ledger *portfolio.Ledger, sizer Sizer, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{ledger: ledger, sizer: sizer, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes batch. Rejections are reported, never returned; the only error
// is a journal failure, after which the pass stops and the run must abort.
func (e *Executor) Run(batch []signals.Executable) (Report, error) {
	report := Report{Results: make([]Result, 0, len(batch))}

	for _, sig := range batch {
		res := e.execute(sig)
		report.Results = append(report.Results, res)
		if errors.Is(res.Err, portfolio.ErrJournal) {
			return report, res.Err
		}
	}

	e.logger.Info("Execution pass complete",
		zap.Int("signals", len(batch)),
		zap.Int("executed", report.Count(OutcomeExecuted)),
		zap.Int("skipped", report.Count(OutcomeSkipped)),
		zap.Int("rejected", report.Count(OutcomeRejected)),
		zap.Int("invalid", report.Count(OutcomeInvalid)),
	)
	return report, nil
}

func (e *Executor) execute(sig signals.Executable) Result {
	l := e.logger.With(
		zap.String("symbol", sig.Symbol),
		zap.String("action", string(sig.Action)),
		zap.Float64("price", sig.Price),
	)
	res := Result{Signal: sig}

	symbol := portfolio.NormalizeSymbol(sig.Symbol)
	switch {
	case symbol == "" || (sig.Action != signals.ActionBuy && sig.Action != signals.ActionSell):
		res.Err = fmt.Errorf("%w: %q %q", ErrNotExecutable, sig.Action, sig.Symbol)
	case math.IsNaN(sig.Confidence) || sig.Confidence < e.minConfidence || sig.Confidence > 1:
		res.Err = fmt.Errorf("%w: confidence %v outside [%v,1]", ErrNotExecutable, sig.Confidence, e.minConfidence)
	}
	if res.Err != nil {
		res.Outcome = OutcomeInvalid
		l.Warn("Skipping invalid signal", zap.Error(res.Err))
		return res
	}

	var held int64
	if pos, ok := e.ledger.Position(symbol); ok {
		held = pos.Quantity
	}
	res.Quantity = e.sizer.SizeOrder(sig.Action, e.ledger.Cash(), sig.Price, held)
	if res.Quantity <= 0 {
		res.Outcome = OutcomeSkipped
		l.Info("Order sized to zero, skipping", zap.Int64("held", held), zap.String("cash", e.ledger.Cash().StringFixed(2)))
		return res
	}

	var err error
	if sig.Action == signals.ActionBuy {
		err = e.ledger.Buy(symbol, sig.Price, res.Quantity)
	} else {
		err = e.ledger.Sell(symbol, sig.Price, res.Quantity)
	}

	switch {
	case err == nil:
		res.Outcome = OutcomeExecuted
	case errors.Is(err, portfolio.ErrRejected):
		res.Outcome = OutcomeRejected
		res.Err = err
	default:
		res.Outcome = OutcomeRejected
		res.Err = err
		l.Error("Trade could not be recorded", zap.Error(err))
	}
	return res
}
