package signals

import (
	"errors"
	"fmt"
)

// Action is the classification a model assigns to one instrument.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// DateLayout is the layout of every signal date.
const DateLayout = "2006-01-02"

// RawSignal is one row of model output. None of its fields are trusted:
// Confidence in particular may be missing, textual or out of range.
type RawSignal struct {
	Symbol     string
	Action     string
	Confidence any
	Reason     string
	Date       string
}

// Validated is a signal that passed validation and implies a trade.
type Validated struct {
	Symbol     string
	Action     Action // BUY or SELL, never HOLD
	Confidence float64
	Reason     string
	Date       string
}

// Executable is a validated signal priced for execution.
type Executable struct {
	Symbol     string
	Action     Action
	Price      float64
	Confidence float64
	Reason     string
	Date       string
}

// WithPrice returns the executable form of v at price.
func (v Validated) WithPrice(price float64) Executable {
	return Executable{
		Symbol:     v.Symbol,
		Action:     v.Action,
		Price:      price,
		Confidence: v.Confidence,
		Reason:     v.Reason,
		Date:       v.Date,
	}
}

var (
	ErrMissingSymbol       = errors.New("missing symbol")
	ErrUnknownAction       = errors.New("unknown action")
	ErrLowConfidence       = errors.New("confidence below threshold")
	ErrSellWithoutPosition = errors.New("sell without position")
)

// Rejection explains why the raw signal at Index was not accepted.
type Rejection struct {
	Index  int
	Symbol string
	Action string
	Err    error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("signal %d (%s %s): %v", r.Index, r.Action, r.Symbol, r.Err)
}

func (r Rejection) Unwrap() error { return r.Err }
