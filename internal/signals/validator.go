package signals

import (
	"fmt"
	"math"
	"strings"

	"paper-trade-bot-go/internal/portfolio"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Policy controls which signals are accepted.
type Policy struct {
	MinConfidence            float64
	AllowSellWithoutPosition bool
}

// Validator filters raw model output against portfolio state and a Policy.
type Validator struct {
	policy Policy
	logger *zap.Logger
}

// NewValidator creates a Validator.
func NewValidator(policy Policy, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{policy: policy, logger: logger}
}

// Validate returns the actionable signals of raw in input order together with
// every rejected row. HOLD signals are valid but not actionable, so they
// appear in neither result. Validate has no side effects besides logging.
func (v *Validator) Validate(raw []RawSignal, positions map[string]portfolio.Position) ([]Validated, []Rejection) {
	held := make(map[string]int64, len(positions))
	for sym, pos := range positions {
		held[portfolio.NormalizeSymbol(sym)] += pos.Quantity
	}

	var (
		valid    []Validated
		rejected []Rejection
		holds    int
	)
	for i, r := range raw {
		symbol := portfolio.NormalizeSymbol(r.Symbol)
		action := Action(strings.ToUpper(strings.TrimSpace(r.Action)))
		confidence := CoerceConfidence(r.Confidence)

		var err error
		switch {
		case symbol == "":
			err = ErrMissingSymbol
		case action != ActionBuy && action != ActionSell && action != ActionHold:
			err = fmt.Errorf("%w: %q", ErrUnknownAction, r.Action)
		case confidence < v.policy.MinConfidence:
			err = fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, confidence, v.policy.MinConfidence)
		case action == ActionSell && held[symbol] <= 0 && !v.policy.AllowSellWithoutPosition:
			err = ErrSellWithoutPosition
		}
		if err != nil {
			rej := Rejection{Index: i, Symbol: symbol, Action: string(action), Err: err}
			rejected = append(rejected, rej)
			v.logger.Warn("Signal rejected",
				zap.Int("index", i),
				zap.String("symbol", symbol),
				zap.String("action", string(action)),
				zap.Error(err),
			)
			continue
		}

		if action == ActionHold {
			holds++
			continue
		}

		valid = append(valid, Validated{
			Symbol:     symbol,
			Action:     action,
			Confidence: confidence,
			Reason:     r.Reason,
			Date:       r.Date,
		})
	}

	v.logger.Info("Signals validated",
		zap.Int("received", len(raw)),
		zap.Int("accepted", len(valid)),
		zap.Int("hold", holds),
		zap.Int("rejected", len(rejected)),
	)
	return valid, rejected
}

// CoerceConfidence turns an untrusted confidence value into a number in
// [0,1]. Anything that is not a finite number counts as 0.
func CoerceConfidence(value any) float64 {
	switch v := value.(type) {
	case bool:
		return 0
	case string:
		value = strings.TrimSpace(v)
	}
	f, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Min(math.Max(f, 0), 1)
}
