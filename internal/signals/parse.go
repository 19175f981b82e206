package signals

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ErrUnparseable is returned for model output that cannot be read as a list
// of signals. Callers treat it as an empty batch.
var ErrUnparseable = errors.New("unparseable model output")

// ParseRawSignals reads the JSON array a model returned and stamps every row
// with date. The array may be wrapped in a markdown code fence. Field names are
// matched case-insensitively and field values are coerced to text; confidence
// is passed through untouched for the validator to coerce.
func ParseRawSignals(text string, date string) ([]RawSignal, error) {
	body := stripCodeFence(strings.TrimSpace(text))
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrUnparseable)
	}

	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	rows, ok := decoded.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON array, got %T", ErrUnparseable, decoded)
	}

	out := make([]RawSignal, 0, len(rows))
	for i, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, not an object", ErrUnparseable, i, row)
		}
		fields := make(map[string]any, len(obj))
		for k, v := range obj {
			fields[strings.ToLower(strings.TrimSpace(k))] = v
		}
		out = append(out, RawSignal{
			Symbol:     textField(fields["symbol"]),
			Action:     textField(fields["action"]),
			Confidence: fields["confidence"],
			Reason:     textField(fields["reason"]),
			Date:       date,
		})
	}
	return out, nil
}

func textField(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
