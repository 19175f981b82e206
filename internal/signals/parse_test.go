package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawSignals(t *testing.T) {
	text := "```json\n" +
		`[{"symbol": "AAPL", "action": "BUY", "confidence": 0.8, "reason": "trend"},` +
		` {"Symbol": "msft", "ACTION": "hold", "Confidence": "N/A"}]` +
		"\n```"

	raw, err := ParseRawSignals(text, "2025-10-01")
	require.NoError(t, err)
	require.Len(t, raw, 2)

	assert.Equal(t, RawSignal{Symbol: "AAPL", Action: "BUY", Confidence: 0.8, Reason: "trend", Date: "2025-10-01"}, raw[0])
	assert.Equal(t, "msft", raw[1].Symbol)
	assert.Equal(t, "hold", raw[1].Action)
	assert.Equal(t, "N/A", raw[1].Confidence)
	assert.Equal(t, "2025-10-01", raw[1].Date)
}

func TestParseRawSignals_CoercesFieldTypes(t *testing.T) {
	raw, err := ParseRawSignals(`[{"symbol": 7203, "action": "SELL", "reason": null}]`, "2025-10-02")
	require.NoError(t, err)
	require.Len(t, raw, 1)

	assert.Equal(t, "7203", raw[0].Symbol)
	assert.Equal(t, "", raw[0].Reason)
	assert.Nil(t, raw[0].Confidence)
}

func TestParseRawSignals_EmptyArray(t *testing.T) {
	raw, err := ParseRawSignals("[]", "2025-10-01")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestParseRawSignals_Unparseable(t *testing.T) {
	testCases := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace", text: "  \n"},
		{name: "prose", text: "I think you should buy Apple."},
		{name: "truncated", text: `[{"symbol": "AAPL"`},
		{name: "object", text: `{"symbol": "AAPL", "action": "BUY"}`},
		{name: "array of strings", text: `["AAPL", "BUY"]`},
		{name: "empty fence", text: "```\n```"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := ParseRawSignals(tc.text, "2025-10-01")
			assert.ErrorIs(t, err, ErrUnparseable)
			assert.Empty(t, raw)
		})
	}
}
