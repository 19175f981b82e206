package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"paper-trade-bot-go/internal/marketdata"
	"paper-trade-bot-go/internal/portfolio"
)

// DefaultSystemPrompt is used when no system prompt is configured.
const DefaultSystemPrompt = `You are a stock trading analysis assistant.

Your goal is to maximize the long-term return of a single paper-trading portfolio.

For every stock you are given, read today's daily row together with the latest
weekly and monthly rows and the current positions, weigh the short-term and
mid-term trend, and classify the stock as BUY, SELL or HOLD with a confidence
between 0 and 1.

Only output a valid JSON array. Do not explain your reasoning outside the array.`

const exampleOutput = `[
  {"symbol": "QQQ", "action": "HOLD", "confidence": 0.70, "reason": "Strong uptrend but RSI approaching overbought, MACD momentum slowing"},
  {"symbol": "TMUS", "action": "BUY", "confidence": 0.65, "reason": "Oversold daily RSI, potential reversal setup with price below EMA20"},
  {"symbol": "GLD", "action": "SELL", "confidence": 0.75, "reason": "Extremely overbought RSI on weekly and daily, high risk of pullback"}
]`

// dropped from the daily row; Close and the indicators carry the signal.
var droppedDailyColumns = []string{"Open", "High", "Low"}

type promptFrames struct {
	Daily   map[string]any `json:"daily"`
	Weekly  map[string]any `json:"weekly"`
	Monthly map[string]any `json:"monthly"`
}

type promptPosition struct {
	Quantity int64   `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// BuildPrompt renders the user prompt for one trading day.
func BuildPrompt(day time.Time, snapshot marketdata.Snapshot, positions []portfolio.Position) (string, error) {
	data := make(map[string]promptFrames, len(snapshot))
	for sym, f := range snapshot {
		daily := f.Daily.Values()
		for _, col := range droppedDailyColumns {
			delete(daily, col)
		}
		pf := promptFrames{Daily: daily, Weekly: map[string]any{}, Monthly: map[string]any{}}
		if f.Weekly != nil {
			pf.Weekly = f.Weekly.Values()
		}
		if f.Monthly != nil {
			pf.Monthly = f.Monthly.Values()
		}
		data[sym] = pf
	}

	held := make(map[string]promptPosition, len(positions))
	for _, p := range positions {
		held[p.Symbol] = promptPosition{Quantity: p.Quantity, AvgPrice: p.AverageCost.InexactFloat64()}
	}

	// encoding/json sorts map keys, so the prompt is deterministic.
	dataJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode market data: %w", err)
	}
	posJSON, err := json.MarshalIndent(held, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode positions: %w", err)
	}

	var b strings.Builder
	b.WriteString("Here is the information you need:\n")
	fmt.Fprintf(&b, "Today is %s.\n", day.Format(marketdata.DateLayout))
	b.WriteString("Below is today's stock data:\n\n")
	b.Write(dataJSON)
	b.WriteString("\n\nCurrent positions are as follows:\n")
	b.Write(posJSON)
	b.WriteString("\n\nPlease analyze the short-term and mid-term trends for each stock and output BUY/SELL/HOLD signals.\n")
	b.WriteString("Only output valid JSON arrays, do not explain your thinking process, such as:\n")
	b.WriteString(exampleOutput)
	b.WriteString("\n")
	return b.String(), nil
}
