// Package indicators computes the technical indicator columns attached to
// every price row. An indicator whose history requirement is not met by the
// whole series is left out of every row.
package indicators

import (
	"math"

	"paper-trade-bot-go/internal/marketdata"
)

// Column names.
const (
	EMA20      = "EMA20"
	RSI        = "RSI"
	MACD       = "MACD"
	MACDSignal = "MACD_Signal"
	MACDHist   = "MACD_Hist"
	ATR        = "ATR"
	BBUpper    = "BB_Upper"
	BBLower    = "BB_Lower"
	BBWidth    = "BB_Width"
)

const (
	emaWindow     = 20
	rsiWindow     = 14
	atrWindow     = 14
	macdFast      = 12
	macdSlow      = 26
	macdSignal    = 9
	bollWindow    = 20
	bollDeviation = 2.0
)

// Compute returns one row per bar with every indicator the series is long
// enough for. Leading rows inside an indicator's warm-up window omit it.
func Compute(bars []marketdata.Bar) []marketdata.Row {
	n := len(bars)
	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	columns := make(map[string][]float64)
	if n >= emaWindow {
		columns[EMA20] = ema(closes, emaWindow)
	}
	if n >= rsiWindow {
		columns[RSI] = rsi(closes, rsiWindow)
	}
	if n >= macdSlow {
		line, signal, hist := macd(closes)
		columns[MACD] = line
		columns[MACDSignal] = signal
		columns[MACDHist] = hist
	}
	if n >= atrWindow {
		columns[ATR] = atr(bars, atrWindow)
	}
	if n >= bollWindow {
		upper, lower := bollinger(closes, bollWindow, bollDeviation)
		width := make([]float64, n)
		for i := range width {
			width[i] = upper[i] - lower[i]
		}
		columns[BBUpper] = upper
		columns[BBLower] = lower
		columns[BBWidth] = width
	}

	rows := make([]marketdata.Row, n)
	for i, b := range bars {
		ind := make(map[string]float64, len(columns))
		for name, col := range columns {
			if v := col[i]; !math.IsNaN(v) {
				ind[name] = v
			}
		}
		rows[i] = marketdata.Row{Bar: b, Indicators: ind}
	}
	return rows
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// ema is the recursive exponential average with alpha = 2/(window+1), seeded
// with the first value. The first window-1 values are NaN. NaN inputs are
// skipped until the first finite value.
func ema(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	alpha := 2.0 / float64(window+1)
	prev := math.NaN()
	seen := 0
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		seen++
		if seen >= window {
			out[i] = prev
		}
	}
	return out
}

// rsi uses Wilder smoothing (alpha = 1/window) of gains and losses.
func rsi(closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	alpha := 1.0 / float64(window)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		gain, loss := math.Max(diff, 0), math.Max(-diff, 0)
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}
		if i < window {
			continue
		}
		if avgLoss == 0 {
			if avgGain == 0 {
				out[i] = 50
			} else {
				out[i] = 100
			}
			continue
		}
		out[i] = 100 - 100/(1+avgGain/avgLoss)
	}
	return out
}

func macd(closes []float64) (line, signal, hist []float64) {
	fast := ema(closes, macdFast)
	slow := ema(closes, macdSlow)
	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal = ema(line, macdSignal)
	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - signal[i]
	}
	return line, signal, hist
}

// atr averages the true range: a simple mean for the first window, Wilder
// smoothing afterwards.
func atr(bars []marketdata.Bar, window int) []float64 {
	out := nanSlice(len(bars))
	tr := make([]float64, len(bars))
	for i, b := range bars {
		tr[i] = b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			tr[i] = math.Max(tr[i], math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
	}

	var sum float64
	for i := 0; i < window; i++ {
		sum += tr[i]
	}
	prev := sum / float64(window)
	out[window-1] = prev
	for i := window; i < len(bars); i++ {
		prev = (prev*float64(window-1) + tr[i]) / float64(window)
		out[i] = prev
	}
	return out
}

// bollinger returns the bands at dev population standard deviations around
// the simple moving average.
func bollinger(closes []float64, window int, dev float64) (upper, lower []float64) {
	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))
	for i := window - 1; i < len(closes); i++ {
		var sum float64
		for _, v := range closes[i-window+1 : i+1] {
			sum += v
		}
		mean := sum / float64(window)
		var sq float64
		for _, v := range closes[i-window+1 : i+1] {
			sq += (v - mean) * (v - mean)
		}
		sd := math.Sqrt(sq / float64(window))
		upper[i] = mean + dev*sd
		lower[i] = mean - dev*sd
	}
	return upper, lower
}
