// Package domain holds the core value types shared across the
// simulation pipeline: bars, intents, positions, trades, run results,
// and the configuration structs that parameterize a run. The package
// has no dependencies and no behavior beyond small pure accessors.
package domain

import "time"

// Bar is one OHLC candle with precomputed indicator values attached.
// Indicator values absent for a bar (warm-up rows) are simply missing
// from the map.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64

	Indicators map[string]float64
}

// Well-known indicator column names.
const (
	IndicatorATR        = "atr"
	IndicatorEMAFast    = "ema_fast"
	IndicatorEMASlow    = "ema_slow"
	IndicatorEMATrend   = "ema_trend"
	IndicatorRSI        = "rsi"
	IndicatorMACD       = "macd"
	IndicatorMACDSignal = "macd_signal"
)
