// Package ingestion loads bar data into storage and streams live
// candles from a websocket feed for signal watching.
package ingestion

import (
	"time"

	"prop-trading-lab/internal/domain"
)

// Candle is one streamed candlestick update. A candle arrives repeatedly
// while forming and once more with Final set when its interval closes.
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Final     bool
}

// Bar converts a candle to a domain bar. Streamed candles carry no
// indicator columns.
func (c *Candle) Bar() domain.Bar {
	return domain.Bar{
		Timestamp: c.OpenTime,
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
	}
}
