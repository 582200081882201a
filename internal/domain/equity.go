package domain

import "time"

// EquityPoint is one entry of the equity series: account capital
// including unrealized P&L, marked at the bar close.
type EquityPoint struct {
	Bar       int
	Timestamp time.Time
	Equity    float64
}
