package domain

// Position is the single open position of a simulation run. Size is
// always positive; Direction carries the sign.
type Position struct {
	Direction  Direction
	EntryPrice float64
	Size       float64

	// StopLoss is the current effective stop. Trailing logic tightens
	// it in place; it never widens.
	StopLoss   float64
	TakeProfit float64

	// TrailingAnchor is the best favorable extreme seen since entry.
	TrailingAnchor float64
	TrailingActive bool

	OpenedAtBar int

	// EntryCosts is the total transaction cost charged at entry.
	EntryCosts float64
}

// UnrealizedPnL returns the mark-to-market P&L at the given price,
// before any costs.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Direction == DirectionShort {
		return (p.EntryPrice - price) * p.Size
	}
	return (price - p.EntryPrice) * p.Size
}

// Notional returns the absolute position value at the given price.
func (p *Position) Notional(price float64) float64 {
	return p.Size * price
}
