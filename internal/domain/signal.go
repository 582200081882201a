package domain

// Direction of a position or entry intent.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// EntryIntent is a directional entry proposal produced by a signal
// generator at a single bar. The sizer turns it into a concrete
// position; an intent carries no size.
type EntryIntent struct {
	Direction Direction

	// ReferencePrice is the bar close the intent was formed at; fills
	// are modeled at this price.
	ReferencePrice float64

	// SuggestedStop and SuggestedTarget are absolute price levels
	// placed by the generator in volatility units around the reference.
	SuggestedStop   float64
	SuggestedTarget float64

	// VolatilityUnit is the volatility value the levels were placed
	// with, recorded for diagnostics.
	VolatilityUnit float64

	// Rule names the generator rule that fired.
	Rule string
}
