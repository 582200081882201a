// Package sizing converts entry intents into concrete position sizes
// under risk-based limits.
package sizing

import (
	"math"

	"prop-trading-lab/internal/domain"
)

// Sizer computes position size from an intent and current equity.
// Risk amount is equity × riskFraction; size is risk divided by the
// stop distance, then capped by maxPositionFraction of equity.
type Sizer struct {
	riskFraction        float64
	maxPositionFraction float64
}

// New creates a Sizer.
func New(riskFraction, maxPositionFraction float64) *Sizer {
	return &Sizer{
		riskFraction:        riskFraction,
		maxPositionFraction: maxPositionFraction,
	}
}

// FromConfig creates a Sizer from a run config.
func FromConfig(cfg domain.SimulatorConfig) *Sizer {
	return New(cfg.RiskFraction, cfg.MaxPositionFraction)
}

// Sized is the result of sizing an intent.
type Sized struct {
	Size       float64 // units; zero means no trade
	StopLoss   float64
	TakeProfit float64
	RiskAmount float64
}

// Size computes the position for the given intent and equity.
// It fails closed: a non-positive or non-finite stop distance yields
// zero size rather than dividing toward infinity. The notional cap is
// applied after risk sizing so wide stops cannot blow up exposure.
func (s *Sizer) Size(intent *domain.EntryIntent, equity float64) Sized {
	out := Sized{
		StopLoss:   intent.SuggestedStop,
		TakeProfit: intent.SuggestedTarget,
	}

	if equity <= 0 || intent.ReferencePrice <= 0 {
		return out
	}

	stopDistance := math.Abs(intent.ReferencePrice - intent.SuggestedStop)
	if stopDistance <= 0 || math.IsNaN(stopDistance) || math.IsInf(stopDistance, 0) {
		return out
	}

	riskAmount := equity * s.riskFraction
	size := riskAmount / stopDistance

	// Hard notional cap, always applied after risk sizing.
	maxSize := equity * s.maxPositionFraction / intent.ReferencePrice
	if size > maxSize {
		size = maxSize
	}

	out.Size = size
	out.RiskAmount = riskAmount
	return out
}
