package signal

import (
	"fmt"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
)

// MACDCross fires when the MACD line crosses its signal line, with the
// trend EMA as a directional filter.
type MACDCross struct {
	levels Levels
}

// NewMACDCross creates a MACD crossover generator.
func NewMACDCross(levels Levels) *MACDCross {
	return &MACDCross{levels: levels}
}

// ID returns the generator identifier.
func (g *MACDCross) ID() string {
	return fmt.Sprintf("MACD_CROSS_stop%.1f_target%.1f",
		g.levels.StopVolatilityMult, g.levels.TargetVolatilityMult)
}

// WarmupBars requires one prior bar for crossover detection.
func (g *MACDCross) WarmupBars() int { return 1 }

// Evaluate checks for a MACD/signal-line crossover between bars i-1 and i.
func (g *MACDCross) Evaluate(f *feed.Feed, i int) *domain.EntryIntent {
	if i < 1 {
		return nil
	}

	macd, ok1 := f.Indicator(i, domain.IndicatorMACD)
	sig, ok2 := f.Indicator(i, domain.IndicatorMACDSignal)
	prevMACD, ok3 := f.Indicator(i-1, domain.IndicatorMACD)
	prevSig, ok4 := f.Indicator(i-1, domain.IndicatorMACDSignal)
	trend, ok5 := f.Indicator(i, domain.IndicatorEMATrend)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil
	}

	close := f.Bar(i).Close

	crossUp := macd > sig && prevMACD <= prevSig
	crossDown := macd < sig && prevMACD >= prevSig

	if crossUp && close > trend {
		return buildIntent(f, i, domain.DirectionLong, g.levels, g.ID())
	}
	if crossDown && close < trend {
		return buildIntent(f, i, domain.DirectionShort, g.levels, g.ID())
	}
	return nil
}

var _ Generator = (*MACDCross)(nil)
