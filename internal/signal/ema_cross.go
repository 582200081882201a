package signal

import (
	"fmt"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
)

// EMACross fires on a fast/slow EMA crossover confirmed by the trend
// EMA: cross up with close above trend is LONG, cross down with close
// below trend is SHORT.
type EMACross struct {
	levels Levels
}

// NewEMACross creates an EMA crossover generator.
func NewEMACross(levels Levels) *EMACross {
	return &EMACross{levels: levels}
}

// ID returns the generator identifier.
func (g *EMACross) ID() string {
	return fmt.Sprintf("EMA_CROSS_stop%.1f_target%.1f",
		g.levels.StopVolatilityMult, g.levels.TargetVolatilityMult)
}

// WarmupBars requires one prior bar for crossover detection.
func (g *EMACross) WarmupBars() int { return 1 }

// Evaluate checks for a crossover between bars i-1 and i.
func (g *EMACross) Evaluate(f *feed.Feed, i int) *domain.EntryIntent {
	if i < 1 {
		return nil
	}

	fast, ok1 := f.Indicator(i, domain.IndicatorEMAFast)
	slow, ok2 := f.Indicator(i, domain.IndicatorEMASlow)
	prevFast, ok3 := f.Indicator(i-1, domain.IndicatorEMAFast)
	prevSlow, ok4 := f.Indicator(i-1, domain.IndicatorEMASlow)
	trend, ok5 := f.Indicator(i, domain.IndicatorEMATrend)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil
	}

	close := f.Bar(i).Close

	crossUp := fast > slow && prevFast <= prevSlow
	crossDown := fast < slow && prevFast >= prevSlow

	if crossUp && close > trend {
		return buildIntent(f, i, domain.DirectionLong, g.levels, g.ID())
	}
	if crossDown && close < trend {
		return buildIntent(f, i, domain.DirectionShort, g.levels, g.ID())
	}
	return nil
}

var _ Generator = (*EMACross)(nil)
