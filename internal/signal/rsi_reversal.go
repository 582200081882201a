package signal

import (
	"fmt"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
)

// Recovery offsets from the extreme levels: a bounce counts once RSI
// has come back by this much from the configured extreme.
const rsiRecoveryOffset = 5.0

// RSIReversal fires on a snap-back from an RSI extreme, in the
// direction of the trend EMA: an oversold bounce with close above
// trend is LONG, an overbought fade with close below trend is SHORT.
type RSIReversal struct {
	levels     Levels
	oversold   float64
	overbought float64
}

// NewRSIReversal creates an RSI extreme-reversal generator.
func NewRSIReversal(levels Levels, oversold, overbought float64) *RSIReversal {
	return &RSIReversal{levels: levels, oversold: oversold, overbought: overbought}
}

// ID returns the generator identifier including parameters.
func (g *RSIReversal) ID() string {
	return fmt.Sprintf("RSI_REVERSAL_os%.0f_ob%.0f", g.oversold, g.overbought)
}

// WarmupBars requires one prior bar to observe the extreme.
func (g *RSIReversal) WarmupBars() int { return 1 }

// Evaluate checks whether bar i-1 was at an extreme and bar i has
// recovered past the offset.
func (g *RSIReversal) Evaluate(f *feed.Feed, i int) *domain.EntryIntent {
	if i < 1 {
		return nil
	}

	rsi, ok1 := f.Indicator(i, domain.IndicatorRSI)
	prevRSI, ok2 := f.Indicator(i-1, domain.IndicatorRSI)
	trend, ok3 := f.Indicator(i, domain.IndicatorEMATrend)
	if !ok1 || !ok2 || !ok3 {
		return nil
	}

	close := f.Bar(i).Close

	if prevRSI < g.oversold && rsi >= g.oversold+rsiRecoveryOffset && close > trend {
		return buildIntent(f, i, domain.DirectionLong, g.levels, g.ID())
	}
	if prevRSI > g.overbought && rsi <= g.overbought-rsiRecoveryOffset && close < trend {
		return buildIntent(f, i, domain.DirectionShort, g.levels, g.ID())
	}
	return nil
}

var _ Generator = (*RSIReversal)(nil)
