// Package signal maps bars to directional entry intents. Generators
// are pure: Evaluate must not mutate anything and may only read
// indicator values at indices at or below the bar it is asked about.
// Reading ahead of the current bar is look-ahead bias and a defect.
package signal

import (
	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
)

// Generator produces an entry intent for a single bar, or nil.
type Generator interface {
	// Evaluate inspects indicators up to and including bar i and
	// returns an intent, or nil when no rule fires. Implementations
	// must be side-effect free and must not read beyond bar i.
	Evaluate(f *feed.Feed, i int) *domain.EntryIntent

	// WarmupBars returns the minimum bar index Evaluate may be called
	// at, determined by the longest indicator lookback the generator
	// reads.
	WarmupBars() int

	// ID returns the generator identifier (includes parameters).
	ID() string
}

// Levels holds the stop/target placement parameters shared by all
// generators: distances are expressed in volatility units read from
// the configured indicator column.
type Levels struct {
	VolatilityColumn        string
	VolatilityFloorFraction float64
	StopVolatilityMult      float64
	TargetVolatilityMult    float64
}

// LevelsFromConfig extracts placement parameters from a run config.
func LevelsFromConfig(cfg domain.SimulatorConfig) Levels {
	return Levels{
		VolatilityColumn:        cfg.VolatilityColumn,
		VolatilityFloorFraction: cfg.VolatilityFloorFraction,
		StopVolatilityMult:      cfg.StopVolatilityMult,
		TargetVolatilityMult:    cfg.TargetVolatilityMult,
	}
}

// buildIntent assembles an intent at bar i with stop and target placed
// around the bar close by volatility-unit multiples.
func buildIntent(f *feed.Feed, i int, dir domain.Direction, lv Levels, rule string) *domain.EntryIntent {
	ref := f.Bar(i).Close
	vol, _ := f.Volatility(i, lv.VolatilityColumn, lv.VolatilityFloorFraction)

	stop := ref - lv.StopVolatilityMult*vol
	target := ref + lv.TargetVolatilityMult*vol
	if dir == domain.DirectionShort {
		stop = ref + lv.StopVolatilityMult*vol
		target = ref - lv.TargetVolatilityMult*vol
	}

	return &domain.EntryIntent{
		Direction:       dir,
		ReferencePrice:  ref,
		SuggestedStop:   stop,
		SuggestedTarget: target,
		VolatilityUnit:  vol,
		Rule:            rule,
	}
}
