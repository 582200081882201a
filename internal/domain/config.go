package domain

// SimulatorConfig holds the risk and exit parameters of a single
// simulation run.
type SimulatorConfig struct {
	InitialCapital float64

	// RiskFraction is the fraction of equity risked per trade.
	RiskFraction float64

	// MaxPositionFraction caps position notional as a fraction of equity.
	MaxPositionFraction float64

	// Stop/target/trailing distances in volatility units.
	StopVolatilityMult   float64
	TargetVolatilityMult float64
	TrailVolatilityMult  float64

	// TrailActivationMult is the favorable move, in volatility units,
	// required before the trailing stop becomes active.
	TrailActivationMult float64

	// AllowSignalReversalExit closes an open position at bar close when
	// a signal in the opposite direction fires and no hard level was hit.
	AllowSignalReversalExit bool

	// VolatilityColumn names the indicator column used as the volatility
	// unit for stop/target/trailing distances.
	VolatilityColumn string

	// VolatilityFloorFraction is the fallback volatility, as a fraction
	// of the bar close, substituted when the indicator value is unusable.
	VolatilityFloorFraction float64
}

// DefaultSimulatorConfig returns the baseline run parameters.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		InitialCapital:          10000,
		RiskFraction:            0.02,
		MaxPositionFraction:     0.10,
		StopVolatilityMult:      1.5,
		TargetVolatilityMult:    3.0,
		TrailVolatilityMult:     2.5,
		TrailActivationMult:     1.0,
		AllowSignalReversalExit: true,
		VolatilityColumn:        IndicatorATR,
		VolatilityFloorFraction: 0.01,
	}
}

// CostConfig holds the transaction cost and margin model parameters.
// A nil *CostConfig means frictionless execution.
type CostConfig struct {
	// Spread is the full bid-ask spread in price units, paid on entry.
	Spread float64

	// CommissionPerLot is the round-trip commission per standard lot;
	// half is charged on each side.
	CommissionPerLot float64

	// SlippagePerUnit is the average adverse fill deviation per unit.
	SlippagePerUnit float64

	// LotUnits is the number of units per standard lot.
	LotUnits float64

	// MinLotSize is the smallest tradeable lot increment.
	MinLotSize float64

	// FloorToMinLot opens at the minimum lot when the risk-implied size
	// rounds to zero, instead of skipping the signal.
	FloorToMinLot bool

	Leverage float64

	// MarginUsageCap is the fraction of equity that required margin plus
	// entry costs may not exceed.
	MarginUsageCap float64

	// StopOutLevel is the margin level (equity / margin used) below
	// which the position is force-liquidated.
	StopOutLevel float64
}

// DefaultCostConfig returns cost parameters modeled on a retail
// XAU/USD account: 30 pip spread, $7/lot round trip, 5 pips slippage,
// 100 oz lots, 100:1 leverage.
func DefaultCostConfig() *CostConfig {
	return &CostConfig{
		Spread:           0.30,
		CommissionPerLot: 7.0,
		SlippagePerUnit:  0.05,
		LotUnits:         100,
		MinLotSize:       0.01,
		Leverage:         100,
		MarginUsageCap:   0.90,
		StopOutLevel:     0.20,
	}
}

// ChallengeConfig holds funded-account challenge rules.
// A nil *ChallengeConfig disables challenge evaluation.
type ChallengeConfig struct {
	// ProfitTarget is the required gain as a fraction of starting capital.
	ProfitTarget float64

	// MaxDailyLoss is the allowed same-day loss as a fraction of
	// starting capital. The daily window resets on the UTC calendar day
	// of the bar timestamp.
	MaxDailyLoss float64

	// MaxDrawdown is the allowed peak-to-trough drawdown as a fraction
	// of starting capital.
	MaxDrawdown float64

	// TimeLimitBars ends the challenge after this many bars. Zero means
	// no time limit.
	TimeLimitBars int

	// MinTrades is the minimum number of closed trades required before
	// the profit target can produce a pass.
	MinTrades int

	// DecideOnTimeout settles the outcome at the time boundary by final
	// profit: at or above target passes, below fails. When unset the
	// outcome at the boundary is TIMED_OUT.
	DecideOnTimeout bool
}

// DefaultChallengeConfig returns FTMO-style phase 1 rules.
func DefaultChallengeConfig() *ChallengeConfig {
	return &ChallengeConfig{
		ProfitTarget:  0.10,
		MaxDailyLoss:  0.05,
		MaxDrawdown:   0.10,
		TimeLimitBars: 0,
		MinTrades:     4,
	}
}
