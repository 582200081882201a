package domain

// MetricsReport is the performance summary of one completed run.
// Every field is defined for the zero-trade case: all ratios are zero,
// except ProfitFactor and RiskReward which are +Inf only when there are
// wins and no losses. A completed run always produces a report.
type MetricsReport struct {
	InitialCapital float64
	FinalCapital   float64
	NetProfit      float64
	TotalReturn    float64 // fraction of initial capital

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	GrossProfit  float64
	GrossLoss    float64 // reported as a positive magnitude
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64 // positive magnitude
	RiskReward   float64

	MaxDrawdown float64 // max (peak-equity)/peak over the equity series
	SharpeRatio float64
	Volatility  float64 // annualized stddev of per-bar returns

	TotalSpreadCost float64
	TotalCommission float64
	TotalSlippage   float64
	TotalCosts      float64

	// ExitReasons counts closed trades by exit reason code.
	ExitReasons map[string]int
}

// RunResult bundles everything a single simulation run produces.
type RunResult struct {
	RunID               string
	StrategyID          string
	Trades              []*ClosedTrade
	Equity              []EquityPoint
	Report              *MetricsReport
	Challenge           *ChallengeOutcome // nil when no challenge rules configured
	SkippedSignals      int
	MarginRejected      int
	VolatilityFloorUses int
}
