package reporting

import "time"

// Report is the aggregated view over all stored runs.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	RunCount      int
	StrategyCount int
	SeriesCount   int

	// Headline numbers across every run
	Summary RunSummary

	// Per-run rows (newest first)
	Runs []RunRow

	// Per-strategy aggregation (sorted by strategy_id)
	Strategies []StrategyRow

	// Challenge outcomes per strategy (only strategies with challenge runs)
	Challenges []ChallengeRow

	// Exit reason breakdown across all trades
	ExitReasons []ExitReasonRow
}

// RunSummary holds totals across all runs.
type RunSummary struct {
	TotalTrades    int
	TotalNetProfit float64
	BestRunID      string
	BestNetProfit  float64
	WorstRunID     string
	WorstNetProfit float64
}

// RunRow represents one run in the runs table.
type RunRow struct {
	RunID          string
	StrategyID     string
	SeriesID       string
	CreatedAt      time.Time
	InitialCapital float64
	FinalCapital   float64
	NetProfit      float64
	TotalReturn    float64
	TotalTrades    int
	WinRate        float64
	ProfitFactor   float64
	MaxDrawdown    float64
	SharpeRatio    float64
	SkippedSignals int
	MarginRejected int

	ChallengeStatus     string // empty for plain backtests
	ChallengeFailReason string
}

// StrategyRow aggregates the runs of one strategy.
type StrategyRow struct {
	StrategyID       string
	Runs             int
	TotalTrades      int
	MeanNetProfit    float64
	MeanWinRate      float64
	MeanProfitFactor float64
	WorstDrawdown    float64
	BestSharpe       float64
}

// ChallengeRow summarizes challenge attempts of one strategy.
type ChallengeRow struct {
	StrategyID string
	Attempts   int
	Passed     int
	Failed     int
	TimedOut   int
	PassRate   float64
}

// ExitReasonRow counts trades by exit reason.
type ExitReasonRow struct {
	Reason string
	Trades int
	NetPnL float64
}
