package domain

import "time"

// RunRecord is the flattened, persistable summary of a completed run.
// The full equity curve and trade list are stored separately; the
// record carries the headline numbers reports are built from.
type RunRecord struct {
	RunID      string
	StrategyID string
	SeriesID   string
	CreatedAt  time.Time

	InitialCapital float64
	FinalCapital   float64
	NetProfit      float64
	TotalReturn    float64

	TotalTrades  int
	WinRate      float64
	ProfitFactor float64
	MaxDrawdown  float64
	SharpeRatio  float64

	SkippedSignals      int
	MarginRejected      int
	VolatilityFloorUses int

	// Challenge fields are empty when no challenge rules were applied.
	ChallengeStatus     string
	ChallengeFailReason string
}

// NewRunRecord flattens a run result for persistence.
func NewRunRecord(seriesID string, res *RunResult, createdAt time.Time) *RunRecord {
	rec := &RunRecord{
		RunID:      res.RunID,
		StrategyID: res.StrategyID,
		SeriesID:   seriesID,
		CreatedAt:  createdAt,

		InitialCapital: res.Report.InitialCapital,
		FinalCapital:   res.Report.FinalCapital,
		NetProfit:      res.Report.NetProfit,
		TotalReturn:    res.Report.TotalReturn,

		TotalTrades:  res.Report.TotalTrades,
		WinRate:      res.Report.WinRate,
		ProfitFactor: res.Report.ProfitFactor,
		MaxDrawdown:  res.Report.MaxDrawdown,
		SharpeRatio:  res.Report.SharpeRatio,

		SkippedSignals:      res.SkippedSignals,
		MarginRejected:      res.MarginRejected,
		VolatilityFloorUses: res.VolatilityFloorUses,
	}
	if res.Challenge != nil {
		rec.ChallengeStatus = string(res.Challenge.Status)
		rec.ChallengeFailReason = res.Challenge.FailReason
	}
	return rec
}
