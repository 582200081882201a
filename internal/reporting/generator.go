package reporting

import (
	"context"
	"sort"
	"time"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/storage"
)

// Generator produces reports from stored runs and trades.
type Generator struct {
	runStore   storage.RunStore
	tradeStore storage.TradeStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore, tradeStore storage.TradeStore) *Generator {
	return &Generator{
		runStore:   runStore,
		tradeStore: tradeStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report over every stored run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	exitReasons, err := g.generateExitReasons(ctx, runs)
	if err != nil {
		return nil, err
	}

	strategySet := make(map[string]struct{})
	seriesSet := make(map[string]struct{})
	for _, r := range runs {
		strategySet[r.StrategyID] = struct{}{}
		seriesSet[r.SeriesID] = struct{}{}
	}

	return &Report{
		GeneratedAt:   g.now(),
		RunCount:      len(runs),
		StrategyCount: len(strategySet),
		SeriesCount:   len(seriesSet),
		Summary:       generateSummary(runs),
		Runs:          generateRunRows(runs),
		Strategies:    generateStrategyRows(runs),
		Challenges:    generateChallengeRows(runs),
		ExitReasons:   exitReasons,
	}, nil
}

// generateSummary computes totals and best/worst runs by net profit.
func generateSummary(runs []*domain.RunRecord) RunSummary {
	var s RunSummary
	for i, r := range runs {
		s.TotalTrades += r.TotalTrades
		s.TotalNetProfit += r.NetProfit
		if i == 0 || r.NetProfit > s.BestNetProfit {
			s.BestRunID = r.RunID
			s.BestNetProfit = r.NetProfit
		}
		if i == 0 || r.NetProfit < s.WorstNetProfit {
			s.WorstRunID = r.RunID
			s.WorstNetProfit = r.NetProfit
		}
	}
	return s
}

// generateRunRows flattens run records into table rows. The store
// already orders newest first; the order is preserved.
func generateRunRows(runs []*domain.RunRecord) []RunRow {
	rows := make([]RunRow, len(runs))
	for i, r := range runs {
		rows[i] = RunRow{
			RunID:               r.RunID,
			StrategyID:          r.StrategyID,
			SeriesID:            r.SeriesID,
			CreatedAt:           r.CreatedAt,
			InitialCapital:      r.InitialCapital,
			FinalCapital:        r.FinalCapital,
			NetProfit:           r.NetProfit,
			TotalReturn:         r.TotalReturn,
			TotalTrades:         r.TotalTrades,
			WinRate:             r.WinRate,
			ProfitFactor:        r.ProfitFactor,
			MaxDrawdown:         r.MaxDrawdown,
			SharpeRatio:         r.SharpeRatio,
			SkippedSignals:      r.SkippedSignals,
			MarginRejected:      r.MarginRejected,
			ChallengeStatus:     r.ChallengeStatus,
			ChallengeFailReason: r.ChallengeFailReason,
		}
	}
	return rows
}

// generateStrategyRows aggregates runs per strategy.
func generateStrategyRows(runs []*domain.RunRecord) []StrategyRow {
	groups := make(map[string][]*domain.RunRecord)
	for _, r := range runs {
		groups[r.StrategyID] = append(groups[r.StrategyID], r)
	}

	rows := make([]StrategyRow, 0, len(groups))
	for strategyID, group := range groups {
		row := StrategyRow{
			StrategyID: strategyID,
			Runs:       len(group),
		}
		for i, r := range group {
			row.TotalTrades += r.TotalTrades
			row.MeanNetProfit += r.NetProfit
			row.MeanWinRate += r.WinRate
			row.MeanProfitFactor += r.ProfitFactor
			if r.MaxDrawdown > row.WorstDrawdown {
				row.WorstDrawdown = r.MaxDrawdown
			}
			if i == 0 || r.SharpeRatio > row.BestSharpe {
				row.BestSharpe = r.SharpeRatio
			}
		}
		n := float64(len(group))
		row.MeanNetProfit /= n
		row.MeanWinRate /= n
		row.MeanProfitFactor /= n
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].StrategyID < rows[j].StrategyID
	})
	return rows
}

// generateChallengeRows summarizes challenge outcomes per strategy.
// Runs without a challenge status are excluded.
func generateChallengeRows(runs []*domain.RunRecord) []ChallengeRow {
	groups := make(map[string]*ChallengeRow)
	for _, r := range runs {
		if r.ChallengeStatus == "" {
			continue
		}
		row := groups[r.StrategyID]
		if row == nil {
			row = &ChallengeRow{StrategyID: r.StrategyID}
			groups[r.StrategyID] = row
		}
		row.Attempts++
		switch domain.ChallengeStatus(r.ChallengeStatus) {
		case domain.ChallengePassed:
			row.Passed++
		case domain.ChallengeFailed:
			row.Failed++
		case domain.ChallengeTimedOut:
			row.TimedOut++
		}
	}

	rows := make([]ChallengeRow, 0, len(groups))
	for _, row := range groups {
		if row.Attempts > 0 {
			row.PassRate = float64(row.Passed) / float64(row.Attempts)
		}
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].StrategyID < rows[j].StrategyID
	})
	return rows
}

// generateExitReasons loads trades of every run and counts by exit reason.
func (g *Generator) generateExitReasons(ctx context.Context, runs []*domain.RunRecord) ([]ExitReasonRow, error) {
	counts := make(map[string]*ExitReasonRow)
	for _, r := range runs {
		trades, err := g.tradeStore.GetByRunID(ctx, r.RunID)
		if err != nil {
			return nil, err
		}
		for _, t := range trades {
			row := counts[t.ExitReason]
			if row == nil {
				row = &ExitReasonRow{Reason: t.ExitReason}
				counts[t.ExitReason] = row
			}
			row.Trades++
			row.NetPnL += t.NetPnL
		}
	}

	rows := make([]ExitReasonRow, 0, len(counts))
	for _, row := range counts {
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Reason < rows[j].Reason
	})
	return rows, nil
}
