// Package metrics computes performance summaries from closed trades
// and equity series. Every ratio defines its zero/empty behavior
// explicitly so downstream reporting never special-cases "no trades":
// with zero trades all ratios are zero; profit factor and risk:reward
// are +Inf only when there are wins and no losses.
package metrics

import (
	"math"

	"prop-trading-lab/internal/domain"
)

// Annualization factor for per-bar returns, treating one bar as one
// trading day.
const annualizationFactor = 252

// Compute builds the metrics report for one completed run.
// It is a pure function of its inputs.
func Compute(initialCapital float64, trades []*domain.ClosedTrade, equity []domain.EquityPoint) *domain.MetricsReport {
	r := &domain.MetricsReport{
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
		ExitReasons:    make(map[string]int),
	}
	if len(equity) > 0 {
		r.FinalCapital = equity[len(equity)-1].Equity
	}
	r.NetProfit = r.FinalCapital - initialCapital
	if initialCapital > 0 {
		r.TotalReturn = r.NetProfit / initialCapital
	}

	computeTradeStats(r, trades)
	r.MaxDrawdown = maxDrawdown(equity)
	r.SharpeRatio, r.Volatility = sharpe(equity)

	return r
}

// computeTradeStats fills the per-trade statistics of the report.
func computeTradeStats(r *domain.MetricsReport, trades []*domain.ClosedTrade) {
	r.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var sumWins, sumLosses float64
	for _, t := range trades {
		r.ExitReasons[t.ExitReason]++
		r.TotalSpreadCost += t.SpreadCost
		r.TotalCommission += t.Commission
		r.TotalSlippage += t.Slippage

		if t.NetPnL > 0 {
			r.WinningTrades++
			sumWins += t.NetPnL
		} else {
			r.LosingTrades++
			sumLosses += -t.NetPnL
		}
	}
	r.TotalCosts = r.TotalSpreadCost + r.TotalCommission + r.TotalSlippage

	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	r.GrossProfit = sumWins
	r.GrossLoss = sumLosses

	if r.WinningTrades > 0 {
		r.AvgWin = sumWins / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = sumLosses / float64(r.LosingTrades)
	}

	r.ProfitFactor = safeRatio(r.GrossProfit, r.GrossLoss)
	r.RiskReward = safeRatio(r.AvgWin, r.AvgLoss)
}

// safeRatio returns num/den with the canonical degenerate policy:
// 0 when there is nothing in the numerator, +Inf when the numerator is
// positive and the denominator zero.
func safeRatio(num, den float64) float64 {
	if den > 0 {
		return num / den
	}
	if num > 0 {
		return math.Inf(1)
	}
	return 0
}

// maxDrawdown returns the largest (peak-equity)/peak over the series.
func maxDrawdown(equity []domain.EquityPoint) float64 {
	var peak, maxDD float64
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe returns the annualized Sharpe ratio and volatility of the
// per-bar return series. Zero when the return deviation is zero.
func sharpe(equity []domain.EquityPoint) (ratio, volatility float64) {
	if len(equity) < 2 {
		return 0, 0
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, (equity[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return 0, 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)

	volatility = std * math.Sqrt(annualizationFactor)
	if std == 0 {
		return 0, volatility
	}
	return mean * annualizationFactor / (std * math.Sqrt(annualizationFactor)), volatility
}
