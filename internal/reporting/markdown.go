package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Strategies: %d | Series: %d\n\n",
		r.RunCount, r.StrategyCount, r.SeriesCount))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.Summary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Total Net Profit | %.2f |\n", r.Summary.TotalNetProfit))
	sb.WriteString(fmt.Sprintf("| Best Run | %s (%.2f) |\n", shortID(r.Summary.BestRunID), r.Summary.BestNetProfit))
	sb.WriteString(fmt.Sprintf("| Worst Run | %s (%.2f) |\n", shortID(r.Summary.WorstRunID), r.Summary.WorstNetProfit))
	sb.WriteString("\n")

	// Runs
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Strategy | Series | Trades | NetProfit | Return | WinRate | PF | MaxDD | Sharpe | Challenge |\n")
		sb.WriteString("|-----|----------|--------|--------|-----------|--------|---------|----|-------|--------|----------|\n")
		for _, row := range r.Runs {
			challenge := row.ChallengeStatus
			if challenge == "" {
				challenge = "-"
			} else if row.ChallengeFailReason != "" {
				challenge = fmt.Sprintf("%s (%s)", row.ChallengeStatus, row.ChallengeFailReason)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %.2f | %.4f | %.4f | %.4f | %.4f | %.4f | %s |\n",
				shortID(row.RunID), row.StrategyID, row.SeriesID,
				row.TotalTrades, row.NetProfit, row.TotalReturn,
				row.WinRate, row.ProfitFactor, row.MaxDrawdown, row.SharpeRatio,
				challenge))
		}
	} else {
		sb.WriteString("No runs stored.\n")
	}
	sb.WriteString("\n")

	// Strategy comparison
	sb.WriteString("## Strategy Comparison\n\n")
	if len(r.Strategies) > 0 {
		sb.WriteString("| Strategy | Runs | Trades | MeanNetProfit | MeanWinRate | MeanPF | WorstDD | BestSharpe |\n")
		sb.WriteString("|----------|------|--------|---------------|-------------|--------|---------|------------|\n")
		for _, s := range r.Strategies {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.4f | %.4f | %.4f | %.4f |\n",
				s.StrategyID, s.Runs, s.TotalTrades,
				s.MeanNetProfit, s.MeanWinRate, s.MeanProfitFactor,
				s.WorstDrawdown, s.BestSharpe))
		}
	} else {
		sb.WriteString("No strategy data available.\n")
	}
	sb.WriteString("\n")

	// Challenge outcomes
	sb.WriteString("## Challenge Outcomes\n\n")
	if len(r.Challenges) > 0 {
		sb.WriteString("| Strategy | Attempts | Passed | Failed | TimedOut | PassRate |\n")
		sb.WriteString("|----------|----------|--------|--------|----------|----------|\n")
		for _, c := range r.Challenges {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %.4f |\n",
				c.StrategyID, c.Attempts, c.Passed, c.Failed, c.TimedOut, c.PassRate))
		}
	} else {
		sb.WriteString("No challenge runs recorded.\n")
	}
	sb.WriteString("\n")

	// Exit reasons
	sb.WriteString("## Exit Reasons\n\n")
	if len(r.ExitReasons) > 0 {
		sb.WriteString("| Reason | Trades | NetPnL |\n")
		sb.WriteString("|--------|--------|--------|\n")
		for _, e := range r.ExitReasons {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f |\n", e.Reason, e.Trades, e.NetPnL))
		}
	} else {
		sb.WriteString("No closed trades recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// shortID truncates a run hash for table display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	if id == "" {
		return "-"
	}
	return id
}
