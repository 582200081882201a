package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders run rows as CSV string.
func RenderCSV(runs []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,strategy_id,series_id,created_at,initial_capital,final_capital,")
	sb.WriteString("net_profit,total_return,total_trades,win_rate,profit_factor,")
	sb.WriteString("max_drawdown,sharpe_ratio,skipped_signals,margin_rejected,")
	sb.WriteString("challenge_status,challenge_fail_reason\n")

	// Rows
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.6f,%.6f,%.6f,%.6f,%d,%.6f,%.6f,%.6f,%.6f,%d,%d,%s,%s\n",
			r.RunID,
			r.StrategyID,
			r.SeriesID,
			r.CreatedAt.Format(time.RFC3339),
			r.InitialCapital,
			r.FinalCapital,
			r.NetProfit,
			r.TotalReturn,
			r.TotalTrades,
			r.WinRate,
			r.ProfitFactor,
			r.MaxDrawdown,
			r.SharpeRatio,
			r.SkippedSignals,
			r.MarginRejected,
			r.ChallengeStatus,
			r.ChallengeFailReason,
		))
	}

	return sb.String()
}
