package domain

import "time"

// ClosedTrade is an immutable record appended when a position closes.
// The simulator never mutates past entries.
type ClosedTrade struct {
	TradeID    string // deterministic hash
	RunID      string // owning simulation run
	Direction  Direction
	EntryPrice float64
	ExitPrice  float64
	Size       float64

	GrossPnL float64 // before transaction costs
	NetPnL   float64 // after entry + exit costs

	// Cost breakdown (zero when no cost model configured)
	SpreadCost float64
	Commission float64
	Slippage   float64

	ExitReason string
	EntryBar   int
	ExitBar    int
	EntryTime  time.Time
	ExitTime   time.Time
}

// Exit reason codes.
const (
	ExitReasonStopLoss       = "stop_loss"
	ExitReasonTakeProfit     = "take_profit"
	ExitReasonTrailingStop   = "trailing_stop"
	ExitReasonSignalReversal = "signal_reversal"
	ExitReasonTimeExit       = "time_exit"
	ExitReasonEndOfData      = "end_of_data"
	ExitReasonStopOut        = "stop_out"
	ExitReasonChallengeEnd   = "challenge_pass_exit"
)
