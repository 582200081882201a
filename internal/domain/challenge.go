package domain

import "time"

// ChallengeStatus is the evaluation state of a challenge run.
type ChallengeStatus string

// Challenge status constants. RUNNING is the only non-terminal state.
const (
	ChallengeRunning  ChallengeStatus = "RUNNING"
	ChallengePassed   ChallengeStatus = "PASSED"
	ChallengeFailed   ChallengeStatus = "FAILED"
	ChallengeTimedOut ChallengeStatus = "TIMED_OUT"
)

// Terminal reports whether the status ends the challenge.
func (s ChallengeStatus) Terminal() bool {
	return s != ChallengeRunning
}

// Challenge failure reason codes.
const (
	ChallengeFailDailyLoss = "daily_loss_limit"
	ChallengeFailDrawdown  = "max_drawdown"
	ChallengeFailTimeout   = "profit_target_missed"
)

// ChallengeOutcome records how and when a challenge reached a terminal
// state.
type ChallengeOutcome struct {
	Status      ChallengeStatus
	FailReason  string // set when Status is FAILED
	Bar         int    // bar index at which the terminal state was reached
	Timestamp   time.Time
	FinalEquity float64
	PeakEquity  float64
	TradingDays int
}
