// Package challenge evaluates funded-account challenge rules over a
// simulation run: profit target, daily loss limit, max drawdown, and
// time limit. The evaluator is a state machine RUNNING → {PASSED,
// FAILED, TIMED_OUT}; terminal states are final and reaching one is an
// expected outcome of a completed run, never an error.
package challenge

import (
	"time"

	"prop-trading-lab/internal/domain"
)

// Evaluator observes the simulator after every bar. It satisfies the
// simulator's bar hook interface.
type Evaluator struct {
	cfg             domain.ChallengeConfig
	startingCapital float64

	peak        float64
	dayStart    float64 // equity at the start of the current UTC day
	lastEquity  float64
	currentDay  string
	elapsedBars int

	lastTradeCount int
	tradingDays    map[string]struct{}

	outcome *domain.ChallengeOutcome
}

// NewEvaluator creates an evaluator for one run.
// Evaluators hold per-run state and are not reused.
func NewEvaluator(cfg domain.ChallengeConfig, startingCapital float64) *Evaluator {
	return &Evaluator{
		cfg:             cfg,
		startingCapital: startingCapital,
		peak:            startingCapital,
		dayStart:        startingCapital,
		lastEquity:      startingCapital,
		tradingDays:     make(map[string]struct{}),
	}
}

// OnBar updates challenge state with the bar's closing equity
// (including unrealized P&L) and returns the resulting status.
// Check order: drawdown and daily-loss breaches fail before the profit
// target can pass, and the time limit is evaluated last.
func (e *Evaluator) OnBar(bar int, ts time.Time, equity float64, tradesClosed int) domain.ChallengeStatus {
	if e.outcome != nil {
		return e.outcome.Status
	}

	e.elapsedBars++

	// Daily window resets on the UTC calendar date; the day opens at
	// the previous bar's equity.
	day := ts.UTC().Format("2006-01-02")
	if day != e.currentDay {
		e.currentDay = day
		e.dayStart = e.lastEquity
	}

	if tradesClosed > e.lastTradeCount {
		e.tradingDays[day] = struct{}{}
		e.lastTradeCount = tradesClosed
	}

	if equity > e.peak {
		e.peak = equity
	}

	if (e.peak-equity)/e.startingCapital > e.cfg.MaxDrawdown {
		return e.terminate(domain.ChallengeFailed, domain.ChallengeFailDrawdown, bar, ts, equity)
	}
	if (e.dayStart-equity)/e.startingCapital > e.cfg.MaxDailyLoss {
		return e.terminate(domain.ChallengeFailed, domain.ChallengeFailDailyLoss, bar, ts, equity)
	}

	profit := (equity - e.startingCapital) / e.startingCapital
	if profit >= e.cfg.ProfitTarget && tradesClosed >= e.cfg.MinTrades {
		return e.terminate(domain.ChallengePassed, "", bar, ts, equity)
	}

	if e.cfg.TimeLimitBars > 0 && e.elapsedBars >= e.cfg.TimeLimitBars {
		if e.cfg.DecideOnTimeout {
			if profit >= e.cfg.ProfitTarget {
				return e.terminate(domain.ChallengePassed, "", bar, ts, equity)
			}
			return e.terminate(domain.ChallengeFailed, domain.ChallengeFailTimeout, bar, ts, equity)
		}
		return e.terminate(domain.ChallengeTimedOut, "", bar, ts, equity)
	}

	e.lastEquity = equity
	return domain.ChallengeRunning
}

// Outcome returns the terminal record, or nil while still running.
func (e *Evaluator) Outcome() *domain.ChallengeOutcome {
	return e.outcome
}

// Status returns the current evaluation status.
func (e *Evaluator) Status() domain.ChallengeStatus {
	if e.outcome == nil {
		return domain.ChallengeRunning
	}
	return e.outcome.Status
}

// terminate records the terminal outcome and returns its status.
func (e *Evaluator) terminate(status domain.ChallengeStatus, failReason string, bar int, ts time.Time, equity float64) domain.ChallengeStatus {
	e.outcome = &domain.ChallengeOutcome{
		Status:      status,
		FailReason:  failReason,
		Bar:         bar,
		Timestamp:   ts,
		FinalEquity: equity,
		PeakEquity:  e.peak,
		TradingDays: len(e.tradingDays),
	}
	return status
}
