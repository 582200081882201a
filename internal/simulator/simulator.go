// Package simulator is the bar-by-bar trade simulation engine: a
// single-position state machine that opens, manages, and closes trades
// under risk-based sizing, multi-condition exit logic, and optional
// transaction-cost and margin modeling. Processing is strictly
// sequential over ordered bars with no shared mutable state, so every
// run is deterministic.
package simulator

import (
	"fmt"
	"log"
	"time"

	"prop-trading-lab/internal/costs"
	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
	"prop-trading-lab/internal/idhash"
	"prop-trading-lab/internal/metrics"
	"prop-trading-lab/internal/signal"
	"prop-trading-lab/internal/sizing"
)

// BarHook observes the simulation after each bar's equity update and
// may terminate the run. Used by the challenge evaluator.
type BarHook interface {
	// OnBar is called once per processed bar with equity including
	// unrealized P&L and the total number of trades closed so far.
	// A terminal status stops the run at this bar.
	OnBar(bar int, ts time.Time, equity float64, tradesClosed int) domain.ChallengeStatus

	// Outcome returns the terminal record once the hook has fired, or
	// nil while still running.
	Outcome() *domain.ChallengeOutcome
}

// Options configures a Simulator.
type Options struct {
	Config    domain.SimulatorConfig
	Generator signal.Generator

	// Costs is optional; nil means frictionless execution with no
	// margin constraints.
	Costs *costs.Model

	// Hook is optional; nil disables external run termination.
	Hook BarHook

	// Logger is optional; nil discards diagnostics.
	Logger *log.Logger
}

// Simulator runs one strategy over one bar series. Each run owns its
// Simulator instance; instances are not reused across runs.
type Simulator struct {
	cfg    domain.SimulatorConfig
	gen    signal.Generator
	sizer  *sizing.Sizer
	costs  *costs.Model
	hook   BarHook
	logger *log.Logger
}

// New creates a Simulator.
func New(opts Options) *Simulator {
	return &Simulator{
		cfg:    opts.Config,
		gen:    opts.Generator,
		sizer:  sizing.FromConfig(opts.Config),
		costs:  opts.Costs,
		hook:   opts.Hook,
		logger: opts.Logger,
	}
}

// runState is the mutable state threaded through the bar loop.
// A single position value and an append-only trade log, nothing else.
type runState struct {
	capital     float64 // realized capital
	pos         *domain.Position
	initialStop float64 // fixed stop at entry, before trailing tightened it

	trades []*domain.ClosedTrade
	equity []domain.EquityPoint

	skippedSignals int
	marginRejected int
	floorUses      int
}

// Run simulates the full bar range and returns the realized result.
// A completed run always carries a metrics report, even with zero
// trades.
func (s *Simulator) Run(f *feed.Feed) (*domain.RunResult, error) {
	if f.Len() == 0 {
		return nil, feed.ErrEmptySeries
	}

	runID := idhash.ComputeRunID(f.SeriesID(), s.gen.ID(), s.configFingerprint())

	st := &runState{
		capital: s.cfg.InitialCapital,
		equity:  make([]domain.EquityPoint, 0, f.Len()),
	}

	warmup := s.gen.WarmupBars()
	lastBar := f.Len() - 1
	terminated := false

	for i := 0; i < f.Len(); i++ {
		bar := f.Bar(i)

		if i >= warmup {
			s.step(f, i, runID, st)
		}

		// Mark equity at the bar close, including unrealized P&L.
		eq := st.capital
		if st.pos != nil {
			eq += st.pos.UnrealizedPnL(bar.Close)
		}
		st.equity = append(st.equity, domain.EquityPoint{
			Bar:       i,
			Timestamp: bar.Timestamp,
			Equity:    eq,
		})

		if s.hook != nil {
			status := s.hook.OnBar(i, bar.Timestamp, eq, len(st.trades))
			if status.Terminal() {
				if st.pos != nil {
					s.closePosition(f, i, runID, st, bar.Close, terminalExitReason(status))
					st.equity[len(st.equity)-1].Equity = st.capital
				}
				terminated = true
				break
			}
		}
	}

	// Force-close any dangling position at the final close so the run
	// ends with zero unrealized exposure.
	if !terminated && st.pos != nil {
		s.closePosition(f, lastBar, runID, st, f.Bar(lastBar).Close, domain.ExitReasonEndOfData)
		st.equity[len(st.equity)-1].Equity = st.capital
	}

	result := &domain.RunResult{
		RunID:               runID,
		StrategyID:          s.gen.ID(),
		Trades:              st.trades,
		Equity:              st.equity,
		Report:              metrics.Compute(s.cfg.InitialCapital, st.trades, st.equity),
		SkippedSignals:      st.skippedSignals,
		MarginRejected:      st.marginRejected,
		VolatilityFloorUses: st.floorUses,
	}
	if s.hook != nil {
		result.Challenge = s.hook.Outcome()
	}
	return result, nil
}

// step advances the state machine by one bar: exit checks strictly
// before entry checks, and no re-entry on a bar that closed a position.
func (s *Simulator) step(f *feed.Feed, i int, runID string, st *runState) {
	if st.pos != nil {
		s.managePosition(f, i, runID, st)
		// A position closed on this bar is never replaced on the same
		// bar; the next entry opportunity is the following bar.
		return
	}
	s.tryEnter(f, i, runID, st)
}

// managePosition applies the per-bar exit ladder to the open position.
// Priority order: stop-out (hard safety), trailing-tightened stop,
// take-profit, signal reversal. When both stop and target sit inside
// the bar range the stop fills first — only OHLC is known, not the
// intrabar path, so the engine takes the conservative read.
func (s *Simulator) managePosition(f *feed.Feed, i int, runID string, st *runState) {
	bar := f.Bar(i)
	pos := st.pos

	// Forced liquidation overrides every other exit.
	if s.costs != nil {
		eq := st.capital + pos.UnrealizedPnL(bar.Close)
		if s.costs.StopOut(eq, pos.Size, bar.Close) {
			s.logf("stop out at bar %d (%s): equity %.2f", i, bar.Timestamp.Format("2006-01-02"), eq)
			s.closePosition(f, i, runID, st, bar.Close, domain.ExitReasonStopOut)
			return
		}
	}

	vol := s.volatility(f, i, st)

	// Ratchet the trailing anchor and fold the trailing stop into the
	// position's stop level. The stop only ever tightens.
	if pos.Direction == domain.DirectionLong {
		if bar.High > pos.TrailingAnchor {
			pos.TrailingAnchor = bar.High
		}
		if !pos.TrailingActive && pos.TrailingAnchor-pos.EntryPrice >= s.cfg.TrailActivationMult*vol {
			pos.TrailingActive = true
		}
		if pos.TrailingActive {
			if trail := pos.TrailingAnchor - s.cfg.TrailVolatilityMult*vol; trail > pos.StopLoss {
				pos.StopLoss = trail
			}
		}

		if bar.Low <= pos.StopLoss {
			reason := domain.ExitReasonStopLoss
			if pos.StopLoss > st.initialStop {
				reason = domain.ExitReasonTrailingStop
			}
			s.closePosition(f, i, runID, st, pos.StopLoss, reason)
			return
		}
		if bar.High >= pos.TakeProfit {
			s.closePosition(f, i, runID, st, pos.TakeProfit, domain.ExitReasonTakeProfit)
			return
		}
	} else {
		if bar.Low < pos.TrailingAnchor {
			pos.TrailingAnchor = bar.Low
		}
		if !pos.TrailingActive && pos.EntryPrice-pos.TrailingAnchor >= s.cfg.TrailActivationMult*vol {
			pos.TrailingActive = true
		}
		if pos.TrailingActive {
			if trail := pos.TrailingAnchor + s.cfg.TrailVolatilityMult*vol; trail < pos.StopLoss {
				pos.StopLoss = trail
			}
		}

		if bar.High >= pos.StopLoss {
			reason := domain.ExitReasonStopLoss
			if pos.StopLoss < st.initialStop {
				reason = domain.ExitReasonTrailingStop
			}
			s.closePosition(f, i, runID, st, pos.StopLoss, reason)
			return
		}
		if bar.Low <= pos.TakeProfit {
			s.closePosition(f, i, runID, st, pos.TakeProfit, domain.ExitReasonTakeProfit)
			return
		}
	}

	// No hard level hit: optionally close on an opposite-direction
	// signal at the bar close.
	if s.cfg.AllowSignalReversalExit {
		if intent := s.gen.Evaluate(f, i); intent != nil && intent.Direction != pos.Direction {
			s.closePosition(f, i, runID, st, bar.Close, domain.ExitReasonSignalReversal)
		}
	}
}

// tryEnter queries the generator and, if the sized and cost-admitted
// position is non-zero, opens it at the bar close.
func (s *Simulator) tryEnter(f *feed.Feed, i int, runID string, st *runState) {
	intent := s.gen.Evaluate(f, i)
	if intent == nil {
		return
	}

	sized := s.sizer.Size(intent, st.capital)
	if sized.Size <= 0 {
		st.skippedSignals++
		return
	}

	size := sized.Size
	var entryCosts costs.Breakdown
	if s.costs != nil {
		size = s.costs.RoundLots(size)
		if size <= 0 {
			s.logf("signal at bar %d skipped: size below minimum lot", i)
			st.skippedSignals++
			return
		}
		entryCosts = s.costs.Apply(size, true)
		if !s.costs.AdmitEntry(size, intent.ReferencePrice, st.capital, entryCosts) {
			s.logf("signal at bar %d rejected: margin cap exceeded", i)
			st.marginRejected++
			return
		}
		st.capital -= entryCosts.Total
	}

	// Count a floor substitution on the entry bar; the generator used
	// the same volatility value to place the suggested levels.
	s.volatility(f, i, st)

	st.pos = &domain.Position{
		Direction:      intent.Direction,
		EntryPrice:     intent.ReferencePrice,
		Size:           size,
		StopLoss:       sized.StopLoss,
		TakeProfit:     sized.TakeProfit,
		TrailingAnchor: intent.ReferencePrice,
		OpenedAtBar:    i,
		EntryCosts:     entryCosts.Total,
	}
	st.initialStop = sized.StopLoss
}

// closePosition realizes the open position at the given price, charges
// exit costs, appends the closed trade, and returns the state to FLAT.
func (s *Simulator) closePosition(f *feed.Feed, i int, runID string, st *runState, exitPrice float64, reason string) {
	pos := st.pos

	gross := pos.UnrealizedPnL(exitPrice)

	var exitCosts costs.Breakdown
	if s.costs != nil {
		exitCosts = s.costs.Apply(pos.Size, false)
	}
	st.capital += gross - exitCosts.Total

	entryBar := f.Bar(pos.OpenedAtBar)
	exitBar := f.Bar(i)

	var entryCosts costs.Breakdown
	if s.costs != nil {
		entryCosts = s.costs.Apply(pos.Size, true)
	}

	st.trades = append(st.trades, &domain.ClosedTrade{
		TradeID:    idhash.ComputeTradeID(runID, pos.OpenedAtBar, i, string(pos.Direction)),
		RunID:      runID,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       pos.Size,
		GrossPnL:   gross,
		NetPnL:     gross - pos.EntryCosts - exitCosts.Total,
		SpreadCost: entryCosts.SpreadCost,
		Commission: entryCosts.Commission + exitCosts.Commission,
		Slippage:   entryCosts.Slippage + exitCosts.Slippage,
		ExitReason: reason,
		EntryBar:   pos.OpenedAtBar,
		ExitBar:    i,
		EntryTime:  entryBar.Timestamp,
		ExitTime:   exitBar.Timestamp,
	})

	st.pos = nil
	st.initialStop = 0
}

// volatility reads the volatility unit at bar i, counting and logging
// floor substitutions.
func (s *Simulator) volatility(f *feed.Feed, i int, st *runState) float64 {
	v, substituted := f.Volatility(i, s.cfg.VolatilityColumn, s.cfg.VolatilityFloorFraction)
	if substituted {
		st.floorUses++
		s.logf("bar %d: volatility column %q unusable, floored to %.6f", i, s.cfg.VolatilityColumn, v)
	}
	return v
}

// configFingerprint folds the run parameters into the run ID so that
// parameter sweeps produce distinct, reproducible IDs.
func (s *Simulator) configFingerprint() string {
	c := s.cfg
	return fmt.Sprintf("cap%.2f_risk%.4f_maxpos%.4f_stop%.2f_target%.2f_trail%.2f_act%.2f_rev%t",
		c.InitialCapital, c.RiskFraction, c.MaxPositionFraction,
		c.StopVolatilityMult, c.TargetVolatilityMult,
		c.TrailVolatilityMult, c.TrailActivationMult,
		c.AllowSignalReversalExit)
}

// terminalExitReason maps a terminal challenge status to the exit
// reason recorded on the force-closed trade.
func terminalExitReason(status domain.ChallengeStatus) string {
	switch status {
	case domain.ChallengePassed:
		return domain.ExitReasonChallengeEnd
	case domain.ChallengeTimedOut:
		return domain.ExitReasonTimeExit
	default:
		// A failed challenge is a hard account breach; the position is
		// liquidated the way a breached margin account is.
		return domain.ExitReasonStopOut
	}
}

func (s *Simulator) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
