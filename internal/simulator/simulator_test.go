package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prop-trading-lab/internal/costs"
	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
)

// barSpec is shorthand for building an OHLC bar with a constant ATR.
type barSpec struct {
	o, h, l, c float64
	atr        float64
	noATR      bool
}

func makeFeed(t *testing.T, specs []barSpec) *feed.Feed {
	t.Helper()
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(specs))
	for i, s := range specs {
		bars[i] = domain.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      s.o,
			High:      s.h,
			Low:       s.l,
			Close:     s.c,
		}
		if !s.noATR {
			atr := s.atr
			if atr == 0 {
				atr = 2.0
			}
			bars[i].Indicators = map[string]float64{domain.IndicatorATR: atr}
		}
	}
	f, err := feed.New("test-series", bars)
	require.NoError(t, err)
	return f
}

// scriptedGenerator fires a fixed intent at scripted bar indices.
type scriptedGenerator struct {
	intents map[int]*domain.EntryIntent
}

func (g scriptedGenerator) Evaluate(_ *feed.Feed, i int) *domain.EntryIntent {
	return g.intents[i]
}
func (g scriptedGenerator) WarmupBars() int { return 0 }
func (g scriptedGenerator) ID() string      { return "SCRIPTED" }

// alwaysGenerator fires the same intent on every bar, re-anchored to
// the bar close.
type alwaysGenerator struct {
	dir        domain.Direction
	stopDist   float64
	targetDist float64
}

func (g alwaysGenerator) Evaluate(f *feed.Feed, i int) *domain.EntryIntent {
	ref := f.Bar(i).Close
	stop, target := ref-g.stopDist, ref+g.targetDist
	if g.dir == domain.DirectionShort {
		stop, target = ref+g.stopDist, ref-g.targetDist
	}
	return &domain.EntryIntent{
		Direction:       g.dir,
		ReferencePrice:  ref,
		SuggestedStop:   stop,
		SuggestedTarget: target,
		VolatilityUnit:  g.stopDist,
		Rule:            "always",
	}
}
func (g alwaysGenerator) WarmupBars() int { return 0 }
func (g alwaysGenerator) ID() string      { return "ALWAYS" }

func longAt(bar int, ref, stop, target float64) scriptedGenerator {
	return scriptedGenerator{intents: map[int]*domain.EntryIntent{
		bar: {
			Direction:       domain.DirectionLong,
			ReferencePrice:  ref,
			SuggestedStop:   stop,
			SuggestedTarget: target,
			VolatilityUnit:  ref - stop,
			Rule:            "scripted",
		},
	}}
}

// testConfig keeps trailing out of the way unless a test opts in.
func testConfig() domain.SimulatorConfig {
	cfg := domain.DefaultSimulatorConfig()
	cfg.MaxPositionFraction = 1.0
	cfg.TrailActivationMult = 1000
	return cfg
}

func TestRun_TakeProfitScenario(t *testing.T) {
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 106, l: 100, c: 105},
		{o: 105, h: 105, l: 97, c: 98},
		{o: 98, h: 111, l: 98, c: 110},
		{o: 110, h: 110, l: 94, c: 95},
	})

	sim := New(Options{
		Config:    testConfig(),
		Generator: longAt(0, 100, 95, 108),
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, domain.DirectionLong, tr.Direction)
	assert.Equal(t, 0, tr.EntryBar)
	assert.Equal(t, 3, tr.ExitBar)
	assert.Equal(t, domain.ExitReasonTakeProfit, tr.ExitReason)
	assert.InDelta(t, 108.0, tr.ExitPrice, 1e-9)

	// Risk 2% of 10000 over a 5-point stop distance is 40 units.
	assert.InDelta(t, 40.0, tr.Size, 1e-9)
	assert.InDelta(t, 320.0, tr.GrossPnL, 1e-9)
	assert.InDelta(t, 320.0, tr.NetPnL, 1e-9)

	require.Len(t, res.Equity, 5)
	assert.InDelta(t, 10320.0, res.Equity[4].Equity, 1e-9)
	assert.InDelta(t, 10320.0, res.Report.FinalCapital, 1e-9)
	assert.Equal(t, 0, res.VolatilityFloorUses)
}

func TestRun_StopFillsBeforeTarget(t *testing.T) {
	// Bar 1 spans both the stop and the target; only OHLC is known, so
	// the stop fills.
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 106, l: 94, c: 100},
	})

	sim := New(Options{
		Config:    testConfig(),
		Generator: longAt(0, 100, 95, 105),
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.ExitReasonStopLoss, res.Trades[0].ExitReason)
	assert.InDelta(t, 95.0, res.Trades[0].ExitPrice, 1e-9)
}

func TestRun_TrailingStopRatchets(t *testing.T) {
	cfg := testConfig()
	cfg.TrailActivationMult = 1.0
	cfg.TrailVolatilityMult = 2.5

	// ATR 2 throughout: trailing activates after a 2-point favorable
	// move and trails 5 points behind the high-water mark.
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 108, l: 104, c: 107}, // anchor 108, stop ratchets to 103
		{o: 107, h: 109, l: 102, c: 103}, // anchor 109, stop 104, low pierces it
	})

	sim := New(Options{
		Config:    cfg,
		Generator: longAt(0, 100, 95, 200),
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, domain.ExitReasonTrailingStop, tr.ExitReason)
	assert.InDelta(t, 104.0, tr.ExitPrice, 1e-9)
	assert.Greater(t, tr.ExitPrice, 95.0, "trailing exit must sit above the initial stop")
}

func TestRun_EndOfDataForceClose(t *testing.T) {
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 103, l: 99, c: 102},
		{o: 102, h: 104, l: 101, c: 103},
	})

	sim := New(Options{
		Config:    testConfig(),
		Generator: longAt(0, 100, 90, 200),
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, domain.ExitReasonEndOfData, tr.ExitReason)
	assert.Equal(t, 2, tr.ExitBar)
	assert.InDelta(t, 103.0, tr.ExitPrice, 1e-9)

	// The run ends flat: initial capital plus the sum of net P&L.
	var net float64
	for _, tr := range res.Trades {
		net += tr.NetPnL
	}
	assert.InDelta(t, 10000+net, res.Equity[len(res.Equity)-1].Equity, 1e-9)
	assert.InDelta(t, 10000+net, res.Report.FinalCapital, 1e-9)
}

func TestRun_NoSameBarReentry(t *testing.T) {
	// Every bar fires a long signal; each trade stops out one bar after
	// entry, and the replacement entry waits for the following bar.
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 100, l: 94, c: 96}, // stop 95 pierced
		{o: 96, h: 97, l: 95, c: 96},   // flat, re-enter here
		{o: 96, h: 96, l: 90, c: 92},   // stop 91 pierced
		{o: 92, h: 93, l: 92, c: 92},
	})

	sim := New(Options{
		Config:    testConfig(),
		Generator: alwaysGenerator{dir: domain.DirectionLong, stopDist: 5, targetDist: 500},
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(res.Trades), 2)
	for k := 1; k < len(res.Trades); k++ {
		assert.Greater(t, res.Trades[k].EntryBar, res.Trades[k-1].ExitBar,
			"a bar that closes a position must not open the next one")
	}
	assert.Equal(t, 1, res.Trades[0].ExitBar)
	assert.Equal(t, 2, res.Trades[1].EntryBar)
}

func TestRun_SignalReversalExit(t *testing.T) {
	specs := []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 102, l: 99, c: 101},
		{o: 101, h: 103, l: 100, c: 102},
		{o: 102, h: 103, l: 101, c: 102},
	}
	short := &domain.EntryIntent{
		Direction:       domain.DirectionShort,
		ReferencePrice:  102,
		SuggestedStop:   112,
		SuggestedTarget: 82,
		Rule:            "scripted",
	}
	gen := scriptedGenerator{intents: map[int]*domain.EntryIntent{
		0: longAt(0, 100, 90, 200).intents[0],
		2: short,
	}}

	t.Run("enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.AllowSignalReversalExit = true

		res, err := New(Options{Config: cfg, Generator: gen}).Run(makeFeed(t, specs))
		require.NoError(t, err)

		require.Len(t, res.Trades, 1)
		tr := res.Trades[0]
		assert.Equal(t, domain.ExitReasonSignalReversal, tr.ExitReason)
		assert.Equal(t, 2, tr.ExitBar)
		assert.InDelta(t, 102.0, tr.ExitPrice, 1e-9)
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.AllowSignalReversalExit = false

		res, err := New(Options{Config: cfg, Generator: gen}).Run(makeFeed(t, specs))
		require.NoError(t, err)

		require.Len(t, res.Trades, 1)
		assert.Equal(t, domain.ExitReasonEndOfData, res.Trades[0].ExitReason)
	})
}

func TestRun_CostAccounting(t *testing.T) {
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 109, l: 99, c: 108},
	})

	model := costs.NewModel(domain.CostConfig{
		Spread:           0.30,
		CommissionPerLot: 7.0,
		SlippagePerUnit:  0.05,
		LotUnits:         100,
		MinLotSize:       0.01,
		Leverage:         100,
		MarginUsageCap:   0.90,
		StopOutLevel:     0.20,
	})
	sim := New(Options{
		Config:    testConfig(),
		Generator: longAt(0, 100, 95, 108),
		Costs:     model,
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.InDelta(t, 40.0, tr.Size, 1e-9) // 0.4 lots

	// Entry: 12 spread + 1.40 commission + 2 slippage. Exit: 1.40 + 2.
	assert.InDelta(t, 12.0, tr.SpreadCost, 1e-9)
	assert.InDelta(t, 2.8, tr.Commission, 1e-9)
	assert.InDelta(t, 4.0, tr.Slippage, 1e-9)
	assert.InDelta(t, 320.0, tr.GrossPnL, 1e-9)
	assert.InDelta(t, 320.0-18.8, tr.NetPnL, 1e-9)

	assert.InDelta(t, 10000+tr.NetPnL, res.Equity[len(res.Equity)-1].Equity, 1e-9)
}

func TestRun_MarginRejection(t *testing.T) {
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 101, l: 99, c: 100},
	})

	model := costs.NewModel(domain.CostConfig{
		LotUnits:       100,
		MinLotSize:     0.01,
		Leverage:       1,
		MarginUsageCap: 0.10, // 40 units need 4000 margin, cap is 1000
		StopOutLevel:   0.20,
	})
	sim := New(Options{
		Config:    testConfig(),
		Generator: longAt(0, 100, 95, 120),
		Costs:     model,
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, 1, res.MarginRejected)
	assert.Equal(t, 0, res.SkippedSignals)
}

func TestRun_StopOutLiquidation(t *testing.T) {
	cfg := testConfig()
	cfg.RiskFraction = 0.5
	cfg.MaxPositionFraction = 10

	// 1000 units at 100 on 10:1 leverage. The gap to 91 takes equity to
	// 1000 against 9100 of required margin, well under the 20% level.
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 100, l: 90, c: 91},
	})

	model := costs.NewModel(domain.CostConfig{
		LotUnits:       100,
		MinLotSize:     0.01,
		Leverage:       10,
		MarginUsageCap: 5,
		StopOutLevel:   0.20,
	})
	sim := New(Options{
		Config:    cfg,
		Generator: longAt(0, 100, 99, 300),
		Costs:     model,
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, domain.ExitReasonStopOut, tr.ExitReason)
	assert.InDelta(t, 91.0, tr.ExitPrice, 1e-9)
	assert.InDelta(t, -9000.0, tr.GrossPnL, 1e-9)
}

func TestRun_FailClosedSizingSkips(t *testing.T) {
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 101, l: 99, c: 100},
	})

	// Stop at the reference price: zero stop distance, no position.
	sim := New(Options{
		Config:    testConfig(),
		Generator: longAt(0, 100, 100, 110),
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, 1, res.SkippedSignals)
}

func TestRun_VolatilityFloorCounted(t *testing.T) {
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100, noATR: true},
		{o: 100, h: 101, l: 99, c: 100, noATR: true},
		{o: 100, h: 101, l: 99, c: 100, noATR: true},
	})

	sim := New(Options{
		Config:    testConfig(),
		Generator: longAt(0, 100, 90, 200),
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	// One substitution at entry, one per managed bar.
	assert.Equal(t, 3, res.VolatilityFloorUses)
}

// terminalHook ends the run with a fixed status at a fixed bar.
type terminalHook struct {
	atBar   int
	status  domain.ChallengeStatus
	outcome *domain.ChallengeOutcome
}

func (h *terminalHook) OnBar(bar int, ts time.Time, equity float64, _ int) domain.ChallengeStatus {
	if bar < h.atBar {
		return domain.ChallengeRunning
	}
	h.outcome = &domain.ChallengeOutcome{
		Status:      h.status,
		Bar:         bar,
		Timestamp:   ts,
		FinalEquity: equity,
	}
	return h.status
}

func (h *terminalHook) Outcome() *domain.ChallengeOutcome { return h.outcome }

func TestRun_HookTerminatesRun(t *testing.T) {
	f := makeFeed(t, []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 103, l: 99, c: 102},
		{o: 102, h: 104, l: 101, c: 103},
		{o: 103, h: 105, l: 102, c: 104},
	})

	hook := &terminalHook{atBar: 2, status: domain.ChallengePassed}
	sim := New(Options{
		Config:    testConfig(),
		Generator: longAt(0, 100, 90, 300),
		Hook:      hook,
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, domain.ExitReasonChallengeEnd, tr.ExitReason)
	assert.Equal(t, 2, tr.ExitBar)
	assert.InDelta(t, 103.0, tr.ExitPrice, 1e-9)

	// Bars past the terminal one are never processed.
	require.Len(t, res.Equity, 3)
	assert.InDelta(t, 10000+tr.NetPnL, res.Equity[2].Equity, 1e-9)

	require.NotNil(t, res.Challenge)
	assert.Equal(t, domain.ChallengePassed, res.Challenge.Status)
}

func TestRun_QuietGeneratorStillReports(t *testing.T) {
	f := makeFeed(t, []barSpec{
		{o: 100, h: 101, l: 99, c: 100},
		{o: 100, h: 101, l: 99, c: 100},
	})

	sim := New(Options{
		Config:    testConfig(),
		Generator: scriptedGenerator{},
	})
	res, err := sim.Run(f)
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	require.NotNil(t, res.Report)
	assert.Equal(t, 0, res.Report.TotalTrades)
	assert.Len(t, res.Equity, 2)
	assert.Len(t, res.RunID, 64)
}

func TestRun_Deterministic(t *testing.T) {
	specs := []barSpec{
		{o: 100, h: 100, l: 100, c: 100},
		{o: 100, h: 106, l: 100, c: 105},
		{o: 105, h: 111, l: 104, c: 110},
	}
	run := func() *domain.RunResult {
		res, err := New(Options{
			Config:    testConfig(),
			Generator: longAt(0, 100, 95, 108),
		}).Run(makeFeed(t, specs))
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a.RunID, b.RunID)
	require.Equal(t, len(a.Trades), len(b.Trades))
	for i := range a.Trades {
		assert.Equal(t, a.Trades[i].TradeID, b.Trades[i].TradeID)
		assert.Equal(t, *a.Trades[i], *b.Trades[i])
	}
	assert.Equal(t, a.Report, b.Report)
}
