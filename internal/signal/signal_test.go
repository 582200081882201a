package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
)

func testLevels() Levels {
	return Levels{
		VolatilityColumn:        domain.IndicatorATR,
		VolatilityFloorFraction: 0.01,
		StopVolatilityMult:      1.5,
		TargetVolatilityMult:    3.0,
	}
}

// barRow is a compact fixture row: close plus the indicator columns
// the generators read.
type barRow struct {
	close      float64
	emaFast    float64
	emaSlow    float64
	emaTrend   float64
	rsi        float64
	macd       float64
	macdSignal float64
}

func makeFeed(t *testing.T, rows []barRow) *feed.Feed {
	t.Helper()
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(rows))
	for i, r := range rows {
		bars[i] = domain.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      r.close,
			High:      r.close + 1,
			Low:       r.close - 1,
			Close:     r.close,
			Indicators: map[string]float64{
				domain.IndicatorATR:        2.0,
				domain.IndicatorEMAFast:    r.emaFast,
				domain.IndicatorEMASlow:    r.emaSlow,
				domain.IndicatorEMATrend:   r.emaTrend,
				domain.IndicatorRSI:        r.rsi,
				domain.IndicatorMACD:       r.macd,
				domain.IndicatorMACDSignal: r.macdSignal,
			},
		}
	}
	f, err := feed.New("signal-test", bars)
	require.NoError(t, err)
	return f
}

func TestEMACross_LongOnCrossUp(t *testing.T) {
	f := makeFeed(t, []barRow{
		{close: 100, emaFast: 99.0, emaSlow: 99.5, emaTrend: 95, rsi: 50},
		{close: 102, emaFast: 100.0, emaSlow: 99.6, emaTrend: 95, rsi: 55},
	})

	g := NewEMACross(testLevels())
	intent := g.Evaluate(f, 1)
	require.NotNil(t, intent)
	assert.Equal(t, domain.DirectionLong, intent.Direction)
	assert.Equal(t, 102.0, intent.ReferencePrice)
	// stop = close - 1.5*ATR, target = close + 3*ATR
	assert.InDelta(t, 99.0, intent.SuggestedStop, 1e-9)
	assert.InDelta(t, 108.0, intent.SuggestedTarget, 1e-9)

	// No cross on the same relative positions next bar
	assert.Nil(t, g.Evaluate(f, 0), "warm-up bar must not fire")
}

func TestEMACross_TrendFilterBlocksCounterTrend(t *testing.T) {
	// Cross up but close below the trend EMA: no trade.
	f := makeFeed(t, []barRow{
		{close: 100, emaFast: 99.0, emaSlow: 99.5, emaTrend: 110},
		{close: 100, emaFast: 100.0, emaSlow: 99.6, emaTrend: 110},
	})

	g := NewEMACross(testLevels())
	assert.Nil(t, g.Evaluate(f, 1))
}

func TestEMACross_ShortOnCrossDown(t *testing.T) {
	f := makeFeed(t, []barRow{
		{close: 100, emaFast: 100.0, emaSlow: 99.5, emaTrend: 105},
		{close: 98, emaFast: 99.0, emaSlow: 99.4, emaTrend: 105},
	})

	g := NewEMACross(testLevels())
	intent := g.Evaluate(f, 1)
	require.NotNil(t, intent)
	assert.Equal(t, domain.DirectionShort, intent.Direction)
	assert.InDelta(t, 101.0, intent.SuggestedStop, 1e-9)
	assert.InDelta(t, 92.0, intent.SuggestedTarget, 1e-9)
}

func TestRSIReversal_OversoldBounce(t *testing.T) {
	f := makeFeed(t, []barRow{
		{close: 100, rsi: 22, emaTrend: 95},
		{close: 101, rsi: 31, emaTrend: 95},
	})

	g := NewRSIReversal(testLevels(), 25, 75)
	intent := g.Evaluate(f, 1)
	require.NotNil(t, intent)
	assert.Equal(t, domain.DirectionLong, intent.Direction)

	// Bounce that has not cleared the recovery offset does not fire.
	f2 := makeFeed(t, []barRow{
		{close: 100, rsi: 22, emaTrend: 95},
		{close: 101, rsi: 27, emaTrend: 95},
	})
	assert.Nil(t, g.Evaluate(f2, 1))
}

func TestRSIReversal_OverboughtFade(t *testing.T) {
	f := makeFeed(t, []barRow{
		{close: 100, rsi: 80, emaTrend: 105},
		{close: 99, rsi: 68, emaTrend: 105},
	})

	g := NewRSIReversal(testLevels(), 25, 75)
	intent := g.Evaluate(f, 1)
	require.NotNil(t, intent)
	assert.Equal(t, domain.DirectionShort, intent.Direction)
}

func TestMACDCross_Long(t *testing.T) {
	f := makeFeed(t, []barRow{
		{close: 100, macd: -0.5, macdSignal: -0.2, emaTrend: 95},
		{close: 101, macd: 0.1, macdSignal: -0.1, emaTrend: 95},
	})

	g := NewMACDCross(testLevels())
	intent := g.Evaluate(f, 1)
	require.NotNil(t, intent)
	assert.Equal(t, domain.DirectionLong, intent.Direction)
}

func TestComposite_ConflictCancels(t *testing.T) {
	long := stubGenerator{intent: &domain.EntryIntent{Direction: domain.DirectionLong}}
	short := stubGenerator{intent: &domain.EntryIntent{Direction: domain.DirectionShort}}
	quiet := stubGenerator{}

	f := makeFeed(t, []barRow{{close: 100}, {close: 100}})

	assert.Nil(t, NewComposite(long, short).Evaluate(f, 1), "opposing votes must cancel")
	assert.Nil(t, NewComposite(quiet, quiet).Evaluate(f, 1))

	got := NewComposite(quiet, long, long).Evaluate(f, 1)
	require.NotNil(t, got)
	assert.Equal(t, domain.DirectionLong, got.Direction)
}

// stubGenerator returns a fixed intent on every bar.
type stubGenerator struct {
	intent *domain.EntryIntent
}

func (s stubGenerator) Evaluate(_ *feed.Feed, _ int) *domain.EntryIntent { return s.intent }
func (s stubGenerator) WarmupBars() int                                  { return 0 }
func (s stubGenerator) ID() string                                       { return "STUB" }

func TestNoLookAhead_TruncationInvariance(t *testing.T) {
	rows := []barRow{
		{close: 100, emaFast: 99.0, emaSlow: 99.5, emaTrend: 95, rsi: 50, macd: -0.3, macdSignal: -0.1},
		{close: 102, emaFast: 100.0, emaSlow: 99.6, emaTrend: 95, rsi: 55, macd: 0.2, macdSignal: 0.0},
		{close: 101, emaFast: 100.2, emaSlow: 99.8, emaTrend: 95, rsi: 60, macd: 0.3, macdSignal: 0.1},
		{close: 90, emaFast: 95.0, emaSlow: 99.0, emaTrend: 95, rsi: 20, macd: -1.0, macdSignal: -0.2},
	}

	full := makeFeed(t, rows)
	truncated := makeFeed(t, rows[:2])

	gens := []Generator{
		NewEMACross(testLevels()),
		NewRSIReversal(testLevels(), 25, 75),
		NewMACDCross(testLevels()),
	}

	// Signals at bar 1 must be identical whether or not future bars exist.
	for _, g := range gens {
		a := g.Evaluate(full, 1)
		b := g.Evaluate(truncated, 1)
		assert.Equal(t, a, b, "%s output changed when future bars were removed", g.ID())
	}
}

func TestFromConfig(t *testing.T) {
	levels := testLevels()
	oversold, overbought := 25.0, 75.0

	tests := []struct {
		name    string
		cfg     domain.SignalConfig
		wantErr error
		wantID  string
	}{
		{
			name:   "ema cross",
			cfg:    domain.SignalConfig{SignalType: domain.SignalTypeEMACross},
			wantID: "EMA_CROSS_stop1.5_target3.0",
		},
		{
			name: "rsi reversal",
			cfg: domain.SignalConfig{
				SignalType: domain.SignalTypeRSIReversal,
				Oversold:   &oversold,
				Overbought: &overbought,
			},
			wantID: "RSI_REVERSAL_os25_ob75",
		},
		{
			name:    "rsi missing oversold",
			cfg:     domain.SignalConfig{SignalType: domain.SignalTypeRSIReversal, Overbought: &overbought},
			wantErr: ErrMissingOversold,
		},
		{
			name:    "empty composite",
			cfg:     domain.SignalConfig{SignalType: domain.SignalTypeComposite},
			wantErr: ErrEmptyComposite,
		},
		{
			name:    "unknown type",
			cfg:     domain.SignalConfig{SignalType: "MYSTERY"},
			wantErr: ErrUnknownSignalType,
		},
		{
			name: "composite of known types",
			cfg: domain.SignalConfig{
				SignalType: domain.SignalTypeComposite,
				Members: []domain.SignalConfig{
					{SignalType: domain.SignalTypeEMACross},
					{SignalType: domain.SignalTypeMACDCross},
				},
			},
			wantID: "COMPOSITE(EMA_CROSS_stop1.5_target3.0+MACD_CROSS_stop1.5_target3.0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := FromConfig(tt.cfg, levels)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, g.ID())
		})
	}
}
