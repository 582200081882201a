package sizing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"prop-trading-lab/internal/domain"
)

func TestSize_RiskBased(t *testing.T) {
	// 2% of 10000 = 200 risked over a 30-point stop distance.
	s := New(0.02, 10.0) // cap generous enough not to bind
	intent := &domain.EntryIntent{
		Direction:      domain.DirectionLong,
		ReferencePrice: 2000,
		SuggestedStop:  1970,
	}

	got := s.Size(intent, 10000)
	assert.InDelta(t, 6.667, got.Size, 0.001)
	assert.Equal(t, 200.0, got.RiskAmount)
	assert.Equal(t, 1970.0, got.StopLoss)
}

func TestSize_NotionalCap(t *testing.T) {
	// Tight cap binds: max notional 10% of 10000 at price 2000 = 0.5 units.
	s := New(0.02, 0.10)
	intent := &domain.EntryIntent{
		Direction:      domain.DirectionLong,
		ReferencePrice: 2000,
		SuggestedStop:  1970,
	}

	got := s.Size(intent, 10000)
	assert.InDelta(t, 0.5, got.Size, 1e-9)
}

func TestSize_FailsClosed(t *testing.T) {
	s := New(0.02, 0.10)

	tests := []struct {
		name   string
		intent domain.EntryIntent
		equity float64
	}{
		{
			name:   "zero stop distance",
			intent: domain.EntryIntent{ReferencePrice: 2000, SuggestedStop: 2000},
			equity: 10000,
		},
		{
			name:   "NaN stop",
			intent: domain.EntryIntent{ReferencePrice: 2000, SuggestedStop: math.NaN()},
			equity: 10000,
		},
		{
			name:   "zero equity",
			intent: domain.EntryIntent{ReferencePrice: 2000, SuggestedStop: 1970},
			equity: 0,
		},
		{
			name:   "negative equity",
			intent: domain.EntryIntent{ReferencePrice: 2000, SuggestedStop: 1970},
			equity: -500,
		},
		{
			name:   "zero reference price",
			intent: domain.EntryIntent{ReferencePrice: 0, SuggestedStop: -30},
			equity: 10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Size(&tt.intent, tt.equity)
			assert.Zero(t, got.Size, "sizing must fail closed, never produce size")
		})
	}
}

func TestSize_ShortUsesAbsoluteDistance(t *testing.T) {
	s := New(0.02, 10.0)
	intent := &domain.EntryIntent{
		Direction:      domain.DirectionShort,
		ReferencePrice: 2000,
		SuggestedStop:  2030,
	}

	got := s.Size(intent, 10000)
	assert.InDelta(t, 6.667, got.Size, 0.001, "short sizing mirrors long")
}
