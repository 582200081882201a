// Package feed provides the validated, immutable bar series a
// simulation runs over. Indicator computation is external: bars arrive
// with their indicator columns already attached, and the feed only
// validates and serves them.
package feed

import (
	"errors"
	"fmt"
	"math"

	"prop-trading-lab/internal/domain"
)

// Validation errors.
var (
	ErrEmptySeries         = errors.New("bar series is empty")
	ErrNonMonotonicStamps  = errors.New("bar timestamps must be strictly increasing")
	ErrInvalidPrice        = errors.New("bar has missing, non-finite, or negative price")
	ErrInconsistentOHLC    = errors.New("bar high/low inconsistent with open/close")
)

// Feed is a read-only ordered bar series with named indicator columns.
// Construction validates the whole series up front; a Feed that exists
// is safe to simulate over.
type Feed struct {
	seriesID string
	bars     []domain.Bar
}

// New validates bars and builds a Feed. It fails fast on the first
// invalid bar rather than surfacing bad data mid-simulation.
func New(seriesID string, bars []domain.Bar) (*Feed, error) {
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}

	for i := range bars {
		b := &bars[i]
		if err := validateBar(b); err != nil {
			return nil, fmt.Errorf("bar %d (%s): %w", i, b.Timestamp.Format("2006-01-02T15:04:05Z"), err)
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return nil, fmt.Errorf("bar %d: %w", i, ErrNonMonotonicStamps)
		}
	}

	return &Feed{seriesID: seriesID, bars: bars}, nil
}

// validateBar checks a single bar's OHLC fields.
func validateBar(b *domain.Bar) error {
	for _, v := range [4]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return ErrInvalidPrice
		}
	}
	if b.High < b.Low || b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close {
		return ErrInconsistentOHLC
	}
	return nil
}

// SeriesID returns the identifier of the underlying series.
func (f *Feed) SeriesID() string { return f.seriesID }

// Len returns the number of bars.
func (f *Feed) Len() int { return len(f.bars) }

// Bar returns the bar at index i.
func (f *Feed) Bar(i int) *domain.Bar { return &f.bars[i] }

// Indicator returns the named indicator value at bar i and whether it
// is present and finite.
func (f *Feed) Indicator(i int, name string) (float64, bool) {
	v, ok := f.bars[i].Indicators[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Volatility returns the volatility unit at bar i from the configured
// column. When the stored value is absent, non-finite, or non-positive
// it substitutes close × floorFraction and reports substituted=true so
// the caller can count and log the event.
func (f *Feed) Volatility(i int, column string, floorFraction float64) (v float64, substituted bool) {
	raw, ok := f.Indicator(i, column)
	if ok && raw > 0 {
		return raw, false
	}
	return f.bars[i].Close * floorFraction, true
}
