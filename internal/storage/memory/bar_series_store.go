package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/storage"
)

// BarSeriesStore is an in-memory implementation of storage.BarSeriesStore.
type BarSeriesStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.Bar // series_id -> unix timestamp -> bar
}

// NewBarSeriesStore creates a new in-memory bar series store.
func NewBarSeriesStore() *BarSeriesStore {
	return &BarSeriesStore{
		data: make(map[string]map[int64]*domain.Bar),
	}
}

// InsertBulk adds bars to a series. Fails the entire batch on a
// duplicate (series_id, timestamp).
func (s *BarSeriesStore) InsertBulk(_ context.Context, seriesID string, bars []*domain.Bar) error {
	if seriesID == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.data[seriesID]
	if series == nil {
		series = make(map[int64]*domain.Bar)
		s.data[seriesID] = series
	}

	batchKeys := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		ts := b.Timestamp.UnixNano()
		if _, exists := series[ts]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[ts]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[ts] = struct{}{}
	}

	for _, b := range bars {
		series[b.Timestamp.UnixNano()] = copyBar(b)
	}

	return nil
}

// GetBySeriesID retrieves all bars of a series, ordered by timestamp ASC.
func (s *BarSeriesStore) GetBySeriesID(_ context.Context, seriesID string) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data[seriesID] {
		result = append(result, copyBar(b))
	}

	sortBarsByTime(result)
	return result, nil
}

// GetByTimeRange retrieves bars of a series within [start, end] (inclusive).
func (s *BarSeriesStore) GetByTimeRange(_ context.Context, seriesID string, start, end time.Time) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data[seriesID] {
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		result = append(result, copyBar(b))
	}

	sortBarsByTime(result)
	return result, nil
}

// ListSeries returns the distinct series IDs, sorted.
func (s *BarSeriesStore) ListSeries(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func copyBar(b *domain.Bar) *domain.Bar {
	copy := *b
	if b.Indicators != nil {
		copy.Indicators = make(map[string]float64, len(b.Indicators))
		for k, v := range b.Indicators {
			copy.Indicators[k] = v
		}
	}
	return &copy
}

func sortBarsByTime(bars []*domain.Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
}

var _ storage.BarSeriesStore = (*BarSeriesStore)(nil)
