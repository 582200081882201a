package memory

import (
	"context"
	"sort"
	"sync"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/storage"
)

// EquityStore is an in-memory implementation of storage.EquityStore.
type EquityStore struct {
	mu   sync.RWMutex
	data map[string]map[int]*domain.EquityPoint // run_id -> bar -> point
}

// NewEquityStore creates a new in-memory equity store.
func NewEquityStore() *EquityStore {
	return &EquityStore{
		data: make(map[string]map[int]*domain.EquityPoint),
	}
}

// InsertBulk adds the equity curve of a run. Fails the entire batch on
// a duplicate (run_id, bar).
func (s *EquityStore) InsertBulk(_ context.Context, runID string, points []*domain.EquityPoint) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	curve := s.data[runID]
	if curve == nil {
		curve = make(map[int]*domain.EquityPoint)
		s.data[runID] = curve
	}

	batchKeys := make(map[int]struct{}, len(points))
	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := curve[p.Bar]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[p.Bar]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[p.Bar] = struct{}{}
	}

	for _, p := range points {
		copy := *p
		curve[p.Bar] = &copy
	}

	return nil
}

// GetByRunID retrieves the equity curve of a run, ordered by bar ASC.
func (s *EquityStore) GetByRunID(_ context.Context, runID string) ([]*domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquityPoint
	for _, p := range s.data[runID] {
		copy := *p
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Bar < result[j].Bar
	})

	return result, nil
}

var _ storage.EquityStore = (*EquityStore)(nil)
