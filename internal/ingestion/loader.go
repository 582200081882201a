package ingestion

import (
	"context"
	"fmt"
	"log"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
	"prop-trading-lab/internal/storage"
)

// Loader reads indicator CSV files and writes the bars to a series store.
type Loader struct {
	store  storage.BarSeriesStore
	logger *log.Logger
}

// NewLoader creates a CSV loader writing to the given store.
func NewLoader(store storage.BarSeriesStore, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{store: store, logger: logger}
}

// LoadCSV parses an indicator CSV file and inserts its bars under the
// given series ID. Returns the number of bars inserted.
func (l *Loader) LoadCSV(ctx context.Context, seriesID, path string) (int, error) {
	f, err := feed.LoadCSV(seriesID, path)
	if err != nil {
		return 0, fmt.Errorf("load csv: %w", err)
	}

	bars := make([]*domain.Bar, f.Len())
	for i := range bars {
		bars[i] = f.Bar(i)
	}

	if err := l.store.InsertBulk(ctx, seriesID, bars); err != nil {
		return 0, fmt.Errorf("insert bars: %w", err)
	}

	l.logger.Printf("loaded %d bars into series %s from %s", len(bars), seriesID, path)
	return len(bars), nil
}
