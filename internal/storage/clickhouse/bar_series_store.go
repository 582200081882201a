package clickhouse

import (
	"context"
	"fmt"
	"time"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/storage"
)

// BarSeriesStore implements storage.BarSeriesStore using ClickHouse.
type BarSeriesStore struct {
	conn *Conn
}

// NewBarSeriesStore creates a new BarSeriesStore.
func NewBarSeriesStore(conn *Conn) *BarSeriesStore {
	return &BarSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarSeriesStore = (*BarSeriesStore)(nil)

// InsertBulk adds bars to a series. Fails the entire batch on a
// duplicate (series_id, timestamp). MergeTree does not enforce
// uniqueness, so duplicates are checked explicitly before the insert.
func (s *BarSeriesStore) InsertBulk(ctx context.Context, seriesID string, bars []*domain.Bar) error {
	if seriesID == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	// Intra-batch duplicates
	seen := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		ts := b.Timestamp.UnixNano()
		if _, exists := seen[ts]; exists {
			return storage.ErrDuplicateKey
		}
		seen[ts] = struct{}{}
	}

	// Duplicates against existing rows
	for _, b := range bars {
		exists, err := s.exists(ctx, seriesID, b.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (series_id, ts, open, high, low, close, indicators)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		indicators := b.Indicators
		if indicators == nil {
			indicators = map[string]float64{}
		}
		err = batch.Append(seriesID, b.Timestamp, b.Open, b.High, b.Low, b.Close, indicators)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySeriesID retrieves all bars of a series, ordered by timestamp ASC.
func (s *BarSeriesStore) GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.Bar, error) {
	query := `
		SELECT ts, open, high, low, close, indicators
		FROM bars
		WHERE series_id = ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("query by series id: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetByTimeRange retrieves bars of a series within [start, end] (inclusive).
func (s *BarSeriesStore) GetByTimeRange(ctx context.Context, seriesID string, start, end time.Time) ([]*domain.Bar, error) {
	query := `
		SELECT ts, open, high, low, close, indicators
		FROM bars
		WHERE series_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, seriesID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// ListSeries returns the distinct series IDs, sorted.
func (s *BarSeriesStore) ListSeries(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT series_id FROM bars ORDER BY series_id ASC`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan series id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series ids: %w", err)
	}
	return ids, nil
}

// exists checks if a bar with the given key exists.
func (s *BarSeriesStore) exists(ctx context.Context, seriesID string, ts time.Time) (bool, error) {
	query := `SELECT count(*) FROM bars WHERE series_id = ? AND ts = ?`

	var count uint64
	err := s.conn.QueryRow(ctx, query, seriesID, ts).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanBars scans multiple rows.
func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var b domain.Bar
		var indicators map[string]float64

		err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &indicators)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		if len(indicators) > 0 {
			b.Indicators = indicators
		}
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
