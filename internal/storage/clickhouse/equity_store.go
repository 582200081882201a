package clickhouse

import (
	"context"
	"fmt"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/storage"
)

// EquityStore implements storage.EquityStore using ClickHouse.
type EquityStore struct {
	conn *Conn
}

// NewEquityStore creates a new EquityStore.
func NewEquityStore(conn *Conn) *EquityStore {
	return &EquityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EquityStore = (*EquityStore)(nil)

// InsertBulk adds the equity curve of a run. Fails the entire batch on
// a duplicate (run_id, bar).
func (s *EquityStore) InsertBulk(ctx context.Context, runID string, points []*domain.EquityPoint) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	// Intra-batch duplicates
	seen := make(map[int]struct{}, len(points))
	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[p.Bar]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.Bar] = struct{}{}
	}

	// Equity curves are written whole, once per run, so an existing
	// curve for the run means a duplicate write.
	exists, err := s.exists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO equity_points (run_id, bar, ts, equity)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(runID, uint32(p.Bar), p.Timestamp, p.Equity); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves the equity curve of a run, ordered by bar ASC.
func (s *EquityStore) GetByRunID(ctx context.Context, runID string) ([]*domain.EquityPoint, error) {
	query := `
		SELECT bar, ts, equity
		FROM equity_points
		WHERE run_id = ?
		ORDER BY bar ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	var points []*domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		var bar uint32

		if err := rows.Scan(&bar, &p.Timestamp, &p.Equity); err != nil {
			return nil, fmt.Errorf("scan equity row: %w", err)
		}

		p.Bar = int(bar)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity rows: %w", err)
	}

	return points, nil
}

// exists checks if any points are stored for the run.
func (s *EquityStore) exists(ctx context.Context, runID string) (bool, error) {
	query := `SELECT count(*) FROM equity_points WHERE run_id = ?`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
