package storage

import (
	"context"
	"time"

	"prop-trading-lab/internal/domain"
)

// BarSeriesStore provides access to stored OHLC bar series.
type BarSeriesStore interface {
	// InsertBulk adds bars to a series. Fails the entire batch on a
	// duplicate (series_id, timestamp).
	InsertBulk(ctx context.Context, seriesID string, bars []*domain.Bar) error

	// GetBySeriesID retrieves all bars of a series, ordered by timestamp ASC.
	GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.Bar, error)

	// GetByTimeRange retrieves bars of a series within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, seriesID string, start, end time.Time) ([]*domain.Bar, error)

	// ListSeries returns the distinct series IDs, sorted.
	ListSeries(ctx context.Context) ([]string, error)
}

// RunStore provides access to run summary records.
type RunStore interface {
	// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByStrategy retrieves all runs of a strategy, newest first.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.RunRecord, error)

	// GetAll retrieves all runs, newest first.
	GetAll(ctx context.Context) ([]*domain.RunRecord, error)
}

// TradeStore provides access to closed trades.
type TradeStore interface {
	// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.ClosedTrade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on
	// any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.ClosedTrade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.ClosedTrade, error)

	// GetByRunID retrieves all trades of a run, ordered by entry bar ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.ClosedTrade, error)
}

// EquityStore provides access to per-run equity curves.
type EquityStore interface {
	// InsertBulk adds the equity curve of a run. Fails the entire batch
	// on a duplicate (run_id, bar).
	InsertBulk(ctx context.Context, runID string, points []*domain.EquityPoint) error

	// GetByRunID retrieves the equity curve of a run, ordered by bar ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.EquityPoint, error)
}
