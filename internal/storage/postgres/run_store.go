package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, strategy_id, series_id, created_at,
	initial_capital, final_capital, net_profit, total_return,
	total_trades, win_rate, profit_factor, max_drawdown, sharpe_ratio,
	skipped_signals, margin_rejected, volatility_floor_uses,
	challenge_status, challenge_fail_reason
`

// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO runs (` + runColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16,
			$17, $18
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.StrategyID, r.SeriesID, r.CreatedAt,
		r.InitialCapital, r.FinalCapital, r.NetProfit, r.TotalReturn,
		r.TotalTrades, r.WinRate, r.ProfitFactor, r.MaxDrawdown, r.SharpeRatio,
		r.SkippedSignals, r.MarginRejected, r.VolatilityFloorUses,
		r.ChallengeStatus, r.ChallengeFailReason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// GetByStrategy retrieves all runs of a strategy, newest first.
func (s *RunStore) GetByStrategy(ctx context.Context, strategyID string) ([]*domain.RunRecord, error) {
	query := `
		SELECT ` + runColumns + ` FROM runs
		WHERE strategy_id = $1
		ORDER BY created_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get runs by strategy: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetAll retrieves all runs, newest first.
func (s *RunStore) GetAll(ctx context.Context) ([]*domain.RunRecord, error) {
	query := `
		SELECT ` + runColumns + ` FROM runs
		ORDER BY created_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// scanRun scans a single row into a RunRecord.
func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord

	err := row.Scan(
		&r.RunID, &r.StrategyID, &r.SeriesID, &r.CreatedAt,
		&r.InitialCapital, &r.FinalCapital, &r.NetProfit, &r.TotalReturn,
		&r.TotalTrades, &r.WinRate, &r.ProfitFactor, &r.MaxDrawdown, &r.SharpeRatio,
		&r.SkippedSignals, &r.MarginRejected, &r.VolatilityFloorUses,
		&r.ChallengeStatus, &r.ChallengeFailReason,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// scanRuns scans multiple rows into a slice of RunRecord.
func scanRuns(rows pgx.Rows) ([]*domain.RunRecord, error) {
	var runs []*domain.RunRecord

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}
