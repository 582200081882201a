package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, run_id, direction,
	entry_price, exit_price, size,
	gross_pnl, net_pnl,
	spread_cost, commission, slippage,
	exit_reason, entry_bar, exit_bar, entry_time, exit_time
`

const insertTradeQuery = `
	INSERT INTO trades (` + tradeColumns + `) VALUES (
		$1, $2, $3,
		$4, $5, $6,
		$7, $8,
		$9, $10, $11,
		$12, $13, $14, $15, $16
	)
`

// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.ClosedTrade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeQuery, tradeArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.ClosedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertTradeQuery, tradeArgs(t)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.ClosedTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades of a run, ordered by entry bar ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ClosedTrade, error) {
	query := `
		SELECT ` + tradeColumns + ` FROM trades
		WHERE run_id = $1
		ORDER BY entry_bar ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func tradeArgs(t *domain.ClosedTrade) []any {
	return []any{
		t.TradeID, t.RunID, string(t.Direction),
		t.EntryPrice, t.ExitPrice, t.Size,
		t.GrossPnL, t.NetPnL,
		t.SpreadCost, t.Commission, t.Slippage,
		t.ExitReason, t.EntryBar, t.ExitBar, t.EntryTime, t.ExitTime,
	}
}

// scanTrade scans a single row into a ClosedTrade.
func scanTrade(row pgx.Row) (*domain.ClosedTrade, error) {
	var t domain.ClosedTrade
	var direction string

	err := row.Scan(
		&t.TradeID, &t.RunID, &direction,
		&t.EntryPrice, &t.ExitPrice, &t.Size,
		&t.GrossPnL, &t.NetPnL,
		&t.SpreadCost, &t.Commission, &t.Slippage,
		&t.ExitReason, &t.EntryBar, &t.ExitBar, &t.EntryTime, &t.ExitTime,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = domain.Direction(direction)
	return &t, nil
}

// scanTrades scans multiple rows into a slice of ClosedTrade.
func scanTrades(rows pgx.Rows) ([]*domain.ClosedTrade, error) {
	var trades []*domain.ClosedTrade

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
