package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/storage"
)

func testCurve(n int) []*domain.EquityPoint {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]*domain.EquityPoint, n)
	for i := range points {
		points[i] = &domain.EquityPoint{
			Bar:       i,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Equity:    10000 + float64(i)*25,
		}
	}
	return points
}

func TestEquityStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEquityStore(conn)

	curve := testCurve(4)
	require.NoError(t, store.InsertBulk(ctx, "run-001", curve))

	got, err := store.GetByRunID(ctx, "run-001")
	require.NoError(t, err)
	require.Len(t, got, 4)

	for i, p := range got {
		assert.Equal(t, i, p.Bar)
		assert.True(t, curve[i].Timestamp.Equal(p.Timestamp))
		assert.InDelta(t, curve[i].Equity, p.Equity, 1e-9)
	}
}

func TestEquityStore_DuplicateRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEquityStore(conn)

	curve := testCurve(2)
	require.NoError(t, store.InsertBulk(ctx, "run-001", curve))

	// A curve is written once per run.
	err := store.InsertBulk(ctx, "run-001", curve)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, "run-002", curve))
}

func TestEquityStore_EmptyRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEquityStore(conn)

	got, err := store.GetByRunID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
