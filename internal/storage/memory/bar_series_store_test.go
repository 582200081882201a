package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/storage"
)

func testBars(n int) []*domain.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, n)
	for i := range bars {
		bars[i] = &domain.Bar{
			Timestamp:  start.Add(time.Duration(i) * time.Hour),
			Open:       100,
			High:       101,
			Low:        99,
			Close:      100.5,
			Indicators: map[string]float64{domain.IndicatorATR: 1.5},
		}
	}
	return bars
}

func TestBarSeriesStore_InsertAndGet(t *testing.T) {
	store := NewBarSeriesStore()
	ctx := context.Background()

	bars := testBars(3)
	if err := store.InsertBulk(ctx, "xauusd", bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySeriesID(ctx, "xauusd")
	if err != nil {
		t.Fatalf("GetBySeriesID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 bars, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Error("Bars not ordered by timestamp ASC")
		}
	}

	// Indicator maps must be copied, not shared.
	got[0].Indicators[domain.IndicatorATR] = 99
	again, _ := store.GetBySeriesID(ctx, "xauusd")
	if again[0].Indicators[domain.IndicatorATR] != 1.5 {
		t.Error("store returned a shared indicator map instead of a copy")
	}
}

func TestBarSeriesStore_DuplicateTimestamp(t *testing.T) {
	store := NewBarSeriesStore()
	ctx := context.Background()

	bars := testBars(2)
	if err := store.InsertBulk(ctx, "xauusd", bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	err := store.InsertBulk(ctx, "xauusd", bars[:1])
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// The same timestamps under a different series are fine.
	if err := store.InsertBulk(ctx, "eurusd", bars); err != nil {
		t.Errorf("Insert into second series failed: %v", err)
	}
}

func TestBarSeriesStore_GetByTimeRange(t *testing.T) {
	store := NewBarSeriesStore()
	ctx := context.Background()

	bars := testBars(5)
	if err := store.InsertBulk(ctx, "xauusd", bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, "xauusd", bars[1].Timestamp, bars[3].Timestamp)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 bars in inclusive range, got %d", len(got))
	}
}

func TestBarSeriesStore_ListSeries(t *testing.T) {
	store := NewBarSeriesStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, "xauusd", testBars(1))
	_ = store.InsertBulk(ctx, "eurusd", testBars(1))

	ids, err := store.ListSeries(ctx)
	if err != nil {
		t.Fatalf("ListSeries failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "eurusd" || ids[1] != "xauusd" {
		t.Errorf("Expected sorted [eurusd xauusd], got %v", ids)
	}
}
