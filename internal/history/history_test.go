package history

import (
	"context"
	"testing"
	"time"

	"bithumb-rebalance-bot/internal/rebalance"
)

func TestAppendAndRecent(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.UnixMilli(1700000000000)
	for i := 0; i < 3; i++ {
		snap := rebalance.NewSnapshot(600000-float64(i)*1000, 0.001*float64(i), 60000000)
		if err := store.Append(ctx, base.Add(time.Duration(i)*time.Hour), snap); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	rows, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !rows[0].Time.After(rows[1].Time) {
		t.Fatalf("expected newest first, got %v then %v", rows[0].Time, rows[1].Time)
	}
	if rows[0].AssetBalance != 0.002 {
		t.Fatalf("unexpected newest row %+v", rows[0])
	}
}

func TestRecentEmpty(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	rows, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}
