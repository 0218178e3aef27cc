package memory

import (
	"context"
	"testing"
	"time"

	charging "blastcharge/internal/charging/domain"
)

func storedColumn(entityName, holeID string) *charging.HoleCharging {
	column := charging.NewHoleCharging(entityName, holeID, 200, 12)
	column.FillInterval(0, 4, charging.DeckInert, charging.ProductSnapshot{Name: "Stemming", Density: 1.8})
	column.FillInterval(4, 12, charging.DeckCoupled, charging.ProductSnapshot{Name: "ANFO", Density: 0.85})
	return column
}

func TestStoreGetMissing(t *testing.T) {
	store := NewChargingStore()
	column, err := store.Get(context.Background(), "bench-1", "H001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if column != nil {
		t.Fatalf("uncharged hole should read nil, got %+v", column)
	}
}

func TestStoreSaveSetsTimestamps(t *testing.T) {
	store := NewChargingStore()
	ctx := context.Background()
	column := storedColumn("bench-1", "H001")
	column.CreatedAt = time.Time{}
	column.UpdatedAt = time.Time{}

	if err := store.Save(ctx, column); err != nil {
		t.Fatalf("save: %v", err)
	}
	stored, err := store.Get(ctx, "bench-1", "H001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.CreatedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", stored)
	}
}

func TestStoreIsolatesCallers(t *testing.T) {
	store := NewChargingStore()
	ctx := context.Background()
	column := storedColumn("bench-1", "H001")
	if err := store.Save(ctx, column); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the saved column must not leak into the store.
	column.Decks[0].TopDepth = 99
	first, err := store.Get(ctx, "bench-1", "H001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.Decks[0].TopDepth == 99 {
		t.Fatalf("store shares state with the writer")
	}

	// Mutating a read column must not leak either.
	first.Decks[0].TopDepth = 42
	second, err := store.Get(ctx, "bench-1", "H001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second.Decks[0].TopDepth == 42 {
		t.Fatalf("store shares state with readers")
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store := NewChargingStore()
	ctx := context.Background()
	if err := store.Save(ctx, storedColumn("bench-1", "H001")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "bench-1", "H001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "bench-1", "H001"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	column, err := store.Get(ctx, "bench-1", "H001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if column != nil {
		t.Fatalf("deleted column still readable")
	}
}

func TestStoreListFiltersAndSorts(t *testing.T) {
	store := NewChargingStore()
	ctx := context.Background()
	for _, key := range [][2]string{{"bench-1", "H003"}, {"bench-1", "H001"}, {"bench-2", "H002"}} {
		if err := store.Save(ctx, storedColumn(key[0], key[1])); err != nil {
			t.Fatalf("save %v: %v", key, err)
		}
	}

	columns, err := store.List(ctx, "bench-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(columns) != 2 || columns[0].HoleID != "H001" || columns[1].HoleID != "H003" {
		t.Fatalf("expected sorted bench-1 columns, got %d", len(columns))
	}
}
