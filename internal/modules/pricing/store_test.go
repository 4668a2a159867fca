package pricing

import (
	"context"
	"errors"
	"testing"

	"ridebook/internal/testutil"
)

func TestStore_MatchesDefaultCatalog(t *testing.T) {
	store := NewStore(testutil.Postgres(t))
	ctx := context.Background()

	tiers, err := store.Tiers(ctx)
	if err != nil {
		t.Fatalf("tiers: %v", err)
	}
	want := DefaultTiers()
	if len(tiers) != len(want) {
		t.Fatalf("got %d tiers, want %d", len(tiers), len(want))
	}
	for i := range want {
		got := tiers[i]
		if got.ID != want[i].ID || got.DisplayName != want[i].DisplayName || got.RatePerKm != want[i].RatePerKm || got.Capacity != want[i].Capacity {
			t.Errorf("tier %d = %+v, want %+v", i, got, want[i])
		}
		if len(got.Brackets) != len(want[i].Brackets) {
			t.Errorf("tier %d has %d brackets, want %d", got.ID, len(got.Brackets), len(want[i].Brackets))
		}
	}

	honda, err := store.Tier(ctx, 1)
	if err != nil {
		t.Fatalf("tier 1: %v", err)
	}
	if q := (Bracketed{}).Quote(&honda, km(20)); q == nil || q.Total != 360 {
		t.Errorf("bracketed quote from stored tier = %+v, want total 360", q)
	}

	if _, err := store.Tier(ctx, 404); !errors.Is(err, ErrTierNotFound) {
		t.Errorf("expected ErrTierNotFound, got %v", err)
	}
}
