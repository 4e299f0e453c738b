package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/searchqa/eval-engine/internal/models"
	"github.com/searchqa/eval-engine/internal/storage"
)

func testSeed() []models.Item {
	return []models.Item{
		{
			ID:          "item-a",
			Query:       "wireless mouse",
			Title:       "Ergo Mouse",
			Description: "A quiet wireless mouse",
			Category:    "Electronics",
			Attributes: []models.Attribute{
				{Name: "brand", Value: models.StringValue("Ergo")},
			},
		},
		{
			ID:          "item-b",
			Query:       "running shoes",
			Title:       "Trail Runner",
			Description: "Cushioned trail running shoes",
			Category:    "Sports",
		},
		{
			ID:          "item-c",
			Query:       "usb cable",
			Title:       "USB-C Cable",
			Description: "Braided 2m cable",
			Category:    "Electronics",
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.NewMemoryStore(), testSeed())
}

func TestStoreSeedsOnFirstLoad(t *testing.T) {
	repo := storage.NewMemoryStore()
	store := NewStore(repo, testSeed())
	ctx := context.Background()

	items, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}

	// First load must have committed the seed to the state store
	if _, err := repo.Get(ctx, storage.BucketCatalog); err != nil {
		t.Errorf("catalog bucket not persisted after first load: %v", err)
	}
}

func TestStoreFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{"no filter", Filter{}, []string{"item-a", "item-b", "item-c"}},
		{"category", Filter{Category: "Electronics"}, []string{"item-a", "item-c"}},
		{"text in title", Filter{Text: "trail"}, []string{"item-b"}},
		{"text in query", Filter{Text: "mouse"}, []string{"item-a"}},
		{"text and category", Filter{Text: "cable", Category: "Electronics"}, []string{"item-c"}},
		{"no match", Filter{Text: "nonexistent"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := store.Find(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			got := make([]string, 0, len(items))
			for _, item := range items {
				got = append(got, item.ID)
			}
			if !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("got %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestStoreGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.Get(ctx, "item-b")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if item.Title != "Trail Runner" {
		t.Errorf("got title %q, want Trail Runner", item.Title)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Get missing item: got %v, want ErrItemNotFound", err)
	}
}

func TestStoreNextAvailableOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.NextAvailable(ctx)
	if err != nil {
		t.Fatalf("NextAvailable failed: %v", err)
	}
	if first.ID != "item-a" {
		t.Fatalf("first available = %s, want item-a", first.ID)
	}

	if _, err := store.setClaimed(ctx, "item-a", true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	second, err := store.NextAvailable(ctx)
	if err != nil {
		t.Fatalf("NextAvailable failed: %v", err)
	}
	if second.ID != "item-b" {
		t.Errorf("next available after claiming item-a = %s, want item-b", second.ID)
	}
}

func TestStoreNextAvailableExhausted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"item-a", "item-b", "item-c"} {
		if _, err := store.setClaimed(ctx, id, true); err != nil {
			t.Fatalf("claim %s failed: %v", id, err)
		}
	}

	if _, err := store.NextAvailable(ctx); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("got %v, want ErrPoolExhausted", err)
	}
}

func TestStoreClaimSetsClaimedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	claimed, err := store.setClaimed(ctx, "item-a", true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if !claimed.Claimed || claimed.ClaimedAt == nil {
		t.Errorf("claimed item: Claimed=%v ClaimedAt=%v, want both set", claimed.Claimed, claimed.ClaimedAt)
	}

	// Claiming an already-claimed item must not move the timestamp
	first := *claimed.ClaimedAt
	again, err := store.setClaimed(ctx, "item-a", true)
	if err != nil {
		t.Fatalf("re-claim failed: %v", err)
	}
	if !again.ClaimedAt.Equal(first) {
		t.Errorf("re-claim moved claimedAt from %v to %v", first, again.ClaimedAt)
	}

	released, err := store.setClaimed(ctx, "item-a", false)
	if err != nil {
		t.Fatalf("unclaim failed: %v", err)
	}
	if released.Claimed || released.ClaimedAt != nil {
		t.Errorf("unclaimed item: Claimed=%v ClaimedAt=%v, want both cleared", released.Claimed, released.ClaimedAt)
	}
}

func TestStoreResetAllIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.setClaimed(ctx, "item-a", true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := store.setClaimed(ctx, "item-c", true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	first, err := store.ResetAll(ctx)
	if err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}
	for _, item := range first {
		if item.Claimed || item.ClaimedAt != nil {
			t.Errorf("item %s still claimed after reset", item.ID)
		}
	}

	second, err := store.ResetAll(ctx)
	if err != nil {
		t.Fatalf("second ResetAll failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two successive resets produced different catalogs")
	}

	// The persisted state must match what was returned
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reset failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, second) {
		t.Error("persisted catalog disagrees with reset result")
	}
}

func TestStoreResetDoesNotAliasSeed(t *testing.T) {
	seed := testSeed()
	store := NewStore(storage.NewMemoryStore(), seed)
	ctx := context.Background()

	items, err := store.ResetAll(ctx)
	if err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}

	items[0].Attributes[0].Name = "mutated"
	if seed[0].Attributes[0].Name == "mutated" {
		t.Error("reset result aliases the seed's attribute slice")
	}
}
