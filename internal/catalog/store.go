package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/searchqa/eval-engine/internal/models"
	"github.com/searchqa/eval-engine/internal/storage"
)

// Store owns the pool of evaluable items and their claim state. All item
// mutation goes through claim/unclaim/reset; every mutation is committed to
// the state store synchronously.
type Store struct {
	repo storage.Store
	seed []models.Item

	mu sync.Mutex
}

// NewStore creates a catalog store over a state store. The seed is the
// canonical sample set used on first load and on reset.
func NewStore(repo storage.Store, seed []models.Item) *Store {
	return &Store{repo: repo, seed: seed}
}

// Load returns the full item list, seeding from the canonical sample set
// and persisting it immediately on first use.
func (s *Store) Load(ctx context.Context) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if storage.Load(ctx, s.repo, storage.BucketCatalog, &items) && len(items) > 0 {
		return items, nil
	}

	items = cloneItems(s.seed)
	if err := storage.Save(ctx, s.repo, storage.BucketCatalog, items); err != nil {
		return nil, fmt.Errorf("failed to persist seeded catalog: %w", err)
	}
	slog.Info("catalog seeded from canonical sample set", "items", len(items))
	return items, nil
}

// Filter narrows a Find call. Text matches as a substring of title, query or
// description; Category matches exactly. Empty fields match everything.
type Filter struct {
	Text     string
	Category string
}

func (f Filter) matches(item models.Item) bool {
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.Text == "" {
		return true
	}
	text := strings.ToLower(f.Text)
	return strings.Contains(strings.ToLower(item.Title), text) ||
		strings.Contains(strings.ToLower(item.Query), text) ||
		strings.Contains(strings.ToLower(item.Description), text)
}

// Find filters the catalog without mutating it
func (s *Store) Find(ctx context.Context, f Filter) ([]models.Item, error) {
	items, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if f.matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Get returns one item by id
func (s *Store) Get(ctx context.Context, id string) (*models.Item, error) {
	items, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			item := items[i].Clone()
			return &item, nil
		}
	}
	return nil, ErrItemNotFound
}

// NextAvailable returns the earliest-inserted unclaimed item in catalog
// order, or ErrPoolExhausted when the pool is exhausted.
func (s *Store) NextAvailable(ctx context.Context) (*models.Item, error) {
	items, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].IsAvailable() {
			item := items[i].Clone()
			return &item, nil
		}
	}
	return nil, ErrPoolExhausted
}

// setClaimed flips the claim state of one item and commits the catalog.
// claimedAt is set on the false→true transition and cleared on unclaim,
// keeping the claimed ⇔ claimedAt invariant.
func (s *Store) setClaimed(ctx context.Context, id string, claimed bool) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].ID != id {
			continue
		}
		if claimed {
			if !items[i].Claimed {
				now := time.Now().UTC()
				items[i].Claimed = true
				items[i].ClaimedAt = &now
			}
		} else {
			items[i].Claimed = false
			items[i].ClaimedAt = nil
		}
		if err := storage.Save(ctx, s.repo, storage.BucketCatalog, items); err != nil {
			return nil, err
		}
		item := items[i].Clone()
		return &item, nil
	}

	return nil, ErrItemNotFound
}

// ResetAll atomically replaces the catalog with a fresh deep copy of the
// canonical sample set, clearing all claim state. A single bucket write makes
// the replacement appear atomic to callers.
func (s *Store) ResetAll(ctx context.Context) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := cloneItems(s.seed)
	canonical, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("failed to encode canonical catalog: %w", err)
	}
	if err := s.repo.Reset(ctx, storage.BucketCatalog, canonical); err != nil {
		return nil, fmt.Errorf("failed to reset catalog: %w", err)
	}

	slog.Info("catalog reset to canonical sample set", "items", len(fresh))
	return fresh, nil
}

func cloneItems(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
