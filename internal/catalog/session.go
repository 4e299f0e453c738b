package catalog

import (
	"context"
	"sync"

	"github.com/searchqa/eval-engine/internal/models"
)

// DecisionFunc resolves whether the session may switch its active item.
// It receives the currently active item and the proposed replacement.
// The session itself never prompts; the decision is injected by the caller,
// keeping the state machine synchronous and side-effect-free.
type DecisionFunc func(current, next models.Item) bool

// AlwaysSwitch is a DecisionFunc that confirms every switch
func AlwaysSwitch(current, next models.Item) bool { return true }

// NeverSwitch is a DecisionFunc that declines every switch
func NeverSwitch(current, next models.Item) bool { return false }

// Session tracks the operator's active claimed item and enforces the claim
// transition rules. Items have exactly two states, available and claimed;
// an evaluated item stays claimed so it can be re-evaluated.
type Session struct {
	store *Store

	mu       sync.Mutex
	activeID string
}

// NewSession creates a session over a catalog store
func NewSession(store *Store) *Session {
	return &Session{store: store}
}

// Active returns the session's active item, or nil if none is selected
func (s *Session) Active(ctx context.Context) (*models.Item, error) {
	s.mu.Lock()
	id := s.activeID
	s.mu.Unlock()

	if id == "" {
		return nil, nil
	}
	return s.store.Get(ctx, id)
}

// ClaimNext claims the earliest available item in catalog order.
// An exhausted pool surfaces as ErrPoolExhausted.
func (s *Session) ClaimNext(ctx context.Context, decide DecisionFunc) (*models.Item, error) {
	next, err := s.store.NextAvailable(ctx)
	if err != nil {
		return nil, err
	}
	return s.Claim(ctx, next.ID, decide)
}

// Claim transitions an item from available to claimed and selects it as the
// session's active item. Claiming the item that is already active is a no-op
// re-selection, treated as "continue". If a different item is active, decide
// is consulted first; declining leaves both items unchanged.
func (s *Session) Claim(ctx context.Context, id string, decide DecisionFunc) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.activeID == id {
		return item, nil
	}

	if s.activeID != "" {
		current, err := s.store.Get(ctx, s.activeID)
		if err == nil && current.Claimed {
			if decide == nil || !decide(*current, *item) {
				return nil, ErrSwitchDeclined
			}
		}
	}

	claimed, err := s.store.setClaimed(ctx, id, true)
	if err != nil {
		return nil, err
	}
	s.activeID = id
	return claimed, nil
}

// Unclaim returns an item to the pool, clearing claimedAt. Unclaiming the
// active item also clears the active selection.
func (s *Session) Unclaim(ctx context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.store.setClaimed(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if s.activeID == id {
		s.activeID = ""
	}
	return item, nil
}

// Release clears the active selection without touching claim state.
// Used after a catalog reset invalidates the selection.
func (s *Session) Release() {
	s.mu.Lock()
	s.activeID = ""
	s.mu.Unlock()
}
