package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/searchqa/eval-engine/internal/catalog"
)

// Item handlers: browsing and claiming of the evaluable item pool

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter := catalog.Filter{
		Text:     r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}

	items, err := s.catalog.Find(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list items")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "item id is required")
		return
	}

	item, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		slog.Error("failed to get item", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleNextItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.NextAvailable(r.Context())
	if err != nil {
		if errors.Is(err, catalog.ErrPoolExhausted) {
			respondError(w, http.StatusNotFound, "pool_exhausted", "no available items in the pool")
			return
		}
		slog.Error("failed to get next item", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get next item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleActiveItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.session.Active(r.Context())
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			respondJSON(w, http.StatusOK, nil)
			return
		}
		slog.Error("failed to get active item", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get active item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

type claimRequest struct {
	// ConfirmSwitch is the caller's decision when another item is already
	// active; false declines the switch and leaves both items unchanged.
	ConfirmSwitch bool `json:"confirm_switch"`
}

func (s *Server) handleClaimItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "item id is required")
		return
	}

	var req claimRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	decide := catalog.NeverSwitch
	if req.ConfirmSwitch {
		decide = catalog.AlwaysSwitch
	}

	item, err := s.session.Claim(r.Context(), id, decide)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrItemNotFound):
			respondError(w, http.StatusNotFound, "not_found", "item not found")
		case errors.Is(err, catalog.ErrSwitchDeclined):
			respondError(w, http.StatusConflict, "switch_declined", "another item is active; confirm the switch to proceed")
		default:
			slog.Error("failed to claim item", "error", err, "id", id)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to claim item")
		}
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleUnclaimItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "item id is required")
		return
	}

	item, err := s.session.Unclaim(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		slog.Error("failed to unclaim item", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to unclaim item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleResetItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.ResetAll(r.Context())
	if err != nil {
		slog.Error("failed to reset catalog", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to reset catalog")
		return
	}

	// The old active selection no longer refers to a claimed item
	s.session.Release()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}
