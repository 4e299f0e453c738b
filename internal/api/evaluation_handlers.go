package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/searchqa/eval-engine/internal/catalog"
	"github.com/searchqa/eval-engine/internal/evaluation"
	"github.com/searchqa/eval-engine/internal/models"
	"github.com/searchqa/eval-engine/internal/oracle"
)

// evaluateRequest submits either a claimed item by id or an inline manual entry
type evaluateRequest struct {
	ItemID string `json:"item_id,omitempty"`

	Query           string                 `json:"query,omitempty"`
	ItemTitle       string                 `json:"item_title,omitempty"`
	ItemDescription string                 `json:"item_description,omitempty"`
	ItemCategory    string                 `json:"item_category,omitempty"`
	ItemAttributes  map[string]interface{} `json:"item_attributes,omitempty"`
}

// toItem builds the evaluation input for an inline manual entry
func (req *evaluateRequest) toItem() models.Item {
	return models.Item{
		Query:       req.Query,
		Title:       req.ItemTitle,
		Description: req.ItemDescription,
		Category:    req.ItemCategory,
		Attributes:  attributesFromMap(req.ItemAttributes),
	}
}

// attributesFromMap converts a JSON attribute object into the ordered list
// form, sorting by name so the order is deterministic across requests
func attributesFromMap(m map[string]interface{}) []models.Attribute {
	if len(m) == 0 {
		return nil
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]models.Attribute, 0, len(names))
	for _, name := range names {
		var value models.AttributeValue
		switch v := m[name].(type) {
		case bool:
			value = models.BoolValue(v)
		case float64:
			value = models.NumberValue(v)
		case string:
			value = models.StringValue(v)
		default:
			continue
		}
		attrs = append(attrs, models.Attribute{Name: name, Value: value})
	}
	return attrs
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var (
		item   models.Item
		source models.EntrySource
	)

	if req.ItemID != "" {
		found, err := s.catalog.Get(r.Context(), req.ItemID)
		if err != nil {
			if errors.Is(err, catalog.ErrItemNotFound) {
				respondError(w, http.StatusNotFound, "not_found", "item not found")
				return
			}
			slog.Error("failed to load item for evaluation", "error", err, "id", req.ItemID)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to load item")
			return
		}
		item = *found
		source = models.SourceClaimedItem
	} else {
		item = req.toItem()
		source = models.SourceManualEntry
	}

	result, err := s.orchestrator.EvaluateSingle(r.Context(), item, source)
	if err != nil {
		s.respondEvaluationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type batchEvaluateRequest struct {
	Evaluations []evaluateRequest `json:"evaluations"`
}

func (s *Server) handleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	items := make([]models.Item, len(req.Evaluations))
	for i := range req.Evaluations {
		items[i] = req.Evaluations[i].toItem()
	}

	results, err := s.orchestrator.EvaluateBatch(r.Context(), items)
	if err != nil {
		s.respondEvaluationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"total":   len(results),
	})
}

// respondEvaluationError maps orchestrator failures onto the error envelope
func (s *Server) respondEvaluationError(w http.ResponseWriter, err error) {
	var (
		validationErr *evaluation.ValidationError
		remoteErr     *oracle.RemoteError
		contractErr   *oracle.ContractError
	)

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, "validation_error", validationErr.Error())
	case errors.Is(err, evaluation.ErrEvaluationInFlight):
		respondError(w, http.StatusConflict, "evaluation_in_flight", "another evaluation is in progress")
	case errors.As(err, &remoteErr):
		slog.Error("oracle request failed", "error", err)
		respondError(w, http.StatusBadGateway, "oracle_error", remoteErr.Error())
	case errors.As(err, &contractErr):
		slog.Error("oracle returned malformed verdict", "error", err)
		respondError(w, http.StatusBadGateway, "oracle_error", contractErr.Error())
	default:
		slog.Error("evaluation failed", "error", err)
		respondError(w, http.StatusBadGateway, "oracle_error", "scoring service unreachable")
	}
}

// History handlers

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.history.Entries(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	stats := s.history.Clear(r.Context())
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.history.Recompute(r.Context()))
}

func (s *Server) handleGetBatches(w http.ResponseWriter, r *http.Request) {
	records := s.history.Batches(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"batches": records,
		"total":   len(records),
	})
}
