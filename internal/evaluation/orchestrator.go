// Package evaluation validates, dispatches and normalizes scoring requests
// against the oracle, and records completed evaluations.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/searchqa/eval-engine/internal/history"
	"github.com/searchqa/eval-engine/internal/models"
	"github.com/searchqa/eval-engine/internal/oracle"
)

// BatchMaxItems caps one batch submission. It matches the history and
// batch-log bounds so every bounded collection shares one limit; input past
// the cap is truncated with a logged warning.
const BatchMaxItems = 50

// Oracle is the outbound scoring dependency
type Oracle interface {
	Evaluate(ctx context.Context, req oracle.Request) (oracle.Result, error)
	EvaluateBatch(ctx context.Context, reqs []oracle.Request) ([]oracle.Result, error)
}

// Orchestrator owns the evaluation workflow: structural validation before any
// dispatch, normalization of oracle output, and history side effects. While a
// call is in flight further dispatches are refused, not queued.
type Orchestrator struct {
	oracle  Oracle
	history *history.Aggregator

	inFlight atomic.Bool
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(o Oracle, hist *history.Aggregator) *Orchestrator {
	return &Orchestrator{oracle: o, history: hist}
}

// EvaluateSingle scores one item. On success exactly one history entry is
// appended, tagged with the given source. Oracle errors surface verbatim:
// no retry, no partial history write.
func (o *Orchestrator) EvaluateSingle(ctx context.Context, item models.Item, source models.EntrySource) (models.EvaluationResult, error) {
	if err := validateItem(item, -1); err != nil {
		return models.EvaluationResult{}, err
	}

	if !o.inFlight.CompareAndSwap(false, true) {
		return models.EvaluationResult{}, ErrEvaluationInFlight
	}
	defer o.inFlight.Store(false)

	raw, err := o.oracle.Evaluate(ctx, requestFor(item))
	if err != nil {
		return models.EvaluationResult{}, err
	}

	result, err := normalize(raw)
	if err != nil {
		return models.EvaluationResult{}, err
	}

	stats := o.history.Append(ctx, models.NewHistoryEntry(item, result, source))
	slog.Info("evaluation recorded",
		"source", source,
		"score", result.Score.Value,
		"history_total", stats.Total,
	)
	return result, nil
}

// EvaluateBatch scores multiple items in one oracle call. The entire array is
// validated before any dispatch; a single invalid item blocks the whole batch
// and the oracle receives zero calls. Results come back in input order. On
// success one batch record is appended, not individual history entries.
func (o *Orchestrator) EvaluateBatch(ctx context.Context, items []models.Item) ([]models.EvaluationResult, error) {
	if len(items) == 0 {
		return nil, &ValidationError{Index: -1, Field: "evaluations"}
	}
	if len(items) > BatchMaxItems {
		slog.Warn("batch truncated to cap", "submitted", len(items), "cap", BatchMaxItems)
		items = items[:BatchMaxItems]
	}

	for i, item := range items {
		if err := validateItem(item, i); err != nil {
			return nil, err
		}
	}

	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrEvaluationInFlight
	}
	defer o.inFlight.Store(false)

	reqs := make([]oracle.Request, len(items))
	for i, item := range items {
		reqs[i] = requestFor(item)
	}

	raws, err := o.oracle.EvaluateBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	if len(raws) != len(items) {
		return nil, &oracle.ContractError{
			Detail: fmt.Sprintf("%d results for %d items", len(raws), len(items)),
		}
	}

	// Callers correlate output[i] to input[i] positionally; order is
	// preserved end-to-end.
	results := make([]models.EvaluationResult, len(raws))
	for i, raw := range raws {
		result, err := normalize(raw)
		if err != nil {
			return nil, err
		}
		results[i] = result
	}

	rec := models.NewBatchRecord(results)
	o.history.AppendBatch(ctx, rec)
	slog.Info("batch recorded",
		"batch_id", rec.ID,
		"items", rec.TotalItems,
		"average_score", rec.AverageScore,
	)
	return results, nil
}

// validateItem checks the four required string fields after trimming.
// Field names use the wire form so errors read the same across API and logs.
func validateItem(item models.Item, index int) error {
	fields := []struct {
		name  string
		value string
	}{
		{"query", item.Query},
		{"item_title", item.Title},
		{"item_description", item.Description},
		{"item_category", item.Category},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Index: index, Field: f.name}
		}
	}
	return nil
}

func requestFor(item models.Item) oracle.Request {
	return oracle.Request{
		Query:           item.Query,
		ItemTitle:       item.Title,
		ItemDescription: item.Description,
		ItemCategory:    item.Category,
		ItemAttributes:  item.AttributeMap(),
	}
}

// normalize turns a raw oracle verdict into a stored result. Unparsable
// scores keep their sentinel instead of collapsing to 0; out-of-range values
// are a contract violation of the oracle and are rejected, not stored.
func normalize(raw oracle.Result) (models.EvaluationResult, error) {
	score := raw.RelevanceScore
	if score.Valid && (score.Value < models.ScoreMin || score.Value > models.ScoreMax) {
		return models.EvaluationResult{}, &oracle.ContractError{
			Detail: fmt.Sprintf("score %d outside %d..%d", score.Value, models.ScoreMin, models.ScoreMax),
		}
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return models.EvaluationResult{}, &oracle.ContractError{
			Detail: fmt.Sprintf("confidence %v outside [0,1]", raw.Confidence),
		}
	}

	reason := ""
	if raw.ReasonCode != nil {
		reason = *raw.ReasonCode
	}
	if reason == "" {
		reason = models.ReasonCodeForScore(score)
	}

	return models.EvaluationResult{
		Score:      score,
		Confidence: raw.Confidence,
		ReasonCode: reason,
		Reasoning:  raw.AIReasoning,
	}, nil
}
