package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/searchqa/eval-engine/internal/catalog"
	"github.com/searchqa/eval-engine/internal/config"
	"github.com/searchqa/eval-engine/internal/evaluation"
	"github.com/searchqa/eval-engine/internal/history"
	"github.com/searchqa/eval-engine/internal/models"
	"github.com/searchqa/eval-engine/internal/oracle"
	"github.com/searchqa/eval-engine/internal/storage"
	"github.com/searchqa/eval-engine/pkg/client"
)

// fakeOracleServer scores everything 7 with confidence 0.9
func fakeOracleServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/evaluate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"relevance_score": 7, "confidence": 0.9, "reason_code": "Good", "ai_reasoning": "ok"}`))
	})
	mux.HandleFunc("/evaluate/batch", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Evaluations []json.RawMessage `json:"evaluations"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		results := make([]map[string]interface{}, len(req.Evaluations))
		for i := range results {
			results[i] = map[string]interface{}{
				"relevance_score": 7,
				"confidence":      0.9,
				"reason_code":     "Good",
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "healthy"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testItems() []models.Item {
	return []models.Item{
		{
			ID:          "item-a",
			Query:       "wireless mouse",
			Title:       "Ergo Mouse",
			Description: "A quiet wireless mouse",
			Category:    "Electronics",
		},
		{
			ID:          "item-b",
			Query:       "running shoes",
			Title:       "Trail Runner",
			Description: "Cushioned trail shoes",
			Category:    "Sports",
		},
	}
}

// newTestAPI builds a full stack over an in-memory store and a fake oracle
func newTestAPI(t *testing.T) *client.Client {
	t.Helper()

	oracleSrv := fakeOracleServer(t)

	store := storage.NewMemoryStore()
	catalogStore := catalog.NewStore(store, testItems())
	session := catalog.NewSession(catalogStore)
	oracleClient := oracle.NewClient(oracleSrv.URL, 0, nil)
	aggregator := history.NewAggregator(store)
	orchestrator := evaluation.NewOrchestrator(oracleClient, aggregator)

	server := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		catalogStore, session, orchestrator, aggregator, nil, store, nil)

	apiSrv := httptest.NewServer(server.Router())
	t.Cleanup(apiSrv.Close)

	return client.NewClient(apiSrv.URL)
}

func TestAPIHealth(t *testing.T) {
	c := newTestAPI(t)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestAPIListAndFilterItems(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	all, err := c.ListItems(ctx, "", "")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if all.Total != 2 {
		t.Errorf("total = %d, want 2", all.Total)
	}

	electronics, err := c.ListItems(ctx, "", "Electronics")
	if err != nil {
		t.Fatalf("filtered ListItems failed: %v", err)
	}
	if electronics.Total != 1 || electronics.Items[0].ID != "item-a" {
		t.Errorf("category filter returned %+v", electronics)
	}

	byText, err := c.ListItems(ctx, "trail", "")
	if err != nil {
		t.Fatalf("text ListItems failed: %v", err)
	}
	if byText.Total != 1 || byText.Items[0].ID != "item-b" {
		t.Errorf("text filter returned %+v", byText)
	}
}

func TestAPIClaimLifecycle(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	next, err := c.NextItem(ctx)
	if err != nil {
		t.Fatalf("NextItem failed: %v", err)
	}
	if next.ID != "item-a" {
		t.Errorf("next = %s, want item-a", next.ID)
	}

	claimed, err := c.ClaimItem(ctx, "item-a", client.ClaimOptions{})
	if err != nil {
		t.Fatalf("ClaimItem failed: %v", err)
	}
	if !claimed.Claimed || claimed.ClaimedAt == nil {
		t.Errorf("claimed item = %+v, want claimed with timestamp", claimed)
	}

	active, err := c.ActiveItem(ctx)
	if err != nil {
		t.Fatalf("ActiveItem failed: %v", err)
	}
	if active == nil || active.ID != "item-a" {
		t.Errorf("active = %v, want item-a", active)
	}

	// Switching without confirmation is refused
	_, err = c.ClaimItem(ctx, "item-b", client.ClaimOptions{})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "switch_declined" {
		t.Errorf("unconfirmed switch: got %v, want switch_declined", err)
	}

	// Confirmed switch claims the new item
	switched, err := c.ClaimItem(ctx, "item-b", client.ClaimOptions{ConfirmSwitch: true})
	if err != nil {
		t.Fatalf("confirmed switch failed: %v", err)
	}
	if switched.ID != "item-b" || !switched.Claimed {
		t.Errorf("switched = %+v, want claimed item-b", switched)
	}

	released, err := c.UnclaimItem(ctx, "item-b")
	if err != nil {
		t.Fatalf("UnclaimItem failed: %v", err)
	}
	if released.Claimed || released.ClaimedAt != nil {
		t.Errorf("released = %+v, want unclaimed", released)
	}

	active, err = c.ActiveItem(ctx)
	if err != nil {
		t.Fatalf("ActiveItem failed: %v", err)
	}
	if active != nil {
		t.Errorf("active after unclaim = %v, want nil", active)
	}
}

func TestAPIPoolExhausted(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	if _, err := c.ClaimItem(ctx, "item-a", client.ClaimOptions{}); err != nil {
		t.Fatalf("claim item-a failed: %v", err)
	}
	if _, err := c.ClaimItem(ctx, "item-b", client.ClaimOptions{ConfirmSwitch: true}); err != nil {
		t.Fatalf("claim item-b failed: %v", err)
	}

	_, err := c.NextItem(ctx)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "pool_exhausted" {
		t.Errorf("got %v, want pool_exhausted", err)
	}
}

func TestAPIResetItems(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	if _, err := c.ClaimItem(ctx, "item-a", client.ClaimOptions{}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	list, err := c.ResetItems(ctx)
	if err != nil {
		t.Fatalf("ResetItems failed: %v", err)
	}
	for _, item := range list.Items {
		if item.Claimed || item.ClaimedAt != nil {
			t.Errorf("item %s still claimed after reset", item.ID)
		}
	}

	active, err := c.ActiveItem(ctx)
	if err != nil {
		t.Fatalf("ActiveItem failed: %v", err)
	}
	if active != nil {
		t.Errorf("active survived a reset: %v", active)
	}
}

func TestAPIEvaluateClaimedItem(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	if _, err := c.ClaimItem(ctx, "item-a", client.ClaimOptions{}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	result, err := c.Evaluate(ctx, client.EvaluateRequest{ItemID: "item-a"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Score.Value != 7 {
		t.Errorf("score = %+v, want 7", result.Score)
	}

	// The item stays claimed after evaluation
	item, err := c.GetItem(ctx, "item-a")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !item.Claimed {
		t.Error("evaluation released the claim")
	}

	page, err := c.GetHistory(ctx)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("history total = %d, want 1", page.Total)
	}
	if page.Entries[0].Source != models.SourceClaimedItem {
		t.Errorf("source = %s, want claimed_item", page.Entries[0].Source)
	}
}

func TestAPIEvaluateManualEntry(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	_, err := c.Evaluate(ctx, client.EvaluateRequest{
		Query:           "usb hub",
		ItemTitle:       "7-Port Hub",
		ItemDescription: "Powered USB 3.0 hub",
		ItemCategory:    "Electronics",
		ItemAttributes:  map[string]interface{}{"ports": 7.0, "powered": true},
	})
	if err != nil {
		t.Fatalf("manual Evaluate failed: %v", err)
	}

	page, err := c.GetHistory(ctx)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if page.Entries[0].Source != models.SourceManualEntry {
		t.Errorf("source = %s, want manual_entry", page.Entries[0].Source)
	}
}

func TestAPIEvaluateValidation(t *testing.T) {
	c := newTestAPI(t)

	_, err := c.Evaluate(context.Background(), client.EvaluateRequest{
		Query:     "incomplete",
		ItemTitle: "No description",
	})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "validation_error" {
		t.Errorf("got %v, want validation_error", err)
	}
}

func TestAPIEvaluateUnknownItem(t *testing.T) {
	c := newTestAPI(t)

	_, err := c.Evaluate(context.Background(), client.EvaluateRequest{ItemID: "missing"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "not_found" {
		t.Errorf("got %v, want not_found", err)
	}
}

func TestAPIEvaluateBatch(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	entry := client.EvaluateRequest{
		Query:           "usb hub",
		ItemTitle:       "7-Port Hub",
		ItemDescription: "Powered USB 3.0 hub",
		ItemCategory:    "Electronics",
	}

	results, err := c.EvaluateBatch(ctx, []client.EvaluateRequest{entry, entry, entry})
	if err != nil {
		t.Fatalf("EvaluateBatch failed: %v", err)
	}
	if results.Total != 3 {
		t.Errorf("total = %d, want 3", results.Total)
	}

	// Batch evaluations do not write individual history entries
	page, err := c.GetHistory(ctx)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("history total after batch = %d, want 0", page.Total)
	}

	batches, err := c.GetBatches(ctx)
	if err != nil {
		t.Fatalf("GetBatches failed: %v", err)
	}
	if batches.Total != 1 {
		t.Fatalf("batch log total = %d, want 1", batches.Total)
	}
	rec := batches.Batches[0]
	if rec.TotalItems != 3 || rec.Status != models.BatchCompleted {
		t.Errorf("batch record = %+v", rec)
	}
	if rec.AverageScore != 7.0 {
		t.Errorf("batch average = %v, want 7.0", rec.AverageScore)
	}
}

func TestAPIEvaluateBatchValidation(t *testing.T) {
	c := newTestAPI(t)

	bad := client.EvaluateRequest{Query: "only a query"}
	_, err := c.EvaluateBatch(context.Background(), []client.EvaluateRequest{bad})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "validation_error" {
		t.Errorf("got %v, want validation_error", err)
	}
}

func TestAPIHistoryStatsAndClear(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	entry := client.EvaluateRequest{
		Query:           "usb hub",
		ItemTitle:       "7-Port Hub",
		ItemDescription: "Powered USB 3.0 hub",
		ItemCategory:    "Electronics",
	}
	if _, err := c.Evaluate(ctx, entry); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	stats, err := c.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("stats total = %d, want 1", stats.Total)
	}
	if stats.AverageScore != 7.0 {
		t.Errorf("average = %v, want 7.0", stats.AverageScore)
	}
	if stats.ScoreCounts[7] != 1 {
		t.Errorf("score counts = %v", stats.ScoreCounts)
	}

	cleared, err := c.ClearHistory(ctx)
	if err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	if cleared.Total != 0 {
		t.Errorf("total after clear = %d, want 0", cleared.Total)
	}

	page, err := c.GetHistory(ctx)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("history not empty after clear: %d", page.Total)
	}
}

func TestAPIOracleFailure(t *testing.T) {
	// Oracle that always errors
	brokenOracle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer brokenOracle.Close()

	store := storage.NewMemoryStore()
	catalogStore := catalog.NewStore(store, testItems())
	session := catalog.NewSession(catalogStore)
	oracleClient := oracle.NewClient(brokenOracle.URL, 0, nil)
	aggregator := history.NewAggregator(store)
	orchestrator := evaluation.NewOrchestrator(oracleClient, aggregator)

	server := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		catalogStore, session, orchestrator, aggregator, nil, store, nil)
	apiSrv := httptest.NewServer(server.Router())
	defer apiSrv.Close()

	c := client.NewClient(apiSrv.URL)
	ctx := context.Background()

	_, err := c.Evaluate(ctx, client.EvaluateRequest{ItemID: "item-a"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "oracle_error" {
		t.Errorf("got %v, want oracle_error", err)
	}

	// Nothing recorded for the failed evaluation
	page, err := c.GetHistory(ctx)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("history written for failed evaluation: %d", page.Total)
	}
}
