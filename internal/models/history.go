package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// EntrySource identifies how an evaluation reached the history log
type EntrySource string

const (
	SourceClaimedItem EntrySource = "claimed_item"
	SourceManualEntry EntrySource = "manual_entry"
	SourceBatch       EntrySource = "batch"
)

// HistoryEntry is a permanent record of one completed single evaluation.
// Append-only except for capacity eviction.
type HistoryEntry struct {
	ID          int64       `json:"id"` // creation timestamp in ms, monotonic per writer
	Timestamp   time.Time   `json:"timestamp"`
	Query       string      `json:"query"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	Score       Score       `json:"score"`
	Confidence  float64     `json:"confidence"`
	ReasonCode  string      `json:"reason_code"`
	Reasoning   string      `json:"reasoning,omitempty"`
	Source      EntrySource `json:"source"`
	ItemID      string      `json:"item_id,omitempty"`
}

// NewHistoryEntry snapshots an item and its verdict into a history record
func NewHistoryEntry(item Item, res EvaluationResult, source EntrySource) HistoryEntry {
	now := time.Now().UTC()
	snap := item.Clone()
	return HistoryEntry{
		ID:          now.UnixMilli(),
		Timestamp:   now,
		Query:       snap.Query,
		Title:       snap.Title,
		Description: snap.Description,
		Category:    snap.Category,
		Attributes:  snap.Attributes,
		Score:       res.Score,
		Confidence:  res.Confidence,
		ReasonCode:  res.ReasonCode,
		Reasoning:   res.Reasoning,
		Source:      source,
		ItemID:      item.ID,
	}
}

// BatchStatus is the terminal status of a batch submission
type BatchStatus string

const BatchCompleted BatchStatus = "completed"

// BatchResultLine is the compact per-item log kept inside a batch record.
// Full item payloads are intentionally dropped to bound storage growth.
type BatchResultLine struct {
	Score      Score  `json:"score"`
	ReasonCode string `json:"reason_code"`
}

// BatchRecord summarizes one batch submission
type BatchRecord struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	TotalItems   int               `json:"total_items"`
	Status       BatchStatus       `json:"status"`
	AverageScore float64           `json:"average_score"`
	Results      []BatchResultLine `json:"results"`
}

// NewBatchRecord builds the summary for one completed batch. The average is
// fixed at append time and covers parsable scores only.
func NewBatchRecord(results []EvaluationResult) BatchRecord {
	lines := make([]BatchResultLine, len(results))
	sum, valid := 0, 0
	for i, r := range results {
		lines[i] = BatchResultLine{Score: r.Score, ReasonCode: r.ReasonCode}
		if r.Score.Valid {
			sum += r.Score.Value
			valid++
		}
	}
	avg := 0.0
	if valid > 0 {
		avg = Round1(float64(sum) / float64(valid))
	}
	return BatchRecord{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		TotalItems:   len(results),
		Status:       BatchCompleted,
		AverageScore: avg,
		Results:      lines,
	}
}

// Bands summarize the 0-8 distribution into three coarse buckets,
// each expressed as a fraction of the total history
type Bands struct {
	Top    float64 `json:"top"`    // scores 7-8
	Mid    float64 `json:"mid"`    // scores 5-6
	Bottom float64 `json:"bottom"` // scores 0-4
}

// Statistics is a snapshot derived from the current full history
type Statistics struct {
	Total        int     `json:"total"`
	AverageScore float64 `json:"average_score"` // rounded to one decimal
	ScoreCounts  [9]int  `json:"score_counts"`  // index = score value
	Bands        Bands   `json:"bands"`
	TrendTotal   int     `json:"trend_total"`   // first difference vs previous snapshot
	TrendAverage float64 `json:"trend_average"`
}

// Round1 rounds to one decimal place
func Round1(f float64) float64 {
	return math.Round(f*10) / 10
}
