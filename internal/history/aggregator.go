// Package history keeps the bounded evaluation log and batch log and derives
// aggregate statistics from them.
package history

import (
	"context"
	"log/slog"
	"sync"

	"github.com/searchqa/eval-engine/internal/models"
	"github.com/searchqa/eval-engine/internal/storage"
)

// Capacity bounds. Eviction is FIFO: the oldest entry falls off once a log
// exceeds its cap.
const (
	HistoryCap  = 50
	BatchLogCap = 50
)

// Aggregator owns the evaluation history and the batch log. Entries are kept
// newest-first. Statistics are recomputed synchronously after every mutation,
// so a reader never observes history and a statistics snapshot that disagree.
// Store failures are absorbed with a warning, never propagated.
type Aggregator struct {
	repo storage.Store

	mu   sync.Mutex
	prev *snapshot
}

// snapshot holds the previously computed totals, for the trend first-difference
type snapshot struct {
	total   int
	average float64
}

// NewAggregator creates an aggregator over a state store
func NewAggregator(repo storage.Store) *Aggregator {
	return &Aggregator{repo: repo}
}

// Entries returns the current history, newest first
func (a *Aggregator) Entries(ctx context.Context) []models.HistoryEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entriesLocked(ctx)
}

func (a *Aggregator) entriesLocked(ctx context.Context) []models.HistoryEntry {
	var entries []models.HistoryEntry
	storage.Load(ctx, a.repo, storage.BucketHistory, &entries)
	return entries
}

// Append inserts an entry at the front, evicts from the back past the cap,
// commits the log, and returns the freshly recomputed statistics.
func (a *Aggregator) Append(ctx context.Context, e models.HistoryEntry) models.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := a.entriesLocked(ctx)
	entries = append([]models.HistoryEntry{e}, entries...)
	if len(entries) > HistoryCap {
		entries = entries[:HistoryCap]
	}
	a.saveLocked(ctx, storage.BucketHistory, entries)

	return a.recomputeLocked(entries)
}

// Clear empties the history. Catalog claim state is untouched; resetting the
// item pool is a separate operation.
func (a *Aggregator) Clear(ctx context.Context) models.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.saveLocked(ctx, storage.BucketHistory, []models.HistoryEntry{})
	return a.recomputeLocked(nil)
}

// Recompute derives statistics from the current full history
func (a *Aggregator) Recompute(ctx context.Context) models.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recomputeLocked(a.entriesLocked(ctx))
}

func (a *Aggregator) recomputeLocked(entries []models.HistoryEntry) models.Statistics {
	stats := models.Statistics{Total: len(entries)}

	sum, valid := 0, 0
	for _, e := range entries {
		if !e.Score.InRange() {
			continue
		}
		stats.ScoreCounts[e.Score.Value]++
		sum += e.Score.Value
		valid++
	}

	if valid > 0 {
		stats.AverageScore = models.Round1(float64(sum) / float64(valid))
	}

	if stats.Total > 0 {
		total := float64(stats.Total)
		top := stats.ScoreCounts[7] + stats.ScoreCounts[8]
		mid := stats.ScoreCounts[5] + stats.ScoreCounts[6]
		bottom := 0
		for v := 0; v <= 4; v++ {
			bottom += stats.ScoreCounts[v]
		}
		stats.Bands = models.Bands{
			Top:    float64(top) / total,
			Mid:    float64(mid) / total,
			Bottom: float64(bottom) / total,
		}
	}

	// Trend is the first difference against the previous snapshot,
	// not a smoothed moving average.
	if a.prev != nil {
		stats.TrendTotal = stats.Total - a.prev.total
		stats.TrendAverage = models.Round1(stats.AverageScore - a.prev.average)
	}
	a.prev = &snapshot{total: stats.Total, average: stats.AverageScore}

	return stats
}

// AppendBatch inserts a batch record at the front of the batch log, evicting
// past the cap. The record's average is fixed at append time and is never
// recomputed retroactively.
func (a *Aggregator) AppendBatch(ctx context.Context, rec models.BatchRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := a.batchesLocked(ctx)
	records = append([]models.BatchRecord{rec}, records...)
	if len(records) > BatchLogCap {
		records = records[:BatchLogCap]
	}
	a.saveLocked(ctx, storage.BucketBatchLog, records)
}

// Batches returns the batch log, newest first
func (a *Aggregator) Batches(ctx context.Context) []models.BatchRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batchesLocked(ctx)
}

func (a *Aggregator) batchesLocked(ctx context.Context) []models.BatchRecord {
	var records []models.BatchRecord
	storage.Load(ctx, a.repo, storage.BucketBatchLog, &records)
	return records
}

func (a *Aggregator) saveLocked(ctx context.Context, bucket string, v interface{}) {
	if err := storage.Save(ctx, a.repo, bucket, v); err != nil {
		slog.Warn("failed to persist log, keeping in-flight state", "bucket", bucket, "error", err)
	}
}
