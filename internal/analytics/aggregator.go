package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/permscan/permscan/pkg/kafka"
)

// AggregatedStats is the rolled-up view of scan and ingest activity served
// by the analytics API.
type AggregatedStats struct {
	TotalScans        int64          `json:"total_scans"`
	TotalTextsAdded   int64          `json:"total_texts_added"`
	CacheHits         int64          `json:"cache_hits"`
	CacheMisses       int64          `json:"cache_misses"`
	ZeroMatchCount    int64          `json:"zero_match_count"`
	AvgLatencyMs      float64        `json:"avg_latency_ms"`
	P50LatencyMs      int64          `json:"p50_latency_ms"`
	P95LatencyMs      int64          `json:"p95_latency_ms"`
	P99LatencyMs      int64          `json:"p99_latency_ms"`
	TopPatterns       []PatternCount `json:"top_patterns"`
	ZeroMatchPatterns []PatternCount `json:"zero_match_patterns"`
	ScansPerMinute    float64        `json:"scans_per_minute"`
}

// PatternCount pairs a scan pattern with how often it was queried.
type PatternCount struct {
	Pattern string `json:"pattern"`
	Count   int64  `json:"count"`
}

// Aggregator consumes analytics events from Kafka and maintains in-memory
// rollups.
type Aggregator struct {
	mu                sync.RWMutex
	totalScans        atomic.Int64
	totalTextsAdded   atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroMatches       atomic.Int64
	latencies         []int64
	patternCounts     map[string]int64
	zeroMatchPatterns map[string]int64
	startTime         time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator backed by the given Kafka consumer.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 10000),
		patternCounts:     make(map[string]int64),
		zeroMatchPatterns: make(map[string]int64),
		startTime:         time.Now(),
		consumer:          consumer,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Start begins consuming events. It blocks until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent returns a Kafka MessageHandler that records scan and ingest
// events into the aggregator.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ScanEvent](value)
		if err != nil || event.Mode == "" {
			ingestEvent, ingestErr := kafka.DecodeJSON[IngestEvent](value)
			if ingestErr != nil || ingestEvent.TextID == "" {
				agg.logger.Error("failed to decode analytics event", "error", err)
				return nil
			}
			agg.recordIngestEvent(ingestEvent)
			return nil
		}
		agg.recordScanEvent(event)
		return nil
	}
}

func (a *Aggregator) recordScanEvent(event ScanEvent) {
	a.totalScans.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.TotalHits == 0 {
		a.zeroMatches.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.patternCounts[event.Pattern]++
	if event.TotalHits == 0 {
		a.zeroMatchPatterns[event.Pattern]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordIngestEvent(event IngestEvent) {
	a.totalTextsAdded.Add(1)
}

// Stats returns a snapshot of the current rollups.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalScans:      a.totalScans.Load(),
		TotalTextsAdded: a.totalTextsAdded.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroMatchCount:  a.zeroMatches.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopPatterns = topN(a.patternCounts, 10)
	stats.ZeroMatchPatterns = topN(a.zeroMatchPatterns, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.ScansPerMinute = float64(stats.TotalScans) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []PatternCount {
	result := make([]PatternCount, 0, len(counts))
	for pattern, count := range counts {
		result = append(result, PatternCount{Pattern: pattern, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Pattern < result[j].Pattern
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
