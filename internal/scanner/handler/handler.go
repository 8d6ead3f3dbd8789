// Package handler exposes the scan HTTP API: pattern queries against the
// corpus, cache administration, and corpus statistics.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/permscan/permscan/internal/analytics"
	"github.com/permscan/permscan/internal/corpus"
	"github.com/permscan/permscan/internal/scanner/cache"
	"github.com/permscan/permscan/internal/scanner/executor"
	apperrors "github.com/permscan/permscan/pkg/errors"
	"github.com/permscan/permscan/pkg/logger"
	"github.com/permscan/permscan/pkg/metrics"
	"github.com/permscan/permscan/pkg/middleware"
	"github.com/permscan/permscan/pkg/tracing"
)

// Scans slower than this get their span tree dumped to the log.
const slowScanThreshold = 250 * time.Millisecond

// ScanExecutor runs a scan query against the corpus.
type ScanExecutor interface {
	Execute(ctx context.Context, q executor.Query) (*executor.ScanResult, error)
}

// Handler serves the scanner's HTTP endpoints.
type Handler struct {
	executor     ScanExecutor
	cache        *cache.QueryCache
	store        *corpus.Store
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New creates a Handler. cache, collector, and m may be nil when the
// corresponding subsystem is disabled.
func New(
	exec ScanExecutor,
	queryCache *cache.QueryCache,
	store *corpus.Store,
	collector *analytics.Collector,
	m *metrics.Metrics,
	defaultLimit, maxResults int,
) *Handler {
	return &Handler{
		executor:     exec,
		cache:        queryCache,
		store:        store,
		collector:    collector,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "scan-handler"),
	}
}

// Scan handles GET /api/v1/scan?pattern=...&mode=...&limit=...
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'pattern' is required")
		return
	}
	mode, err := executor.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "mode must be one of: exists, first, all")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	q := executor.Query{Pattern: pattern, Mode: mode, Limit: limit}

	ctx, span := tracing.StartSpan(ctx, "scan-request", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		if span.Duration > slowScanThreshold {
			span.Log()
		}
	}()

	var result *executor.ScanResult
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, q, func() (*executor.ScanResult, error) {
			return h.executor.Execute(ctx, q)
		})
	} else {
		result, err = h.executor.Execute(ctx, q)
	}
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("scan execution failed", "pattern_length", len(pattern), "error", err)
			h.recordQuery(mode, "error")
			h.writeError(w, status, "scan failed")
			return
		}
		h.writeError(w, status, err.Error())
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	h.observe(q, result, cacheHit, time.Since(start))
	log.Info("scan completed",
		"pattern_length", len(pattern),
		"mode", mode,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)

	if h.collector != nil {
		eventType := analytics.EventCacheMiss
		if cacheHit {
			eventType = analytics.EventCacheHit
		}
		h.collector.Track(analytics.ScanEvent{
			Type:          eventType,
			Pattern:       pattern,
			PatternLength: len(pattern),
			Mode:          string(mode),
			TotalHits:     result.TotalHits,
			Returned:      len(result.Results),
			LatencyMs:     latencyMs,
			CacheHit:      cacheHit,
			Timestamp:     time.Now().UTC(),
			RequestID:     middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// Stats handles GET /api/v1/stats with corpus partition statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	if h.metrics != nil {
		for _, ps := range stats {
			h.metrics.PartitionTextCount.WithLabelValues(strconv.Itoa(ps.Partition)).Set(float64(ps.TextCount))
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"total_texts": h.store.TextCount(),
		"total_bytes": h.store.TotalBytes(),
		"partitions":  stats,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) observe(q executor.Query, result *executor.ScanResult, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_match"
	}
	h.metrics.ScanQueriesTotal.WithLabelValues(string(q.Mode), resultType).Inc()
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.ScanLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	h.metrics.ScanMatchesCount.Observe(float64(result.TotalHits))
	h.metrics.ScanPatternLength.Observe(float64(len(q.Pattern)))
}

func (h *Handler) recordQuery(mode executor.Mode, resultType string) {
	if h.metrics != nil {
		h.metrics.ScanQueriesTotal.WithLabelValues(string(mode), resultType).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
