package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/permscan/permscan/internal/auth/apikey"
	"github.com/permscan/permscan/pkg/postgres"
	"github.com/permscan/permscan/pkg/resilience"
)

// Config holds the URLs of backend services that the gateway proxies to.
type Config struct {
	IngestionURL string
	ScannerURL   string
	AnalyticsURL string
}

// Handler implements the API gateway's HTTP endpoints. It proxies requests
// to the backend services and provides direct text metadata retrieval and
// API key management via PostgreSQL. Direct database reads go through a
// circuit breaker so a struggling database degrades the metadata endpoints
// instead of tying up gateway connections.
type Handler struct {
	ingestionProxy *httputil.ReverseProxy
	scanProxy      *httputil.ReverseProxy
	analyticsProxy *httputil.ReverseProxy
	db             *postgres.Client
	dbBreaker      *resilience.CircuitBreaker
	keyValidator   *apikey.Validator
	logger         *slog.Logger
}

// New creates a gateway Handler that proxies to the given backend URLs.
// dbBreaker guards the direct PostgreSQL reads; pass nil to create one
// with default settings.
func New(cfg Config, db *postgres.Client, keyValidator *apikey.Validator, dbBreaker *resilience.CircuitBreaker) *Handler {
	if dbBreaker == nil {
		dbBreaker = resilience.NewCircuitBreaker("gateway-db", resilience.CircuitBreakerConfig{})
	}
	return &Handler{
		ingestionProxy: newProxy(cfg.IngestionURL),
		scanProxy:      newProxy(cfg.ScannerURL),
		analyticsProxy: newProxy(cfg.AnalyticsURL),
		db:             db,
		dbBreaker:      dbBreaker,
		keyValidator:   keyValidator,
		logger:         slog.Default().With("component", "gateway-handler"),
	}
}

func newProxy(target string) *httputil.ReverseProxy {
	u, _ := url.Parse(target)
	return httputil.NewSingleHostReverseProxy(u)
}

// ---------- Proxy handlers ----------

// ProxySubmit forwards text submissions to the ingestion service.
func (h *Handler) ProxySubmit(w http.ResponseWriter, r *http.Request) {
	h.ingestionProxy.ServeHTTP(w, r)
}

// ProxyRemove forwards text removals to the ingestion service.
func (h *Handler) ProxyRemove(w http.ResponseWriter, r *http.Request) {
	h.ingestionProxy.ServeHTTP(w, r)
}

// ProxyScan forwards scan queries to the scanner service.
func (h *Handler) ProxyScan(w http.ResponseWriter, r *http.Request) {
	h.scanProxy.ServeHTTP(w, r)
}

// ProxyCorpusStats forwards corpus stats requests to the scanner service.
func (h *Handler) ProxyCorpusStats(w http.ResponseWriter, r *http.Request) {
	h.scanProxy.ServeHTTP(w, r)
}

// ProxyCacheStats forwards cache stats requests to the scanner service.
func (h *Handler) ProxyCacheStats(w http.ResponseWriter, r *http.Request) {
	h.scanProxy.ServeHTTP(w, r)
}

// ProxyCacheInvalidate forwards cache invalidation requests to the scanner service.
func (h *Handler) ProxyCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	h.scanProxy.ServeHTTP(w, r)
}

// ProxyAnalytics forwards analytics stats requests to the analytics service.
func (h *Handler) ProxyAnalytics(w http.ResponseWriter, r *http.Request) {
	h.analyticsProxy.ServeHTTP(w, r)
}

// ---------- Direct data handlers ----------

// GetText retrieves a single text's metadata from PostgreSQL by ID.
func (h *Handler) GetText(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "text id is required")
		return
	}

	var text struct {
		ID          string     `json:"id"`
		Title       string     `json:"title"`
		BodyHash    string     `json:"body_hash"`
		BodySize    int        `json:"body_size"`
		Partition   int        `json:"partition"`
		Status      string     `json:"status"`
		CreatedAt   time.Time  `json:"created_at"`
		ScannableAt *time.Time `json:"scannable_at,omitempty"`
	}

	err := h.dbBreaker.Execute(func() error {
		return h.db.DB.QueryRowContext(r.Context(),
			`SELECT id, title, body_hash, body_size, partition, status, created_at, scannable_at
			 FROM texts WHERE id = $1`, id,
		).Scan(&text.ID, &text.Title, &text.BodyHash, &text.BodySize,
			&text.Partition, &text.Status, &text.CreatedAt, &text.ScannableAt)
	})

	if errors.Is(err, resilience.ErrCircuitOpen) {
		h.writeError(w, http.StatusServiceUnavailable, "text store unavailable")
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "text not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch text", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to fetch text")
		return
	}

	h.writeJSON(w, http.StatusOK, text)
}

// ListTexts returns a paginated list of text metadata.
func (h *Handler) ListTexts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	type textSummary struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Partition int       `json:"partition"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}

	texts := make([]textSummary, 0)
	err := h.dbBreaker.Execute(func() error {
		rows, err := h.db.DB.QueryContext(r.Context(),
			`SELECT id, title, partition, status, created_at
			 FROM texts ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t textSummary
			if err := rows.Scan(&t.ID, &t.Title, &t.Partition, &t.Status, &t.CreatedAt); err != nil {
				return err
			}
			texts = append(texts, t)
		}
		return rows.Err()
	})

	if errors.Is(err, resilience.ErrCircuitOpen) {
		h.writeError(w, http.StatusServiceUnavailable, "text store unavailable")
		return
	}
	if err != nil {
		h.logger.Error("failed to list texts", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list texts")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"texts":  texts,
		"count":  len(texts),
		"limit":  limit,
		"offset": offset,
	})
}

// ---------- Admin handlers ----------

// CreateAPIKey creates a new API key and returns the raw key (shown once).
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		RateLimit int    `json:"rate_limit"`
		ExpiresIn string `json:"expires_in,omitempty"` // Go duration, e.g. "720h"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.RateLimit <= 0 {
		req.RateLimit = 100
	}

	var expiresAt *time.Time
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid expires_in duration")
			return
		}
		t := time.Now().Add(d)
		expiresAt = &t
	}

	key, err := h.keyValidator.CreateKey(r.Context(), req.Name, req.RateLimit, expiresAt)
	if err != nil {
		h.logger.Error("failed to create api key", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create api key")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"api_key": key,
		"name":    req.Name,
		"message": "store this key securely, it cannot be retrieved again",
	})
}

// ListAPIKeys returns all active API keys (without hashes).
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keyValidator.ListKeys(r.Context())
	if err != nil {
		h.logger.Error("failed to list api keys", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list api keys")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"keys":  keys,
		"count": len(keys),
	})
}

// ---------- Health ----------

// Health returns the gateway's health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "gateway"})
}

// ---------- Helpers ----------

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
