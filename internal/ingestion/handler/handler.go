// Package handler exposes the text submission HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/permscan/permscan/internal/analytics"
	"github.com/permscan/permscan/internal/ingestion"
	"github.com/permscan/permscan/internal/ingestion/publisher"
	"github.com/permscan/permscan/internal/ingestion/validator"
	apperrors "github.com/permscan/permscan/pkg/errors"
	"github.com/permscan/permscan/pkg/logger"
)

type Handler struct {
	publisher *publisher.Publisher
	validator *validator.Validator
	collector analytics.Tracker
	logger    *slog.Logger
}

// New creates a Handler. collector may be nil when analytics is disabled.
func New(pub *publisher.Publisher, v *validator.Validator, collector analytics.Tracker) *Handler {
	return &Handler{
		publisher: pub,
		validator: v,
		collector: collector,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

// Submit handles POST /api/v1/texts.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ingestion.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validator.ValidateSubmitRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.publisher.Submit(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("submission failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "submission failed")
		return
	}
	log.Info("text submitted",
		"text_id", resp.TextID,
		"partition", resp.Partition,
	)

	if h.collector != nil {
		h.collector.Track(analytics.IngestEvent{
			Type:      analytics.EventIngest,
			TextID:    resp.TextID,
			Partition: resp.Partition,
			SizeBytes: len(req.Body),
			LatencyMs: time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC(),
		})
	}

	h.writeJSON(w, http.StatusAccepted, resp)
}

// Remove handles DELETE /api/v1/texts/{id}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	textID := r.PathValue("id")
	if textID == "" {
		h.writeError(w, http.StatusBadRequest, "text id is required")
		return
	}
	if err := h.publisher.Remove(ctx, textID); err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		if statusCode >= http.StatusInternalServerError {
			log.Error("removal failed", "text_id", textID, "error", err)
			h.writeError(w, statusCode, "removal failed")
			return
		}
		h.writeError(w, statusCode, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "text_id": textID})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
