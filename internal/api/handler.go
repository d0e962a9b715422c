package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/worker"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	pipeline *pipeline.Pipeline
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, p *pipeline.Pipeline, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		pipeline: p,
		version:  version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// RunResponse is the response for POST /run.
type RunResponse struct {
	Accepted bool                 `json:"accepted"`
	BatchID  string               `json:"batchId,omitempty"`
	Summary  *domain.BatchSummary `json:"summary,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// RunBatch handles POST /run. With an event bus the request is queued for
// the worker; without one the batch runs synchronously.
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "pipeline not available",
		})
		return
	}

	if h.bus != nil {
		payload, _ := json.Marshal(worker.BatchRequest{
			RequestedBy: r.RemoteAddr,
			TraceID:     GetTraceID(ctx),
		})
		if err := h.bus.Publish(ctx, domain.TopicBatchRequested, payload); err != nil {
			slog.Error("failed to queue batch request", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to queue batch request",
			})
			return
		}

		writeJSON(w, http.StatusAccepted, RunResponse{
			Accepted: true,
			Message:  "batch queued",
		})
		return
	}

	result, err := h.pipeline.Run(ctx)
	if err != nil {
		slog.Error("batch run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "batch run failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, RunResponse{
		Accepted: true,
		BatchID:  result.Batch.ID,
		Summary:  &result.Batch.Summary,
	})
}

// GetProfile handles GET /profiles/{customerID}. Serves from the profile
// cache when warm, falling back to the latest persisted batch.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerID")

	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customer id is required",
		})
		return
	}

	if h.cache != nil {
		if profile, err := h.cache.GetProfile(ctx, customerID); err == nil && profile != nil {
			writeJSON(w, http.StatusOK, profile)
			return
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	batch, err := h.repo.LatestBatch(ctx)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no scored batch available",
		})
		return
	}

	profile, err := h.repo.GetProfile(ctx, batch.ID, customerID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get profile", "customer_id", customerID, "error", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "profile not found",
		})
		return
	}

	if h.cache != nil {
		if err := h.cache.SetProfile(ctx, profile, 10*time.Minute); err != nil {
			slog.Warn("failed to cache profile", "customer_id", customerID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, profile)
}

// ListProfiles handles GET /profiles with an optional ?status= filter.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	status := domain.HybridStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.StatusStandard, domain.StatusModerate, domain.StatusHypersensitive:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unknown status filter",
		})
		return
	}

	batch, err := h.repo.LatestBatch(ctx)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no scored batch available",
		})
		return
	}

	profiles, err := h.repo.ListProfiles(ctx, batch.ID, status)
	if err != nil {
		slog.Error("failed to list profiles", "batch_id", batch.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list profiles",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batchId":  batch.ID,
		"profiles": profiles,
		"count":    len(profiles),
	})
}

// GetSummary handles GET /summary: the latest batch's business-impact
// metrics.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo != nil {
		if batch, err := h.repo.LatestBatch(ctx); err == nil {
			writeJSON(w, http.StatusOK, batch.Summary)
			return
		}
	}

	if h.pipeline != nil {
		if last := h.pipeline.LastResult(); last != nil {
			writeJSON(w, http.StatusOK, last.Batch.Summary)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "no scored batch available",
	})
}

// GetBacktest handles GET /backtest: the monthly backtest rows from the
// most recent batch run in this process.
func (h *Handler) GetBacktest(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "pipeline not available",
		})
		return
	}

	last := h.pipeline.LastResult()
	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no scored batch available",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batchId": last.Batch.ID,
		"months":  last.Backtest,
	})
}

// GetBatch handles GET /batches/{id}.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID := chi.URLParam(r, "id")

	if batchID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "batch id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	batch, err := h.repo.GetBatch(ctx, batchID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get batch", "id", batchID, "error", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "batch not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
