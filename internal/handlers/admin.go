package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"lingocache/internal/rag"
)

type analyticsService interface {
	Get(ctx context.Context) rag.AnalyticsResult
}

type cleanupNotifier interface {
	CleanupCompleted(ctx context.Context, deleted, maxAgeDays int)
}

// AdminHandler serves analytics and retention cleanup.
type AdminHandler struct {
	analytics analyticsService
	store     documentStore
	notifier  cleanupNotifier
}

func NewAdminHandler(analytics analyticsService, store documentStore, notifier cleanupNotifier) *AdminHandler {
	return &AdminHandler{analytics: analytics, store: store, notifier: notifier}
}

type analyticsResponse struct {
	Analytics              *rag.AnalyticsSnapshot `json:"analytics"`
	AverageCostPerDocument float64                `json:"averageCostPerDocument"`
	ReuseRate              float64                `json:"reuseRate"`
}

func (h *AdminHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result := h.analytics.Get(ctx)
	if !result.OK() {
		writeError(w, http.StatusBadGateway, result.Err)
		return
	}

	writeJSON(w, http.StatusOK, analyticsResponse{
		Analytics:              result.Snapshot,
		AverageCostPerDocument: result.Snapshot.AverageCostPerDocument(),
		ReuseRate:              result.Snapshot.ReuseRate(),
	})
}

type cleanupRequest struct {
	MaxAgeDays int  `json:"maxAgeDays"`
	Confirm    bool `json:"confirm"`
}

// HandleCleanup deletes documents past the retention threshold. The deletion
// is irreversible, so the request must carry an explicit confirmation from
// the user; the core never prompts.
func (h *AdminHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, "cleanup requires explicit confirmation")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	result := h.store.Cleanup(ctx, req.MaxAgeDays)
	if !result.OK() {
		writeError(w, http.StatusBadGateway, result.Err)
		return
	}

	if h.notifier != nil {
		maxAge := req.MaxAgeDays
		if maxAge <= 0 {
			maxAge = rag.DefaultRetentionDays
		}
		h.notifier.CleanupCompleted(ctx, result.DeletedCount, maxAge)
	}
	writeJSON(w, http.StatusOK, result)
}
