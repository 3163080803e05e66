package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"lingocache/internal/rag"
)

type documentStore interface {
	Store(ctx context.Context, content, docType, topic string, meta rag.Metadata) rag.StoreResult
	Cleanup(ctx context.Context, maxAgeDays int) rag.CleanupResult
}

// StoreHandler serves explicit "store content" actions from the UI.
type StoreHandler struct {
	store documentStore
}

func NewStoreHandler(store documentStore) *StoreHandler {
	return &StoreHandler{store: store}
}

type storeRequest struct {
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Topic      string   `json:"topic"`
	Language   string   `json:"language,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

func (h *StoreHandler) HandleStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result := h.store.Store(ctx, req.Content, req.Type, req.Topic, rag.Metadata{
		Language:   req.Language,
		Difficulty: req.Difficulty,
		Tags:       req.Tags,
	})

	status := http.StatusOK
	if !result.OK() {
		status = http.StatusBadGateway
		if result.Invalid {
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, result)
}
