package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"lingocache/internal/rag"
)

type searchOrchestrator interface {
	Search(ctx context.Context, query string, opts rag.SearchOptions) rag.SearchResponse
}

// SearchHandler exposes similarity search to the UI.
type SearchHandler struct {
	searcher searchOrchestrator
}

func NewSearchHandler(searcher searchOrchestrator) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

type searchRequest struct {
	Query               string  `json:"query"`
	Type                string  `json:"type,omitempty"`
	Topic               string  `json:"topic,omitempty"`
	Language            string  `json:"language,omitempty"`
	Difficulty          string  `json:"difficulty,omitempty"`
	MaxResults          int     `json:"maxResults,omitempty"`
	SimilarityThreshold float64 `json:"similarityThreshold,omitempty"`
	UseReranking        bool    `json:"useReranking,omitempty"`
}

func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	resp := h.searcher.Search(ctx, req.Query, rag.SearchOptions{
		Filters: rag.SearchFilters{
			Type:       req.Type,
			Topic:      req.Topic,
			Language:   req.Language,
			Difficulty: req.Difficulty,
		},
		MaxResults:          req.MaxResults,
		SimilarityThreshold: req.SimilarityThreshold,
		UseReranking:        req.UseReranking,
	})

	status := http.StatusOK
	if !resp.OK() && !resp.Degraded {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}
