package backend

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"lingocache/internal/metrics"
)

const (
	defaultMaxResults  = 5
	defaultThreshold   = 0.6
	defaultRetention   = 30
	recentActivitySize = 20
)

// Server exposes the store/search/generate/analytics/cleanup contract over
// JSON HTTP. It is the reference implementation of the remote backend the
// orchestration layer talks to.
type Server struct {
	store    Store
	embedder Embedder
	chat     ChatModel
	router   *mux.Router
	now      func() time.Time
}

func NewServer(store Store, embedder Embedder, chat ChatModel) *Server {
	s := &Server{
		store:    store,
		embedder: embedder,
		chat:     chat,
		router:   mux.NewRouter(),
		now:      time.Now,
	}
	s.router.HandleFunc("/init", s.handleInit).Methods("GET")
	s.router.HandleFunc("/store", s.handleStore).Methods("POST")
	s.router.HandleFunc("/search", s.handleSearch).Methods("POST")
	s.router.HandleFunc("/generate", s.handleGenerate).Methods("POST")
	s.router.HandleFunc("/analytics", s.handleAnalytics).Methods("GET")
	s.router.HandleFunc("/cleanup", s.handleCleanup).Methods("POST")
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if err := s.store.InitSchema(r.Context()); err != nil {
		slog.Error("schema initialization failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type metadataPayload struct {
	CreatedAt     time.Time `json:"createdAt"`
	LastAccessed  time.Time `json:"lastAccessed"`
	AccessCount   int       `json:"accessCount"`
	Language      string    `json:"language"`
	Tags          []string  `json:"tags"`
	Difficulty    string    `json:"difficulty"`
	EstimatedCost float64   `json:"estimatedCost"`
}

type storePayload struct {
	Content  string          `json:"content"`
	Type     string          `json:"type"`
	Topic    string          `json:"topic"`
	Metadata metadataPayload `json:"metadata"`
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var req storePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" || req.Type == "" || req.Topic == "" {
		writeError(w, http.StatusBadRequest, "content, type and topic are required")
		return
	}

	pieces := SplitContent(req.Content, 0, 0)
	embeddings, err := s.embedder.EmbedBatch(r.Context(), pieces)
	if err != nil {
		metrics.BackendStoreOperations.WithLabelValues("store", "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	createdAt := req.Metadata.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	lastAccessed := req.Metadata.LastAccessed
	if lastAccessed.Before(createdAt) {
		lastAccessed = createdAt
	}
	tags := req.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	language := req.Metadata.Language
	if language == "" {
		language = "en"
	}

	doc := &Document{
		ID:            uuid.New().String(),
		Content:       req.Content,
		Type:          req.Type,
		Topic:         req.Topic,
		Language:      language,
		Difficulty:    req.Metadata.Difficulty,
		Tags:          tags,
		EstimatedCost: req.Metadata.EstimatedCost,
		ContentHash:   HashContent(req.Content),
		LastAccessed:  lastAccessed,
		CreatedAt:     createdAt,
	}

	chunks := make([]Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = Chunk{DocumentID: doc.ID, Index: i, Content: piece, Embedding: embeddings[i]}
	}

	if err := s.store.InsertDocument(r.Context(), doc, chunks); err != nil {
		slog.Error("document insert failed", "error", err, "type", req.Type)
		metrics.BackendStoreOperations.WithLabelValues("store", "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.BackendStoreOperations.WithLabelValues("store", "success").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "documentId": doc.ID})
}

type searchPayload struct {
	Query               string  `json:"query"`
	Type                string  `json:"type"`
	Topic               string  `json:"topic"`
	Language            string  `json:"language"`
	Difficulty          string  `json:"difficulty"`
	MaxResults          int     `json:"maxResults"`
	SimilarityThreshold float64 `json:"similarityThreshold"`
	UseReranking        bool    `json:"useReranking"`
}

type searchResultPayload struct {
	Document   documentPayload `json:"document"`
	Similarity float64         `json:"similarity"`
	Relevance  float64         `json:"relevance"`
	Context    string          `json:"context"`
	ChunkIndex int             `json:"chunkIndex"`
}

type documentPayload struct {
	ID       string          `json:"id"`
	Content  string          `json:"content"`
	Type     string          `json:"type"`
	Topic    string          `json:"topic"`
	Metadata metadataPayload `json:"metadata"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = defaultMaxResults
	}
	if req.SimilarityThreshold <= 0 {
		req.SimilarityThreshold = defaultThreshold
	}

	embedding, err := s.embedder.Embed(r.Context(), req.Query)
	if err != nil {
		metrics.BackendStoreOperations.WithLabelValues("search", "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	matches, err := s.store.SearchChunks(r.Context(), SearchParams{
		Embedding:  embedding,
		Threshold:  req.SimilarityThreshold,
		Limit:      req.MaxResults,
		Type:       req.Type,
		Topic:      req.Topic,
		Language:   req.Language,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		metrics.BackendStoreOperations.WithLabelValues("search", "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ranked := Rerank(req.Query, matches, req.UseReranking)

	results := make([]searchResultPayload, 0, len(ranked))
	touched := make([]string, 0, len(ranked))
	for _, sc := range ranked {
		doc := sc.Match.Document
		results = append(results, searchResultPayload{
			Document: documentPayload{
				ID:      doc.ID,
				Content: doc.Content,
				Type:    doc.Type,
				Topic:   doc.Topic,
				Metadata: metadataPayload{
					CreatedAt:     doc.CreatedAt,
					LastAccessed:  doc.LastAccessed,
					AccessCount:   doc.AccessCount,
					Language:      doc.Language,
					Tags:          doc.Tags,
					Difficulty:    doc.Difficulty,
					EstimatedCost: doc.EstimatedCost,
				},
			},
			Similarity: sc.Match.Similarity,
			Relevance:  sc.Relevance,
			Context:    sc.Match.Chunk,
			ChunkIndex: sc.Match.ChunkIndex,
		})
		touched = append(touched, doc.ID)
	}

	// A hit is an access: bump counters for every returned document.
	if err := s.store.TouchDocuments(r.Context(), touched); err != nil {
		slog.Warn("failed to bump access counters", "error", err)
	}

	metrics.BackendStoreOperations.WithLabelValues("search", "success").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type generatePayload struct {
	Prompt  string `json:"prompt"`
	Context struct {
		SearchQuery      string `json:"searchQuery"`
		MaxContextLength int    `json:"maxContextLength"`
		IncludeMetadata  bool   `json:"includeMetadata"`
	} `json:"context"`
	Options struct {
		Model        string  `json:"model"`
		MaxTokens    int     `json:"maxTokens"`
		Temperature  float32 `json:"temperature"`
		UseReranking bool    `json:"useReranking"`
	} `json:"options"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generatePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	model := req.Options.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	completion, err := s.chat.Complete(r.Context(), model, req.Prompt, maxTokens, req.Options.Temperature)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"content": completion.Content,
		"usage": map[string]int{
			"promptTokens":     completion.PromptTokens,
			"completionTokens": completion.CompletionTokens,
		},
		"generationMetadata": map[string]any{
			"model":          model,
			"promptLength":   len(req.Prompt),
			"responseLength": len(completion.Content),
		},
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.store.Analytics(r.Context(), recentActivitySize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recent := make([]documentPayload, 0, len(analytics.Recent))
	for _, doc := range analytics.Recent {
		recent = append(recent, documentPayload{
			ID:      doc.ID,
			Content: doc.Content,
			Type:    doc.Type,
			Topic:   doc.Topic,
			Metadata: metadataPayload{
				CreatedAt:     doc.CreatedAt,
				LastAccessed:  doc.LastAccessed,
				AccessCount:   doc.AccessCount,
				Language:      doc.Language,
				Tags:          doc.Tags,
				Difficulty:    doc.Difficulty,
				EstimatedCost: doc.EstimatedCost,
			},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analytics": map[string]any{
			"totalDocuments":         analytics.TotalDocuments,
			"totalChunks":            analytics.TotalChunks,
			"totalCost":              analytics.TotalCost,
			"typeDistribution":       analytics.ByType,
			"languageDistribution":   analytics.ByLanguage,
			"difficultyDistribution": analytics.ByDifficulty,
			"recentActivity":         recent,
		},
	})
}

type cleanupPayload struct {
	MaxAgeDays int `json:"maxAgeDays"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MaxAgeDays <= 0 {
		req.MaxAgeDays = defaultRetention
	}

	cutoff := s.now().UTC().AddDate(0, 0, -req.MaxAgeDays)
	deleted, err := s.store.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		metrics.BackendStoreOperations.WithLabelValues("cleanup", "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("cleanup completed", "max_age_days", req.MaxAgeDays, "deleted", deleted)
	metrics.BackendStoreOperations.WithLabelValues("cleanup", "success").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"deletedCount": deleted})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
