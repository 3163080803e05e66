package rag

import "time"

// Document types persisted by the orchestration layer. The value is stored
// verbatim on the backend and drives the analytics type distribution.
const (
	DocTypeLesson         = "lesson"
	DocTypeVocabulary     = "vocabulary"
	DocTypeStory          = "story_generation"
	DocTypeConversation   = "conversation"
	DocTypeQuestion       = "question"
	DocTypeTranslation    = "translation"
	DocTypeTextGeneration = "text_generation"
)

// Metadata carries the retrieval-facing attributes of a stored document.
// CreatedAt is immutable after creation; LastAccessed and AccessCount are
// bumped only by the backend on successful search hits.
type Metadata struct {
	CreatedAt     time.Time `json:"createdAt"`
	LastAccessed  time.Time `json:"lastAccessed"`
	AccessCount   int       `json:"accessCount"`
	Language      string    `json:"language"`
	Tags          []string  `json:"tags"`
	Difficulty    string    `json:"difficulty,omitempty"`
	EstimatedCost float64   `json:"estimatedCost,omitempty"`
}

// Document is a stored unit of content, either user-provided or recorded as a
// generation side effect. The embedding is opaque to this layer: it is
// produced and consumed only by the remote backend.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Topic     string    `json:"topic"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// SearchResult is one ranked match. Context holds the matched chunk rather
// than the whole document. Relevance equals Similarity unless reranking ran.
type SearchResult struct {
	Document   Document `json:"document"`
	Similarity float64  `json:"similarity"`
	Relevance  float64  `json:"relevance"`
	Context    string   `json:"context"`
	ChunkIndex int      `json:"chunkIndex"`
}

// SearchFilters are exact-match filters applied server-side.
type SearchFilters struct {
	Type       string `json:"type,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Language   string `json:"language,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// SearchRequest is the wire body of POST /search.
type SearchRequest struct {
	Query               string  `json:"query"`
	Type                string  `json:"type,omitempty"`
	Topic               string  `json:"topic,omitempty"`
	Language            string  `json:"language,omitempty"`
	Difficulty          string  `json:"difficulty,omitempty"`
	MaxResults          int     `json:"maxResults"`
	SimilarityThreshold float64 `json:"similarityThreshold"`
	UseReranking        bool    `json:"useReranking"`
}

// GenerationContext describes how retrieval context should be assembled for a
// generation call.
type GenerationContext struct {
	SearchQuery      string `json:"searchQuery"`
	MaxContextLength int    `json:"maxContextLength"`
	IncludeMetadata  bool   `json:"includeMetadata"`
}

// GenerationOptions are inference parameters forwarded to the model.
type GenerationOptions struct {
	Model        string  `json:"model"`
	MaxTokens    int     `json:"maxTokens"`
	Temperature  float32 `json:"temperature"`
	UseReranking bool    `json:"useReranking"`
}

// GenerationRequest is both the public input to the generation orchestrator
// and the wire body of POST /generate.
type GenerationRequest struct {
	Prompt  string            `json:"prompt"`
	Context GenerationContext `json:"context"`
	Options GenerationOptions `json:"options"`
}

// GenerationMetadata summarizes one inference call.
type GenerationMetadata struct {
	Model          string `json:"model"`
	PromptLength   int    `json:"promptLength"`
	ResponseLength int    `json:"responseLength"`
}

// TokenUsage is reported by the inference service and feeds cost estimation.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// GenerationResponse is the discriminated result of a generation call.
// Content is set iff Success; Err carries the failure reason otherwise.
// DocumentIDs and RAGContext describe the retrieved context actually used.
type GenerationResponse struct {
	Success            bool               `json:"success"`
	Content            string             `json:"content,omitempty"`
	Err                string             `json:"error,omitempty"`
	RAGContext         string             `json:"ragContext"`
	DocumentIDs        []string           `json:"documentIds"`
	EstimatedCost      float64            `json:"estimatedCost"`
	Usage              TokenUsage         `json:"usage,omitempty"`
	GenerationMetadata GenerationMetadata `json:"generationMetadata"`
}

// AnalyticsSnapshot is the backend-computed view over the document
// population. RecentActivity is ordered by createdAt descending and truncated
// by the consumer, not here.
type AnalyticsSnapshot struct {
	TotalDocuments         int            `json:"totalDocuments"`
	TotalChunks            int            `json:"totalChunks"`
	TotalCost              float64        `json:"totalCost"`
	TypeDistribution       map[string]int `json:"typeDistribution"`
	LanguageDistribution   map[string]int `json:"languageDistribution"`
	DifficultyDistribution map[string]int `json:"difficultyDistribution"`
	RecentActivity         []Document     `json:"recentActivity"`
}
