package backend

import (
	"context"
	"time"
)

// Document is one stored row plus its retrieval metadata.
type Document struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	Type          string    `json:"type"`
	Topic         string    `json:"topic"`
	Language      string    `json:"language"`
	Difficulty    string    `json:"difficulty,omitempty"`
	Tags          []string  `json:"tags"`
	EstimatedCost float64   `json:"estimatedCost,omitempty"`
	ContentHash   string    `json:"-"`
	AccessCount   int       `json:"accessCount"`
	LastAccessed  time.Time `json:"lastAccessed"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Chunk is one embeddable slice of a document.
type Chunk struct {
	DocumentID string
	Index      int
	Content    string
	Embedding  []float32
}

// SearchParams select chunks by embedding similarity with exact-match filters.
type SearchParams struct {
	Embedding  []float32
	Threshold  float64
	Limit      int
	Type       string
	Topic      string
	Language   string
	Difficulty string
}

// Match is one chunk-level hit with its parent document.
type Match struct {
	Document   Document
	Chunk      string
	ChunkIndex int
	Similarity float64
}

// Analytics is the aggregate view over the document population.
type Analytics struct {
	TotalDocuments int
	TotalChunks    int
	TotalCost      float64
	ByType         map[string]int
	ByLanguage     map[string]int
	ByDifficulty   map[string]int
	Recent         []Document
}

// Store is the persistence contract the HTTP surface runs against.
type Store interface {
	InitSchema(ctx context.Context) error
	InsertDocument(ctx context.Context, doc *Document, chunks []Chunk) error
	SearchChunks(ctx context.Context, params SearchParams) ([]Match, error)
	TouchDocuments(ctx context.Context, ids []string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	Analytics(ctx context.Context, recentLimit int) (*Analytics, error)
	Close() error
}
