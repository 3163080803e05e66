package rag

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lingocache/internal/metrics"
)

// DefaultRetentionDays is the cleanup age threshold used when the caller does
// not supply one.
const DefaultRetentionDays = 30

// StoreResult is the discriminated outcome of a store call. Storage is
// best-effort by contract: failures surface the remote message here instead
// of aborting the calling flow.
type StoreResult struct {
	DocumentID string `json:"documentId,omitempty"`
	Err        string `json:"error,omitempty"`
	// Invalid marks failures caused by the caller's input rather than the
	// backend; handlers map it to a client error status.
	Invalid bool `json:"-"`
}

// OK reports whether the document was persisted.
func (r StoreResult) OK() bool { return r.Err == "" }

// CleanupResult reports how many documents a retention pass removed.
type CleanupResult struct {
	DeletedCount int    `json:"deletedCount"`
	Err          string `json:"error,omitempty"`
}

func (r CleanupResult) OK() bool { return r.Err == "" }

// storeClient is the slice of the transport client the store needs.
type storeClient interface {
	Store(ctx context.Context, req StoreRequest) (string, error)
	Cleanup(ctx context.Context, maxAgeDays int) (int, error)
}

// DocumentStore normalizes metadata defaults and forwards documents to the
// backend. It performs no local uniqueness checks; deduplication is the
// backend's responsibility.
type DocumentStore struct {
	client          storeClient
	defaultLanguage string
	now             func() time.Time
}

// NewDocumentStore creates a store that fills in defaultLanguage when a
// document's metadata omits one.
func NewDocumentStore(client storeClient, defaultLanguage string) *DocumentStore {
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	return &DocumentStore{client: client, defaultLanguage: defaultLanguage, now: time.Now}
}

// Store persists one document. Content, docType and topic must be non-empty;
// everything else is defaulted. The result never carries a Go error so that
// storage failures cannot abort a generation flow.
func (d *DocumentStore) Store(ctx context.Context, content, docType, topic string, meta Metadata) StoreResult {
	if strings.TrimSpace(content) == "" {
		return StoreResult{Err: "content must not be empty", Invalid: true}
	}
	if strings.TrimSpace(docType) == "" {
		return StoreResult{Err: "type must not be empty", Invalid: true}
	}
	if strings.TrimSpace(topic) == "" {
		return StoreResult{Err: "topic must not be empty", Invalid: true}
	}

	if meta.Language == "" {
		meta.Language = d.defaultLanguage
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = d.now().UTC()
	}
	if meta.LastAccessed.Before(meta.CreatedAt) {
		meta.LastAccessed = meta.CreatedAt
	}

	id, err := d.client.Store(ctx, StoreRequest{
		Content:  content,
		Type:     docType,
		Topic:    topic,
		Metadata: meta,
	})
	if err != nil {
		slog.Warn("document store failed",
			slog.String("type", docType),
			slog.String("topic", topic),
			slog.String("error", err.Error()))
		metrics.DocumentsStored.WithLabelValues(docType, "error").Inc()
		return StoreResult{Err: err.Error()}
	}

	metrics.DocumentsStored.WithLabelValues(docType, "success").Inc()
	return StoreResult{DocumentID: id}
}

// Cleanup removes documents older than maxAgeDays (DefaultRetentionDays when
// non-positive) and reports the count deleted. Irreversible: callers must
// obtain explicit user confirmation first.
func (d *DocumentStore) Cleanup(ctx context.Context, maxAgeDays int) CleanupResult {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultRetentionDays
	}

	deleted, err := d.client.Cleanup(ctx, maxAgeDays)
	if err != nil {
		metrics.CleanupRuns.WithLabelValues("error").Inc()
		return CleanupResult{Err: err.Error()}
	}

	slog.Info("retention cleanup completed",
		slog.Int("max_age_days", maxAgeDays),
		slog.Int("deleted", deleted))
	metrics.CleanupRuns.WithLabelValues("success").Inc()
	metrics.DocumentsDeleted.Add(float64(deleted))
	return CleanupResult{DeletedCount: deleted}
}
