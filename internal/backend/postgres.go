package backend

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PgStore persists documents and chunk embeddings in Postgres with pgvector.
type PgStore struct {
	db *sql.DB
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createDocuments := `
		CREATE TABLE IF NOT EXISTS rag_documents (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			topic TEXT NOT NULL,
			language TEXT NOT NULL,
			difficulty TEXT,
			tags TEXT[] NOT NULL DEFAULT '{}',
			estimated_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			content_hash TEXT NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
	`
	if _, err := s.db.ExecContext(ctx, createDocuments); err != nil {
		return fmt.Errorf("failed to create rag_documents table: %w", err)
	}

	createChunks := `
		CREATE TABLE IF NOT EXISTS rag_chunks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id TEXT NOT NULL REFERENCES rag_documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			embedding VECTOR(1536),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, chunk_index)
		);
	`
	if _, err := s.db.ExecContext(ctx, createChunks); err != nil {
		return fmt.Errorf("failed to create rag_chunks table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_rag_documents_doc_type ON rag_documents(doc_type);",
		"CREATE INDEX IF NOT EXISTS idx_rag_documents_topic ON rag_documents(topic);",
		"CREATE INDEX IF NOT EXISTS idx_rag_documents_language ON rag_documents(language);",
		"CREATE INDEX IF NOT EXISTS idx_rag_documents_created_at ON rag_documents(created_at);",
		"CREATE INDEX IF NOT EXISTS idx_rag_documents_content_hash ON rag_documents(content_hash);",
		"CREATE INDEX IF NOT EXISTS idx_rag_chunks_document_id ON rag_chunks(document_id);",
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// ivfflat needs rows to build from; skipping is fine on an empty store.
	vectorIndex := "CREATE INDEX IF NOT EXISTS idx_rag_chunks_embedding ON rag_chunks USING ivfflat (embedding vector_cosine_ops);"
	if _, err := s.db.ExecContext(ctx, vectorIndex); err != nil {
		fmt.Printf("Warning: could not create vector index: %v\n", err)
	}

	return nil
}

func (s *PgStore) InsertDocument(ctx context.Context, doc *Document, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertDoc := `
		INSERT INTO rag_documents (
			id, content, doc_type, topic, language, difficulty, tags,
			estimated_cost, content_hash, last_accessed, created_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, insertDoc,
		doc.ID,
		doc.Content,
		doc.Type,
		doc.Topic,
		doc.Language,
		doc.Difficulty,
		pq.Array(doc.Tags),
		doc.EstimatedCost,
		doc.ContentHash,
		doc.LastAccessed,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	insertChunk := `
		INSERT INTO rag_chunks (document_id, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4)
	`
	for _, chunk := range chunks {
		var embedding interface{}
		if len(chunk.Embedding) > 0 {
			embedding = pgvector.NewVector(chunk.Embedding)
		}
		if _, err := tx.ExecContext(ctx, insertChunk, doc.ID, chunk.Index, chunk.Content, embedding); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

func (s *PgStore) SearchChunks(ctx context.Context, params SearchParams) ([]Match, error) {
	query := `
		SELECT d.id, d.content, d.doc_type, d.topic, d.language,
			   COALESCE(d.difficulty, ''), d.tags, d.estimated_cost,
			   d.content_hash, d.access_count, d.last_accessed, d.created_at,
			   c.content, c.chunk_index,
			   1 - (c.embedding <=> $1) AS similarity
		FROM rag_chunks c
		JOIN rag_documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL
		  AND 1 - (c.embedding <=> $1) >= $2
	`
	args := []interface{}{pgvector.NewVector(params.Embedding), params.Threshold}

	filters := []struct {
		column string
		value  string
	}{
		{"d.doc_type", params.Type},
		{"d.topic", params.Topic},
		{"d.language", params.Language},
		{"d.difficulty", params.Difficulty},
	}
	for _, f := range filters {
		if f.value == "" {
			continue
		}
		args = append(args, f.value)
		query += fmt.Sprintf(" AND %s = $%d", f.column, len(args))
	}

	args = append(args, params.Limit)
	query += fmt.Sprintf(" ORDER BY c.embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var tags pq.StringArray
		err := rows.Scan(
			&m.Document.ID,
			&m.Document.Content,
			&m.Document.Type,
			&m.Document.Topic,
			&m.Document.Language,
			&m.Document.Difficulty,
			&tags,
			&m.Document.EstimatedCost,
			&m.Document.ContentHash,
			&m.Document.AccessCount,
			&m.Document.LastAccessed,
			&m.Document.CreatedAt,
			&m.Chunk,
			&m.ChunkIndex,
			&m.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Document.Tags = tags
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PgStore) TouchDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE rag_documents
		SET access_count = access_count + 1, last_accessed = NOW()
		WHERE id = ANY($1)
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to touch documents: %w", err)
	}
	return nil
}

func (s *PgStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rag_documents WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old documents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted documents: %w", err)
	}
	return int(n), nil
}

func (s *PgStore) Analytics(ctx context.Context, recentLimit int) (*Analytics, error) {
	out := &Analytics{
		ByType:       map[string]int{},
		ByLanguage:   map[string]int{},
		ByDifficulty: map[string]int{},
	}

	totals := `
		SELECT (SELECT COUNT(*) FROM rag_documents),
			   (SELECT COUNT(*) FROM rag_chunks),
			   (SELECT COALESCE(SUM(estimated_cost), 0) FROM rag_documents)
	`
	if err := s.db.QueryRowContext(ctx, totals).Scan(&out.TotalDocuments, &out.TotalChunks, &out.TotalCost); err != nil {
		return nil, fmt.Errorf("failed to compute totals: %w", err)
	}

	distributions := []struct {
		query string
		into  map[string]int
	}{
		{"SELECT doc_type, COUNT(*) FROM rag_documents GROUP BY doc_type", out.ByType},
		{"SELECT language, COUNT(*) FROM rag_documents GROUP BY language", out.ByLanguage},
		{"SELECT COALESCE(difficulty, 'unspecified'), COUNT(*) FROM rag_documents GROUP BY difficulty", out.ByDifficulty},
	}
	for _, d := range distributions {
		rows, err := s.db.QueryContext(ctx, d.query)
		if err != nil {
			return nil, fmt.Errorf("failed to compute distribution: %w", err)
		}
		for rows.Next() {
			var key string
			var count int
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan distribution: %w", err)
			}
			d.into[key] = count
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	recent := `
		SELECT id, content, doc_type, topic, language, COALESCE(difficulty, ''),
			   tags, estimated_cost, content_hash, access_count, last_accessed, created_at
		FROM rag_documents
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, recent, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc Document
		var tags pq.StringArray
		err := rows.Scan(
			&doc.ID, &doc.Content, &doc.Type, &doc.Topic, &doc.Language,
			&doc.Difficulty, &tags, &doc.EstimatedCost, &doc.ContentHash,
			&doc.AccessCount, &doc.LastAccessed, &doc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent document: %w", err)
		}
		doc.Tags = tags
		out.Recent = append(out.Recent, doc)
	}
	return out, rows.Err()
}

func (s *PgStore) Close() error {
	return s.db.Close()
}

// HashContent fingerprints document content for duplicate detection.
func HashContent(content string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return fmt.Sprintf("%x", hash)
}
