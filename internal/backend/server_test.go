package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	docs      map[string]*Document
	chunks    map[string][]Chunk
	touched   []string
	initErr   error
	insertErr error
	searchErr error
	matches   []Match
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]*Document{}, chunks: map[string][]Chunk{}}
}

func (f *fakeStore) InitSchema(ctx context.Context) error { return f.initErr }

func (f *fakeStore) InsertDocument(ctx context.Context, doc *Document, chunks []Chunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.docs[doc.ID] = doc
	f.chunks[doc.ID] = chunks
	return nil
}

func (f *fakeStore) SearchChunks(ctx context.Context, params SearchParams) ([]Match, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := []Match{}
	for _, m := range f.matches {
		if m.Similarity < params.Threshold {
			continue
		}
		if params.Type != "" && m.Document.Type != params.Type {
			continue
		}
		if params.Language != "" && m.Document.Language != params.Language {
			continue
		}
		out = append(out, m)
		if len(out) == params.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) TouchDocuments(ctx context.Context, ids []string) error {
	f.touched = append(f.touched, ids...)
	return nil
}

func (f *fakeStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	for id, doc := range f.docs {
		if doc.CreatedAt.Before(cutoff) {
			delete(f.docs, id)
			delete(f.chunks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) Analytics(ctx context.Context, recentLimit int) (*Analytics, error) {
	a := &Analytics{
		ByType:       map[string]int{},
		ByLanguage:   map[string]int{},
		ByDifficulty: map[string]int{},
	}
	for _, doc := range f.docs {
		a.TotalDocuments++
		a.TotalChunks += len(f.chunks[doc.ID])
		a.TotalCost += doc.EstimatedCost
		a.ByType[doc.Type]++
		a.ByLanguage[doc.Language]++
	}
	return a, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeChat struct {
	content string
	err     error
}

func (f *fakeChat) Complete(ctx context.Context, model, prompt string, maxTokens int, temperature float32) (*Completion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Completion{Content: f.content, PromptTokens: 50, CompletionTokens: 25}, nil
}

func newTestServer(store *fakeStore) *Server {
	return NewServer(store, &fakeEmbedder{}, &fakeChat{content: "generated"})
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHandleInit(t *testing.T) {
	rec := doJSON(t, newTestServer(newFakeStore()), http.MethodGet, "/init", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var reply struct {
		Success bool `json:"success"`
	}
	json.Unmarshal(rec.Body.Bytes(), &reply)
	if !reply.Success {
		t.Error("expected success true")
	}
}

func TestHandleInitSchemaFailure(t *testing.T) {
	store := newFakeStore()
	store.initErr = errors.New("permission denied")

	rec := doJSON(t, newTestServer(store), http.MethodGet, "/init", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}

	var reply struct {
		Error string `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &reply)
	if reply.Error == "" {
		t.Error("error envelope missing")
	}
}

func TestHandleStore(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	rec := doJSON(t, srv, http.MethodPost, "/store", map[string]any{
		"content": "El pretérito se usa para acciones completadas.",
		"type":    "lesson",
		"topic":   "grammar",
		"metadata": map[string]any{
			"language": "es",
			"tags":     []string{"tense"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var reply struct {
		Success    bool   `json:"success"`
		DocumentID string `json:"documentId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &reply)
	if !reply.Success || reply.DocumentID == "" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	doc := store.docs[reply.DocumentID]
	if doc == nil {
		t.Fatal("document not inserted")
	}
	if doc.Language != "es" || doc.Type != "lesson" {
		t.Errorf("document fields wrong: %+v", doc)
	}
	if doc.ContentHash == "" {
		t.Error("content hash not computed")
	}
	if len(store.chunks[doc.ID]) == 0 {
		t.Error("no chunks inserted")
	}
}

func TestHandleStoreValidation(t *testing.T) {
	srv := newTestServer(newFakeStore())

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing content", map[string]any{"type": "lesson", "topic": "grammar"}},
		{"missing type", map[string]any{"content": "x", "topic": "grammar"}},
		{"missing topic", map[string]any{"content": "x", "type": "lesson"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/store", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleStoreMalformedJSON(t *testing.T) {
	srv := newTestServer(newFakeStore())

	req := httptest.NewRequest(http.MethodPost, "/store", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	var reply struct {
		Error string `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &reply)
	if reply.Error == "" {
		t.Error("malformed JSON must produce the error envelope")
	}
}

// Storing a lesson then searching for it end to end through the HTTP surface.
func TestStoreThenSearch(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	rec := doJSON(t, srv, http.MethodPost, "/store", map[string]any{
		"content": "The subjunctive mood expresses doubt and desire.",
		"type":    "lesson",
		"topic":   "grammar",
	})
	var stored struct {
		DocumentID string `json:"documentId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &stored)

	// The fake store has no vector math; surface the stored doc as a match.
	doc := store.docs[stored.DocumentID]
	store.matches = []Match{{
		Document:   *doc,
		Chunk:      doc.Content,
		ChunkIndex: 0,
		Similarity: 0.91,
	}}

	rec = doJSON(t, srv, http.MethodPost, "/search", map[string]any{
		"query": "when is the subjunctive used?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var reply struct {
		Results []struct {
			Document struct {
				ID string `json:"id"`
			} `json:"document"`
			Similarity float64 `json:"similarity"`
			Relevance  float64 `json:"relevance"`
			Context    string  `json:"context"`
		} `json:"results"`
	}
	json.Unmarshal(rec.Body.Bytes(), &reply)
	if len(reply.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(reply.Results))
	}
	res := reply.Results[0]
	if res.Document.ID != stored.DocumentID {
		t.Errorf("wrong document returned: %q", res.Document.ID)
	}
	if res.Similarity != 0.91 || res.Relevance != 0.91 {
		t.Errorf("relevance must equal similarity without reranking: %+v", res)
	}
	if res.Context == "" {
		t.Error("context chunk missing")
	}

	if len(store.touched) != 1 || store.touched[0] != stored.DocumentID {
		t.Errorf("returned documents must be touched, got %v", store.touched)
	}
}

func TestHandleSearchEmptyResults(t *testing.T) {
	rec := doJSON(t, newTestServer(newFakeStore()), http.MethodPost, "/search", map[string]any{
		"query": "anything",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("no matches is not an error, got status %d", rec.Code)
	}

	var reply struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reply.Results == nil {
		t.Error("results must be an empty list, not null")
	}
}

func TestHandleSearchRequiresQuery(t *testing.T) {
	rec := doJSON(t, newTestServer(newFakeStore()), http.MethodPost, "/search", map[string]any{
		"query": "  ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestHandleGenerate(t *testing.T) {
	rec := doJSON(t, newTestServer(newFakeStore()), http.MethodPost, "/generate", map[string]any{
		"prompt": "Explain ser versus estar.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var reply struct {
		Success bool   `json:"success"`
		Content string `json:"content"`
		Usage   struct {
			PromptTokens     int `json:"promptTokens"`
			CompletionTokens int `json:"completionTokens"`
		} `json:"usage"`
		GenerationMetadata struct {
			Model        string `json:"model"`
			PromptLength int    `json:"promptLength"`
		} `json:"generationMetadata"`
	}
	json.Unmarshal(rec.Body.Bytes(), &reply)
	if !reply.Success || reply.Content != "generated" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if reply.Usage.PromptTokens != 50 || reply.Usage.CompletionTokens != 25 {
		t.Errorf("usage missing: %+v", reply.Usage)
	}
	if reply.GenerationMetadata.Model != "gpt-4o-mini" {
		t.Errorf("model default not reported: %+v", reply.GenerationMetadata)
	}
	if reply.GenerationMetadata.PromptLength != len("Explain ser versus estar.") {
		t.Errorf("promptLength wrong: %d", reply.GenerationMetadata.PromptLength)
	}
}

func TestHandleGenerateInferenceFailure(t *testing.T) {
	srv := NewServer(newFakeStore(), &fakeEmbedder{}, &fakeChat{err: errors.New("model overloaded")})

	rec := doJSON(t, srv, http.MethodPost, "/generate", map[string]any{"prompt": "hola"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return fixed }

	store.docs["old"] = &Document{ID: "old", CreatedAt: fixed.AddDate(0, 0, -60)}
	store.docs["new"] = &Document{ID: "new", CreatedAt: fixed.AddDate(0, 0, -5)}

	rec := doJSON(t, srv, http.MethodPost, "/cleanup", map[string]any{"maxAgeDays": 30})
	var reply struct {
		DeletedCount int `json:"deletedCount"`
	}
	json.Unmarshal(rec.Body.Bytes(), &reply)
	if reply.DeletedCount != 1 {
		t.Fatalf("expected 1 deleted, got %d", reply.DeletedCount)
	}
	if _, ok := store.docs["new"]; !ok {
		t.Fatal("recent document must survive cleanup")
	}

	// Immediate second run deletes nothing.
	rec = doJSON(t, srv, http.MethodPost, "/cleanup", map[string]any{"maxAgeDays": 30})
	json.Unmarshal(rec.Body.Bytes(), &reply)
	if reply.DeletedCount != 0 {
		t.Errorf("second cleanup must delete 0, got %d", reply.DeletedCount)
	}
}

func TestCleanupDefaultRetention(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return fixed }

	store.docs["borderline"] = &Document{ID: "borderline", CreatedAt: fixed.AddDate(0, 0, -31)}

	rec := doJSON(t, srv, http.MethodPost, "/cleanup", map[string]any{})
	var reply struct {
		DeletedCount int `json:"deletedCount"`
	}
	json.Unmarshal(rec.Body.Bytes(), &reply)
	if reply.DeletedCount != 1 {
		t.Errorf("default retention should remove a 31-day-old document, got %d", reply.DeletedCount)
	}
}

// Analytics totals stay consistent as documents are stored and removed.
func TestAnalyticsTracksPopulation(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	for _, body := range []map[string]any{
		{"content": "lesson one", "type": "lesson", "topic": "grammar"},
		{"content": "lesson two", "type": "lesson", "topic": "grammar"},
		{"content": "un cuento corto", "type": "story_generation", "topic": "stories",
			"metadata": map[string]any{"language": "es"}},
	} {
		if rec := doJSON(t, srv, http.MethodPost, "/store", body); rec.Code != http.StatusOK {
			t.Fatalf("store failed: %s", rec.Body.String())
		}
	}

	rec := doJSON(t, srv, http.MethodGet, "/analytics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var reply struct {
		Analytics struct {
			TotalDocuments   int            `json:"totalDocuments"`
			TotalChunks      int            `json:"totalChunks"`
			TypeDistribution map[string]int `json:"typeDistribution"`
		} `json:"analytics"`
	}
	json.Unmarshal(rec.Body.Bytes(), &reply)

	a := reply.Analytics
	if a.TotalDocuments != 3 {
		t.Errorf("expected 3 documents, got %d", a.TotalDocuments)
	}
	if a.TotalChunks < a.TotalDocuments {
		t.Errorf("every document has at least one chunk: %d chunks for %d docs",
			a.TotalChunks, a.TotalDocuments)
	}
	if a.TypeDistribution["lesson"] != 2 || a.TypeDistribution["story_generation"] != 1 {
		t.Errorf("type distribution wrong: %v", a.TypeDistribution)
	}

	sum := 0
	for _, n := range a.TypeDistribution {
		sum += n
	}
	if sum != a.TotalDocuments {
		t.Errorf("type distribution sums to %d, want %d", sum, a.TotalDocuments)
	}
}

func TestHashContent(t *testing.T) {
	if got := HashContent("hello world"); got != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("unexpected hash %s", got)
	}
	// Surrounding whitespace does not change identity.
	if HashContent("  hello world\n") != HashContent("hello world") {
		t.Error("hash must ignore surrounding whitespace")
	}
	if HashContent("hello world") == HashContent("hello  world") {
		t.Error("interior changes must change the hash")
	}
}
