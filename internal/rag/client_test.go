package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubBackend is a minimal in-memory rendition of the six-endpoint contract.
type stubBackend struct {
	mux        *http.ServeMux
	storeCalls int
	documents  map[string]StoreRequest
	results    []SearchResult
	searchErr  string
	deleted    int
}

func newStubBackend() *stubBackend {
	b := &stubBackend{
		mux:       http.NewServeMux(),
		documents: map[string]StoreRequest{},
	}

	b.mux.HandleFunc("/init", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})
	b.mux.HandleFunc("/store", func(w http.ResponseWriter, r *http.Request) {
		b.storeCalls++
		var req StoreRequest
		json.NewDecoder(r.Body).Decode(&req)
		id := "doc-1"
		b.documents[id] = req
		json.NewEncoder(w).Encode(map[string]any{"success": true, "documentId": id})
	})
	b.mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if b.searchErr != "" {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": b.searchErr})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"results": b.results})
	})
	b.mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"content": "generated text",
			"usage":   map[string]int{"promptTokens": 100, "completionTokens": 50},
			"generationMetadata": map[string]any{
				"model": "gpt-4o-mini", "promptLength": 12, "responseLength": 14,
			},
		})
	})
	b.mux.HandleFunc("/analytics", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"analytics": map[string]any{
				"totalDocuments":   2,
				"totalChunks":      3,
				"totalCost":        0.01,
				"typeDistribution": map[string]int{"lesson": 1, "story_generation": 1},
			},
		})
	})
	b.mux.HandleFunc("/cleanup", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"deletedCount": b.deleted})
		b.deleted = 0
	})

	return b
}

func TestClientInitializeSetsReadiness(t *testing.T) {
	backend := newStubBackend()
	srv := httptest.NewServer(backend.mux)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	if client.Ready() {
		t.Fatal("client should not be ready before Initialize")
	}

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !client.Ready() {
		t.Fatal("client should be ready after successful Initialize")
	}

	// Initialize is idempotent.
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	if !client.Ready() {
		t.Fatal("readiness lost after repeat Initialize")
	}
}

func TestClientInitializeUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, nil)
	err := client.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable backend")
	}
	if !IsTransient(err) {
		t.Errorf("connection failure should be transient, got %v", err)
	}
	if client.Ready() {
		t.Error("client must not report ready after failed Initialize")
	}
}

func TestClientStoreRoundTrip(t *testing.T) {
	backend := newStubBackend()
	srv := httptest.NewServer(backend.mux)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	id, err := client.Store(context.Background(), StoreRequest{
		Content: "the present simple tense", Type: "lesson", Topic: "grammar",
		Metadata: Metadata{Language: "en", Tags: []string{"tense"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "doc-1" {
		t.Errorf("expected documentId doc-1, got %q", id)
	}

	stored := backend.documents["doc-1"]
	if stored.Topic != "grammar" || stored.Metadata.Language != "en" {
		t.Errorf("request body not forwarded verbatim: %+v", stored)
	}
}

func TestClientApplicationErrorIsNotTransient(t *testing.T) {
	backend := newStubBackend()
	backend.searchErr = "embedding service unavailable"
	srv := httptest.NewServer(backend.mux)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.Search(context.Background(), SearchRequest{Query: "tenses"})
	if err == nil {
		t.Fatal("expected application error")
	}
	if IsTransient(err) {
		t.Error("remote-side failure must not be classified as transport error")
	}
	// Remote-provided message is surfaced verbatim.
	if got := err.Error(); got != "/search: embedding service unavailable" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestClientMalformedJSONIsApplicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.Analytics(context.Background())
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if IsTransient(err) {
		t.Error("malformed JSON is an application error, not a transport fault")
	}
}

func TestClientGenerate(t *testing.T) {
	backend := newStubBackend()
	srv := httptest.NewServer(backend.mux)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	resp, err := client.Generate(context.Background(), GenerationRequest{Prompt: "explain tenses"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "generated text" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.PromptTokens != 100 || resp.Usage.CompletionTokens != 50 {
		t.Errorf("usage not parsed: %+v", resp.Usage)
	}
}

func TestClientCleanup(t *testing.T) {
	backend := newStubBackend()
	backend.deleted = 3
	srv := httptest.NewServer(backend.mux)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	deleted, err := client.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}

	// Second pass with nothing eligible reports zero.
	deleted, err = client.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deleted on repeat cleanup, got %d", deleted)
	}
}

func TestClientAnalytics(t *testing.T) {
	backend := newStubBackend()
	srv := httptest.NewServer(backend.mux)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	snap, err := client.Analytics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.TotalDocuments != 2 {
		t.Errorf("expected 2 documents, got %d", snap.TotalDocuments)
	}

	sum := 0
	for _, n := range snap.TypeDistribution {
		sum += n
	}
	if sum != snap.TotalDocuments {
		t.Errorf("type distribution sums to %d, want %d", sum, snap.TotalDocuments)
	}
}
