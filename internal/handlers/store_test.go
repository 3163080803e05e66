package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lingocache/internal/rag"
)

func postStore(t *testing.T, h *StoreHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/store", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleStore(rec, req)
	return rec
}

func TestHandleStoreSuccess(t *testing.T) {
	store := &fakeDocStore{storeRes: rag.StoreResult{DocumentID: "doc-1"}}
	h := NewStoreHandler(store)

	rec := postStore(t, h, `{"content": "lesson text", "type": "lesson", "topic": "grammar"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if store.lastContent != "lesson text" {
		t.Errorf("content not forwarded: %q", store.lastContent)
	}
}

func TestHandleStoreValidationIsClientError(t *testing.T) {
	h := NewStoreHandler(&fakeDocStore{storeRes: rag.StoreResult{Err: "content must not be empty", Invalid: true}})

	rec := postStore(t, h, `{"type": "lesson", "topic": "grammar"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("validation failures are the client's fault, status %d", rec.Code)
	}
}

func TestHandleStoreBackendFailure(t *testing.T) {
	// Even a backend error whose message resembles a validation message maps
	// to 502: the status split follows the typed flag, not the text.
	h := NewStoreHandler(&fakeDocStore{storeRes: rag.StoreResult{Err: "content must not be empty"}})

	rec := postStore(t, h, `{"content": "x", "type": "lesson", "topic": "grammar"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("backend failures map to 502, got %d", rec.Code)
	}
}
