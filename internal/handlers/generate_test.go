package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lingocache/internal/rag"
)

func post(t *testing.T, path, body string, fn http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func okGenerator() *fakeGenerator {
	return &fakeGenerator{responses: []*rag.GenerationResponse{
		{Success: true, Content: "output", DocumentIDs: []string{}},
	}}
}

func TestHandleGenerateRequiresPrompt(t *testing.T) {
	h := NewGenerateHandler(okGenerator())
	rec := post(t, "/api/generate", `{"prompt": ""}`, h.HandleGenerate)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestHandleGenerateFailureIs502(t *testing.T) {
	gen := &fakeGenerator{responses: []*rag.GenerationResponse{{Err: "model overloaded"}}}
	h := NewGenerateHandler(gen)

	rec := post(t, "/api/generate", `{"prompt": "hola"}`, h.HandleGenerate)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status %d, want 502", rec.Code)
	}
}

func TestHandleTranslate(t *testing.T) {
	gen := okGenerator()
	h := NewGenerateHandler(gen)

	rec := post(t, "/api/translate", `{"text": "good morning", "sourceLang": "en", "targetLang": "es"}`, h.HandleTranslate)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if gen.lastType != rag.DocTypeTranslation {
		t.Errorf("translations must persist as %q, got %q", rag.DocTypeTranslation, gen.lastType)
	}
	if !strings.Contains(gen.lastReq.Prompt, "good morning") || !strings.Contains(gen.lastReq.Prompt, "es") {
		t.Errorf("prompt missing inputs: %q", gen.lastReq.Prompt)
	}
	// Similar past translations are found via the source text, not the prompt.
	if gen.lastReq.Context.SearchQuery != "good morning" {
		t.Errorf("searchQuery should be the source text, got %q", gen.lastReq.Context.SearchQuery)
	}
}

func TestHandleTranslateValidation(t *testing.T) {
	h := NewGenerateHandler(okGenerator())

	for name, body := range map[string]string{
		"missing text":       `{"targetLang": "es"}`,
		"missing targetLang": `{"text": "hello"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := post(t, "/api/translate", body, h.HandleTranslate)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleStory(t *testing.T) {
	gen := okGenerator()
	h := NewGenerateHandler(gen)

	rec := post(t, "/api/story", `{"topic": "a cat in Paris", "difficulty": "beginner"}`, h.HandleStory)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if gen.lastType != rag.DocTypeStory {
		t.Errorf("stories must persist as %q, got %q", rag.DocTypeStory, gen.lastType)
	}
	if !strings.Contains(gen.lastReq.Prompt, "beginner") {
		t.Errorf("difficulty missing from prompt: %q", gen.lastReq.Prompt)
	}
}

func TestHandleVocabulary(t *testing.T) {
	gen := okGenerator()
	h := NewGenerateHandler(gen)

	rec := post(t, "/api/vocabulary", `{"topic": "animals", "count": 7}`, h.HandleVocabulary)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if gen.lastType != rag.DocTypeVocabulary {
		t.Errorf("vocabulary must persist as %q, got %q", rag.DocTypeVocabulary, gen.lastType)
	}
	if !strings.Contains(gen.lastReq.Prompt, "7") {
		t.Errorf("count missing from prompt: %q", gen.lastReq.Prompt)
	}
}
