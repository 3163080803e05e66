package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lingocache/internal/rag"
)

type generationService interface {
	Generate(ctx context.Context, req rag.GenerationRequest) *rag.GenerationResponse
	GenerateTagged(ctx context.Context, req rag.GenerationRequest, docType string) *rag.GenerationResponse
}

// GenerateHandler serves raw retrieval-augmented generation plus the
// feature-specific content entry points (translation, story, vocabulary).
type GenerateHandler struct {
	generator generationService
}

func NewGenerateHandler(generator generationService) *GenerateHandler {
	return &GenerateHandler{generator: generator}
}

func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req rag.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt cannot be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	resp := h.generator.Generate(ctx, req)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

func (h *GenerateHandler) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" || req.TargetLang == "" {
		writeError(w, http.StatusBadRequest, "text and targetLang are required")
		return
	}
	source := req.SourceLang
	if source == "" {
		source = "auto-detected"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	resp := h.generator.GenerateTagged(ctx, rag.GenerationRequest{
		Prompt: fmt.Sprintf("Translate the following text from %s to %s. Reply with the translation only.\n\n%s", source, req.TargetLang, req.Text),
		Context: rag.GenerationContext{
			SearchQuery: req.Text,
		},
	}, rag.DocTypeTranslation)

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

type storyRequest struct {
	Topic      string `json:"topic"`
	Language   string `json:"language"`
	Difficulty string `json:"difficulty"`
}

func (h *GenerateHandler) HandleStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "intermediate"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	resp := h.generator.GenerateTagged(ctx, rag.GenerationRequest{
		Prompt: fmt.Sprintf("Write a short %s-level story for a language learner about: %s. Keep vocabulary appropriate for the level.", difficulty, req.Topic),
		Context: rag.GenerationContext{
			SearchQuery: req.Topic,
		},
	}, rag.DocTypeStory)

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

type vocabularyRequest struct {
	Topic      string `json:"topic"`
	Language   string `json:"language"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

func (h *GenerateHandler) HandleVocabulary(w http.ResponseWriter, r *http.Request) {
	var req vocabularyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	count := req.Count
	if count <= 0 || count > 50 {
		count = 10
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	resp := h.generator.GenerateTagged(ctx, rag.GenerationRequest{
		Prompt: fmt.Sprintf("Generate %d vocabulary entries about %q, each with the word, a short definition, and one example sentence.", count, req.Topic),
		Context: rag.GenerationContext{
			SearchQuery: req.Topic,
		},
	}, rag.DocTypeVocabulary)

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}
