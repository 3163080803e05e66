package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"lingocache/internal/rag"
)

type answerService interface {
	Answer(ctx context.Context, question string, opts rag.AnswerOptions) *rag.AnswerResult
}

// AnswerHandler serves the lesson tutoring Q&A entry point.
type AnswerHandler struct {
	generator answerService
}

func NewAnswerHandler(generator answerService) *AnswerHandler {
	return &AnswerHandler{generator: generator}
}

type answerRequest struct {
	Question string `json:"question"`
	Topic    string `json:"topic,omitempty"`
	Language string `json:"language,omitempty"`
	Model    string `json:"model,omitempty"`
}

func (h *AnswerHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question cannot be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	result := h.generator.Answer(ctx, req.Question, rag.AnswerOptions{
		Topic:    req.Topic,
		Language: req.Language,
		Model:    req.Model,
	})

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}
