package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lingocache/internal/rag"
)

// Quiz generation must not silently fail: the call is wrapped in the retry
// policy and the UI only sees a terminal failure after attempts run out.
const (
	quizMaxRetries = 2
	quizRetryDelay = 2 * time.Second
)

type retryNotifier interface {
	RetriesExhausted(ctx context.Context, operation string, attempts int, lastErr string)
}

// QuizHandler generates quiz questions from stored lesson content.
type QuizHandler struct {
	generator generationService
	notifier  retryNotifier
	delay     time.Duration
}

func NewQuizHandler(generator generationService, notifier retryNotifier) *QuizHandler {
	return &QuizHandler{generator: generator, notifier: notifier, delay: quizRetryDelay}
}

type quizRequest struct {
	Topic      string `json:"topic"`
	Language   string `json:"language,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Count      int    `json:"count,omitempty"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

type quizResponse struct {
	Success   bool           `json:"success"`
	Questions []QuizQuestion `json:"questions,omitempty"`
	Err       string         `json:"error,omitempty"`
}

func (h *QuizHandler) HandleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	count := req.Count
	if count <= 0 || count > 20 {
		count = 5
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Minute)
	defer cancel()

	prompt := fmt.Sprintf(`Create %d multiple-choice quiz questions about %q for a language learner. Respond with a JSON array only, each element shaped as {"question": "...", "options": ["...", "...", "...", "..."], "answer": "..."}.`, count, req.Topic)

	type outcome struct {
		questions []QuizQuestion
		err       string
	}

	result, ok := rag.WithRetries(ctx, quizMaxRetries, h.delay, func(ctx context.Context) outcome {
		resp := h.generator.GenerateTagged(ctx, rag.GenerationRequest{
			Prompt: prompt,
			Context: rag.GenerationContext{
				SearchQuery: req.Topic,
			},
		}, rag.DocTypeQuestion)
		if !resp.Success {
			return outcome{err: resp.Err}
		}
		questions, err := parseQuizQuestions(resp.Content)
		if err != nil {
			return outcome{err: err.Error()}
		}
		return outcome{questions: questions}
	}, func(o outcome) bool {
		return o.err == "" && len(o.questions) > 0
	})

	if !ok {
		if h.notifier != nil {
			h.notifier.RetriesExhausted(ctx, "quiz_generation", quizMaxRetries+1, result.err)
		}
		writeJSON(w, http.StatusBadGateway, quizResponse{Err: lastError(result.err)})
		return
	}

	writeJSON(w, http.StatusOK, quizResponse{Success: true, Questions: result.questions})
}

// parseQuizQuestions extracts the JSON array from a model reply that may wrap
// it in prose or a code fence.
func parseQuizQuestions(content string) ([]QuizQuestion, error) {
	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no question array in model output")
	}

	var questions []QuizQuestion
	if err := json.Unmarshal([]byte(content[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("malformed question array: %w", err)
	}

	valid := questions[:0]
	for _, q := range questions {
		if q.Question != "" && len(q.Options) >= 2 && q.Answer != "" {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("model output contained no usable questions")
	}
	return valid, nil
}

func lastError(msg string) string {
	if msg == "" {
		return "quiz generation failed"
	}
	return msg
}
