package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"lingocache/internal/metrics"
)

// Completion is one inference outcome plus the token usage that callers use
// for cost estimation.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ChatModel completes an already-assembled prompt. Retrieval augmentation
// happens on the client side; this is pure inference.
type ChatModel interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int, temperature float32) (*Completion, error)
}

type OpenAIChat struct {
	client *openai.Client
}

func NewOpenAIChat(apiKey string) *OpenAIChat {
	return &OpenAIChat{client: openai.NewClient(apiKey)}
}

func (c *OpenAIChat) Complete(ctx context.Context, model, prompt string, maxTokens int, temperature float32) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant for a language learning application. Follow the user's instructions precisely.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: temperature,
	})
	metrics.InferenceCallDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.InferenceCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to call inference service: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.InferenceCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("inference service returned no choices")
	}

	metrics.InferenceCalls.WithLabelValues("success").Inc()
	return &Completion{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
