package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"lingocache/internal/metrics"
)

// Generation defaults, applied when the caller leaves options zero.
const (
	DefaultModel            = "gpt-4o-mini"
	DefaultMaxTokens        = 1000
	DefaultTemperature      = 0.7
	DefaultMaxContextLength = 2000
)

// AnswerSimilarityThreshold is the deliberate call-site override used by
// Answer: tutoring answers only cite strong matches.
const AnswerSimilarityThreshold = 0.7

type inferenceClient interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}

type searchService interface {
	Search(ctx context.Context, query string, opts SearchOptions) SearchResponse
}

type persistEnqueuer interface {
	Enqueue(task PersistTask)
}

// Generator is the generation orchestrator. Each call searches for relevant
// prior documents, augments the prompt with what it finds, invokes the
// inference service, and hands the outcome to the persist queue. Persistence
// never blocks or fails the result returned to the caller.
type Generator struct {
	client   inferenceClient
	searcher searchService
	queue    persistEnqueuer
}

func NewGenerator(client inferenceClient, searcher searchService, queue persistEnqueuer) *Generator {
	return &Generator{client: client, searcher: searcher, queue: queue}
}

// Generate runs one retrieval-augmented generation call, persisting the
// outcome as a text_generation document.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) *GenerationResponse {
	return g.generate(ctx, req, DocTypeTextGeneration)
}

// GenerateTagged is Generate with the persisted document type set by the
// call site (translation, story_generation, vocabulary, ...).
func (g *Generator) GenerateTagged(ctx context.Context, req GenerationRequest, docType string) *GenerationResponse {
	if docType == "" {
		docType = DocTypeTextGeneration
	}
	return g.generate(ctx, req, docType)
}

func (g *Generator) generate(ctx context.Context, req GenerationRequest, docType string) *GenerationResponse {
	start := time.Now()

	if strings.TrimSpace(req.Prompt) == "" {
		metrics.GenerationsProcessed.WithLabelValues("error").Inc()
		return &GenerationResponse{Err: "prompt must not be empty", DocumentIDs: []string{}}
	}
	applyOptionDefaults(&req)

	// SEARCHING: derive the query from the caller-supplied context, falling
	// back to the raw prompt.
	query := req.Context.SearchQuery
	if strings.TrimSpace(query) == "" {
		query = req.Prompt
	}
	sr := g.searcher.Search(ctx, query, SearchOptions{
		UseReranking: req.Options.UseReranking,
	})
	if !sr.OK() {
		// Search failure is treated as "no prior content": generation
		// proceeds unaugmented, the error is only surfaced for diagnostics.
		slog.Warn("context search failed, generating without augmentation",
			slog.String("error", sr.Err),
			slog.Bool("degraded", sr.Degraded))
	}

	ragContext, docIDs := assembleContext(sr.Results, req.Context.MaxContextLength, req.Context.IncludeMetadata)

	// GENERATING: send the possibly augmented prompt.
	wire := req
	if ragContext != "" {
		wire.Prompt = fmt.Sprintf("Use the following previously stored study material as context:\n\n%s\n\n---\n\n%s", ragContext, req.Prompt)
	}

	resp, err := g.client.Generate(ctx, wire)
	if err != nil {
		metrics.GenerationsProcessed.WithLabelValues("error").Inc()
		return &GenerationResponse{
			Err:         err.Error(),
			RAGContext:  ragContext,
			DocumentIDs: docIDs,
		}
	}

	out := *resp
	out.Success = true
	out.RAGContext = ragContext
	out.DocumentIDs = docIDs
	if out.GenerationMetadata.Model == "" {
		out.GenerationMetadata.Model = req.Options.Model
	}
	if out.GenerationMetadata.PromptLength == 0 {
		out.GenerationMetadata.PromptLength = len(wire.Prompt)
	}
	if out.GenerationMetadata.ResponseLength == 0 {
		out.GenerationMetadata.ResponseLength = len(out.Content)
	}
	if out.EstimatedCost <= 0 {
		out.EstimatedCost = EstimateCost(out.GenerationMetadata.Model, out.Usage)
	}

	// STORING: fire-and-forget, after the response is prepared.
	if out.Content != "" {
		g.queue.Enqueue(PersistTask{
			Content: req.Prompt + "\n\n" + out.Content,
			DocType: docType,
			Topic:   query,
			Metadata: Metadata{
				Tags:          []string{"generated"},
				EstimatedCost: out.EstimatedCost,
			},
		})
	}

	metrics.GenerationsProcessed.WithLabelValues("success").Inc()
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	metrics.EstimatedCostTotal.Add(out.EstimatedCost)
	return &out
}

// AnswerOptions tune one tutoring answer.
type AnswerOptions struct {
	Topic     string
	Language  string
	Model     string
	MaxTokens int
}

// AnswerResult distinguishes "answered using retrieved context" (non-empty
// Sources) from "answered from general knowledge" (empty Sources).
type AnswerResult struct {
	Success       bool           `json:"success"`
	Answer        string         `json:"answer,omitempty"`
	Sources       []SearchResult `json:"sources"`
	EstimatedCost float64        `json:"estimatedCost"`
	Err           string         `json:"error,omitempty"`
}

// Answer is the higher-level Q&A entry point used by lesson tutoring. When
// retrieval yields nothing it still answers via unaugmented generation
// rather than failing, recording an explicitly empty source list.
func (g *Generator) Answer(ctx context.Context, question string, opts AnswerOptions) *AnswerResult {
	if strings.TrimSpace(question) == "" {
		return &AnswerResult{Err: "question must not be empty", Sources: []SearchResult{}}
	}

	sr := g.searcher.Search(ctx, question, SearchOptions{
		Filters:             SearchFilters{Topic: opts.Topic, Language: opts.Language},
		SimilarityThreshold: AnswerSimilarityThreshold,
	})
	if !sr.OK() {
		slog.Warn("answer search failed, falling back to general knowledge",
			slog.String("error", sr.Err))
	}

	sources := sr.Results
	if sources == nil {
		sources = []SearchResult{}
	}

	req := GenerationRequest{
		Prompt: buildAnswerPrompt(question, sources),
		Context: GenerationContext{
			// Retrieval already ran above; the wire context is informational
			// for the backend.
			SearchQuery: question,
		},
		Options: GenerationOptions{
			Model:     opts.Model,
			MaxTokens: opts.MaxTokens,
		},
	}
	applyOptionDefaults(&req)

	resp, err := g.client.Generate(ctx, req)
	if err != nil {
		metrics.GenerationsProcessed.WithLabelValues("error").Inc()
		return &AnswerResult{Err: err.Error(), Sources: sources}
	}

	model := resp.GenerationMetadata.Model
	if model == "" {
		model = req.Options.Model
	}
	cost := resp.EstimatedCost
	if cost <= 0 {
		cost = EstimateCost(model, resp.Usage)
	}

	if resp.Content != "" {
		g.queue.Enqueue(PersistTask{
			Content: question + "\n\n" + resp.Content,
			DocType: DocTypeQuestion,
			Topic:   answerTopic(opts.Topic, question),
			Metadata: Metadata{
				Language:      opts.Language,
				Tags:          []string{"generated", "tutoring"},
				EstimatedCost: cost,
			},
		})
	}

	metrics.GenerationsProcessed.WithLabelValues("success").Inc()
	metrics.EstimatedCostTotal.Add(cost)
	return &AnswerResult{
		Success:       true,
		Answer:        resp.Content,
		Sources:       sources,
		EstimatedCost: cost,
	}
}

func applyOptionDefaults(req *GenerationRequest) {
	if req.Options.Model == "" {
		req.Options.Model = DefaultModel
	}
	if req.Options.MaxTokens <= 0 {
		req.Options.MaxTokens = DefaultMaxTokens
	}
	if req.Options.Temperature <= 0 {
		req.Options.Temperature = DefaultTemperature
	}
	if req.Context.MaxContextLength <= 0 {
		req.Context.MaxContextLength = DefaultMaxContextLength
	}
}

// assembleContext concatenates retrieved chunks in relevance order up to
// maxLen characters and returns the context block plus the originating
// document ids in order of first use.
func assembleContext(results []SearchResult, maxLen int, includeMetadata bool) (string, []string) {
	if maxLen <= 0 {
		maxLen = DefaultMaxContextLength
	}

	var b strings.Builder
	docIDs := []string{}
	seen := map[string]bool{}

	for _, res := range results {
		chunk := strings.TrimSpace(res.Context)
		if chunk == "" {
			continue
		}
		if includeMetadata {
			chunk = fmt.Sprintf("[%s / %s] %s", res.Document.Type, res.Document.Topic, chunk)
		}

		remaining := maxLen - b.Len()
		if remaining <= 0 {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
			remaining -= 2
			if remaining <= 0 {
				break
			}
		}
		if len(chunk) > remaining {
			// Cut back to a rune start so the truncation never emits a
			// broken multi-byte character.
			cut := remaining
			for cut > 0 && !utf8.RuneStart(chunk[cut]) {
				cut--
			}
			chunk = chunk[:cut]
		}
		b.WriteString(chunk)

		if id := res.Document.ID; id != "" && !seen[id] {
			seen[id] = true
			docIDs = append(docIDs, id)
		}
	}

	return b.String(), docIDs
}

func buildAnswerPrompt(question string, sources []SearchResult) string {
	if len(sources) == 0 {
		return fmt.Sprintf("You are a language tutor. Answer the student's question clearly and concisely.\n\nQuestion: %s", question)
	}

	block, _ := assembleContext(sources, DefaultMaxContextLength, true)
	return fmt.Sprintf("You are a language tutor. Answer the student's question using the lesson material below where it is relevant, and say so when it is not.\n\nLesson material:\n%s\n\nQuestion: %s", block, question)
}

func answerTopic(topic, question string) string {
	if topic != "" {
		return topic
	}
	return question
}
