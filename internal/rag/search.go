package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"lingocache/internal/metrics"
)

// Canonical retrieval defaults. Call sites that need a different threshold
// override explicitly; there is exactly one default.
const (
	DefaultSimilarityThreshold = 0.6
	DefaultMaxResults          = 5
)

// SearchOptions tune one search call. Zero values mean "use the default".
type SearchOptions struct {
	Filters             SearchFilters
	MaxResults          int
	SimilarityThreshold float64
	UseReranking        bool
}

// SearchResponse is the discriminated outcome of a search. An empty Results
// slice with no Err means "no relevant prior content". Degraded marks
// transport-level unreachability: callers fall back exactly as for an empty
// result but can label the outcome instead of fabricating matches.
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Degraded bool           `json:"degraded,omitempty"`
	Err      string         `json:"error,omitempty"`
}

func (r SearchResponse) OK() bool { return r.Err == "" }

type searchClient interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
}

// Searcher applies retrieval defaults and coalesces duplicate concurrent
// searches: identical query+filters+options share one network round trip.
type Searcher struct {
	client searchClient
	group  singleflight.Group
}

func NewSearcher(client searchClient) *Searcher {
	return &Searcher{client: client}
}

// Search runs a similarity search for query. Results come back ordered by
// relevance descending, ties broken by similarity descending, and are never
// re-filtered here: every backend-returned match is surfaced.
func (s *Searcher) Search(ctx context.Context, query string, opts SearchOptions) SearchResponse {
	if strings.TrimSpace(query) == "" {
		return SearchResponse{Err: "query must not be empty"}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}

	req := SearchRequest{
		Query:               query,
		Type:                opts.Filters.Type,
		Topic:               opts.Filters.Topic,
		Language:            opts.Filters.Language,
		Difficulty:          opts.Filters.Difficulty,
		MaxResults:          opts.MaxResults,
		SimilarityThreshold: opts.SimilarityThreshold,
		UseReranking:        opts.UseReranking,
	}

	start := time.Now()
	// The flight is detached from the initiating caller's context so that
	// one canceled request cannot fail its coalesced peers; the transport
	// client's own timeout still bounds the call. Sorting happens inside
	// the flight because every coalesced caller shares the result slice
	// and must only read it.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(fingerprint(req), func() (any, error) {
		results, err := s.client.Search(flightCtx, req)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Relevance != results[j].Relevance {
				return results[i].Relevance > results[j].Relevance
			}
			return results[i].Similarity > results[j].Similarity
		})
		return results, nil
	})
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if shared {
		metrics.SearchesCoalesced.Inc()
	}

	if err != nil {
		slog.Warn("search failed", slog.String("query", query), slog.String("error", err.Error()))
		metrics.SearchesProcessed.WithLabelValues("error").Inc()
		return SearchResponse{Degraded: IsTransient(err), Err: err.Error()}
	}

	metrics.SearchesProcessed.WithLabelValues("success").Inc()
	return SearchResponse{Results: v.([]SearchResult)}
}

// fingerprint produces the in-flight dedup key for a normalized request.
func fingerprint(req SearchRequest) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d|%.4f|%t",
		req.Query, req.Type, req.Topic, req.Language, req.Difficulty,
		req.MaxResults, req.SimilarityThreshold, req.UseReranking)
}
