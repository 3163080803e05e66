package rag

import (
	"context"

	"lingocache/internal/metrics"
)

// reuseRateSmoothing dampens the content-reuse heuristic for small stores:
// rate = docs / (docs + smoothing).
const reuseRateSmoothing = 25

type analyticsClient interface {
	Analytics(ctx context.Context) (*AnalyticsSnapshot, error)
}

// AnalyticsResult is the discriminated outcome of an analytics fetch.
type AnalyticsResult struct {
	Snapshot *AnalyticsSnapshot `json:"analytics,omitempty"`
	Err      string             `json:"error,omitempty"`
}

func (r AnalyticsResult) OK() bool { return r.Err == "" }

// AnalyticsService requests the backend-computed snapshot and exposes
// convenience derivations. It applies no transformation beyond mapping into
// the local type.
type AnalyticsService struct {
	client analyticsClient
}

func NewAnalyticsService(client analyticsClient) *AnalyticsService {
	return &AnalyticsService{client: client}
}

func (a *AnalyticsService) Get(ctx context.Context) AnalyticsResult {
	snap, err := a.client.Analytics(ctx)
	if err != nil {
		metrics.AnalyticsFetches.WithLabelValues("error").Inc()
		return AnalyticsResult{Err: err.Error()}
	}
	metrics.AnalyticsFetches.WithLabelValues("success").Inc()
	return AnalyticsResult{Snapshot: snap}
}

// AverageCostPerDocument is totalCost / max(totalDocuments, 1).
func (s *AnalyticsSnapshot) AverageCostPerDocument() float64 {
	docs := s.TotalDocuments
	if docs < 1 {
		docs = 1
	}
	return s.TotalCost / float64(docs)
}

// ReuseRate is a bounded heuristic in [0,1) for how likely a request is to
// hit previously stored content.
func (s *AnalyticsSnapshot) ReuseRate() float64 {
	docs := float64(s.TotalDocuments)
	return docs / (docs + reuseRateSmoothing)
}
