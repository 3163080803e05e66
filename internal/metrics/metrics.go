package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lingocache_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Search metrics
	SearchesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_searches_processed_total",
			Help: "Total number of similarity searches processed",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lingocache_search_duration_seconds",
			Help:    "Duration of similarity searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SearchesCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lingocache_searches_coalesced_total",
			Help: "Total number of searches that shared an in-flight round trip",
		},
	)

	// Generation metrics
	GenerationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_generations_processed_total",
			Help: "Total number of generation calls processed",
		},
		[]string{"status"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lingocache_generation_duration_seconds",
			Help:    "Duration of generation calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EstimatedCostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lingocache_estimated_cost_usd_total",
			Help: "Accumulated estimated inference cost in USD",
		},
	)

	// Retry metrics
	RetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lingocache_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
	)

	RetryExhaustions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lingocache_retry_exhaustions_total",
			Help: "Total number of operations that failed after all retries",
		},
	)

	// Storage metrics
	DocumentsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_documents_stored_total",
			Help: "Total number of documents stored",
		},
		[]string{"type", "status"},
	)

	PersistOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_persist_outcomes_total",
			Help: "Outcomes of best-effort persistence tasks",
		},
		[]string{"status"},
	)

	CleanupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_cleanup_runs_total",
			Help: "Total number of retention cleanup runs",
		},
		[]string{"status"},
	)

	DocumentsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lingocache_documents_deleted_total",
			Help: "Total number of documents removed by retention cleanup",
		},
	)

	// Analytics metrics
	AnalyticsFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_analytics_fetches_total",
			Help: "Total number of analytics snapshot fetches",
		},
		[]string{"status"},
	)

	// Backend metrics
	BackendStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_backend_store_operations_total",
			Help: "Total number of backend store operations",
		},
		[]string{"operation", "status"},
	)

	EmbeddingGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_embedding_generations_total",
			Help: "Total number of embedding generations",
		},
		[]string{"status"},
	)

	InferenceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingocache_inference_calls_total",
			Help: "Total number of inference service calls",
		},
		[]string{"status"},
	)

	InferenceCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lingocache_inference_call_duration_seconds",
			Help:    "Duration of inference service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
