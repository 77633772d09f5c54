package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievald",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrievald",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievald",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "retrievald",
			Name:      "embedding_batch_size",
			Help:      "Number of texts per embedding batch request",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512},
		},
	)
)

// Retrieval Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievald",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrievald",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds by stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"}, // "embed", "knn", "lexical", "total"
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "retrievald",
			Name:      "search_candidates",
			Help:      "Number of vector candidates per search after version filtering",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	SearchLexicalFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "retrievald",
			Name:      "search_lexical_fallbacks_total",
			Help:      "Total lexical scoring fallbacks to in-process matching",
		},
	)
)

// Ingestion Prometheus metrics.
var (
	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievald",
			Name:      "ingest_documents_total",
			Help:      "Total documents ingested by outcome",
		},
		[]string{"status"}, // "completed", "failed", "truncated", "conflict"
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "retrievald",
			Name:      "ingest_chunks_total",
			Help:      "Total chunks written across all ingestions",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "retrievald",
			Name:      "ingest_duration_seconds",
			Help:      "End-to-end document ingestion duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers all Prometheus metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	prometheus.MustRegister(EmbeddingBatchSize)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchCandidates)
	prometheus.MustRegister(SearchLexicalFallbacksTotal)
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(IngestChunksTotal)
	prometheus.MustRegister(IngestDuration)
	retrievalMetricsRegistered = true
}
